package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	"connect6_datagen/internal/usecase/selfplay"
)

type EpisodeRunner interface {
	RunEpisode(ctx context.Context, seed int64) (selfplay.Episode, error)
}

type ProgressSink interface {
	Publish(ctx context.Context, p corpus.Progress)
}

// Upper bounds for run requests.
const (
	MaxTarget  = 100_000
	MaxWorkers = 256
)

type Options struct {
	Target           int
	Oversubscription float64
	Workers          int
	TaskTimeout      time.Duration
}

// DefaultWorkers leaves two cores to the rest of the machine.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 2; n > 0 {
		return n
	}
	return 1
}

// Tasks is the number of episodes submitted for a target.
func (o Options) Tasks() int {
	factor := o.Oversubscription
	if factor < 1 {
		factor = 1
	}
	return int(math.Ceil(float64(o.Target) * factor))
}

type Task struct {
	Index int
	Seed  int64
}

// Game is the move list of one collected episode.
type Game struct {
	Task   Task
	Winner board.Player
	Plies  int
	Moves  []board.Action
}

type Result struct {
	Examples []corpus.TrainingExample
	Games    []Game
	Progress corpus.Progress
}

type taskResult struct {
	task    Task
	episode selfplay.Episode
	err     error
}

type Generator struct {
	runner   EpisodeRunner
	opts     Options
	logger   *zap.SugaredLogger
	sink     ProgressSink
	seedBase func() int64
}

func NewGenerator(runner EpisodeRunner, opts Options, logger *zap.SugaredLogger, sinks ...ProgressSink) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	return &Generator{
		runner:   runner,
		opts:     opts,
		logger:   logger,
		sink:     MultiSink(sinks),
		seedBase: wallClockEntropy,
	}
}

func wallClockEntropy() int64 {
	return time.Now().UnixNano() ^ int64(frand.Uint64n(math.MaxInt32))
}

// Generate submits Options.Tasks() episodes to a pool of Options.Workers
// goroutines and collects their results in submission order until Target
// decisive episodes have been gathered. Outstanding tasks are cancelled
// and never waited on.
func (g *Generator) Generate(ctx context.Context, runID string) (Result, error) {
	total := g.opts.Tasks()
	progress := corpus.Progress{
		RunID:     runID,
		Status:    corpus.StatusRunning,
		Target:    g.opts.Target,
		Submitted: total,
		StartedAt: time.Now(),
	}
	res := Result{}
	if g.opts.Target <= 0 {
		res.Progress = progress
		return res, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan taskResult, total)
	for i := range results {
		results[i] = make(chan taskResult, 1)
	}

	base := g.seedBase()
	g.logger.Infof("run %s: submitting %d tasks to %d workers for %d games", runID, total, g.opts.Workers, g.opts.Target)
	go g.submit(runCtx, base, results)

	for i := 0; i < total; i++ {
		var r taskResult
		if ctx.Err() == nil {
			select {
			case r = <-results[i]:
			case <-ctx.Done():
			}
		}
		if err := ctx.Err(); err != nil {
			progress.Status = corpus.StatusFailed
			progress.Error = err.Error()
			res.Progress = g.touch(ctx, progress)
			return res, err
		}

		switch {
		case r.err != nil:
			progress.Discarded++
			if errors.Is(r.err, context.DeadlineExceeded) {
				g.logger.Warnf("run %s: task %d timed out after %s", runID, r.task.Index, g.opts.TaskTimeout)
			} else {
				progress.Failed++
				g.logger.Errorf("run %s: task %d failed: %v", runID, r.task.Index, r.err)
			}
		case !r.episode.Decisive:
			progress.Discarded++
			g.logger.Debugf("run %s: task %d discarded after %d plies", runID, r.task.Index, r.episode.Plies)
		default:
			progress.Completed++
			progress.Examples += len(r.episode.Examples)
			res.Examples = append(res.Examples, r.episode.Examples...)
			res.Games = append(res.Games, Game{
				Task:   r.task,
				Winner: r.episode.Winner,
				Plies:  r.episode.Plies,
				Moves:  r.episode.Moves,
			})
		}
		progress = g.touch(ctx, progress)

		if progress.Completed >= g.opts.Target {
			cancel()
			break
		}
	}

	if progress.Completed < g.opts.Target {
		g.logger.Warnf("run %s: only %d of %d games were decisive", runID, progress.Completed, g.opts.Target)
	}
	g.logger.Infof("run %s: collected %d examples from %d games (%d discarded)",
		runID, progress.Examples, progress.Completed, progress.Discarded)
	res.Progress = progress
	return res, nil
}

func (g *Generator) touch(ctx context.Context, p corpus.Progress) corpus.Progress {
	p.UpdatedAt = time.Now()
	g.sink.Publish(ctx, p)
	return p
}

// submit feeds the pool. Once ctx is done the remaining slots are filled
// with cancellation results instead of being scheduled.
func (g *Generator) submit(ctx context.Context, base int64, results []chan taskResult) {
	pool := new(errgroup.Group)
	pool.SetLimit(g.opts.Workers)
	for i := range results {
		task := Task{Index: i, Seed: base + int64(i)}
		if err := ctx.Err(); err != nil {
			results[i] <- taskResult{task: task, err: err}
			continue
		}
		out := results[i]
		pool.Go(func() error {
			out <- g.runTask(ctx, task)
			return nil
		})
	}
}

// runTask waits for one episode until ctx expires. An episode that never
// looks at ctx is left running; its result is dropped.
func (g *Generator) runTask(ctx context.Context, task Task) taskResult {
	if g.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.TaskTimeout)
		defer cancel()
	}
	done := make(chan taskResult, 1)
	go func() {
		r := taskResult{task: task}
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("task %d panicked: %v", task.Index, p)
			}
			done <- r
		}()
		r.episode, r.err = g.runner.RunEpisode(ctx, task.Seed)
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		select {
		case r := <-done:
			return r
		default:
		}
		return taskResult{task: task, err: ctx.Err()}
	}
}

package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/usecase/generator"
	"connect6_datagen/internal/usecase/selfplay"
)

type CorpusWriter interface {
	Save(ctx context.Context, c corpus.Corpus) error
}

// WriterFactory returns the destinations of one run's corpus.
type WriterFactory func(runID string) []CorpusWriter

type ProgressStore interface {
	SaveProgress(ctx context.Context, p corpus.Progress) error
	GetProgress(ctx context.Context, runID string) (corpus.Progress, error)
}

type PositionCounter interface {
	AddPositions(ctx context.Context, runID string, keys []board.Key) error
	DistinctPositions(ctx context.Context, runID string) (int64, error)
}

type GameRecorder interface {
	SaveGames(ctx context.Context, runID string, n int, games []generator.Game) error
}

type Settings struct {
	SelfPlay    selfplay.Config
	Generator   generator.Options
	RecordGames bool
	Label       string
}

// Request overrides run settings for a single run. Zero fields keep the defaults.
type Request struct {
	Target           int     `json:"target"`
	Oversubscription float64 `json:"oversubscription"`
	Workers          int     `json:"workers"`
	RecordGames      *bool   `json:"record_games,omitempty"`
}

type Summary struct {
	Progress          corpus.Progress `json:"progress"`
	DistinctPositions int64           `json:"distinct_positions"`
}

type RunUseCase struct {
	settings  Settings
	writers   WriterFactory
	progress  []ProgressStore
	positions PositionCounter
	games     GameRecorder
	sinks     []generator.ProgressSink
	logger    *zap.SugaredLogger

	mu      sync.RWMutex
	active  map[string]context.CancelFunc
	latest  map[string]corpus.Progress
	summary map[string]Summary
}

type Option func(*RunUseCase)

func WithProgressStores(stores ...ProgressStore) Option {
	return func(u *RunUseCase) { u.progress = append(u.progress, stores...) }
}

func WithPositionCounter(c PositionCounter) Option {
	return func(u *RunUseCase) { u.positions = c }
}

func WithGameRecorder(g GameRecorder) Option {
	return func(u *RunUseCase) { u.games = g }
}

func WithSinks(sinks ...generator.ProgressSink) Option {
	return func(u *RunUseCase) { u.sinks = append(u.sinks, sinks...) }
}

func NewRunUseCase(settings Settings, writers WriterFactory, logger *zap.SugaredLogger, opts ...Option) *RunUseCase {
	u := &RunUseCase{
		settings: settings,
		writers:  writers,
		logger:   logger,
		active:   make(map[string]context.CancelFunc),
		latest:   make(map[string]corpus.Progress),
		summary:  make(map[string]Summary),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *RunUseCase) Settings() Settings {
	return u.settings
}

func (u *RunUseCase) apply(req Request) Settings {
	s := u.settings
	if req.Target > 0 {
		s.Generator.Target = req.Target
	}
	if req.Oversubscription >= 1 {
		s.Generator.Oversubscription = req.Oversubscription
	}
	if req.Workers > 0 {
		s.Generator.Workers = req.Workers
	}
	if req.RecordGames != nil {
		s.RecordGames = *req.RecordGames
	}
	return s
}

// Start launches a run in the background and returns its id.
func (u *RunUseCase) Start(req Request) (string, error) {
	switch {
	case req.Target < 0 || req.Target > generator.MaxTarget:
		return "", fmt.Errorf("target %d outside [0, %d]: %w", req.Target, generator.MaxTarget, errs.ErrInvalidConfig)
	case req.Workers < 0 || req.Workers > generator.MaxWorkers:
		return "", fmt.Errorf("workers %d outside [0, %d]: %w", req.Workers, generator.MaxWorkers, errs.ErrInvalidConfig)
	case req.Oversubscription != 0 && (req.Oversubscription < 1 || req.Oversubscription > 10):
		return "", fmt.Errorf("oversubscription %v outside [1, 10]: %w", req.Oversubscription, errs.ErrInvalidConfig)
	}
	runID := uuid.NewString()
	settings := u.apply(req)

	ctx, cancel := context.WithCancel(context.Background())
	u.mu.Lock()
	u.active[runID] = cancel
	u.mu.Unlock()

	go func() {
		defer cancel()
		if _, err := u.execute(ctx, runID, settings); err != nil {
			u.logger.Errorf("run %s failed: %v", runID, err)
		}
	}()
	return runID, nil
}

// Run generates and persists one corpus synchronously.
func (u *RunUseCase) Run(ctx context.Context, runID string) (Summary, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(ctx)
	u.mu.Lock()
	u.active[runID] = cancel
	u.mu.Unlock()
	defer cancel()
	return u.execute(ctx, runID, u.settings)
}

func (u *RunUseCase) Cancel(runID string) error {
	u.mu.RLock()
	cancel, ok := u.active[runID]
	u.mu.RUnlock()
	if !ok {
		return errs.ErrRunNotFound
	}
	cancel()
	return nil
}

func (u *RunUseCase) execute(ctx context.Context, runID string, s Settings) (Summary, error) {
	defer func() {
		u.mu.Lock()
		delete(u.active, runID)
		u.mu.Unlock()
	}()

	sink := append(generator.MultiSink{&trackingSink{u: u}}, u.sinks...)
	driver := selfplay.NewDriver(s.SelfPlay)
	gen := generator.NewGenerator(driver, s.Generator, u.logger, sink)

	started := time.Now()
	res, err := gen.Generate(ctx, runID)
	if err != nil {
		return u.fail(sink, res.Progress, err)
	}

	c := corpus.Corpus{
		Header: corpus.Header{
			SchemaVersion: corpus.SchemaVersion,
			RunID:         runID,
			BoardSize:     s.SelfPlay.BoardSize,
			ConnectLength: s.SelfPlay.Heuristic.ConnectLength,
			Episodes:      res.Progress.Completed,
			CreatedAt:     time.Now().UTC(),
			Generator:     s.Label,
		},
		Examples: res.Examples,
	}
	for _, w := range u.writers(runID) {
		if err := w.Save(ctx, c); err != nil {
			return u.fail(sink, res.Progress, fmt.Errorf("write corpus: %w", err))
		}
	}

	if s.RecordGames && u.games != nil {
		if err := u.games.SaveGames(ctx, runID, s.SelfPlay.BoardSize, res.Games); err != nil {
			u.logger.Warnf("run %s: game records not stored: %v", runID, err)
		}
	}

	summary := Summary{}
	if u.positions != nil {
		summary.DistinctPositions = u.countPositions(ctx, runID, res.Examples)
	}

	p := res.Progress
	p.Status = corpus.StatusCompleted
	p.UpdatedAt = time.Now()
	sink.Publish(ctx, p)
	summary.Progress = p

	u.mu.Lock()
	u.summary[runID] = summary
	u.mu.Unlock()

	u.logger.Infof("run %s completed in %s: %d games, %d examples, %d distinct positions",
		runID, time.Since(started).Round(time.Millisecond), p.Completed, p.Examples, summary.DistinctPositions)
	return summary, nil
}

func (u *RunUseCase) countPositions(ctx context.Context, runID string, examples []corpus.TrainingExample) int64 {
	keys := make([]board.Key, 0, len(examples))
	for _, ex := range examples {
		keys = append(keys, ex.State.Key())
	}
	if err := u.positions.AddPositions(ctx, runID, keys); err != nil {
		u.logger.Warnf("run %s: position count skipped: %v", runID, err)
		return 0
	}
	n, err := u.positions.DistinctPositions(ctx, runID)
	if err != nil {
		u.logger.Warnf("run %s: position count unavailable: %v", runID, err)
	}
	return n
}

func (u *RunUseCase) fail(sink generator.ProgressSink, p corpus.Progress, err error) (Summary, error) {
	p.Status = corpus.StatusFailed
	p.Error = err.Error()
	p.UpdatedAt = time.Now()
	// the run context may already be cancelled
	sink.Publish(context.Background(), p)
	return Summary{Progress: p}, err
}

// Status returns the latest known progress of a run, falling back to the
// configured progress stores for runs this process does not know about.
func (u *RunUseCase) Status(ctx context.Context, runID string) (Summary, error) {
	u.mu.RLock()
	p, ok := u.latest[runID]
	summary, done := u.summary[runID]
	u.mu.RUnlock()
	if done {
		return summary, nil
	}
	if ok {
		return Summary{Progress: p}, nil
	}
	for _, store := range u.progress {
		p, err := store.GetProgress(ctx, runID)
		if err == nil {
			return Summary{Progress: p}, nil
		}
		if !errors.Is(err, errs.ErrRunNotFound) {
			u.logger.Warnf("progress lookup for run %s: %v", runID, err)
		}
	}
	return Summary{}, errs.ErrRunNotFound
}

// trackingSink keeps the in-process view current and persists every update.
type trackingSink struct {
	u *RunUseCase
}

func (t *trackingSink) Publish(ctx context.Context, p corpus.Progress) {
	t.u.mu.Lock()
	t.u.latest[p.RunID] = p
	t.u.mu.Unlock()
	for _, store := range t.u.progress {
		if err := store.SaveProgress(ctx, p); err != nil {
			t.u.logger.Warnf("progress of run %s not saved: %v", p.RunID, err)
		}
	}
}

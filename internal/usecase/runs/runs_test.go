package runs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/usecase/generator"
	"connect6_datagen/internal/usecase/heuristic"
	"connect6_datagen/internal/usecase/selfplay"
)

type memoryWriter struct {
	mu    sync.Mutex
	saved []corpus.Corpus
	err   error
}

func (m *memoryWriter) Save(_ context.Context, c corpus.Corpus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, c)
	return nil
}

type memoryPositions struct {
	mu   sync.Mutex
	seen map[board.Key]bool
}

func (m *memoryPositions) AddPositions(_ context.Context, _ string, keys []board.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[board.Key]bool)
	}
	for _, k := range keys {
		m.seen[k] = true
	}
	return nil
}

func (m *memoryPositions) DistinctPositions(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen)), nil
}

type memoryGames struct {
	games []generator.Game
}

func (m *memoryGames) SaveGames(_ context.Context, _ string, _ int, games []generator.Game) error {
	m.games = append(m.games, games...)
	return nil
}

func testSettings() Settings {
	return Settings{
		SelfPlay: selfplay.Config{
			BoardSize: 9,
			PlyCap:    81,
			Heuristic: heuristic.DefaultConfig(),
		},
		Generator:   generator.Options{Target: 2, Oversubscription: 10, Workers: 2},
		RecordGames: true,
		Label:       "test",
	}
}

func TestRunPersistsCorpus(t *testing.T) {
	writer := &memoryWriter{}
	positions := &memoryPositions{}
	games := &memoryGames{}
	u := NewRunUseCase(testSettings(), func(string) []CorpusWriter { return []CorpusWriter{writer} },
		zaptest.NewLogger(t).Sugar(), WithPositionCounter(positions), WithGameRecorder(games))

	summary, err := u.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Progress.Status != corpus.StatusCompleted || summary.Progress.Completed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(writer.saved) != 1 {
		t.Fatalf("expected one saved corpus, got %d", len(writer.saved))
	}
	c := writer.saved[0]
	if c.Header.RunID != "run-1" || c.Header.BoardSize != 9 || c.Header.Episodes != 2 {
		t.Fatalf("bad header %+v", c.Header)
	}
	plies := 0
	for _, g := range games.games {
		plies += g.Plies
	}
	if len(games.games) != 2 || len(c.Examples) != 8*plies {
		t.Fatalf("expected %d examples from 2 games, got %d from %d", 8*plies, len(c.Examples), len(games.games))
	}
	if summary.DistinctPositions == 0 || summary.DistinctPositions > int64(len(c.Examples)) {
		t.Fatalf("distinct positions %d out of range", summary.DistinctPositions)
	}

	status, err := u.Status(context.Background(), "run-1")
	if err != nil || status.Progress.Status != corpus.StatusCompleted {
		t.Fatalf("status after run: %+v %v", status, err)
	}
}

func TestRunFailsWhenWriterFails(t *testing.T) {
	writer := &memoryWriter{err: errors.New("disk full")}
	u := NewRunUseCase(testSettings(), func(string) []CorpusWriter { return []CorpusWriter{writer} },
		zaptest.NewLogger(t).Sugar())

	summary, err := u.Run(context.Background(), "run-2")
	if err == nil {
		t.Fatalf("expected write failure")
	}
	if summary.Progress.Status != corpus.StatusFailed || summary.Progress.Error == "" {
		t.Fatalf("run should be marked failed: %+v", summary.Progress)
	}
	status, err := u.Status(context.Background(), "run-2")
	if err != nil || status.Progress.Status != corpus.StatusFailed {
		t.Fatalf("status should report failure: %+v %v", status, err)
	}
}

func TestStartRunsInBackground(t *testing.T) {
	writer := &memoryWriter{}
	// the background run may still log after the test returns
	u := NewRunUseCase(testSettings(), func(string) []CorpusWriter { return []CorpusWriter{writer} },
		zap.NewNop().Sugar())

	runID, err := u.Start(Request{Target: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(30 * time.Second)
	for {
		s, err := u.Status(context.Background(), runID)
		if err == nil && s.Progress.Status == corpus.StatusCompleted {
			if s.Progress.Target != 1 {
				t.Fatalf("request override ignored: %+v", s.Progress)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run %s did not finish: %+v %v", runID, s, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartRejectsBadRequest(t *testing.T) {
	u := NewRunUseCase(testSettings(), func(string) []CorpusWriter { return nil }, zaptest.NewLogger(t).Sugar())
	bad := []Request{
		{Oversubscription: 0.5},
		{Oversubscription: 1000},
		{Target: -1},
		{Target: generator.MaxTarget + 1},
		{Workers: -2},
		{Workers: generator.MaxWorkers + 1},
	}
	for _, req := range bad {
		if _, err := u.Start(req); !errors.Is(err, errs.ErrInvalidConfig) {
			t.Fatalf("%+v: expected invalid config, got %v", req, err)
		}
	}
}

func TestUnknownRun(t *testing.T) {
	u := NewRunUseCase(testSettings(), func(string) []CorpusWriter { return nil }, zaptest.NewLogger(t).Sugar())
	if err := u.Cancel("nope"); !errors.Is(err, errs.ErrRunNotFound) {
		t.Fatalf("Cancel: expected not found, got %v", err)
	}
	if _, err := u.Status(context.Background(), "nope"); !errors.Is(err, errs.ErrRunNotFound) {
		t.Fatalf("Status: expected not found, got %v", err)
	}
}

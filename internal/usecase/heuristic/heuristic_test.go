package heuristic

import (
	"errors"
	"math/rand"
	"testing"

	"connect6_datagen/internal/domain/board"
	errs "connect6_datagen/internal/errors"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Noise = NoiseNone
	cfg.DeviationProb = 0
	return cfg
}

func TestScoreContiguousRun(t *testing.T) {
	b := board.New(19)
	b.Set(5, 5, board.PlayerA)
	b.Set(5, 6, board.PlayerA)
	b.Set(5, 7, board.PlayerA)
	e := NewEvaluator(quietConfig())
	if got := e.Score(b, b.ActionOf(5, 8), board.PlayerA); got != 500 {
		t.Fatalf("expected 500 for a run of four, got %v", got)
	}
	if got := e.Score(b, b.ActionOf(5, 8), board.PlayerB); got != 0 {
		t.Fatalf("expected 0 for opponent colour, got %v", got)
	}
	if b.AtAction(b.ActionOf(5, 8)) != board.Empty {
		t.Fatalf("Score must not mutate the board")
	}
}

func TestScoreWindowSkipsGaps(t *testing.T) {
	b := board.New(19)
	b.Set(5, 5, board.PlayerA)
	b.Set(5, 7, board.PlayerA)
	cell := b.ActionOf(5, 8)

	contiguous := NewEvaluator(quietConfig())
	if got := contiguous.Score(b, cell, board.PlayerA); got != 0 {
		t.Fatalf("contiguous scan should see a pair only, got %v", got)
	}

	cfg := quietConfig()
	cfg.Scan = ScanWindow
	window := NewEvaluator(cfg)
	if got := window.Score(b, cell, board.PlayerA); got != 50 {
		t.Fatalf("window scan should count three stones, got %v", got)
	}

	b.Set(5, 6, board.PlayerB)
	if got := window.Score(b, cell, board.PlayerA); got != 0 {
		t.Fatalf("window scan must stop at an opposing stone, got %v", got)
	}
}

func TestLongRunsClampToLastScore(t *testing.T) {
	b := board.New(19)
	for c := 0; c < 8; c++ {
		if c != 4 {
			b.Set(0, c, board.PlayerA)
		}
	}
	e := NewEvaluator(quietConfig())
	if got := e.Score(b, b.ActionOf(0, 4), board.PlayerA); got != 100000 {
		t.Fatalf("expected clamped score, got %v", got)
	}
}

func TestDetectImmediate(t *testing.T) {
	b := board.New(19)
	for c := 1; c <= 5; c++ {
		b.Set(3, c, board.PlayerA)
	}
	e := NewEvaluator(quietConfig())
	if !e.DetectImmediate(b, b.ActionOf(3, 6), board.PlayerA) {
		t.Fatalf("expected a win at (3,6)")
	}
	if e.DetectImmediate(b, b.ActionOf(4, 6), board.PlayerA) {
		t.Fatalf("no win at (4,6)")
	}
	if !e.MustBlock(b, b.ActionOf(3, 0), board.PlayerB) {
		t.Fatalf("B must block at (3,0)")
	}
	if b.AtAction(b.ActionOf(3, 6)) != board.Empty {
		t.Fatalf("DetectImmediate must work on a copy")
	}
}

func TestSelectorPlaysWinningMoveFirst(t *testing.T) {
	b := board.New(19)
	for c := 1; c <= 5; c++ {
		b.Set(3, c, board.PlayerA)
	}
	b.Set(10, 10, board.PlayerB)
	cfg := DefaultConfig()
	cfg.DeviationProb = 1
	choice := NewSelector(cfg).ChooseDetailed(b, board.PlayerA, rand.New(rand.NewSource(1)))
	if choice.Reason != ReasonWin || choice.Action != b.ActionOf(3, 0) {
		t.Fatalf("expected win at (3,0), got %+v", choice)
	}
}

func TestSelectorBlocksAndSuppressesDeviation(t *testing.T) {
	b := board.New(19)
	b.Set(3, 0, board.PlayerA)
	for c := 1; c <= 5; c++ {
		b.Set(3, c, board.PlayerB)
	}
	cfg := quietConfig()
	cfg.DeviationProb = 1
	for seed := int64(0); seed < 20; seed++ {
		choice := NewSelector(cfg).ChooseDetailed(b, board.PlayerA, rand.New(rand.NewSource(seed)))
		if choice.Action != b.ActionOf(3, 6) {
			t.Fatalf("seed %d: expected block at (3,6), got %+v", seed, choice)
		}
		if choice.Reason != ReasonBest {
			t.Fatalf("seed %d: deviation must be suppressed above the critical score, got %v", seed, choice.Reason)
		}
	}
}

func TestSelectorOpensInCenter(t *testing.T) {
	b := board.New(19)
	choice := NewSelector(DefaultConfig()).ChooseDetailed(b, board.PlayerA, rand.New(rand.NewSource(3)))
	if choice.Action != b.ActionOf(9, 9) || choice.Reason != ReasonOpening {
		t.Fatalf("expected opening at the center, got %+v", choice)
	}
}

func TestSelectorDeviatesInQuietPositions(t *testing.T) {
	b := board.New(19)
	b.Set(9, 9, board.PlayerA)
	cfg := quietConfig()
	cfg.DeviationProb = 1
	choice := NewSelector(cfg).ChooseDetailed(b, board.PlayerB, rand.New(rand.NewSource(7)))
	if choice.Reason != ReasonDeviation {
		t.Fatalf("expected a deviation, got %+v", choice)
	}
	r, c := b.Coords(choice.Action)
	if r < 6 || r > 12 || c < 6 || c > 12 || b.AtAction(choice.Action) != board.Empty {
		t.Fatalf("deviation must pick a masked candidate, got (%d,%d)", r, c)
	}
}

func TestSelectorTieBreakIsFirstMaximum(t *testing.T) {
	b := board.New(9)
	b.Set(4, 4, board.PlayerA)
	cfg := quietConfig()
	cfg.PositionWeight = 0
	cfg.Margin = 1
	choice := NewSelector(cfg).ChooseDetailed(b, board.PlayerA, rand.New(rand.NewSource(1)))
	// Every neighbour forms a pair worth 0, so the first candidate wins.
	if choice.Action != b.ActionOf(3, 3) {
		t.Fatalf("expected first candidate (3,3), got %v", choice.Action)
	}
}

func TestSelectorPassesOnFullBoard(t *testing.T) {
	b := board.New(4)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			p := board.PlayerA
			if (r+c)%2 == 1 {
				p = board.PlayerB
			}
			b.Set(r, c, p)
		}
	}
	if got := NewSelector(DefaultConfig()).Choose(b, board.PlayerA, rand.New(rand.NewSource(1))); got != b.PassAction() {
		t.Fatalf("expected pass, got %v", got)
	}
}

func TestSelectorIsDeterministicPerSeed(t *testing.T) {
	b := board.New(19)
	b.Set(9, 9, board.PlayerA)
	b.Set(9, 10, board.PlayerB)
	b.Set(10, 10, board.PlayerB)
	s := NewSelector(DefaultConfig())
	first := s.Choose(b, board.PlayerA, rand.New(rand.NewSource(42)))
	for i := 0; i < 5; i++ {
		if got := s.Choose(b, board.PlayerA, rand.New(rand.NewSource(42))); got != first {
			t.Fatalf("same seed gave %v then %v", first, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cases := map[string]func(*Config){
		"connect":   func(c *Config) { c.ConnectLength = 1 },
		"scan":      func(c *Config) { c.Scan = "diagonal" },
		"noise":     func(c *Config) { c.Noise = "pink" },
		"deviation": func(c *Config) { c.DeviationProb = 1.5 },
		"scores":    func(c *Config) { c.LineScores = []float64{0, 10, 5} },
		"empty":     func(c *Config) { c.LineScores = nil },
		"reach":     func(c *Config) { c.Scan = ScanWindow; c.ProbeReach = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, errs.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEvaluatorCopiesScoreTable(t *testing.T) {
	cfg := quietConfig()
	scores := DefaultLineScores()
	cfg.LineScores = scores
	e := NewEvaluator(cfg)
	scores[4] = -1
	b := board.New(9)
	b.Set(0, 0, board.PlayerA)
	b.Set(0, 1, board.PlayerA)
	b.Set(0, 2, board.PlayerA)
	if got := e.Score(b, b.ActionOf(0, 3), board.PlayerA); got != 500 {
		t.Fatalf("evaluator must not share the caller's table, got %v", got)
	}
}

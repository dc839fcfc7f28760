package heuristic

import (
	"fmt"

	"connect6_datagen/internal/errors"
)

type ScanMode string

const (
	// ScanContiguous counts the unbroken run through the cell.
	ScanContiguous ScanMode = "contiguous"
	// ScanWindow counts own stones within ProbeReach cells each way, skipping
	// empty cells and stopping at an opposing stone or the edge.
	ScanWindow ScanMode = "window"
)

type NoiseKind string

const (
	NoiseGaussian NoiseKind = "gaussian"
	NoiseUniform  NoiseKind = "uniform"
	NoiseNone     NoiseKind = "none"
)

// Config holds every tunable of the evaluator and selector. It is passed by
// value and never mutated after construction.
type Config struct {
	ConnectLength int
	Margin        int
	OpeningRadius int

	Scan       ScanMode
	ProbeReach int
	// LineScores maps a run length to its value; longer runs use the last entry.
	LineScores []float64

	OffenseWeight  float64
	DefenseWeight  float64
	BlockBonus     float64
	PositionWeight float64

	Noise      NoiseKind
	NoiseScale float64

	DeviationProb float64
	CriticalScore float64
}

func DefaultLineScores() []float64 {
	return []float64{0, 0, 0, 50, 500, 8000, 100000}
}

func DefaultConfig() Config {
	return Config{
		ConnectLength:  6,
		Margin:         3,
		OpeningRadius:  1,
		Scan:           ScanContiguous,
		ProbeReach:     4,
		LineScores:     DefaultLineScores(),
		OffenseWeight:  1.0,
		DefenseWeight:  0.9,
		BlockBonus:     20000,
		PositionWeight: 0.5,
		Noise:          NoiseGaussian,
		NoiseScale:     5,
		DeviationProb:  0.2,
		CriticalScore:  10000,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ConnectLength < 2:
		return fmt.Errorf("connect length %d: %w", c.ConnectLength, errors.ErrInvalidConfig)
	case c.Margin < 0 || c.OpeningRadius < 0:
		return fmt.Errorf("negative margin or opening radius: %w", errors.ErrInvalidConfig)
	case c.Scan != ScanContiguous && c.Scan != ScanWindow:
		return fmt.Errorf("unknown line scan %q: %w", c.Scan, errors.ErrInvalidConfig)
	case c.Scan == ScanWindow && c.ProbeReach < 1:
		return fmt.Errorf("probe reach %d: %w", c.ProbeReach, errors.ErrInvalidConfig)
	case len(c.LineScores) == 0:
		return fmt.Errorf("empty line score table: %w", errors.ErrInvalidConfig)
	case c.Noise != NoiseGaussian && c.Noise != NoiseUniform && c.Noise != NoiseNone:
		return fmt.Errorf("unknown noise kind %q: %w", c.Noise, errors.ErrInvalidConfig)
	case c.NoiseScale < 0 || c.DefenseWeight < 0 || c.OffenseWeight < 0:
		return fmt.Errorf("negative weight: %w", errors.ErrInvalidConfig)
	case c.DeviationProb < 0 || c.DeviationProb > 1:
		return fmt.Errorf("deviation probability %v: %w", c.DeviationProb, errors.ErrInvalidConfig)
	}
	for i := 1; i < len(c.LineScores); i++ {
		if c.LineScores[i] < c.LineScores[i-1] {
			return fmt.Errorf("line scores must not decrease: %w", errors.ErrInvalidConfig)
		}
	}
	return nil
}

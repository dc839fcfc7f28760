package heuristic

import (
	"connect6_datagen/internal/domain/board"
)

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Evaluator scores single placements without mutating the board it is given.
type Evaluator struct {
	cfg      Config
	scores   []float64
	detector board.Detector
}

func NewEvaluator(cfg Config) *Evaluator {
	scores := make([]float64, len(cfg.LineScores))
	copy(scores, cfg.LineScores)
	cfg.LineScores = scores
	return &Evaluator{
		cfg:      cfg,
		scores:   scores,
		detector: board.NewDetector(cfg.ConnectLength),
	}
}

// Score sums the value of the line color would form through a in each of
// the four orientations.
func (e *Evaluator) Score(b board.Board, a board.Action, color board.Player) float64 {
	row, col := b.Coords(a)
	total := 0.0
	for _, dir := range directions {
		total += e.lineValue(e.RunLength(b, row, col, dir, color))
	}
	return total
}

// RunLength counts the stones of color that a stone at (row, col) would line
// up with along dir, including itself.
func (e *Evaluator) RunLength(b board.Board, row, col int, dir [2]int, color board.Player) int {
	count := 1
	for _, sign := range [2]int{1, -1} {
		dr, dc := sign*dir[0], sign*dir[1]
		if e.cfg.Scan == ScanWindow {
			count += e.probe(b, row, col, dr, dc, color)
			continue
		}
		r, c := row+dr, col+dc
		for b.InBounds(r, c) && b.At(r, c) == color {
			count++
			r += dr
			c += dc
		}
	}
	return count
}

func (e *Evaluator) probe(b board.Board, row, col, dr, dc int, color board.Player) int {
	found := 0
	for k := 1; k <= e.cfg.ProbeReach; k++ {
		r, c := row+k*dr, col+k*dc
		if !b.InBounds(r, c) {
			break
		}
		switch b.At(r, c) {
		case color:
			found++
		case board.Empty:
		default:
			return found
		}
	}
	return found
}

func (e *Evaluator) lineValue(length int) float64 {
	if length >= len(e.scores) {
		return e.scores[len(e.scores)-1]
	}
	return e.scores[length]
}

// DetectImmediate reports whether mover wins by playing a.
func (e *Evaluator) DetectImmediate(b board.Board, a board.Action, mover board.Player) bool {
	next, err := b.Apply(a, mover)
	if err != nil {
		return false
	}
	row, col := b.Coords(a)
	window := board.Around(row, col, e.cfg.ConnectLength-1)
	return e.detector.EvaluateRegion(next, window).Winner() == mover
}

// MustBlock reports whether the opponent would win by playing a.
func (e *Evaluator) MustBlock(b board.Board, a board.Action, mover board.Player) bool {
	return e.DetectImmediate(b, a, mover.Opponent())
}

// Positional favours cells close to the center (Chebyshev distance).
func (e *Evaluator) Positional(b board.Board, a board.Action) float64 {
	row, col := b.Coords(a)
	cr, cc := b.Center()
	return float64(cr - max(abs(row-cr), abs(col-cc)))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

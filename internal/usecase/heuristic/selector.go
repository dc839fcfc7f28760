package heuristic

import (
	"math"
	"math/rand"

	"connect6_datagen/internal/domain/board"
)

type Reason string

const (
	ReasonPass      Reason = "pass"
	ReasonOpening   Reason = "opening"
	ReasonWin       Reason = "win"
	ReasonBest      Reason = "best"
	ReasonDeviation Reason = "deviation"
	ReasonFallback  Reason = "fallback"
)

// Choice is a selected action with the best score seen while choosing it.
type Choice struct {
	Action    board.Action
	BestScore float64
	Reason    Reason
}

type Selector struct {
	cfg  Config
	eval *Evaluator
}

func NewSelector(cfg Config) *Selector {
	e := NewEvaluator(cfg)
	return &Selector{cfg: e.cfg, eval: e}
}

func (s *Selector) Config() Config {
	return s.cfg
}

func (s *Selector) Evaluator() *Evaluator {
	return s.eval
}

func (s *Selector) Choose(b board.Board, mover board.Player, rng *rand.Rand) board.Action {
	return s.ChooseDetailed(b, mover, rng).Action
}

// ChooseDetailed picks mover's next stone. Candidates come from the ROI mask
// in row-major order; an immediate win is played outright, otherwise the
// first maximum of the combined score is kept unless the deviation roll
// replaces it with a random candidate.
func (s *Selector) ChooseDetailed(b board.Board, mover board.Player, rng *rand.Rand) Choice {
	candidates := board.MaskedLegalMoves(b, s.cfg.Margin, s.cfg.OpeningRadius)
	if len(candidates) == 0 {
		return Choice{Action: b.PassAction(), Reason: ReasonPass}
	}
	if b.IsEmpty() {
		cr, cc := b.Center()
		return Choice{Action: b.ActionOf(cr, cc), Reason: ReasonOpening}
	}

	best := board.Action(-1)
	bestScore := math.Inf(-1)
	for _, a := range candidates {
		if s.eval.DetectImmediate(b, a, mover) {
			return Choice{Action: a, BestScore: math.Inf(1), Reason: ReasonWin}
		}
		score := s.score(b, a, mover, rng)
		if score > bestScore {
			bestScore = score
			best = a
		}
	}

	if best < 0 {
		legal := b.LegalMoves()
		if len(legal) == 0 {
			return Choice{Action: b.PassAction(), Reason: ReasonPass}
		}
		return Choice{Action: legal[rng.Intn(len(legal))], BestScore: bestScore, Reason: ReasonFallback}
	}
	if bestScore < s.cfg.CriticalScore && s.cfg.DeviationProb > 0 && rng.Float64() < s.cfg.DeviationProb {
		return Choice{Action: candidates[rng.Intn(len(candidates))], BestScore: bestScore, Reason: ReasonDeviation}
	}
	return Choice{Action: best, BestScore: bestScore, Reason: ReasonBest}
}

func (s *Selector) score(b board.Board, a board.Action, mover board.Player, rng *rand.Rand) float64 {
	score := s.eval.Score(b, a, mover)*s.cfg.OffenseWeight +
		s.eval.Score(b, a, mover.Opponent())*s.cfg.DefenseWeight +
		s.eval.Positional(b, a)*s.cfg.PositionWeight
	if s.eval.MustBlock(b, a, mover) {
		score += s.cfg.BlockBonus
	}
	return score + s.noise(rng)
}

func (s *Selector) noise(rng *rand.Rand) float64 {
	switch s.cfg.Noise {
	case NoiseGaussian:
		return rng.NormFloat64() * s.cfg.NoiseScale
	case NoiseUniform:
		return rng.Float64() * s.cfg.NoiseScale
	}
	return 0
}

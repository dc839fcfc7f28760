package selfplay

import (
	"context"
	"fmt"
	"math/rand"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	"connect6_datagen/internal/usecase/heuristic"
)

type Config struct {
	BoardSize int
	PlyCap    int
	Heuristic heuristic.Config
}

// Episode is the result of one rollout. Examples is empty unless Decisive.
type Episode struct {
	Seed     int64
	Decisive bool
	Outcome  board.Outcome
	Winner   board.Player
	Plies    int
	Moves    []board.Action
	Examples []corpus.TrainingExample
}

type Driver struct {
	cfg      Config
	selector *heuristic.Selector
	detector board.Detector
}

func NewDriver(cfg Config) *Driver {
	return &Driver{
		cfg:      cfg,
		selector: heuristic.NewSelector(cfg.Heuristic),
		detector: board.NewDetector(cfg.Heuristic.ConnectLength),
	}
}

func (d *Driver) BoardSize() int {
	return d.cfg.BoardSize
}

// RunEpisode plays one game from the empty board. Every position is stored
// in canonical form together with its 8 symmetries; the buffer is labelled
// only if the game ends in a win before the ply cap. A cancelled context ends
// the rollout as non-decisive and returns the context error.
func (d *Driver) RunEpisode(ctx context.Context, seed int64) (Episode, error) {
	rng := rand.New(rand.NewSource(seed))
	b := board.New(d.cfg.BoardSize)
	player := board.PlayerA
	ep := Episode{Seed: seed}
	var record corpus.EpisodeRecord

	for ep.Plies < d.cfg.PlyCap {
		if err := ctx.Err(); err != nil {
			return ep, err
		}
		canonical := b.Canonical(player)
		action := d.selector.Choose(canonical, board.PlayerA, rng)

		policy := make([]float64, b.ActionSize())
		policy[action] = 1
		syms, err := board.Expand(canonical, policy)
		if err != nil {
			return ep, err
		}
		for _, s := range syms {
			record.Add(s.Board, player, s.Policy)
		}

		if action == b.PassAction() {
			player = player.Opponent()
		} else {
			if err := b.Play(action, player); err != nil {
				return ep, fmt.Errorf("ply %d: %w", ep.Plies, err)
			}
			player = b.TurnAfter(player)
		}
		ep.Moves = append(ep.Moves, action)
		ep.Plies++

		// the board had no run before this ply, so only the new stone can complete one
		if action != b.PassAction() && d.detector.WinsAt(b, action) {
			ep.Outcome = d.detector.Evaluate(b)
		} else if !b.HasLegalMoves() {
			ep.Outcome = board.Draw
		}
		if ep.Outcome.Decisive() {
			ep.Decisive = true
			ep.Winner = ep.Outcome.Winner()
			ep.Examples = record.Label(ep.Winner)
			return ep, nil
		}
		if ep.Outcome == board.Draw {
			return ep, nil
		}
	}
	return ep, nil
}

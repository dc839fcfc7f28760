package engine

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"

	"connect6_datagen/internal/domain"
	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/errors"
	"connect6_datagen/internal/usecase/heuristic"
)

// EngineUseCase is the game interface consumed by the training side:
// rules, masking, terminal checks and augmentation over plain boards.
type EngineUseCase struct {
	cfg      heuristic.Config
	detector board.Detector
	selector *heuristic.Selector
}

func NewEngineUseCase(cfg heuristic.Config) *EngineUseCase {
	return &EngineUseCase{
		cfg:      cfg,
		detector: board.NewDetector(cfg.ConnectLength),
		selector: heuristic.NewSelector(cfg),
	}
}

func (e *EngineUseCase) InitialState(n int) board.Board {
	return board.New(n)
}

func (e *EngineUseCase) BoardShape(n int) (int, int) {
	return n, n
}

func (e *EngineUseCase) ActionSpaceSize(n int) int {
	return n*n + 1
}

// ApplyMove returns the next board and side to move. b is not modified.
func (e *EngineUseCase) ApplyMove(b board.Board, player board.Player, a board.Action) (board.Board, board.Player, error) {
	return b.Next(a, player)
}

// LegalActions is a mask of length n²+1. Only cells inside the region of
// interest are set; the pass bit is set alone when no cell is empty.
func (e *EngineUseCase) LegalActions(b board.Board, _ board.Player) []bool {
	mask := make([]bool, b.ActionSize())
	if !b.HasLegalMoves() {
		mask[b.PassAction()] = true
		return mask
	}
	for _, a := range board.MaskedLegalMoves(b, e.cfg.Margin, e.cfg.OpeningRadius) {
		mask[a] = true
	}
	return mask
}

// TerminalValue is 0 while the game goes on, ±1 from player's point of view
// once someone has won, and the draw sentinel for a full board.
func (e *EngineUseCase) TerminalValue(b board.Board, player board.Player) float64 {
	return float64(e.detector.Evaluate(b).Relative(player))
}

func (e *EngineUseCase) CanonicalForm(b board.Board, player board.Player) board.Board {
	return b.Canonical(player)
}

func (e *EngineUseCase) Symmetries(b board.Board, policy []float64) ([]board.Symmetry, error) {
	return board.Expand(b, policy)
}

func (e *EngineUseCase) SerializeKey(b board.Board) board.Key {
	return b.Key()
}

// SuggestMove runs the heuristic selector for player with a seeded generator.
func (e *EngineUseCase) SuggestMove(b board.Board, player board.Player, seed int64) heuristic.Choice {
	return e.selector.ChooseDetailed(b, player, rand.New(rand.NewSource(seed)))
}

func PositionToBoard(p domain.Position) (board.Board, board.Player, error) {
	if !board.ValidSize(p.Size) {
		return board.Board{}, board.Empty, fmt.Errorf("board size %d outside [1, %d]: %w", p.Size, board.MaxSize, errors.ErrInvalidConfig)
	}
	cells := make([]board.Player, len(p.Cells))
	for i, c := range p.Cells {
		cells[i] = board.Player(c)
	}
	b, err := board.FromCells(p.Size, cells)
	if err != nil {
		return board.Board{}, board.Empty, fmt.Errorf("%v: %w", err, errors.ErrIllegalMove)
	}
	player := board.Player(p.Player)
	if player == board.Empty {
		player = board.PlayerA
	}
	if player != board.PlayerA && player != board.PlayerB {
		return board.Board{}, board.Empty, fmt.Errorf("player %d: %w", p.Player, errors.ErrIllegalMove)
	}
	return b, player, nil
}

func BoardToPosition(b board.Board, player board.Player) domain.Position {
	return domain.Position{Size: b.Size(), Cells: CellsOf(b), Player: int8(player)}
}

func CellsOf(b board.Board) []int8 {
	cells := b.Cells()
	out := make([]int8, len(cells))
	for i, c := range cells {
		out[i] = int8(c)
	}
	return out
}

// The methods below serve the HTTP and RPC transports over wire types.

func (e *EngineUseCase) Initial(req domain.InitialStateRequest) (domain.InitialStateResponse, error) {
	if !board.ValidSize(req.Size) {
		return domain.InitialStateResponse{}, fmt.Errorf("board size %d outside [1, %d]: %w", req.Size, board.MaxSize, errors.ErrInvalidConfig)
	}
	rows, cols := e.BoardShape(req.Size)
	return domain.InitialStateResponse{
		Position:   BoardToPosition(e.InitialState(req.Size), board.PlayerA),
		Rows:       rows,
		Cols:       cols,
		ActionSize: e.ActionSpaceSize(req.Size),
	}, nil
}

func (e *EngineUseCase) Apply(req domain.ApplyMoveRequest) (domain.ApplyMoveResponse, error) {
	b, player, err := PositionToBoard(req.Position)
	if err != nil {
		return domain.ApplyMoveResponse{}, err
	}
	next, nextPlayer, err := e.ApplyMove(b, player, board.Action(req.Action))
	if err != nil {
		return domain.ApplyMoveResponse{}, err
	}
	return domain.ApplyMoveResponse{
		Position: BoardToPosition(next, nextPlayer),
		Value:    e.TerminalValue(next, nextPlayer),
	}, nil
}

func (e *EngineUseCase) Legal(p domain.Position) (domain.LegalActionsResponse, error) {
	b, player, err := PositionToBoard(p)
	if err != nil {
		return domain.LegalActionsResponse{}, err
	}
	mask := e.LegalActions(b, player)
	resp := domain.LegalActionsResponse{Mask: mask, Actions: make([]int, 0)}
	for a, ok := range mask {
		if ok {
			resp.Actions = append(resp.Actions, a)
		}
	}
	return resp, nil
}

func (e *EngineUseCase) Terminal(p domain.Position) (domain.TerminalValueResponse, error) {
	b, player, err := PositionToBoard(p)
	if err != nil {
		return domain.TerminalValueResponse{}, err
	}
	outcome := e.detector.Evaluate(b)
	return domain.TerminalValueResponse{
		Value:    float64(outcome.Relative(player)),
		Decisive: outcome.Decisive(),
		Draw:     outcome == board.Draw,
	}, nil
}

func (e *EngineUseCase) Canonical(p domain.Position) (domain.CanonicalFormResponse, error) {
	b, player, err := PositionToBoard(p)
	if err != nil {
		return domain.CanonicalFormResponse{}, err
	}
	return domain.CanonicalFormResponse{Position: BoardToPosition(e.CanonicalForm(b, player), board.PlayerA)}, nil
}

func (e *EngineUseCase) Symmetric(req domain.SymmetriesRequest) (domain.SymmetriesResponse, error) {
	b, _, err := PositionToBoard(req.Position)
	if err != nil {
		return domain.SymmetriesResponse{}, err
	}
	policy := req.Policy
	if policy == nil {
		policy = make([]float64, b.ActionSize())
	}
	syms, err := e.Symmetries(b, policy)
	if err != nil {
		return domain.SymmetriesResponse{}, fmt.Errorf("%v: %w", err, errors.ErrIllegalMove)
	}
	resp := domain.SymmetriesResponse{Symmetries: make([]domain.SymmetryPair, 0, len(syms))}
	for _, s := range syms {
		resp.Symmetries = append(resp.Symmetries, domain.SymmetryPair{Cells: CellsOf(s.Board), Policy: s.Policy})
	}
	return resp, nil
}

func (e *EngineUseCase) Key(p domain.Position) (domain.KeyResponse, error) {
	b, _, err := PositionToBoard(p)
	if err != nil {
		return domain.KeyResponse{}, err
	}
	return domain.KeyResponse{Key: hex.EncodeToString([]byte(e.SerializeKey(b)))}, nil
}

func (e *EngineUseCase) Suggest(req domain.SuggestMoveRequest) (domain.SuggestMoveResponse, error) {
	b, player, err := PositionToBoard(req.Position)
	if err != nil {
		return domain.SuggestMoveResponse{}, err
	}
	choice := e.SuggestMove(b, player, req.Seed)
	resp := domain.SuggestMoveResponse{
		Action: int(choice.Action),
		Row:    -1,
		Col:    -1,
		Reason: string(choice.Reason),
	}
	// JSON has no infinities; a forced win reports no score.
	if !math.IsInf(choice.BestScore, 0) {
		resp.Score = choice.BestScore
	}
	if choice.Action != b.PassAction() {
		resp.Row, resp.Col = b.Coords(choice.Action)
	}
	return resp, nil
}

package record

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	"connect6_datagen/internal/usecase/generator"
)

type GameStore interface {
	SaveGames(ctx context.Context, games []corpus.GameRecord) error
	GetGame(ctx context.Context, runID string, taskIndex int) (corpus.GameRecord, error)
	ListGames(ctx context.Context, runID string, limit int) ([]corpus.GameRecord, error)
}

type RecordUseCase struct {
	store  GameStore
	logger *zap.SugaredLogger
}

func NewRecordUseCase(store GameStore, logger *zap.SugaredLogger) *RecordUseCase {
	return &RecordUseCase{store: store, logger: logger}
}

// NewGameRecord renders a collected game with its SGF text.
func NewGameRecord(runID string, n int, g generator.Game, now time.Time) corpus.GameRecord {
	moves := make([]int, len(g.Moves))
	for i, a := range g.Moves {
		moves[i] = int(a)
	}
	name := fmt.Sprintf("%s #%d", runID, g.Task.Index)
	return corpus.GameRecord{
		RunID:     runID,
		TaskIndex: g.Task.Index,
		Seed:      g.Task.Seed,
		BoardSize: n,
		Winner:    int(g.Winner),
		Plies:     g.Plies,
		Moves:     moves,
		SGF:       SerializeSGF(BuildSGF(n, g.Moves, g.Winner, name, now)),
		CreatedAt: now,
	}
}

func (r *RecordUseCase) SaveGames(ctx context.Context, runID string, n int, games []generator.Game) error {
	if len(games) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]corpus.GameRecord, 0, len(games))
	for _, g := range games {
		records = append(records, NewGameRecord(runID, n, g, now))
	}
	if err := r.store.SaveGames(ctx, records); err != nil {
		return fmt.Errorf("save %d game records of run %s: %w", len(records), runID, err)
	}
	r.logger.Infof("run %s: stored %d game records", runID, len(records))
	return nil
}

func (r *RecordUseCase) GetGame(ctx context.Context, runID string, taskIndex int) (corpus.GameRecord, error) {
	return r.store.GetGame(ctx, runID, taskIndex)
}

func (r *RecordUseCase) ListGames(ctx context.Context, runID string, limit int) ([]corpus.GameRecord, error) {
	return r.store.ListGames(ctx, runID, limit)
}

// Replay rebuilds the final position of a stored game.
func Replay(rec corpus.GameRecord) (board.Board, board.Player, error) {
	b := board.New(rec.BoardSize)
	player := board.PlayerA
	var err error
	for i, a := range rec.Moves {
		b, player, err = b.Next(board.Action(a), player)
		if err != nil {
			return board.Board{}, board.Empty, fmt.Errorf("move %d of game %s #%d: %w", i, rec.RunID, rec.TaskIndex, err)
		}
	}
	return b, player, nil
}

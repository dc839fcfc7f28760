package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
)

// RunRepository keeps the last known progress of every run in the "runs"
// collection and the SGF records of its games in "games".
type RunRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewRunRepository(log *zap.SugaredLogger, mongo *mongo.Database) *RunRepository {
	return &RunRepository{log: log, mongo: mongo}
}

func (r *RunRepository) SaveProgress(ctx context.Context, p corpus.Progress) error {
	_, err := r.mongo.Collection("runs").UpdateOne(ctx,
		bson.M{"run_id": p.RunID},
		bson.M{"$set": p},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save progress of run %s: %w", p.RunID, err)
	}
	return nil
}

func (r *RunRepository) GetProgress(ctx context.Context, runID string) (corpus.Progress, error) {
	var p corpus.Progress
	err := r.mongo.Collection("runs").FindOne(ctx, bson.M{"run_id": runID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return corpus.Progress{}, errs.ErrRunNotFound
	}
	return p, err
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]corpus.Progress, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.mongo.Collection("runs").Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := make([]corpus.Progress, 0)
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunRepository) SaveGames(ctx context.Context, games []corpus.GameRecord) error {
	docs := make([]interface{}, 0, len(games))
	for _, g := range games {
		docs = append(docs, g)
	}
	for start := 0; start < len(docs); start += insertBatch {
		end := min(start+insertBatch, len(docs))
		if _, err := r.mongo.Collection("games").InsertMany(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *RunRepository) GetGame(ctx context.Context, runID string, taskIndex int) (corpus.GameRecord, error) {
	var g corpus.GameRecord
	err := r.mongo.Collection("games").FindOne(ctx, bson.M{"run_id": runID, "task_index": taskIndex}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return corpus.GameRecord{}, errs.ErrGameRecordNotFound
	}
	return g, err
}

func (r *RunRepository) ListGames(ctx context.Context, runID string, limit int) ([]corpus.GameRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "task_index", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"sgf": 0})
	cursor, err := r.mongo.Collection("games").Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	games := make([]corpus.GameRecord, 0)
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

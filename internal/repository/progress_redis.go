package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
)

// ProgressRedisStore mirrors run progress into a Redis hash and counts
// distinct positions with a HyperLogLog. Both keys expire after ttl.
type ProgressRedisStore struct {
	log   *zap.SugaredLogger
	redis *redis.Client
	ttl   time.Duration
}

func NewProgressRedisStore(log *zap.SugaredLogger, redis *redis.Client, ttl time.Duration) *ProgressRedisStore {
	return &ProgressRedisStore{log: log, redis: redis, ttl: ttl}
}

func progressKey(runID string) string {
	return "run:" + runID + ":progress"
}

func positionsKey(runID string) string {
	return "run:" + runID + ":positions"
}

// Publish implements the generator's progress sink. Failures are logged only.
func (s *ProgressRedisStore) Publish(ctx context.Context, p corpus.Progress) {
	if err := s.SaveProgress(ctx, p); err != nil {
		s.log.Warnf("redis progress for run %s: %v", p.RunID, err)
	}
}

func (s *ProgressRedisStore) SaveProgress(ctx context.Context, p corpus.Progress) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	key := progressKey(p.RunID)
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     p.Status,
		"target":     p.Target,
		"submitted":  p.Submitted,
		"completed":  p.Completed,
		"discarded":  p.Discarded,
		"failed":     p.Failed,
		"examples":   p.Examples,
		"error":      p.Error,
		"started_at": p.StartedAt.Format(time.RFC3339Nano),
		"updated_at": p.UpdatedAt.Format(time.RFC3339Nano),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *ProgressRedisStore) GetProgress(ctx context.Context, runID string) (corpus.Progress, error) {
	fields, err := s.redis.HGetAll(ctx, progressKey(runID)).Result()
	if err != nil {
		return corpus.Progress{}, err
	}
	if len(fields) == 0 {
		return corpus.Progress{}, errs.ErrRunNotFound
	}
	return decodeProgress(runID, fields)
}

func decodeProgress(runID string, fields map[string]string) (corpus.Progress, error) {
	p := corpus.Progress{RunID: runID, Status: fields["status"], Error: fields["error"]}
	ints := map[string]*int{
		"target":    &p.Target,
		"submitted": &p.Submitted,
		"completed": &p.Completed,
		"discarded": &p.Discarded,
		"failed":    &p.Failed,
		"examples":  &p.Examples,
	}
	for name, dst := range ints {
		v, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return corpus.Progress{}, fmt.Errorf("progress field %s=%q: %w", name, v, err)
		}
		*dst = n
	}
	var err error
	if v := fields["started_at"]; v != "" {
		if p.StartedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return corpus.Progress{}, err
		}
	}
	if v := fields["updated_at"]; v != "" {
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return corpus.Progress{}, err
		}
	}
	return p, nil
}

// AddPositions feeds position keys into the run's distinct-position counter.
func (s *ProgressRedisStore) AddPositions(ctx context.Context, runID string, keys []board.Key) error {
	if len(keys) == 0 {
		return nil
	}
	key := positionsKey(runID)
	const chunk = 1000
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		members := make([]interface{}, 0, end-start)
		for _, k := range keys[start:end] {
			members = append(members, string(k))
		}
		if err := s.redis.PFAdd(ctx, key, members...).Err(); err != nil {
			return err
		}
	}
	if s.ttl > 0 {
		return s.redis.Expire(ctx, key, s.ttl).Err()
	}
	return nil
}

func (s *ProgressRedisStore) DistinctPositions(ctx context.Context, runID string) (int64, error) {
	n, err := s.redis.PFCount(ctx, positionsKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"connect6_datagen/internal/bootstrap"
)

type AdapterRedis struct {
	client *redis.Client
	cfg    *bootstrap.Config
	log    *zap.SugaredLogger
}

func NewAdapterRedis(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterRedis {
	return &AdapterRedis{
		cfg: cfg,
		log: log,
	}
}

// RedisOptions accepts either a redis:// URL or a bare host:port.
func RedisOptions(url string) (*redis.Options, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		return redis.ParseURL(url)
	}
	return &redis.Options{Addr: url, DB: 0}, nil
}

func (a *AdapterRedis) Init(ctx context.Context) error {
	opts, err := RedisOptions(a.cfg.RedisUrl)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	a.client = redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.client.Ping(ctxPing).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	a.log.Infof("connected to redis at %s", opts.Addr)
	return nil
}

func (a *AdapterRedis) GetClient() *redis.Client {
	return a.client
}

func (a *AdapterRedis) Close(_ context.Context) error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

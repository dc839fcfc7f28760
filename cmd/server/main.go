package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"connect6_datagen/internal/adapters"
	"connect6_datagen/internal/bootstrap"
	engineDelivery "connect6_datagen/internal/delivery/engine"
	runsDelivery "connect6_datagen/internal/delivery/runs"
	ownMiddleware "connect6_datagen/internal/middleware"
	repo "connect6_datagen/internal/repository"
	engineUC "connect6_datagen/internal/usecase/engine"
	"connect6_datagen/internal/usecase/record"
	runsUC "connect6_datagen/internal/usecase/runs"
)

type mainDeliveryHandler struct {
	engine *engineDelivery.EngineHandler
	runs   *runsDelivery.RunsHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Errorw("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.close(context.Background())

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(*cfg, logger, databaseAdapters)
	handlers.Router(r, cfg.IsLocalCors)

	server := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}
	go handleShutdown(cancel, server, logger)

	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalw("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h.engine.Routes(r)
	h.runs.Routes(r)
}

// initDatabaseAdapters connects the stores that are configured. Both are
// optional; without them runs only keep their progress in memory.
func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	adaptersOut := &dataBaseAdapters{}
	if cfg.MongoUri != "" {
		mongoAdapter := adapters.NewAdapterMongo(&cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			log.Fatalw("Failed to initialize MongoDB", zap.Error(err))
		}
		adaptersOut.mongoAdapter = mongoAdapter
	}
	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(&cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			log.Fatalw("Failed to initialize Redis", zap.Error(err))
		}
		adaptersOut.redisAdapter = redisAdapter
	}
	log.Info("Database adapters initialized")
	return adaptersOut
}

func (d *dataBaseAdapters) close(ctx context.Context) {
	if d.mongoAdapter != nil {
		_ = d.mongoAdapter.Close(ctx)
	}
	if d.redisAdapter != nil {
		_ = d.redisAdapter.Close(ctx)
	}
}

func initializeDeliveryHandlers(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	databaseAdapters *dataBaseAdapters,
) *mainDeliveryHandler {
	engine := engineUC.NewEngineUseCase(cfg.Heuristic())
	hub := runsDelivery.NewProgressHub(log)

	opts := []runsUC.Option{runsUC.WithSinks(hub)}
	var games runsDelivery.GameReader
	var mongoCorpus *repo.MongoCorpusStore
	if databaseAdapters.mongoAdapter != nil {
		runRepo := repo.NewRunRepository(log, databaseAdapters.mongoAdapter.Database)
		recordUC := record.NewRecordUseCase(runRepo, log)
		opts = append(opts, runsUC.WithProgressStores(runRepo), runsUC.WithGameRecorder(recordUC))
		games = recordUC
		mongoCorpus = repo.NewMongoCorpusStore(log, databaseAdapters.mongoAdapter.Database)
		if err := mongoCorpus.EnsureIndexes(context.Background()); err != nil {
			log.Warnf("corpus indexes not created: %v", err)
		}
	}
	if databaseAdapters.redisAdapter != nil {
		progress := repo.NewProgressRedisStore(log, databaseAdapters.redisAdapter.GetClient(), cfg.ProgressTTL)
		opts = append(opts, runsUC.WithProgressStores(progress), runsUC.WithPositionCounter(progress))
	}

	// every HTTP run gets its own file next to CORPUS_PATH
	corpusDir := filepath.Dir(cfg.CorpusPath)
	writers := func(runID string) []runsUC.CorpusWriter {
		out := make([]runsUC.CorpusWriter, 0, 2)
		for _, store := range cfg.Stores() {
			switch {
			case store == bootstrap.StoreFile:
				out = append(out, repo.NewFileCorpusStore(filepath.Join(corpusDir, runID+".corpus"), log))
			case store == bootstrap.StoreMongo && mongoCorpus != nil:
				out = append(out, mongoCorpus)
			}
		}
		return out
	}

	settings := runsUC.Settings{
		SelfPlay:    cfg.SelfPlay(),
		Generator:   cfg.Generator(),
		RecordGames: cfg.RecordGames,
		Label:       "connect6_datagen server",
	}
	runs := runsUC.NewRunUseCase(settings, writers, log, opts...)

	return &mainDeliveryHandler{
		engine: engineDelivery.NewEngineHandler(log, engine),
		runs:   runsDelivery.NewRunsHandler(log, runs, games, hub),
	}
}

func handleShutdown(cancelFunc context.CancelFunc, server *http.Server, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
}

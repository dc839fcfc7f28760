package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"connect6_datagen/internal/adapters"
	"connect6_datagen/internal/bootstrap"
	repo "connect6_datagen/internal/repository"
	"connect6_datagen/internal/usecase/generator"
	"connect6_datagen/internal/usecase/record"
	"connect6_datagen/internal/usecase/runs"
)

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"target":           "TARGET_GAMES",
	"oversubscription": "OVERSUBSCRIPTION",
	"workers":          "WORKERS",
	"board-size":       "BOARD_SIZE",
	"ply-cap":          "PLY_CAP",
	"deviation":        "DEVIATION_PROB",
	"out":              "CORPUS_PATH",
	"stores":           "CORPUS_STORES",
	"reuse":            "REUSE_EXISTING",
	"non-interactive":  "NON_INTERACTIVE",
	"record-games":     "RECORD_GAMES",
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	if err := run(logger, os.Args[1:], os.Stdin); err != nil {
		logger.Errorf("self-play generation failed: %v", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("selfplay", pflag.ContinueOnError)
	fs.String("config", ".env", "path to an .env style config file")
	fs.String("run-id", "", "run id, generated when empty")
	fs.Int("target", 0, "number of decisive games to collect")
	fs.Float64("oversubscription", 0, "tasks submitted per wanted game")
	fs.Int("workers", 0, "worker goroutines, 0 for NumCPU-2")
	fs.Int("board-size", 0, "board side length")
	fs.Int("ply-cap", 0, "maximum plies per game")
	fs.Float64("deviation", 0, "probability of a random candidate in quiet positions")
	fs.String("out", "", "corpus file path")
	fs.String("stores", "", "comma separated corpus stores: file, mongo")
	fs.Bool("reuse", false, "keep an existing corpus instead of regenerating")
	fs.Bool("non-interactive", true, "never prompt; an existing corpus is overwritten unless --reuse")
	fs.Bool("record-games", false, "store SGF records of collected games in mongo")
	return fs
}

func loadConfig(args []string) (*bootstrap.Config, string, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	v := viper.New()
	for name, key := range flagKeys {
		// only flags given on the command line override file and env
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, "", err
			}
		}
	}
	path, _ := fs.GetString("config")
	cfg, err := bootstrap.Load(v, path)
	if err != nil {
		return nil, "", err
	}
	runID, _ := fs.GetString("run-id")
	return cfg, runID, nil
}

func run(logger *zap.SugaredLogger, args []string, stdin io.Reader) error {
	cfg, runID, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	file := repo.NewFileCorpusStore(cfg.CorpusPath, logger)
	proceed, err := checkExisting(ctx, logger, cfg, file, stdin)
	if err != nil || !proceed {
		return err
	}

	writers := make([]runs.CorpusWriter, 0, 2)
	opts := []runs.Option{runs.WithSinks(generator.NewLogSink(logger, progressEvery(cfg.TargetGames)))}
	var mongoAdapter *adapters.AdapterMongo
	for _, store := range cfg.Stores() {
		switch store {
		case bootstrap.StoreFile:
			writers = append(writers, file)
		case bootstrap.StoreMongo:
			if mongoAdapter == nil {
				mongoAdapter = adapters.NewAdapterMongo(cfg, logger)
				if err := mongoAdapter.Init(ctx); err != nil {
					return err
				}
				defer mongoAdapter.Close(context.Background())
			}
			corpusStore := repo.NewMongoCorpusStore(logger, mongoAdapter.Database)
			if err := corpusStore.EnsureIndexes(ctx); err != nil {
				return err
			}
			writers = append(writers, corpusStore)
		}
	}
	if mongoAdapter != nil {
		runRepo := repo.NewRunRepository(logger, mongoAdapter.Database)
		opts = append(opts, runs.WithProgressStores(runRepo))
		opts = append(opts, runs.WithGameRecorder(record.NewRecordUseCase(runRepo, logger)))
	} else if cfg.RecordGames {
		logger.Warn("RECORD_GAMES needs the mongo store; game records are skipped")
	}

	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(cfg, logger)
		if err := redisAdapter.Init(ctx); err != nil {
			logger.Warnf("redis unavailable, progress stays local: %v", err)
		} else {
			defer redisAdapter.Close(context.Background())
			progress := repo.NewProgressRedisStore(logger, redisAdapter.GetClient(), cfg.ProgressTTL)
			opts = append(opts, runs.WithProgressStores(progress), runs.WithPositionCounter(progress))
		}
	}

	settings := runs.Settings{
		SelfPlay:    cfg.SelfPlay(),
		Generator:   cfg.Generator(),
		RecordGames: cfg.RecordGames,
		Label:       "connect6_datagen selfplay",
	}
	uc := runs.NewRunUseCase(settings, func(string) []runs.CorpusWriter { return writers }, logger, opts...)

	logger.Infof("generating %d games on a %dx%d board", cfg.TargetGames, cfg.BoardSize, cfg.BoardSize)
	summary, err := uc.Run(ctx, runID)
	if err != nil {
		return err
	}
	logger.Infof("done: run %s, %d examples from %d games", summary.Progress.RunID, summary.Progress.Examples, summary.Progress.Completed)
	return nil
}

// checkExisting decides whether an existing corpus is kept. With REUSE_EXISTING
// the file is validated and generation skipped; otherwise the user is asked
// unless NON_INTERACTIVE is set, in which case it is overwritten.
func checkExisting(ctx context.Context, logger *zap.SugaredLogger, cfg *bootstrap.Config, file *repo.FileCorpusStore, stdin io.Reader) (bool, error) {
	found := false
	for _, s := range cfg.Stores() {
		found = found || s == bootstrap.StoreFile
	}
	if !found {
		return true, nil
	}
	exists, err := file.Exists(ctx)
	if err != nil || !exists {
		return true, err
	}
	if cfg.ReuseExisting {
		c, err := file.Load(ctx)
		if err != nil {
			return false, fmt.Errorf("existing corpus %s is unusable: %w", file.Path(), err)
		}
		logger.Infof("reusing %s: %d examples from %d games", file.Path(), len(c.Examples), c.Header.Episodes)
		return false, nil
	}
	if cfg.NonInteractive {
		logger.Infof("overwriting existing corpus %s", file.Path())
		return true, nil
	}
	fmt.Printf("corpus %s already exists, regenerate it? [y/N] ", file.Path())
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func progressEvery(target int) int {
	if target >= 100 {
		return target / 50
	}
	return 1
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"connect6_datagen/internal/domain/board"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/usecase/generator"
	"connect6_datagen/internal/usecase/heuristic"
	"connect6_datagen/internal/usecase/selfplay"
)

const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	EngineGrpcAddr string `mapstructure:"ENGINE_GRPC_ADDR"`
	RedisUrl       string `mapstructure:"REDIS_URL"`
	MongoUri       string `mapstructure:"MONGO_URI"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`
	IsLocalCors    bool   `mapstructure:"LOCAL_CORS"`

	BoardSize      int     `mapstructure:"BOARD_SIZE"`
	ConnectLength  int     `mapstructure:"CONNECT_LENGTH"`
	RoiMargin      int     `mapstructure:"ROI_MARGIN"`
	OpeningRadius  int     `mapstructure:"OPENING_RADIUS"`
	LineScan       string  `mapstructure:"LINE_SCAN"`
	LineProbe      int     `mapstructure:"LINE_PROBE"`
	LineScores     string  `mapstructure:"LINE_SCORES"`
	OffenseWeight  float64 `mapstructure:"OFFENSE_WEIGHT"`
	DefenseWeight  float64 `mapstructure:"DEFENSE_WEIGHT"`
	BlockBonus     float64 `mapstructure:"BLOCK_BONUS"`
	PositionWeight float64 `mapstructure:"POSITION_WEIGHT"`
	NoiseKind      string  `mapstructure:"NOISE_KIND"`
	NoiseScale     float64 `mapstructure:"NOISE_SCALE"`
	DeviationProb  float64 `mapstructure:"DEVIATION_PROB"`
	CriticalScore  float64 `mapstructure:"CRITICAL_SCORE"`

	PlyCap           int           `mapstructure:"PLY_CAP"`
	TargetGames      int           `mapstructure:"TARGET_GAMES"`
	Oversubscription float64       `mapstructure:"OVERSUBSCRIPTION"`
	Workers          int           `mapstructure:"WORKERS"`
	TaskTimeout      time.Duration `mapstructure:"TASK_TIMEOUT"`

	CorpusPath     string        `mapstructure:"CORPUS_PATH"`
	CorpusStores   string        `mapstructure:"CORPUS_STORES"`
	ReuseExisting  bool          `mapstructure:"REUSE_EXISTING"`
	NonInteractive bool          `mapstructure:"NON_INTERACTIVE"`
	RecordGames    bool          `mapstructure:"RECORD_GAMES"`
	ProgressTTL    time.Duration `mapstructure:"PROGRESS_TTL"`
}

var defaults = map[string]any{
	"SERVER_PORT":      "8080",
	"ENGINE_GRPC_ADDR": "localhost:50051",
	"REDIS_URL":        "",
	"MONGO_URI":        "",
	"MONGO_DATABASE":   "connect6",
	"LOCAL_CORS":       false,
	"BOARD_SIZE":       19,
	"CONNECT_LENGTH":   6,
	"ROI_MARGIN":       3,
	"OPENING_RADIUS":   1,
	"LINE_SCAN":        string(heuristic.ScanContiguous),
	"LINE_PROBE":       4,
	"LINE_SCORES":      "0,0,0,50,500,8000,100000",
	"OFFENSE_WEIGHT":   1.0,
	"DEFENSE_WEIGHT":   0.9,
	"BLOCK_BONUS":      20000.0,
	"POSITION_WEIGHT":  0.5,
	"NOISE_KIND":       string(heuristic.NoiseGaussian),
	"NOISE_SCALE":      5.0,
	"DEVIATION_PROB":   0.2,
	"CRITICAL_SCORE":   10000.0,
	"PLY_CAP":          150,
	"TARGET_GAMES":     500,
	"OVERSUBSCRIPTION": 1.5,
	"WORKERS":          0,
	"TASK_TIMEOUT":     "300s",
	"CORPUS_PATH":      "./temp/checkpoint_0.corpus",
	"CORPUS_STORES":    StoreFile,
	"REUSE_EXISTING":   false,
	"NON_INTERACTIVE":  true,
	"RECORD_GAMES":     false,
	"PROGRESS_TTL":     "24h",
}

// Load reads cfgPath into v on top of the defaults. A missing file is not an
// error; environment variables override both.
func Load(v *viper.Viper, cfgPath string) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Setup(cfgPath string) (*Config, error) {
	return Load(viper.GetViper(), cfgPath)
}

func ParseLineScores(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	scores := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("line score %q: %w", p, errs.ErrInvalidConfig)
		}
		scores = append(scores, f)
	}
	return scores, nil
}

func (c *Config) Heuristic() heuristic.Config {
	scores, err := ParseLineScores(c.LineScores)
	if err != nil {
		scores = heuristic.DefaultLineScores()
	}
	return heuristic.Config{
		ConnectLength:  c.ConnectLength,
		Margin:         c.RoiMargin,
		OpeningRadius:  c.OpeningRadius,
		Scan:           heuristic.ScanMode(c.LineScan),
		ProbeReach:     c.LineProbe,
		LineScores:     scores,
		OffenseWeight:  c.OffenseWeight,
		DefenseWeight:  c.DefenseWeight,
		BlockBonus:     c.BlockBonus,
		PositionWeight: c.PositionWeight,
		Noise:          heuristic.NoiseKind(c.NoiseKind),
		NoiseScale:     c.NoiseScale,
		DeviationProb:  c.DeviationProb,
		CriticalScore:  c.CriticalScore,
	}
}

func (c *Config) SelfPlay() selfplay.Config {
	return selfplay.Config{
		BoardSize: c.BoardSize,
		PlyCap:    c.PlyCap,
		Heuristic: c.Heuristic(),
	}
}

func (c *Config) Generator() generator.Options {
	return generator.Options{
		Target:           c.TargetGames,
		Oversubscription: c.Oversubscription,
		Workers:          c.Workers,
		TaskTimeout:      c.TaskTimeout,
	}
}

// Stores is the parsed CORPUS_STORES list.
func (c *Config) Stores() []string {
	var out []string
	for _, s := range strings.Split(c.CorpusStores, ",") {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if _, err := ParseLineScores(c.LineScores); err != nil {
		return err
	}
	switch {
	case !board.ValidSize(c.BoardSize):
		return fmt.Errorf("board size %d outside [1, %d]: %w", c.BoardSize, board.MaxSize, errs.ErrInvalidConfig)
	case c.PlyCap < 1:
		return fmt.Errorf("ply cap %d: %w", c.PlyCap, errs.ErrInvalidConfig)
	case c.TargetGames < 0 || c.TargetGames > generator.MaxTarget:
		return fmt.Errorf("target games %d: %w", c.TargetGames, errs.ErrInvalidConfig)
	case c.Oversubscription < 1:
		return fmt.Errorf("oversubscription %v must be at least 1: %w", c.Oversubscription, errs.ErrInvalidConfig)
	case c.Workers < 0 || c.Workers > generator.MaxWorkers:
		return fmt.Errorf("workers %d: %w", c.Workers, errs.ErrInvalidConfig)
	}
	for _, s := range c.Stores() {
		if s != StoreFile && s != StoreMongo {
			return fmt.Errorf("corpus store %q: %w", s, errs.ErrInvalidConfig)
		}
	}
	return c.Heuristic().Validate()
}

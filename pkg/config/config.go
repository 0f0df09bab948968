package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	TaxonomyFile  = "file"
	TaxonomyMongo = "mongo"

	ArtifactsNone   = "none"
	ArtifactsMemory = "memory"
	ArtifactsMongo  = "mongo"
	ArtifactsRedis  = "redis"
	ArtifactsSqlite = "sqlite"
)

type Config struct {
	SpotifyClientID        string        `envconfig:"SPOTIFY_CLIENT_ID" required:"true"`
	SpotifyClientSecret    string        `envconfig:"SPOTIFY_CLIENT_SECRET" required:"true"`
	SpotifyRefreshToken    string        `envconfig:"SPOTIFY_REFRESH_TOKEN" required:"true"`
	SpotifyPublicPlaylists bool          `envconfig:"SPOTIFY_PUBLIC_PLAYLISTS" default:"false"`
	SpotifyTimeout         time.Duration `envconfig:"SPOTIFY_TIMEOUT" default:"30s"`

	// Only needed when taxonomy, artifacts or run reports live in MongoDB.
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME" default:"library_sorter"`

	TaxonomySource  string `envconfig:"TAXONOMY_SOURCE" default:"file"`
	GenresPath      string `envconfig:"GENRES_PATH" default:"data/broad_genres.json"`
	LanguagesPath   string `envconfig:"LANGUAGES_PATH" default:"data/languages.json"`
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE"`

	ArtifactStore string        `envconfig:"ARTIFACT_STORE" default:"none"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" default:"0"`
	SqlitePath    string        `envconfig:"SQLITE_PATH" default:"artifacts.sqlite"`

	Action              string        `envconfig:"ACTION" default:"sort"` // sort, list or cleanup
	Mode                string        `envconfig:"MODE" default:"all"`    // genre, language or all
	BatchSize           int           `envconfig:"BATCH_SIZE" default:"100"`
	ReconcileWorkers    int           `envconfig:"RECONCILE_WORKERS" default:"1"`
	MaxAttempts         int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BackoffBase         time.Duration `envconfig:"BACKOFF_BASE" default:"1s"`
	BackoffMax          time.Duration `envconfig:"BACKOFF_MAX" default:"30s"`
	MaxRateLimitRetries int           `envconfig:"MAX_RATE_LIMIT_RETRIES" default:"5"`
	RunTimeout          time.Duration `envconfig:"RUN_TIMEOUT" default:"0"`

	DryRun   bool `envconfig:"DRY_RUN" default:"false"`
	Resume   bool `envconfig:"RESUME" default:"false"`
	LogDebug bool `envconfig:"LOG_DEBUG" default:"false"`

	BotToken  string `envconfig:"BOT_TOKEN"`
	BotChatID int64  `envconfig:"BOT_CHAT_ID"`
}

// NewConfig reads the environment, after loading .env when there is one.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Action {
	case "sort", "list", "cleanup":
	default:
		return fmt.Errorf("ACTION must be sort, list or cleanup, got %q", c.Action)
	}

	switch c.Mode {
	case "genre", "language", "all":
	default:
		return fmt.Errorf("MODE must be genre, language or all, got %q", c.Mode)
	}

	switch c.TaxonomySource {
	case TaxonomyFile:
	case TaxonomyMongo:
		if c.DatabaseURL == "" {
			return errors.New("TAXONOMY_SOURCE=mongo requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("TAXONOMY_SOURCE must be file or mongo, got %q", c.TaxonomySource)
	}

	switch c.ArtifactStore {
	case ArtifactsNone, ArtifactsMemory, ArtifactsRedis, ArtifactsSqlite:
	case ArtifactsMongo:
		if c.DatabaseURL == "" {
			return errors.New("ARTIFACT_STORE=mongo requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown ARTIFACT_STORE %q", c.ArtifactStore)
	}

	if c.BatchSize < 1 || c.BatchSize > 100 {
		return fmt.Errorf("BATCH_SIZE must be between 1 and 100, got %d", c.BatchSize)
	}
	if c.ReconcileWorkers < 1 {
		return fmt.Errorf("RECONCILE_WORKERS must be positive, got %d", c.ReconcileWorkers)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", c.MaxAttempts)
	}
	if c.MaxRateLimitRetries < 0 {
		return fmt.Errorf("MAX_RATE_LIMIT_RETRIES must not be negative, got %d", c.MaxRateLimitRetries)
	}
	if c.BotToken != "" && c.BotChatID == 0 {
		return errors.New("BOT_TOKEN requires BOT_CHAT_ID")
	}

	return nil
}

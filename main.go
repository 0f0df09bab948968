package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/artifacts"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/config"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/db"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/notify"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/retry"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/service"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/spotify"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.LogDebug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting library-sorter", zap.String("mode", cfg.Mode))
	if cfg.DryRun {
		logger.Info("Running in DRY_RUN mode - no playlists will be created or changed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	// Initialize database when one is configured
	var database db.Database
	if cfg.DatabaseURL != "" {
		database, err = db.NewDatabase(ctx, logger, cfg.DatabaseURL, cfg.DatabaseName)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := database.Ping(ctx); err != nil {
			logger.Fatal("Failed to ping database", zap.Error(err))
		}
		defer func() {
			if err := database.Close(context.Background()); err != nil {
				logger.Warn("Error closing database connection", zap.Error(err))
			}
		}()
	}

	// Load taxonomy
	var source taxonomy.Source = taxonomy.FileSource{
		GenresPath:    cfg.GenresPath,
		LanguagesPath: cfg.LanguagesPath,
	}
	if cfg.TaxonomySource == config.TaxonomyMongo {
		source = database
	}
	tax := taxonomy.Load(ctx, source, cfg.DefaultLanguage, logger)

	store, closeStore := newArtifactStore(ctx, cfg, database, logger)
	defer closeStore()

	// Initialize Spotify client
	client, err := spotify.NewClient(ctx, spotify.Options{
		ClientID:        cfg.SpotifyClientID,
		ClientSecret:    cfg.SpotifyClientSecret,
		RefreshToken:    cfg.SpotifyRefreshToken,
		PublicPlaylists: cfg.SpotifyPublicPlaylists,
		Timeout:         cfg.SpotifyTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create spotify client", zap.Error(err))
	}

	clock := retry.RealClock()
	caller := &catalog.Caller{
		Transient:           retry.Exponential(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffMax),
		MaxRateLimitRetries: cfg.MaxRateLimitRetries,
		Cooldown:            retry.NewCooldown(clock),
		Clock:               clock,
		Log:                 logger,
	}

	reader := catalog.NewReader(client, caller, logger)
	reconciler := service.NewReconciler(client, caller, cfg.BatchSize, cfg.DryRun, logger)

	var reports service.ReportStore
	if database != nil {
		reports = database
	}

	var notifier service.Notifier
	if cfg.BotToken != "" {
		bot, err := notify.NewTelegram(cfg.BotToken, cfg.BotChatID, logger)
		if err != nil {
			logger.Warn("Failed to create telegram notifier, continuing without notifications", zap.Error(err))
		} else {
			notifier = bot
		}
	}

	svc := service.NewService(reader, reconciler, tax, store, reports, notifier, service.Options{
		Resume:  cfg.Resume,
		DryRun:  cfg.DryRun,
		Workers: cfg.ReconcileWorkers,
	}, logger)

	kind := models.ClassificationKind(cfg.Mode)
	switch models.Action(cfg.Action) {
	case models.ActionList:
		playlists, err := svc.ListPlaylists(ctx, kind)
		if err != nil {
			logger.Error("Failed to list playlists", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		for _, p := range playlists {
			logger.Info("Bucket playlist",
				zap.String("playlist_id", p.ID),
				zap.String("name", p.Name),
				zap.String("owner", p.OwnerID),
				zap.Int("tracks", p.TrackCount))
		}
		logger.Info("Listed bucket playlists", zap.Int("count", len(playlists)))

	case models.ActionCleanup:
		report, err := svc.Cleanup(ctx, kind)
		if err != nil {
			logger.Error("Cleanup failed", zap.String("run_id", report.ID), zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		logger.Info("Library cleanup completed",
			zap.String("run_id", report.ID),
			zap.Int("removed", len(report.Removed)),
			zap.Int("partial_failures", len(report.PartialFailures)))

	default:
		report, err := svc.Run(ctx, kind)
		if err != nil {
			logger.Error("Run failed", zap.String("run_id", report.ID), zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		logger.Info("Library sort completed",
			zap.String("run_id", report.ID),
			zap.Int("buckets", len(report.Buckets)),
			zap.Int("partial_failures", len(report.PartialFailures)))
	}
}

func newArtifactStore(ctx context.Context, cfg *config.Config, database db.Database, logger *zap.Logger) (artifacts.Store, func()) {
	noop := func() {}

	switch cfg.ArtifactStore {
	case config.ArtifactsMemory:
		return artifacts.NewMemory(), noop
	case config.ArtifactsMongo:
		return database, noop
	case config.ArtifactsRedis:
		client, closeFn, err := artifacts.NewRedisClient(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Warn("Failed to connect to redis, artifacts will not be saved", zap.Error(err))
			return artifacts.Discard{}, noop
		}
		return artifacts.NewRedis(client, cfg.RedisTTL), closeFn
	case config.ArtifactsSqlite:
		s, err := artifacts.OpenSqlite(cfg.SqlitePath)
		if err != nil {
			logger.Warn("Failed to open sqlite, artifacts will not be saved", zap.Error(err))
			return artifacts.Discard{}, noop
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("Error closing sqlite", zap.Error(err))
			}
		}
	}

	if cfg.Resume {
		logger.Warn("RESUME is set but ARTIFACT_STORE is none, the library will be read again")
	}
	return artifacts.Discard{}, noop
}

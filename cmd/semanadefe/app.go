package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/semanadefe/semanadefe/internal/config"
	"github.com/semanadefe/semanadefe/internal/db"
	"github.com/semanadefe/semanadefe/internal/geocode"
	"github.com/semanadefe/semanadefe/internal/hint"
	claudehint "github.com/semanadefe/semanadefe/internal/hint/claude"
	ollamahint "github.com/semanadefe/semanadefe/internal/hint/ollama"
	"github.com/semanadefe/semanadefe/internal/photostore"
	"github.com/semanadefe/semanadefe/internal/photostore/local"
	"github.com/semanadefe/semanadefe/internal/photostore/s3"
	"github.com/semanadefe/semanadefe/internal/search"
	"github.com/semanadefe/semanadefe/internal/service"
	"github.com/semanadefe/semanadefe/internal/store"
	"github.com/semanadefe/semanadefe/internal/store/redisstore"
	"github.com/semanadefe/semanadefe/internal/tasks"
)

// app holds the wired services for one process.
type app struct {
	logger *slog.Logger

	photos      photostore.PhotoStore
	geocoder    *geocode.Client
	searcher    *search.Service
	submissions *service.SubmissionService
	tasks       *service.TaskService
	stats       *service.StatsService

	// checks report whether a backing service is reachable.
	checks  map[string]func(context.Context) error
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	database, dialect, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})
	logger.Info("database ready", "dialect", string(dialect))
	a.checks = map[string]func(context.Context) error{"database": database.PingContext}

	initiatives := store.NewInitiativeStore(database, dialect)

	counter, err := a.newTaskCounter(cfg, database, dialect)
	if err != nil {
		a.Close()
		return nil, err
	}

	photos, inline, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.photos = photos

	var meili *search.Meili
	if cfg.MeiliURL != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		a.onClose(meili.Close)
	}
	a.searcher = search.NewService(meili, initiatives, logger)

	fallback, err := service.ParseFallbackPolicy(cfg.PhotoFallback)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid PHOTO_FALLBACK: %w", err)
	}

	ingestor := service.NewImageIngestor(photos, service.IngestOptions{
		Folder:   cfg.PhotoFolder,
		Fallback: fallback,
		Seed:     cfg.PlaceholderSeed,
		Inline:   inline,
	}, logger)

	a.submissions = service.NewSubmissionService(initiatives, ingestor, newHinter(cfg, logger), a.searcher, logger)
	a.tasks = service.NewTaskService(tasks.Default(), counter, service.NewHub(), logger)
	a.stats = service.NewStatsService(initiatives, cfg.ProgressGoal, cfg.StudentsInvolved)
	a.geocoder = newGeocoder(cfg)
	return a, nil
}

func (a *app) onClose(f func()) {
	a.closers = append(a.closers, f)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) newTaskCounter(cfg *config.Config, database *sql.DB, dialect db.Dialect) (service.TaskCounter, error) {
	if cfg.RedisURL == "" {
		return store.NewTaskCountStore(database, dialect), nil
	}
	counts, err := redisstore.NewTaskCountStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect task counter to redis: %w", err)
	}
	a.onClose(func() {
		if err := counts.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	})
	a.checks["redis"] = counts.Ping
	a.logger.Info("using redis task counter")
	return counts, nil
}

// newPhotoStore returns the configured backend. The inline backend stores
// nothing and reports inline=true instead.
func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, bool, error) {
	switch cfg.PhotoBackend {
	case "inline":
		logger.Info("embedding photos inline")
		return nil, true, nil
	case "s3":
		st, err := s3.NewS3PhotoStore(ctx, s3.Config{
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			UseSSL:     cfg.S3UseSSL,
			PublicHost: cfg.S3PublicHost,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to initialize s3 photo store: %w", err)
		}
		logger.Info("using s3 photo store", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return st, false, nil
	case "local", "":
		st, err := local.NewLocalPhotoStore(cfg.PhotoPath, cfg.PublicBaseURL+"/photos")
		if err != nil {
			return nil, false, fmt.Errorf("failed to initialize photo store: %w", err)
		}
		logger.Info("using local photo store", "path", cfg.PhotoPath)
		return st, false, nil
	default:
		return nil, false, fmt.Errorf("unknown PHOTO_BACKEND %q", cfg.PhotoBackend)
	}
}

func newHinter(cfg *config.Config, logger *slog.Logger) hint.Hinter {
	switch cfg.HintBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when HINT_BACKEND=claude, using static hints")
			return hint.Static{}
		}
		logger.Info("using Claude photo hints", "model", cfg.ClaudeModel)
		return claudehint.NewClaudeHinter(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama photo hints", "model", cfg.OllamaModel)
		return ollamahint.NewOllamaHinter(cfg.OllamaHost, cfg.OllamaModel)
	default:
		return hint.Static{}
	}
}

func newGeocoder(cfg *config.Config) *geocode.Client {
	return geocode.NewClient(geocode.Config{
		BaseURL:   cfg.GeocodeURL,
		UserAgent: cfg.GeocodeUserAgent,
		Country:   cfg.GeocodeCountry,
		Timeout:   cfg.GeocodeTimeout,
	})
}

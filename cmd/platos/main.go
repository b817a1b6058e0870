package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbonduro/platos/internal/carousel"
	"github.com/vbonduro/platos/internal/config"
	"github.com/vbonduro/platos/internal/db"
	"github.com/vbonduro/platos/internal/imagestore"
	"github.com/vbonduro/platos/internal/imagestore/local"
	"github.com/vbonduro/platos/internal/imagestore/s3"
	"github.com/vbonduro/platos/internal/logging"
	"github.com/vbonduro/platos/internal/service"
	"github.com/vbonduro/platos/internal/session"
	"github.com/vbonduro/platos/internal/store"
	pgstore "github.com/vbonduro/platos/internal/store/postgres"
	"github.com/vbonduro/platos/internal/web"
	"github.com/vbonduro/platos/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("platos stopped", "error", err)
	}
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, closeStore, err := newItemRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := newImageStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	menuService := service.NewMenuService(items, images, logger)
	guard := session.NewGuard(session.Credentials{
		Username:     cfg.AdminUsername,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
	}, cfg.CookieSecure)

	heroCarousel := carousel.New(menuService, carousel.Options{
		Interval:    cfg.CarouselInterval,
		Pause:       cfg.CarouselPause,
		Placeholder: cfg.CarouselPlaceholder,
	}, logger)
	go heroCarousel.Run(ctx)

	opts := web.Options{Carousel: heroCarousel}
	if cfg.ImageBackend != "s3" {
		opts.Images = images
	}
	server := web.NewServer(menuService, guard, templates.FS, opts, logger)
	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newItemRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.ItemRepository, func(), error) {
	switch cfg.DBBackend {
	case "postgres":
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		logger.Info("using postgres item store")
		return pgstore.NewItemStore(pool), closePool(pool), nil
	case "sqlite", "":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("using sqlite item store", "path", cfg.DBPath)
		return store.NewItemStore(database), closeDB(database, logger), nil
	default:
		return nil, nil, fmt.Errorf("unknown DB_BACKEND %q", cfg.DBBackend)
	}
}

func newImageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (imagestore.ImageStore, error) {
	switch cfg.ImageBackend {
	case "s3":
		st, err := s3.NewS3ImageStore(s3.Config{
			Endpoint:  cfg.StorageURL,
			AccessKey: cfg.StorageKey,
			SecretKey: cfg.StorageSecret,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageSSL,
			PublicURL: cfg.StoragePublic,
		})
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare bucket: %w", err)
		}
		logger.Info("using s3 image store", "endpoint", cfg.StorageURL, "bucket", cfg.StorageBucket)
		return st, nil
	case "local", "":
		st, err := local.NewLocalImageStore(cfg.ImagePath, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize image store: %w", err)
		}
		logger.Info("using local image store", "path", cfg.ImagePath)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown IMAGE_BACKEND %q", cfg.ImageBackend)
	}
}

func closePool(pool *pgxpool.Pool) func() {
	return pool.Close
}

func closeDB(database *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
}

// Package bootstrap assembles the application from configuration. It is
// shared by the HTTP server and the command line client.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apex/log"

	"github.com/bryanwahyu/plantcare/internal/application"
	"github.com/bryanwahyu/plantcare/internal/application/analysis"
	appplants "github.com/bryanwahyu/plantcare/internal/application/plants"
	"github.com/bryanwahyu/plantcare/internal/config"
	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
	"github.com/bryanwahyu/plantcare/internal/infra/ai/gemini"
	"github.com/bryanwahyu/plantcare/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/plantcare/internal/infra/db/mysql"
	"github.com/bryanwahyu/plantcare/internal/infra/db/postgres"
	"github.com/bryanwahyu/plantcare/internal/infra/storage"
	"github.com/bryanwahyu/plantcare/internal/middleware"
)

type App struct {
	Store    *appplants.Store
	Service  *analysis.Service
	Checkers map[string]middleware.HealthChecker

	closers []func() error
}

// Build wires storage, inference and the analysis service.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Checkers: make(map[string]middleware.HealthChecker)}

	var objects *storage.Store
	if cfg.Storage.Driver == "minio" || cfg.Minio.StoreImages {
		s, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		objects = s
		app.Checkers["minio"] = middleware.CheckFunc(s.Check)
	}

	slot, err := app.newSlot(ctx, cfg, objects)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Checkers["slot"] = &middleware.SlotHealthChecker{
		Slot:    slot,
		IsEmpty: func(err error) bool { return errors.Is(err, plants.ErrSlotEmpty) },
	}

	client, err := app.newAIClient(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Store = appplants.NewStore(slot)
	app.Service = &analysis.Service{
		Store:  app.Store,
		Client: analysis.NewClient(client),
		Clock:  application.SystemClock{},
	}
	if cfg.Minio.StoreImages && objects != nil {
		app.Service.Images = objects
	}

	log.WithFields(log.Fields{
		"storage":  cfg.Storage.Driver,
		"slot":     cfg.Storage.Slot,
		"provider": cfg.AI.Provider,
		"images":   app.Service.Images != nil,
	}).Info("application wired")
	return app, nil
}

func (a *App) newSlot(ctx context.Context, cfg *config.Config, objects *storage.Store) (plants.Slot, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemorySlot(), nil
	case "file":
		return storage.NewFileSlot(cfg.Storage.Path)
	case "redis":
		s, err := storage.NewRedisSlot(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Storage.Slot)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewSlotRepository(db, cfg.Storage.Slot)
		return a.sqlSlot(ctx, "mysql", db, repo)
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgres.NewSlotRepository(db, cfg.Storage.Slot)
		return a.sqlSlot(ctx, "postgres", db, repo)
	case "minio":
		return objects.Slot(cfg.Storage.Slot), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

type migratingSlot interface {
	plants.Slot
	Migrate(ctx context.Context) error
}

func (a *App) sqlSlot(ctx context.Context, name string, db *sql.DB, repo migratingSlot) (plants.Slot, error) {
	a.closers = append(a.closers, db.Close)
	a.Checkers[name] = &middleware.DatabaseHealthChecker{DB: db}
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("%s migrate: %w", name, err)
	}
	return repo, nil
}

func (a *App) newAIClient(ctx context.Context, cfg *config.Config) (ai.Client, error) {
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.BaseURL != "" {
			return openai.NewClientWithBaseURL(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL), nil
		}
		return openai.NewClient(cfg.AI.APIKey, cfg.AI.Model), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

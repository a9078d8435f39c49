package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridepulse/ridepulse/internal/api"
	"github.com/ridepulse/ridepulse/internal/chartrender"
	"github.com/ridepulse/ridepulse/internal/chartspec"
	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/dataset"
	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/inference"
	"github.com/ridepulse/ridepulse/internal/maintenance"
	"github.com/ridepulse/ridepulse/internal/observability"
	"github.com/ridepulse/ridepulse/internal/pipeline"
	"github.com/ridepulse/ridepulse/internal/sqlgen"
	s3store "github.com/ridepulse/ridepulse/internal/storage/s3"
	"github.com/ridepulse/ridepulse/internal/templates"
)

func main() {
	cfg, err := config.LoadFromEnv("ridepulse-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dataset.SyncFromStore {
		if err := syncDataset(ctx, cfg, logger); err != nil {
			logger.Error("dataset sync failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var manifest *dataset.Manifest
	if cfg.Dataset.ManifestEnabled {
		built, err := dataset.BuildManifest(cfg.Dataset.Dir, cfg.Dataset.TripGlob)
		if err != nil {
			logger.Error("failed to build dataset manifest", slog.Any("error", err))
			os.Exit(1)
		}
		manifest = &built
		logger.Info("dataset manifest built",
			slog.Int("files", len(built.Files)),
			slog.Int64("rows", built.TotalRows))
	}

	db, err := engine.Open(ctx, cfg.Dataset)
	if err != nil {
		logger.Error("failed to open query engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	catalog, err := db.Catalog(ctx)
	if err != nil {
		logger.Error("failed to load schema catalog", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema catalog loaded",
		slog.String("version", catalog.Version()),
		slog.Any("tables", catalog.TableNames()))

	executor := engine.NewSQLExecutor(db.SQL(), cfg.Engine)
	validator := sqlgen.NewValidator(catalog, executor)

	deps := pipeline.Deps{
		SQLValidator:  validator,
		Executor:      executor,
		Templates:     templates.NewLibrary(),
		SchemaVersion: catalog.Version(),
		Logger:        observability.Component(logger, "pipeline"),
	}
	if cfg.Pipeline.Enabled {
		provider, err := newProvider(cfg)
		if err != nil {
			logger.Error("failed to initialize inference provider", slog.Any("error", err))
			os.Exit(1)
		}
		deps.SQLGenerator = sqlgen.NewGenerator(provider, sqlgen.NewPromptBuilder(catalog), validator, cfg.AI.MaxSQLAttempts, observability.Component(logger, "sqlgen"))
		deps.SpecGenerator = chartspec.NewGenerator(provider, chartspec.NewPromptBuilder(), chartspec.NewValidator(cfg.Chart.MaxPoints), cfg.AI.MaxSpecAttempts, observability.Component(logger, "chartspec"))
		logger.Info("generation pipeline enabled",
			slog.String("provider", provider.Name()),
			slog.String("model", cfg.AI.Model))
	} else {
		logger.Info("generation pipeline disabled, serving templated answers")
	}
	deps.Renderer = chartrender.NewRenderer(cfg.Chart, logger)

	if cfg.Chart.Output == "image" {
		janitor := &maintenance.Service{
			Config: maintenance.Config{
				ChartDir:      cfg.Chart.Dir,
				RetainAge:     cfg.Chart.RetainAge,
				SweepInterval: cfg.Chart.SweepInterval,
			},
			Logger: observability.Component(logger, "maintenance"),
		}
		go func() { _ = janitor.Run(ctx) }()
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Pipeline:          pipeline.New(cfg.Pipeline, deps),
		Catalog:           catalog,
		Manifest:          manifest,
		ChartDir:          cfg.Chart.Dir,
		PreviewRows:       cfg.Pipeline.PreviewRows,
		Readiness:         api.CheckEngine(executor),
		DependencyTimeout: time.Second,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func syncDataset(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := s3store.New(s3store.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.ObjectStore.Region,
		Bucket:          cfg.ObjectStore.Bucket,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		UseSSL:          cfg.ObjectStore.UseSSL,
		Prefix:          cfg.ObjectStore.Prefix,
	})
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	downloaded, err := dataset.NewSyncer(store, cfg.Dataset, observability.Component(logger, "dataset")).Sync(ctx)
	if err != nil {
		return err
	}
	logger.Info("dataset sync complete", slog.Int("downloaded", downloaded))
	return nil
}

func newProvider(cfg config.Config) (inference.Provider, error) {
	switch cfg.AI.Provider {
	case "openai":
		return inference.NewOpenAIProvider(inference.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		return inference.NewOllamaProvider(inference.OllamaConfig{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
	}
}

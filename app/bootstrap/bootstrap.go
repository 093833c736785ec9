package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/aihub/loganomaly/internal/baseline"
	"github.com/aihub/loganomaly/internal/config"
	"github.com/aihub/loganomaly/internal/di"
	"github.com/aihub/loganomaly/internal/logger"
	"github.com/aihub/loganomaly/internal/metrics"
	"github.com/aihub/loganomaly/internal/services"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"github.com/beego/beego/v2/server/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error

	Config         *config.Config
	Service        *services.AnomalyService
	Metrics        *metrics.Collector
	BaselinePoints int
}

// Init loads configuration, wires dependencies and seeds the baseline
// collection. Any failure here must abort startup before the listener binds.
func Init(ctx context.Context, configFile string) (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	cfg, err := config.NewConfigLoader().WithConfigFile(configFile).Load()
	if err != nil {
		return nil, err
	}
	logger.Info("Configuration loaded",
		zap.String("collection", cfg.CollectionName),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("vector_store_provider", cfg.VectorStore.Provider),
		zap.Float32("anomaly_threshold", cfg.AnomalyThreshold),
	)

	web.BConfig.AppName = "Log Anomaly Service"
	web.BConfig.CopyRequestBody = true
	web.BConfig.WebConfig.AutoRender = false
	web.BConfig.RunMode = web.PROD

	if _, err := di.Build(cfg); err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	app := &App{Config: cfg}
	err = di.Invoke(func(
		store vectorstore.VectorStore,
		initializer *baseline.Initializer,
		service *services.AnomalyService,
		collector *metrics.Collector,
	) error {
		app.cleanupTasks = append(app.cleanupTasks, store.Close)
		app.Service = service
		app.Metrics = collector

		count, err := initializer.Run(ctx)
		if err != nil {
			return err
		}
		app.BaselinePoints = count
		collector.SetBaselinePoints(count)
		return nil
	})
	if err != nil {
		app.Shutdown()
		return nil, fmt.Errorf("failed to initialize baseline: %w", err)
	}

	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Warn("Cleanup error", zap.Error(err))
		}
	}
	a.cleanupTasks = nil

	// Flush logger buffers.
	logger.Sync()
}

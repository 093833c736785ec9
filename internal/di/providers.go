package di

import (
	"context"
	"fmt"

	"github.com/aihub/loganomaly/internal/anomaly"
	"github.com/aihub/loganomaly/internal/baseline"
	"github.com/aihub/loganomaly/internal/config"
	"github.com/aihub/loganomaly/internal/embedding"
	"github.com/aihub/loganomaly/internal/logger"
	"github.com/aihub/loganomaly/internal/metrics"
	"github.com/aihub/loganomaly/internal/services"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	providers := []interface{}{
		// 配置与日志
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger.GetLogger() },

		// 外部依赖
		newEmbedder,
		newVectorStore,
		metrics.NewCollector,

		// 领域组件
		func(cfg *config.Config) *anomaly.Detector {
			return anomaly.NewDetector(cfg.AnomalyThreshold)
		},
		newBaselineInitializer,
		newAnomalyService,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return err
		}
	}
	return nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	return embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: int(cfg.VectorSize),
		Timeout:    cfg.Embedding.Timeout,
	})
}

func newVectorStore(cfg *config.Config) (vectorstore.VectorStore, error) {
	return vectorstore.New(context.Background(), vectorstore.Options{
		Provider: cfg.VectorStore.Provider,
		Endpoint: cfg.VectorStore.Endpoint,
		APIKey:   cfg.VectorStore.APIKey,
		Username: cfg.VectorStore.Username,
		Password: cfg.VectorStore.Password,
		Database: cfg.VectorStore.Database,
		Timeout:  cfg.VectorStore.Timeout,
	})
}

func newBaselineInitializer(cfg *config.Config, embedder embedding.Embedder, store vectorstore.VectorStore) *baseline.Initializer {
	return baseline.NewInitializer(embedder, store, baseline.Options{
		Collection:  cfg.CollectionName,
		VectorSize:  cfg.VectorSize,
		Distance:    vectorstore.Distance(cfg.Distance),
		Concurrency: cfg.Baseline.Concurrency,
	})
}

func newAnomalyService(
	cfg *config.Config,
	embedder embedding.Embedder,
	store vectorstore.VectorStore,
	detector *anomaly.Detector,
	collector *metrics.Collector,
	log *zap.Logger,
) *services.AnomalyService {
	return services.NewAnomalyService(embedder, store, detector, collector, log, services.AnomalyServiceOptions{
		Collection:  cfg.CollectionName,
		SearchLimit: cfg.SearchLimit,
	})
}

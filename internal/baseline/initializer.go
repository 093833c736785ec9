// Package baseline seeds the vector store with embeddings of known-normal
// log lines before the service starts accepting requests.
package baseline

import (
	"context"
	"fmt"
	"time"

	"github.com/aihub/loganomaly/internal/embedding"
	"github.com/aihub/loganomaly/internal/logger"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options 基线初始化参数
type Options struct {
	Collection  string
	VectorSize  uint64
	Distance    vectorstore.Distance
	Concurrency int
	Logs        []string
}

// Initializer 重建集合并写入基线日志
type Initializer struct {
	embedder embedding.Embedder
	store    vectorstore.VectorStore
	opts     Options
}

// NewInitializer 创建基线初始化器，Logs 为空时使用 NormalLogs
func NewInitializer(embedder embedding.Embedder, store vectorstore.VectorStore, opts Options) *Initializer {
	if len(opts.Logs) == 0 {
		opts.Logs = NormalLogs
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Distance == "" {
		opts.Distance = vectorstore.DistanceCosine
	}
	return &Initializer{embedder: embedder, store: store, opts: opts}
}

// Run drops and recreates the collection, then indexes every baseline log.
// It returns the number of points written. Any failure is fatal to startup;
// a partially seeded collection is never reported as success.
func (i *Initializer) Run(ctx context.Context) (int, error) {
	start := time.Now()
	collection := i.opts.Collection

	if err := i.store.ReplaceCollection(ctx, collection, i.opts.VectorSize, i.opts.Distance); err != nil {
		return 0, fmt.Errorf("failed to recreate collection %s: %w", collection, err)
	}

	points, err := i.embedAll(ctx)
	if err != nil {
		return 0, err
	}

	if err := i.store.Upsert(ctx, collection, points, true); err != nil {
		return 0, fmt.Errorf("failed to upsert baseline points: %w", err)
	}

	logger.Info("Successfully indexed normal log entries",
		zap.String("collection", collection),
		zap.Int("count", len(points)),
		zap.Duration("duration", time.Since(start)),
	)
	return len(points), nil
}

// embedAll 并发获取向量，结果按输入顺序放置
func (i *Initializer) embedAll(ctx context.Context) ([]vectorstore.Point, error) {
	points := make([]vectorstore.Point, len(i.opts.Logs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Concurrency)

	for idx, line := range i.opts.Logs {
		g.Go(func() error {
			vector, err := i.embedder.Embed(gctx, line)
			if err != nil {
				return fmt.Errorf("failed to embed baseline log %d: %w", idx, err)
			}
			points[idx] = vectorstore.Point{
				ID:      uint64(idx),
				Vector:  vector,
				Payload: map[string]interface{}{vectorstore.PayloadLogKey: line},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

package services

import (
	"context"
	"time"

	"github.com/aihub/loganomaly/internal/anomaly"
	"github.com/aihub/loganomaly/internal/embedding"
	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/aihub/loganomaly/internal/metrics"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"go.uber.org/zap"
)

// AnomalyServiceOptions 异常检测服务参数
type AnomalyServiceOptions struct {
	Collection  string
	SearchLimit uint64
}

// AnomalyService 日志异常检测服务
type AnomalyService struct {
	embedder embedding.Embedder
	store    vectorstore.VectorStore
	detector *anomaly.Detector
	metrics  *metrics.Collector
	logger   *zap.Logger
	opts     AnomalyServiceOptions
}

// NewAnomalyService 创建异常检测服务，collector 可为 nil
func NewAnomalyService(
	embedder embedding.Embedder,
	store vectorstore.VectorStore,
	detector *anomaly.Detector,
	collector *metrics.Collector,
	logger *zap.Logger,
	opts AnomalyServiceOptions,
) *AnomalyService {
	if opts.SearchLimit == 0 {
		opts.SearchLimit = 1
	}
	if logger == nil {
		logger = zap.L()
	}
	return &AnomalyService{
		embedder: embedder,
		store:    store,
		detector: detector,
		metrics:  collector,
		logger:   logger,
		opts:     opts,
	}
}

// CheckLog embeds the entry, looks up its nearest baseline neighbour and
// returns the verdict. Errors are embedding or vector store AppErrors.
func (s *AnomalyService) CheckLog(ctx context.Context, entry string) (anomaly.Verdict, error) {
	start := time.Now()

	vector, err := s.embedder.Embed(ctx, entry)
	if err != nil {
		appErr := apperrors.TranslateEmbedding(err)
		s.logger.Error("Failed to get embedding", zap.String("code", string(appErr.Code)), zap.Error(err))
		s.recordFailure(appErr.Code, start)
		return anomaly.Verdict{}, appErr
	}

	neighbours, err := s.store.Search(ctx, vectorstore.SearchRequest{
		Collection:  s.opts.Collection,
		Vector:      vector,
		Limit:       s.opts.SearchLimit,
		WithPayload: true,
	})
	if err != nil {
		appErr := apperrors.AsRejected(apperrors.TranslateVectorStore("search", err))
		s.logger.Error("Vector search failed", zap.String("code", string(appErr.Code)), zap.Error(err))
		s.recordFailure(appErr.Code, start)
		return anomaly.Verdict{}, appErr
	}

	verdict := s.detector.Decide(neighbours)
	s.logger.Debug("Log checked",
		zap.Bool("is_anomalous", verdict.IsAnomalous),
		zap.Float32("score", verdict.Score),
		zap.String("nearest", verdict.Nearest),
	)

	if s.metrics != nil {
		label := metrics.VerdictNormal
		if verdict.IsAnomalous {
			label = metrics.VerdictAnomalous
		}
		s.metrics.ObserveCheck(label, time.Since(start))
	}
	return verdict, nil
}

// BaselinePoints 返回集合中的点数，用于健康检查
func (s *AnomalyService) BaselinePoints(ctx context.Context) (uint64, error) {
	return s.store.Count(ctx, s.opts.Collection)
}

// Collection 返回检索使用的集合名
func (s *AnomalyService) Collection() string {
	return s.opts.Collection
}

func (s *AnomalyService) recordFailure(code apperrors.ErrorCode, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.UpstreamError(string(code))
	s.metrics.ObserveCheck(metrics.VerdictError, time.Since(start))
}

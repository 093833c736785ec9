package vectorstore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	defaultMilvusPort = 19530

	milvusIDField     = "id"
	milvusLogField    = "log"
	milvusVectorField = "vector"
)

// MilvusStore Milvus向量存储，负载仅保留 log 字段
type MilvusStore struct {
	milvusClient client.Client
	timeout      time.Duration

	mu      sync.RWMutex
	metrics map[string]entity.MetricType
}

// NewMilvusStore 创建Milvus向量存储
func NewMilvusStore(ctx context.Context, opts Options) (*MilvusStore, error) {
	host, port, useTLS, err := parseGRPCEndpoint(opts.Endpoint, defaultMilvusPort)
	if err != nil {
		return nil, err
	}

	database := opts.Database
	if database == "" {
		database = "default"
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	milvusClient, err := client.NewClient(connectCtx, client.Config{
		Address:       hostPort(host, port),
		DBName:        database,
		Username:      opts.Username,
		Password:      opts.Password,
		APIKey:        opts.APIKey,
		EnableTLSAuth: useTLS,
	})
	if err != nil {
		return nil, apperrors.TranslateVectorStore("connect", err)
	}

	return &MilvusStore{
		milvusClient: milvusClient,
		timeout:      opts.timeout(),
		metrics:      make(map[string]entity.MetricType),
	}, nil
}

func milvusMetric(d Distance) (entity.MetricType, error) {
	switch d {
	case "", DistanceCosine:
		return entity.COSINE, nil
	case DistanceDot:
		return entity.IP, nil
	case DistanceEuclid:
		return entity.L2, nil
	default:
		return "", apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "unsupported distance %q", d)
	}
}

func (s *MilvusStore) ReplaceCollection(ctx context.Context, name string, size uint64, distance Distance) error {
	metric, err := milvusMetric(distance)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return s.translate("delete collection", err)
	}
	if exists {
		if err := s.milvusClient.DropCollection(ctx, name); err != nil {
			if appErr := s.translate("delete collection", err); appErr.Code != apperrors.ErrCodeCollectionNotFound {
				return appErr
			}
		}
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "baseline of normal log lines",
		Fields: []*entity.Field{
			{
				Name:       milvusIDField,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     milvusLogField,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     milvusVectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.FormatUint(size, 10),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return apperrors.AsRejected(s.translate("create collection", err))
	}

	index, err := entity.NewIndexHNSW(metric, 8, 64)
	if err != nil {
		return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "vector store create index: %v", err)
	}
	if err := s.milvusClient.CreateIndex(ctx, name, milvusVectorField, index, false); err != nil {
		return apperrors.AsRejected(s.translate("create index", err))
	}
	if err := s.milvusClient.LoadCollection(ctx, name, false); err != nil {
		return apperrors.AsRejected(s.translate("load collection", err))
	}

	s.mu.Lock()
	s.metrics[name] = metric
	s.mu.Unlock()
	return nil
}

func (s *MilvusStore) Upsert(ctx context.Context, name string, points []Point, wait bool) error {
	if len(points) == 0 {
		return nil
	}

	dim := len(points[0].Vector)
	ids := make([]int64, 0, len(points))
	logs := make([]string, 0, len(points))
	vectors := make([][]float32, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != dim {
			return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected,
				"point %d has %d dimensions, expected %d", p.ID, len(p.Vector), dim)
		}
		text, _ := p.Payload[PayloadLogKey].(string)
		ids = append(ids, int64(p.ID))
		logs = append(logs, text)
		vectors = append(vectors, p.Vector)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.milvusClient.Upsert(ctx, name, "",
		entity.NewColumnInt64(milvusIDField, ids),
		entity.NewColumnVarChar(milvusLogField, logs),
		entity.NewColumnFloatVector(milvusVectorField, dim, vectors),
	)
	if err != nil {
		return apperrors.AsRejected(s.translate("upsert", err))
	}

	if wait {
		if err := s.milvusClient.Flush(ctx, name, false); err != nil {
			return apperrors.AsRejected(s.translate("flush", err))
		}
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var outputFields []string
	if req.WithPayload {
		outputFields = []string{milvusLogField}
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		req.Collection,
		[]string{},
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(req.Vector)},
		milvusVectorField,
		s.metricFor(req.Collection),
		int(limit),
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, apperrors.AsRejected(s.translate("search", err))
	}
	if len(searchResults) == 0 {
		return []ScoredPoint{}, nil
	}

	// 只有一个查询向量，取第一个结果
	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.AsRejected(s.translate("search", result.Err))
	}

	var ids []int64
	if idCol, ok := result.IDs.(*entity.ColumnInt64); ok {
		ids = idCol.Data()
	}
	var logs []string
	for _, field := range result.Fields {
		if field.Name() != milvusLogField {
			continue
		}
		if col, ok := field.(*entity.ColumnVarChar); ok {
			logs = col.Data()
		}
	}

	results := make([]ScoredPoint, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		point := ScoredPoint{}
		if i < len(ids) {
			point.ID = uint64(ids[i])
		}
		if i < len(result.Scores) {
			point.Score = result.Scores[i]
		}
		if i < len(logs) {
			point.Payload = map[string]interface{}{PayloadLogKey: logs[i]}
		}
		results = append(results, point)
	}
	return results, nil
}

// metricFor 未经本进程重建的集合按余弦处理
func (s *MilvusStore) metricFor(name string) entity.MetricType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if metric, ok := s.metrics[name]; ok {
		return metric
	}
	return entity.COSINE
}

func (s *MilvusStore) Count(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.milvusClient.GetCollectionStatistics(ctx, name)
	if err != nil {
		return 0, apperrors.AsRejected(s.translate("count", err))
	}
	count, err := strconv.ParseUint(stats["row_count"], 10, 64)
	if err != nil {
		return 0, apperrors.VectorStore(apperrors.ErrCodeVectorStoreInternal, "vector store count: malformed row_count %q", stats["row_count"])
	}
	return count, nil
}

func (s *MilvusStore) Close() error {
	return s.milvusClient.Close()
}

// translate Milvus SDK 对不存在的集合只返回文本错误
func (s *MilvusStore) translate(op string, err error) *apperrors.AppError {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "collection not found") || strings.Contains(msg, "not exist") {
		return apperrors.VectorStore(apperrors.ErrCodeCollectionNotFound, "vector store %s: collection not found", op).WithCause(err)
	}
	return apperrors.TranslateVectorStore(op, err)
}

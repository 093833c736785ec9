package vectorstore

import (
	"context"
	"time"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/qdrant/go-client/qdrant"
)

const defaultQdrantGRPCPort = 6334

// QdrantStore 通过官方gRPC客户端访问Qdrant
type QdrantStore struct {
	client  *qdrant.Client
	timeout time.Duration
}

// NewQdrantStore 创建Qdrant gRPC客户端，endpoint形如 http://localhost:6334
func NewQdrantStore(opts Options) (*QdrantStore, error) {
	host, port, useTLS, err := parseGRPCEndpoint(opts.Endpoint, defaultQdrantGRPCPort)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: opts.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, apperrors.TranslateVectorStore("connect", err)
	}

	return &QdrantStore{client: client, timeout: opts.timeout()}, nil
}

func (s *QdrantStore) ReplaceCollection(ctx context.Context, name string, size uint64, distance Distance) error {
	qDistance, err := qdrantDistance(distance)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// 删除不存在的集合时服务端返回 Result=false，SDK 会把它报成无状态码的错误
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return apperrors.TranslateVectorStore("delete collection", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			appErr := apperrors.TranslateVectorStore("delete collection", err)
			if appErr.Code != apperrors.ErrCodeCollectionNotFound {
				return appErr
			}
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qDistance,
		}),
	})
	if err != nil {
		return apperrors.AsRejected(apperrors.TranslateVectorStore("create collection", err))
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, name string, points []Point, wait bool) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "unsupported payload for point %d", p.ID).WithCause(err)
		}
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         qPoints,
	})
	if err != nil {
		return apperrors.AsRejected(apperrors.TranslateVectorStore("upsert", err))
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	found, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	})
	if err != nil {
		return nil, apperrors.AsRejected(apperrors.TranslateVectorStore("search", err))
	}

	results := make([]ScoredPoint, 0, len(found))
	for _, point := range found {
		results = append(results, ScoredPoint{
			ID:      point.GetId().GetNum(),
			Score:   point.GetScore(),
			Payload: fromQdrantPayload(point.GetPayload()),
		})
	}
	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exact := true
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          &exact,
	})
	if err != nil {
		return 0, apperrors.AsRejected(apperrors.TranslateVectorStore("count", err))
	}
	return count, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func qdrantDistance(d Distance) (qdrant.Distance, error) {
	switch d {
	case "", DistanceCosine:
		return qdrant.Distance_Cosine, nil
	case DistanceDot:
		return qdrant.Distance_Dot, nil
	case DistanceEuclid:
		return qdrant.Distance_Euclid, nil
	default:
		return qdrant.Distance_UnknownDistance, apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "unsupported distance %q", d)
	}
}

func fromQdrantPayload(in map[string]*qdrant.Value) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		switch kind := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = kind.BoolValue
		default:
			out[key] = value.String()
		}
	}
	return out
}

package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	apperrors "github.com/aihub/loganomaly/internal/errors"
)

type memoryCollection struct {
	size   uint64
	points map[uint64]Point
}

// MemoryStore 进程内暴力检索实现，用于开发和测试
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore 创建内存向量存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// ReplaceCollection only supports cosine distance.
func (s *MemoryStore) ReplaceCollection(ctx context.Context, name string, size uint64, distance Distance) error {
	if distance != "" && distance != DistanceCosine {
		return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "unsupported distance %q", distance)
	}
	if size == 0 {
		return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "vector size must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = &memoryCollection{size: size, points: make(map[uint64]Point)}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, name string, points []Point, wait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "collection %s not found", name)
	}

	// 先整体校验，保证批量写入要么全部成功要么全部失败
	for _, p := range points {
		if uint64(len(p.Vector)) != coll.size {
			return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected,
				"point %d has %d dimensions, expected %d", p.ID, len(p.Vector), coll.size)
		}
	}
	for _, p := range points {
		vector := make([]float32, len(p.Vector))
		copy(vector, p.Vector)
		coll.points[p.ID] = Point{ID: p.ID, Vector: vector, Payload: copyPayload(p.Payload)}
	}
	return nil
}

// Search ranks by cosine similarity, ties broken by ascending ID.
func (s *MemoryStore) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[req.Collection]
	if !ok {
		return nil, apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "collection %s not found", req.Collection)
	}
	if uint64(len(req.Vector)) != coll.size {
		return nil, apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected,
			"query has %d dimensions, expected %d", len(req.Vector), coll.size)
	}

	limit := req.Limit
	if limit == 0 {
		limit = 1
	}

	results := make([]ScoredPoint, 0, len(coll.points))
	for _, p := range coll.points {
		point := ScoredPoint{ID: p.ID, Score: CosineSimilarity(req.Vector, p.Vector)}
		if req.WithPayload {
			point.Payload = copyPayload(p.Payload)
		}
		results = append(results, point)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if uint64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context, name string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return 0, apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "collection %s not found", name)
	}
	return uint64(len(coll.points)), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// CosineSimilarity 计算余弦相似度，任一向量为零向量时返回0
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

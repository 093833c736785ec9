package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/aihub/loganomaly/internal/errors"
)

// QdrantRESTStore 通过HTTP接口访问Qdrant（默认端口6333）
type QdrantRESTStore struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewQdrantRESTStore 创建Qdrant REST客户端
func NewQdrantRESTStore(opts Options) (*QdrantRESTStore, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = "http://" + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid vector store endpoint %q: %w", endpoint, err)
	}

	return &QdrantRESTStore{
		client:   &http.Client{Timeout: opts.timeout()},
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   opts.APIKey,
	}, nil
}

func restDistance(d Distance) (string, error) {
	switch d {
	case "", DistanceCosine:
		return "Cosine", nil
	case DistanceDot:
		return "Dot", nil
	case DistanceEuclid:
		return "Euclid", nil
	default:
		return "", apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "unsupported distance %q", d)
	}
}

func collectionPath(name string, suffix string) string {
	return "/collections/" + url.PathEscape(name) + suffix
}

func (s *QdrantRESTStore) ReplaceCollection(ctx context.Context, name string, size uint64, distance Distance) error {
	qDistance, err := restDistance(distance)
	if err != nil {
		return err
	}

	if err := s.call(ctx, "delete collection", http.MethodDelete, collectionPath(name, ""), nil, nil); err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeCollectionNotFound) {
			return err
		}
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     size,
			"distance": qDistance,
		},
	}
	if err := s.call(ctx, "create collection", http.MethodPut, collectionPath(name, ""), body, nil); err != nil {
		return apperrors.AsRejected(apperrors.GetAppError(err))
	}
	return nil
}

type restPoint struct {
	ID      uint64                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func (s *QdrantRESTStore) Upsert(ctx context.Context, name string, points []Point, wait bool) error {
	if len(points) == 0 {
		return nil
	}

	body := struct {
		Points []restPoint `json:"points"`
	}{Points: make([]restPoint, 0, len(points))}
	for _, p := range points {
		body.Points = append(body.Points, restPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
	}

	path := collectionPath(name, "/points") + "?wait=" + strconv.FormatBool(wait)
	if err := s.call(ctx, "upsert", http.MethodPut, path, body, nil); err != nil {
		return apperrors.AsRejected(apperrors.GetAppError(err))
	}
	return nil
}

func (s *QdrantRESTStore) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 1
	}

	body := map[string]interface{}{
		"vector":       req.Vector,
		"limit":        limit,
		"with_payload": req.WithPayload,
		"with_vector":  false,
	}

	var searchResp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := s.call(ctx, "search", http.MethodPost, collectionPath(req.Collection, "/points/search"), body, &searchResp); err != nil {
		return nil, apperrors.AsRejected(apperrors.GetAppError(err))
	}

	results := make([]ScoredPoint, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		results = append(results, ScoredPoint{
			ID:      parsePointID(item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return results, nil
}

func (s *QdrantRESTStore) Count(ctx context.Context, name string) (uint64, error) {
	var countResp struct {
		Result struct {
			Count uint64 `json:"count"`
		} `json:"result"`
	}
	body := map[string]interface{}{"exact": true}
	if err := s.call(ctx, "count", http.MethodPost, collectionPath(name, "/points/count"), body, &countResp); err != nil {
		return 0, apperrors.AsRejected(apperrors.GetAppError(err))
	}
	return countResp.Result.Count, nil
}

func (s *QdrantRESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func parsePointID(val interface{}) uint64 {
	switch v := val.(type) {
	case float64:
		return uint64(v)
	case json.Number:
		n, _ := strconv.ParseUint(v.String(), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	default:
		return 0
	}
}

// call 发送请求并把非2xx响应转换为向量库错误；out 为 nil 时丢弃响应体
func (s *QdrantRESTStore) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.VectorStore(apperrors.ErrCodeVectorStoreRejected, "vector store %s: encode request", op).WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return apperrors.VectorStore(apperrors.ErrCodeVectorStoreInternal, "vector store %s: build request", op).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.TranslateVectorStore(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.TranslateVectorStore(op, err)
	}

	if resp.StatusCode >= 300 {
		return apperrors.TranslateVectorStoreStatus(op, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperrors.VectorStore(apperrors.ErrCodeVectorStoreInternal, "vector store %s: malformed response", op).WithCause(err)
		}
	}
	return nil
}

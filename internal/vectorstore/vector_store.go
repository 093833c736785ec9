// Package vectorstore wraps the vector databases used to hold the baseline
// of normal log lines.
package vectorstore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Distance 向量相似度度量
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// Provider names accepted by New.
const (
	ProviderQdrant     = "qdrant"
	ProviderQdrantREST = "qdrant_rest"
	ProviderMilvus     = "milvus"
	ProviderMemory     = "memory"
)

// PayloadLogKey 负载中保存原始日志文本的键
const PayloadLogKey = "log"

// Point 待写入的向量点
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint 检索结果，按相似度降序排列
type ScoredPoint struct {
	ID      uint64
	Score   float32
	Payload map[string]interface{}
}

// Log returns the stored log text, or "" when the payload carries none.
func (p ScoredPoint) Log() string {
	if p.Payload == nil {
		return ""
	}
	s, _ := p.Payload[PayloadLogKey].(string)
	return s
}

// SearchRequest 最近邻检索请求
type SearchRequest struct {
	Collection  string
	Vector      []float32
	Limit       uint64
	WithPayload bool
}

// VectorStore 向量库抽象
//
// ReplaceCollection 删除并重建集合，集合不存在时不视为错误。
// Upsert 在 wait 为 true 时必须在数据可检索后才返回。
type VectorStore interface {
	ReplaceCollection(ctx context.Context, name string, size uint64, distance Distance) error
	Upsert(ctx context.Context, name string, points []Point, wait bool) error
	Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error)
	Count(ctx context.Context, name string) (uint64, error)
	Close() error
}

// Options 向量库连接配置
type Options struct {
	Provider string
	Endpoint string
	APIKey   string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout == 0 {
		return 10 * time.Second
	}
	return o.Timeout
}

// New 根据 Provider 创建向量库客户端
func New(ctx context.Context, opts Options) (VectorStore, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderQdrant:
		return NewQdrantStore(opts)
	case ProviderQdrantREST:
		return NewQdrantRESTStore(opts)
	case ProviderMilvus:
		return NewMilvusStore(ctx, opts)
	case ProviderMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", opts.Provider)
	}
}

func copyPayload(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// parseGRPCEndpoint 解析 scheme://host:port，https 表示启用TLS
func parseGRPCEndpoint(endpoint string, defaultPort int) (string, int, bool, error) {
	if endpoint == "" {
		return "localhost", defaultPort, false, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid vector store endpoint %q: %w", endpoint, err)
	}

	host := u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("invalid vector store endpoint %q: missing host", endpoint)
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid vector store port %q: %w", p, err)
		}
	}

	return host, port, u.Scheme == "https", nil
}

// hostPort joins a parsed endpoint back into a dial address.
func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

package baseline

import (
	"context"
	"hash/fnv"
	"sync"
	"testing"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/aihub/loganomaly/internal/logger"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// hashEmbedder derives a deterministic vector from the text.
type hashEmbedder struct {
	dims int

	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.fail[text]
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, e.dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40)/float32(1<<24) - 0.5
	}
	return vec, nil
}

func (e *hashEmbedder) Dimensions() int { return e.dims }

func newTestInitializer(embedder *hashEmbedder, store vectorstore.VectorStore, concurrency int) *Initializer {
	return NewInitializer(embedder, store, Options{
		Collection:  "normal_server_logs_axum",
		VectorSize:  uint64(embedder.dims),
		Concurrency: concurrency,
	})
}

func TestInitializer_SeedsBaselineInOrder(t *testing.T) {
	ctx := context.Background()
	embedder := &hashEmbedder{dims: 8}
	store := vectorstore.NewMemoryStore()

	count, err := newTestInitializer(embedder, store, 3).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(NormalLogs), count)

	stored, err := store.Count(ctx, "normal_server_logs_axum")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(NormalLogs)), stored)

	for idx, line := range NormalLogs {
		vec, _ := embedder.Embed(ctx, line)
		results, err := store.Search(ctx, vectorstore.SearchRequest{
			Collection:  "normal_server_logs_axum",
			Vector:      vec,
			Limit:       1,
			WithPayload: true,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(idx), results[0].ID)
		assert.Equal(t, line, results[0].Log())
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	}
}

func TestInitializer_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	initializer := newTestInitializer(&hashEmbedder{dims: 8}, store, 1)

	_, err := initializer.Run(ctx)
	require.NoError(t, err)
	_, err = initializer.Run(ctx)
	require.NoError(t, err)

	stored, err := store.Count(ctx, "normal_server_logs_axum")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(NormalLogs)), stored)
}

func TestInitializer_PayloadKeepsQuotesVerbatim(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	embedder := &hashEmbedder{dims: 4}
	line := `ERROR: value "x\y" rejected`

	initializer := NewInitializer(embedder, store, Options{Collection: "logs", VectorSize: 4, Logs: []string{line}})
	_, err := initializer.Run(ctx)
	require.NoError(t, err)

	vec, _ := embedder.Embed(ctx, line)
	results, err := store.Search(ctx, vectorstore.SearchRequest{Collection: "logs", Vector: vec, Limit: 1, WithPayload: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, line, results[0].Log())
}

func TestInitializer_EmbeddingFailureAbortsStartup(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	embedder := &hashEmbedder{
		dims: 8,
		fail: map[string]error{
			NormalLogs[2]: apperrors.Embedding(apperrors.ErrCodeEmbeddingUnreachable, "embedding service unreachable"),
		},
	}

	_, err := newTestInitializer(embedder, store, 1).Run(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingUnreachable))

	stored, err := store.Count(ctx, "normal_server_logs_axum")
	require.NoError(t, err)
	assert.Zero(t, stored, "no points may be written when any seed fails")
}

func TestInitializer_ShapeMismatchIsRejected(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	initializer := NewInitializer(&hashEmbedder{dims: 4}, store, Options{Collection: "logs", VectorSize: 8})

	_, err := initializer.Run(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStoreRejected))
}

func TestInitializer_LogsIndexedCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	previous := logger.GetLogger()
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(previous) })

	_, err := newTestInitializer(&hashEmbedder{dims: 8}, vectorstore.NewMemoryStore(), 2).Run(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("Successfully indexed normal log entries").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(len(NormalLogs)), entries[0].ContextMap()["count"])
}

package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aihub/loganomaly/internal/baseline"
	"github.com/aihub/loganomaly/internal/config"
	"github.com/aihub/loganomaly/internal/services"
	"github.com/aihub/loganomaly/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,0,0,0]}`))
	}))
	t.Cleanup(srv.Close)

	return &config.Config{
		CollectionName:   "normal_server_logs_axum",
		VectorSize:       4,
		Distance:         "cosine",
		AnomalyThreshold: 0.7,
		SearchLimit:      1,
		Embedding:        config.EmbeddingConfig{Provider: "ollama", Model: "bge-m3", Endpoint: srv.URL},
		VectorStore:      config.VectorStoreConfig{Provider: "memory"},
		Baseline:         config.BaselineConfig{Concurrency: 2},
	}
}

func TestBuild_ResolvesGraph(t *testing.T) {
	container, err := Build(testConfig(t))
	require.NoError(t, err)
	assert.Same(t, container, Container)

	err = Invoke(func(initializer *baseline.Initializer, svc *services.AnomalyService, store vectorstore.VectorStore) {
		count, err := initializer.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, len(baseline.NormalLogs), count)

		verdict, err := svc.CheckLog(context.Background(), "INFO: anything")
		require.NoError(t, err)
		assert.False(t, verdict.IsAnomalous)
		assert.InDelta(t, 1.0, verdict.Score, 1e-6)

		assert.IsType(t, &vectorstore.MemoryStore{}, store)
	})
	assert.NoError(t, err)
}

func TestBuild_SharesSingletons(t *testing.T) {
	_, err := Build(testConfig(t))
	require.NoError(t, err)

	var first, second vectorstore.VectorStore
	require.NoError(t, Invoke(func(s vectorstore.VectorStore) { first = s }))
	require.NoError(t, Invoke(func(s vectorstore.VectorStore) { second = s }))
	assert.Same(t, first, second)
}

func TestBuild_InvalidEmbedderSurfacesOnInvoke(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "cohere"

	_, err := Build(cfg)
	require.NoError(t, err)

	err = Invoke(func(svc *services.AnomalyService) {})
	assert.Error(t, err)
}

func TestRegisterProviders_NilConfig(t *testing.T) {
	assert.Error(t, RegisterProviders(InitContainer(), nil))
}

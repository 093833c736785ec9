// Package embedding adapts external embedding services into fixed-length
// float32 vectors.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aihub/loganomaly/internal/errors"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Options configures an Embedder.
type Options struct {
	Provider   string
	Model      string
	Endpoint   string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// New builds the embedder selected by opts.Provider.
func New(opts Options) (Embedder, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", opts.Dimensions)
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("embedding model not configured")
	}

	switch strings.ToLower(opts.Provider) {
	case "", ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

// checkInput rejects blank text before any I/O happens.
func checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("text is empty")
	}
	return nil
}

// checkShape enforces the configured dimension on every returned vector.
func checkShape(vector []float32, want int) error {
	if len(vector) != want {
		return apperrors.Embedding(apperrors.ErrCodeEmbeddingShape,
			"embedding has %d dimensions, expected %d", len(vector), want)
	}
	return nil
}

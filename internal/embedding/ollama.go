package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/aihub/loganomaly/internal/errors"
)

// OllamaEmbedder calls the native Ollama embeddings endpoint.
type OllamaEmbedder struct {
	client     *http.Client
	endpoint   string
	model      string
	dimensions int
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder 创建Ollama嵌入向量生成器
func NewOllamaEmbedder(opts Options) *OllamaEmbedder {
	return &OllamaEmbedder{
		client:     opts.httpClient(),
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkInput(text); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol, "encode request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol, "build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperrors.TranslateEmbedding(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.TranslateEmbedding(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol,
			"embedding service returned %s", resp.Status).WithCause(fmt.Errorf("%s", bytes.TrimSpace(body)))
	}

	var out ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol, "malformed embedding response").WithCause(err)
	}
	if err := checkShape(out.Embedding, e.dimensions); err != nil {
		return nil, err
	}

	return out.Embedding, nil
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

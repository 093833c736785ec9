package embedding

import (
	"context"
	stderrors "errors"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder 使用OpenAI兼容的Embedding API（包括Ollama的 /v1 接口）
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder 创建OpenAI兼容的嵌入向量生成器
func NewOpenAIEmbedder(opts Options) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.Endpoint != "" {
		cfg.BaseURL = opts.Endpoint
	}
	cfg.HTTPClient = opts.httpClient()

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkInput(text); err != nil {
		return nil, err
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) {
			return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol,
				"embedding service returned HTTP %d", apiErr.HTTPStatusCode).WithCause(err)
		}
		var reqErr *openai.RequestError
		if stderrors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol,
				"embedding service returned HTTP %d", reqErr.HTTPStatusCode).WithCause(err)
		}
		return nil, apperrors.TranslateEmbedding(err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.Embedding(apperrors.ErrCodeEmbeddingProtocol, "embedding response empty")
	}

	embedding := resp.Data[0].Embedding
	if err := checkShape(embedding, e.dimensions); err != nil {
		return nil, err
	}

	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

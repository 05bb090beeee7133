package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/rag/ragerr"
)

// OllamaProvider implements EmbeddingProvider for local Ollama models
// (e.g., nomic-embed-text). Nomic models want a task prefix baked into the
// prompt, so documents get "search_document: " and queries "search_query: ".
type OllamaProvider struct {
	BaseURL string
	Model   string
	Dim     int
	Client  *http.Client
	logger  logger.ILogger
}

func NewOllamaProvider(baseURL string, model string, timeout time.Duration, log logger.ILogger) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Dim:     768, // nomic-embed-text
		Client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"` // Ollama returns float64
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.generate(ctx, "search_document: "+text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (p *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.generate(ctx, "search_query: "+text)
}

func (p *OllamaProvider) Dimension() int {
	return p.Dim
}

func (p *OllamaProvider) ModelID() string {
	return "ollama/" + p.Model
}

func (p *OllamaProvider) generate(ctx context.Context, prompt string) ([]float32, error) {
	prompt, truncated := Truncate(prompt)
	if truncated && p.logger != nil {
		p.logger.Warn("embedding", "input truncated to model limit", map[string]interface{}{
			"model":     p.ModelID(),
			"max_runes": MaxInputRunes,
		})
	}

	reqBody := ollamaEmbeddingRequest{
		Model:  p.Model,
		Prompt: prompt,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	endpoint := fmt.Sprintf("%s/api/embeddings", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ragerr.EmbeddingError{
			Model: p.ModelID(),
			Err:   fmt.Errorf("ollama embedding error: %s", string(bodyBytes)),
		}
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	values := make([]float32, len(ollamaResp.Embedding))
	for i, v := range ollamaResp.Embedding {
		values[i] = float32(v)
	}

	return normalizeVector(values), nil
}

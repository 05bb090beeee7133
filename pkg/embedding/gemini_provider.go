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

type GeminiProvider struct {
	ApiKey string
	Client *http.Client
	logger logger.ILogger
}

func NewGeminiProvider(apiKey string, timeout time.Duration, log logger.ILogger) *GeminiProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiProvider{
		ApiKey: apiKey,
		Client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

const geminiModelName = "text-embedding-004"

type geminiRequestContentPart struct {
	Text string `json:"text"`
}

type geminiRequestContent struct {
	Parts []geminiRequestContentPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string               `json:"model"`
	Content  geminiRequestContent `json:"content"`
	TaskType string               `json:"taskType"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.generate(ctx, text, TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.generate(ctx, text, TaskRetrievalQuery)
}

func (p *GeminiProvider) Dimension() int {
	return 768 // text-embedding-004
}

func (p *GeminiProvider) ModelID() string {
	return "gemini/" + geminiModelName
}

func (p *GeminiProvider) generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	text, truncated := Truncate(text)
	if truncated && p.logger != nil {
		p.logger.Warn("embedding", "input truncated to model limit", map[string]interface{}{
			"model":     p.ModelID(),
			"max_runes": MaxInputRunes,
		})
	}

	geminiReq := geminiEmbedRequest{
		Model: geminiModelName,
		Content: geminiRequestContent{
			Parts: []geminiRequestContentPart{
				{Text: text},
			},
		},
		TaskType: taskType,
	}
	geminiReqJson, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		geminiModelName,
	)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(geminiReqJson))
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &ragerr.EmbeddingError{
			Model: p.ModelID(),
			Err:   fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte)),
		}
	}

	var resEmbedding geminiEmbedResponse
	if err := json.Unmarshal(resByte, &resEmbedding); err != nil {
		return nil, &ragerr.EmbeddingError{Model: p.ModelID(), Err: err}
	}

	return normalizeVector(resEmbedding.Embedding.Values), nil
}

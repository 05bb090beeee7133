package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/ragerr"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaProvider) buildRequest(history []llm.Message, stream bool, opts ...llm.Option) ([]byte, error) {
	options := &llm.Options{
		Temperature: 0.7, // Default
	}
	for _, opt := range opts {
		opt(options)
	}

	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		ollamaMessages[i] = ollamaMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}

	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	return json.Marshal(reqPayload)
}

func (o *OllamaProvider) post(ctx context.Context, payload []byte) (*http.Response, error) {
	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, ragerr.ClassifyBackend(err)
	}
	return resp, nil
}

// --- Interface Implementation ---

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	payloadBytes, err := o.buildRequest(history, false, opts...)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := o.post(ctx, payloadBytes)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ragerr.ClassifyBackend(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ragerr.CompletionBackendError{
			Kind: ragerr.BackendUnreachable,
			Err:  fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes)),
		}
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", &ragerr.CompletionBackendError{Kind: ragerr.BackendMalformed, Err: err}
	}

	return ollamaResp.Message.Content, nil
}

// ChatStream reads the NDJSON stream ollama emits with stream=true, one
// JSON object per line, each carrying a content fragment.
func (o *OllamaProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, opts ...llm.Option) (string, error) {
	payloadBytes, err := o.buildRequest(history, true, opts...)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := o.post(ctx, payloadBytes)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &ragerr.CompletionBackendError{
			Kind: ragerr.BackendUnreachable,
			Err:  fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes)),
		}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return full.String(), &ragerr.CompletionBackendError{Kind: ragerr.BackendMalformed, Err: err}
		}

		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			if err := onDelta(chunk.Message.Content); err != nil {
				// Consumer aborted (e.g. client disconnected). Partial text
				// is still returned so the caller can persist it.
				return full.String(), err
			}
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), ragerr.ClassifyBackend(err)
	}

	return full.String(), nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	// Reuse Chat for simplicity as most new LLMs are chat-optimized
	return o.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

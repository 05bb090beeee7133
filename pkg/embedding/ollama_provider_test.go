package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingLogger captures warn entries so tests can assert on them.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Info(module, message string, details map[string]interface{})  {}
func (l *recordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, module+": "+message)
}
func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Sync() error                                                  { return nil }

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func newEmbeddingServer(t *testing.T, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		*gotPrompt = req.Prompt
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
}

func TestOllamaProviderTruncatesAndLogsOversizedInput(t *testing.T) {
	var gotPrompt string
	srv := newEmbeddingServer(t, &gotPrompt)
	defer srv.Close()

	log := &recordingLogger{}
	provider := NewOllamaProvider(srv.URL, "nomic-embed-text", 10*time.Second, log)

	oversized := strings.Repeat("a", MaxInputRunes+500)
	if _, err := provider.Embed(context.Background(), []string{oversized}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if got := len([]rune(gotPrompt)); got != MaxInputRunes {
		t.Errorf("sent prompt length = %d runes, want %d", got, MaxInputRunes)
	}
	if log.warnCount() != 1 {
		t.Errorf("truncation logged %d times, want 1", log.warnCount())
	}
}

func TestOllamaProviderShortInputIsNotLogged(t *testing.T) {
	var gotPrompt string
	srv := newEmbeddingServer(t, &gotPrompt)
	defer srv.Close()

	log := &recordingLogger{}
	provider := NewOllamaProvider(srv.URL, "nomic-embed-text", 10*time.Second, log)

	if _, err := provider.EmbedQuery(context.Background(), "short query"); err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if gotPrompt != "search_query: short query" {
		t.Errorf("prompt = %q, want query prefix intact", gotPrompt)
	}
	if log.warnCount() != 0 {
		t.Errorf("unexpected warn entries: %d", log.warnCount())
	}
}

func TestOllamaProviderNilLoggerTolerated(t *testing.T) {
	var gotPrompt string
	srv := newEmbeddingServer(t, &gotPrompt)
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "nomic-embed-text", 10*time.Second, nil)
	oversized := strings.Repeat("b", MaxInputRunes+1)
	if _, err := provider.EmbedQuery(context.Background(), oversized); err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
}

func TestOllamaProviderTimeoutFromConfig(t *testing.T) {
	provider := NewOllamaProvider("http://localhost:11434", "nomic-embed-text", 5*time.Second, nil)
	if provider.Client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", provider.Client.Timeout)
	}

	// Zero and negative fall back to the default
	provider = NewOllamaProvider("http://localhost:11434", "nomic-embed-text", 0, nil)
	if provider.Client.Timeout != 60*time.Second {
		t.Errorf("default timeout = %v, want 60s", provider.Client.Timeout)
	}
}

func TestGeminiProviderTimeoutFromConfig(t *testing.T) {
	provider := NewGeminiProvider("key", 15*time.Second, nil)
	if provider.Client.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", provider.Client.Timeout)
	}

	provider = NewGeminiProvider("key", -1, nil)
	if provider.Client.Timeout != 60*time.Second {
		t.Errorf("default timeout = %v, want 60s", provider.Client.Timeout)
	}
}

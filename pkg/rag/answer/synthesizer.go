package answer

import (
	"context"
	"errors"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/ragerr"
)

const (
	fallbackTimeout     = "The answer took too long to generate. Please try asking again."
	fallbackUnreachable = "The language model is currently unreachable. Please try again in a moment."
	fallbackMalformed   = "The language model returned an unexpected response. Please try asking again."
)

// Result is a synthesized answer with its resolved citations. Fallback is
// set when the completion backend failed and Text carries a canned apology
// instead of a model answer.
type Result struct {
	Text      string
	Citations []Citation
	Fallback  bool
}

// Synthesizer calls the completion backend and post-processes the answer:
// citation markers are resolved against the composed sources, unresolvable
// markers are logged and dropped, and backend failures degrade into a
// user-facing fallback message rather than an error.
type Synthesizer struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewSynthesizer(provider llm.LLMProvider, logger logger.ILogger) *Synthesizer {
	return &Synthesizer{provider: provider, logger: logger}
}

// Answer generates the full response in one call.
func (s *Synthesizer) Answer(ctx context.Context, messages []llm.Message, sources prompt.CitationMap) (*Result, error) {
	text, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return s.handleFailure(err, "")
	}
	return s.finish(text, sources), nil
}

// AnswerStream generates the response incrementally, forwarding each delta to
// onDelta. Citations are resolved once the stream completes. If the context
// is cancelled mid-stream, the partial text is returned alongside the error
// so the caller can persist what was already generated.
func (s *Synthesizer) AnswerStream(ctx context.Context, messages []llm.Message, sources prompt.CitationMap, onDelta llm.DeltaFunc) (*Result, error) {
	text, err := s.provider.ChatStream(ctx, messages, onDelta)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &Result{Text: text}, err
		}
		return s.handleFailure(err, text)
	}
	return s.finish(text, sources), nil
}

func (s *Synthesizer) finish(text string, sources prompt.CitationMap) *Result {
	citations, dropped := ExtractCitations(text, sources)
	if len(dropped) > 0 {
		s.logger.Warn("answer", "answer cited sources that were never provided", map[string]interface{}{
			"dropped_markers": dropped,
			"sources":         len(sources),
		})
	}
	return &Result{Text: text, Citations: citations}
}

func (s *Synthesizer) handleFailure(err error, partial string) (*Result, error) {
	var backendErr *ragerr.CompletionBackendError
	if !errors.As(err, &backendErr) {
		return nil, err
	}

	s.logger.Error("answer", "completion backend failed, serving fallback answer", map[string]interface{}{
		"kind":  string(backendErr.Kind),
		"error": err.Error(),
	})

	// A partial answer beats an apology
	if partial != "" {
		return &Result{Text: partial, Fallback: true}, nil
	}

	switch backendErr.Kind {
	case ragerr.BackendTimeout:
		return &Result{Text: fallbackTimeout, Fallback: true}, nil
	case ragerr.BackendUnreachable:
		return &Result{Text: fallbackUnreachable, Fallback: true}, nil
	default:
		return &Result{Text: fallbackMalformed, Fallback: true}, nil
	}
}

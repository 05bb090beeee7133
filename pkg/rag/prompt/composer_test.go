package prompt

import (
	"strings"
	"testing"

	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/retriever"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(title, text string, score float64) retriever.RetrievedChunk {
	return retriever.RetrievedChunk{
		ChunkId:       uuid.New(),
		DocumentId:    uuid.New(),
		DocumentTitle: title,
		Text:          text,
		Score:         score,
	}
}

func repeatWords(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestComposeNumbersSourcesInScoreOrder(t *testing.T) {
	c := NewComposer(2000, 6)
	chunks := []retriever.RetrievedChunk{
		chunk("Handbook", "Refunds are processed within 14 days.", 0.92),
		chunk("FAQ", "Contact support for refund status.", 0.81),
	}

	messages, citations := c.Compose("How long do refunds take?", chunks, nil)

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)

	user := messages[1].Content
	assert.Contains(t, user, "[Source 1] | From: Handbook")
	assert.Contains(t, user, "[Source 2] | From: FAQ")
	assert.Contains(t, user, "Question: How long do refunds take?")
	assert.Less(t, strings.Index(user, "[Source 1]"), strings.Index(user, "[Source 2]"))

	require.Len(t, citations, 2)
	assert.Equal(t, chunks[0].ChunkId, citations[1].ChunkId)
	assert.Equal(t, chunks[1].ChunkId, citations[2].ChunkId)
}

func TestComposeIncludesPageLabel(t *testing.T) {
	c := NewComposer(2000, 6)
	ch := chunk("Annual Report", "Revenue grew by 12 percent.", 0.9)
	ch.PageLabel = "17"

	messages, _ := c.Compose("What was revenue growth?", []retriever.RetrievedChunk{ch}, nil)

	assert.Contains(t, messages[1].Content, "[Source 1] | From: Annual Report | Page 17")
}

func TestComposeHistoryWindow(t *testing.T) {
	c := NewComposer(2000, 2)

	var history []llm.Message
	for i := 0; i < 10; i++ {
		history = append(history,
			llm.Message{Role: "user", Content: "question"},
			llm.Message{Role: "assistant", Content: "answer"},
		)
	}

	messages, _ := c.Compose("latest question", []retriever.RetrievedChunk{chunk("Doc", "text", 0.9)}, history)

	// system + 2 turns (4 messages) + user prompt
	assert.Len(t, messages, 6)
}

func TestComposeTruncatesHistoryBeforeChunks(t *testing.T) {
	// Budget fits the question, one history message and both chunks, but not
	// the second history message.
	c := NewComposer(30, 6)

	history := []llm.Message{
		{Role: "user", Content: repeatWords("old", 10)},
		{Role: "assistant", Content: repeatWords("reply", 5)},
	}
	chunks := []retriever.RetrievedChunk{
		chunk("A", repeatWords("alpha", 10), 0.9),
		chunk("B", repeatWords("beta", 10), 0.8),
	}

	messages, citations := c.Compose("short question here", chunks, history)

	var roles []string
	for _, m := range messages {
		roles = append(roles, m.Role)
	}
	// Oldest history message shed, both chunks kept
	assert.Equal(t, []string{"system", "assistant", "user"}, roles)
	assert.Len(t, citations, 2)
}

func TestComposeDropsLowestScoredChunksAfterHistory(t *testing.T) {
	c := NewComposer(15, 6)

	history := []llm.Message{
		{Role: "user", Content: repeatWords("old", 20)},
	}
	chunks := []retriever.RetrievedChunk{
		chunk("Best", repeatWords("alpha", 10), 0.9),
		chunk("Worst", repeatWords("beta", 10), 0.5),
	}

	messages, citations := c.Compose("the question", chunks, history)

	require.Len(t, citations, 1)
	assert.Equal(t, "Best", citations[1].DocumentTitle)

	user := messages[len(messages)-1].Content
	assert.Contains(t, user, "Question: the question", "the question is never truncated")
	assert.NotContains(t, user, "beta")
}

func TestComposeKeepsTopChunkEvenWhenOversized(t *testing.T) {
	c := NewComposer(5, 6)
	chunks := []retriever.RetrievedChunk{chunk("Huge", repeatWords("word", 100), 0.9)}

	_, citations := c.Compose("question", chunks, nil)

	require.Len(t, citations, 1)
}

func TestComposeNoChunks(t *testing.T) {
	c := NewComposer(2000, 6)

	messages, citations := c.Compose("anything relevant?", nil, nil)

	assert.Empty(t, citations)
	assert.Contains(t, messages[1].Content, "cannot find this information")
	assert.Contains(t, messages[1].Content, "Question: anything relevant?")
}

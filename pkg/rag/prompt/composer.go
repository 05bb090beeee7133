package prompt

import (
	"fmt"
	"strings"

	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/retriever"
)

const systemPrompt = `You are a helpful AI assistant that answers questions based ONLY on the provided source documents.

CRITICAL RULES:
1. Answer based ONLY on the context provided below. NEVER use external knowledge or assumptions.
2. If the information is not explicitly stated in the sources, say "I cannot find this information in the provided documents."
3. NEVER mention document types (like PowerPoint, PPT, slides) unless explicitly shown in the source text.
4. When citing information, use the exact source reference format [Source X].
5. Keep answers factual, accurate, and based strictly on what the sources say.
6. If you're uncertain about something, acknowledge the uncertainty rather than guessing.
7. Do not embellish, paraphrase excessively, or add information not found in the sources.`

// CitationMap maps a 1-based source number, as rendered into the context
// block, to the chunk it stands for.
type CitationMap map[int]retriever.RetrievedChunk

// Composer turns retrieved chunks, conversation history and the question
// into the message list sent to the completion backend.
type Composer struct {
	maxContextWords int
	maxHistoryTurns int
}

func NewComposer(maxContextWords, maxHistoryTurns int) *Composer {
	if maxContextWords <= 0 {
		maxContextWords = 2000
	}
	if maxHistoryTurns < 0 {
		maxHistoryTurns = 0
	}
	return &Composer{
		maxContextWords: maxContextWords,
		maxHistoryTurns: maxHistoryTurns,
	}
}

// Compose builds the prompt. When the word budget is exceeded it sheds
// oldest history messages first, then the lowest-scored chunks; the question
// itself is never truncated. Chunks arrive sorted by score descending and
// keep that order, so source numbers follow relevance.
func (c *Composer) Compose(question string, chunks []retriever.RetrievedChunk, history []llm.Message) ([]llm.Message, CitationMap) {
	if c.maxHistoryTurns*2 < len(history) {
		history = history[len(history)-c.maxHistoryTurns*2:]
	}

	budget := c.maxContextWords
	spent := countWords(question)

	for _, m := range history {
		spent += countWords(m.Content)
	}
	for _, ch := range chunks {
		spent += countWords(ch.Text)
	}

	// Oldest history first
	for spent > budget && len(history) > 0 {
		spent -= countWords(history[0].Content)
		history = history[1:]
	}

	// Then lowest-scored chunks; the top hit survives even when oversized so
	// the model always sees at least one source
	for spent > budget && len(chunks) > 1 {
		last := len(chunks) - 1
		spent -= countWords(chunks[last].Text)
		chunks = chunks[:last]
	}

	citations := make(CitationMap, len(chunks))
	blocks := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		n := i + 1
		citations[n] = ch
		blocks = append(blocks, formatExcerpt(n, ch))
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: buildUserPrompt(question, blocks)})

	return messages, citations
}

func formatExcerpt(n int, ch retriever.RetrievedChunk) string {
	header := []string{fmt.Sprintf("[Source %d]", n)}
	if ch.DocumentTitle != "" {
		header = append(header, "From: "+ch.DocumentTitle)
	}
	if ch.PageLabel != "" {
		header = append(header, "Page "+ch.PageLabel)
	}
	return strings.Join(header, " | ") + "\n" + ch.Text
}

func buildUserPrompt(question string, blocks []string) string {
	if len(blocks) == 0 {
		return fmt.Sprintf("Question: %s\n\nNo source excerpts matched this question. Say that you cannot find this information in the provided documents.", question)
	}
	return fmt.Sprintf(
		"Context from documents:\n\n%s\n\n---\n\nQuestion: %s\n\nPlease provide a comprehensive answer based on the sources above.",
		strings.Join(blocks, "\n\n---\n\n"),
		question,
	)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

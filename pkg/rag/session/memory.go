package session

import (
	"regexp"
	"strings"
	"time"

	"docchat-be/pkg/rag/retriever"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	sessionTTL      = 30 * time.Minute
	cleanupInterval = 10 * time.Minute

	maxStoredChunks = 10
	maxKeywords     = 30
)

// snapshot is what we remember about the last answered question in a
// conversation.
type snapshot struct {
	LastQuery  string
	LastChunks []retriever.RetrievedChunk
	Keywords   []string
}

// Memory keeps short-lived per-conversation context so follow-up questions
// ("tell me more", "what about X") can reuse the chunks that grounded the
// previous answer. Entries expire after 30 minutes of inactivity.
type Memory struct {
	cache *gocache.Cache
}

func NewMemory() *Memory {
	return &Memory{
		cache: gocache.New(sessionTTL, cleanupInterval),
	}
}

// Update records the query and the chunks used to answer it.
func (m *Memory) Update(conversationId uuid.UUID, query string, chunks []retriever.RetrievedChunk) {
	prev, _ := m.get(conversationId)

	if len(chunks) > maxStoredChunks {
		chunks = chunks[:maxStoredChunks]
	}

	keywords := mergeKeywords(prev.Keywords, extractKeywords(query))

	m.cache.Set(conversationId.String(), snapshot{
		LastQuery:  query,
		LastChunks: chunks,
		Keywords:   keywords,
	}, gocache.DefaultExpiration)
}

// PreviousChunks returns the chunks from the last answered question, or nil
// when the session is cold.
func (m *Memory) PreviousChunks(conversationId uuid.UUID) []retriever.RetrievedChunk {
	snap, ok := m.get(conversationId)
	if !ok {
		return nil
	}
	return snap.LastChunks
}

// IsFollowUp reports whether the query likely continues the previous topic
// rather than opening a new one. A cold session is never a follow-up.
func (m *Memory) IsFollowUp(conversationId uuid.UUID, query string) bool {
	snap, ok := m.get(conversationId)
	if !ok || snap.LastQuery == "" {
		return false
	}

	lower := strings.ToLower(query)

	for _, phrase := range followUpPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, re := range pronounPatterns {
		if re.MatchString(lower) {
			return true
		}
	}

	// Shared vocabulary with the running topic also counts
	if len(snap.Keywords) > 0 {
		topic := make(map[string]struct{}, len(snap.Keywords))
		for _, k := range snap.Keywords {
			topic[strings.ToLower(k)] = struct{}{}
		}
		overlap := 0
		for _, w := range strings.Fields(lower) {
			if _, ok := topic[w]; ok {
				overlap++
			}
		}
		if overlap >= 2 {
			return true
		}
	}
	return false
}

// MergeFollowUp combines freshly retrieved chunks with the previous turn's
// chunks, fresh ones first. Up to three previous chunks not already retrieved
// again are appended so the prompt composer can shed them first if the word
// budget runs out.
func MergeFollowUp(fresh, previous []retriever.RetrievedChunk) []retriever.RetrievedChunk {
	const maxCarryOver = 3

	seen := make(map[uuid.UUID]struct{}, len(fresh))
	for _, c := range fresh {
		seen[c.ChunkId] = struct{}{}
	}

	merged := fresh
	carried := 0
	for _, c := range previous {
		if carried == maxCarryOver {
			break
		}
		if _, ok := seen[c.ChunkId]; ok {
			continue
		}
		merged = append(merged, c)
		carried++
	}
	return merged
}

func (m *Memory) get(conversationId uuid.UUID) (snapshot, bool) {
	v, ok := m.cache.Get(conversationId.String())
	if !ok {
		return snapshot{}, false
	}
	snap, ok := v.(snapshot)
	return snap, ok
}

var followUpPhrases = []string{
	"explain more", "tell me more", "elaborate",
	"what about", "how about", "and what",
	"can you clarify", "what do you mean",
	"in other words", "simpler", "more detail",
	"why is that", "how does that", "what else",
	"related to that", "regarding that", "on that note",
	"also", "additionally", "what's that",
}

var pronounPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(it|this|that|these|those|they)\s`),
	regexp.MustCompile(`^what (is|are) (it|they|these|those)\b`),
	regexp.MustCompile(`^(explain|describe|summarize) (it|this|that)\b`),
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "about": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "do": {}, "does": {},
	"did": {}, "have": {}, "has": {}, "had": {}, "what": {}, "which": {},
	"who": {}, "when": {}, "where": {}, "why": {}, "how": {}, "can": {},
	"could": {}, "would": {}, "should": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {}, "as": {}, "if": {},
	"me": {}, "my": {}, "you": {}, "your": {}, "we": {}, "our": {},
}

var wordRe = regexp.MustCompile(`[a-zA-Z]{2,}`)

func extractKeywords(query string) []string {
	var keywords []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if _, skip := stopwords[w]; skip {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

func mergeKeywords(old, fresh []string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, k := range append(old, fresh...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, k)
	}
	if len(merged) > maxKeywords {
		merged = merged[len(merged)-maxKeywords:]
	}
	return merged
}

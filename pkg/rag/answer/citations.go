package answer

import (
	"regexp"
	"strconv"
	"strings"

	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/retriever"
)

// Citation is one resolved source reference from the answer text, in order
// of first appearance.
type Citation struct {
	SourceNumber int // the number the model wrote, e.g. 2 for [Source 2]
	Chunk        retriever.RetrievedChunk
}

// Accepts [2], [1, 3] and [Source 2]. The "Source" keyword is what the
// system prompt asks for, the bare forms are what models actually emit.
var markerRe = regexp.MustCompile(`\[(?:Source\s+)?(\d+(?:\s*,\s*\d+)*)\]`)

// ExtractCitations resolves every marker in the answer against the citation
// map. Each source is reported once, at its first appearance. Markers that
// point at no known source are collected in dropped and otherwise ignored.
func ExtractCitations(text string, sources prompt.CitationMap) (citations []Citation, dropped []int) {
	seen := make(map[int]bool)

	for _, match := range markerRe.FindAllStringSubmatch(text, -1) {
		for _, raw := range strings.Split(match[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				continue
			}
			if seen[n] {
				continue
			}
			seen[n] = true

			chunk, ok := sources[n]
			if !ok {
				dropped = append(dropped, n)
				continue
			}
			citations = append(citations, Citation{SourceNumber: n, Chunk: chunk})
		}
	}
	return citations, dropped
}

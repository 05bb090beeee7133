package chunker

import (
	"regexp"
	"strings"
)

// Chunk is one excerpt of a source text. Offsets are byte positions into the
// full source text, so text[StartOffset:EndOffset] recovers the chunk even
// when page markers split the document.
type Chunk struct {
	SeqIndex    int
	Text        string
	PageLabel   string
	StartOffset int
	EndOffset   int
	WordCount   int
}

var (
	// Sentence boundary: shortest run ending in terminal punctuation.
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

	// Page markers injected by text extractors, e.g. "--- Page 12 ---".
	pageMarkerRe = regexp.MustCompile(`(?m)^---\s*Page\s*(\d+)\s*---\s*$`)
)

type sentence struct {
	start int
	end   int
	words int
}

// Split cuts text into sentence-aligned chunks of roughly targetWords words,
// with overlapWords words carried over between consecutive chunks. A single
// sentence longer than targetWords becomes its own chunk, never split
// mid-sentence. Empty or whitespace-only input yields zero chunks.
//
// Page markers ("--- Page N ---") delimit segments that are chunked
// independently; overlap never crosses a page boundary.
func Split(text string, targetWords, overlapWords int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if targetWords <= 0 {
		targetWords = 300
	}
	if overlapWords < 0 || overlapWords >= targetWords {
		overlapWords = 0
	}

	var chunks []Chunk
	seq := 0
	for _, seg := range splitPages(text) {
		for _, c := range splitSegment(seg.text, targetWords, overlapWords) {
			c.SeqIndex = seq
			c.PageLabel = seg.pageLabel
			c.StartOffset += seg.base
			c.EndOffset += seg.base
			seq++
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// pageSegment is one marker-delimited slice of the source text. base is the
// byte offset of the segment within the full text, rebasing chunk offsets.
type pageSegment struct {
	text      string
	pageLabel string
	base      int
}

func splitPages(text string) []pageSegment {
	markers := pageMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return []pageSegment{{text: text}}
	}

	var segments []pageSegment
	// Text before the first marker has no page label
	if lead := text[:markers[0][0]]; strings.TrimSpace(lead) != "" {
		segments = append(segments, pageSegment{text: lead})
	}
	for i, m := range markers {
		label := text[m[2]:m[3]]
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		body := text[m[1]:end]
		if strings.TrimSpace(body) == "" {
			continue
		}
		segments = append(segments, pageSegment{text: body, pageLabel: label, base: m[1]})
	}
	return segments
}

func splitSegment(text string, targetWords, overlapWords int) []Chunk {
	sentences := scanSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	start := sentences[0].start // byte offset where the current chunk begins
	words := 0

	flush := func(end int) {
		chunkText := text[start:end]
		if strings.TrimSpace(chunkText) == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text:        chunkText,
			StartOffset: start,
			EndOffset:   end,
			WordCount:   countWords(chunkText),
		})
	}

	for i, s := range sentences {
		if words > 0 && words+s.words > targetWords {
			prevEnd := sentences[i-1].end
			flush(prevEnd)

			// Next chunk starts with the last overlapWords words of the
			// finished chunk, taken straight from the source slice so
			// offsets stay honest.
			start = backUpWords(text, start, prevEnd, overlapWords)
			words = countWords(text[start:prevEnd])
		}
		words += s.words
	}
	flush(sentences[len(sentences)-1].end)

	return chunks
}

// scanSentences finds sentence spans; trailing text without terminal
// punctuation counts as a final sentence.
func scanSentences(text string) []sentence {
	var sentences []sentence
	matches := sentenceRe.FindAllStringIndex(text, -1)
	last := 0
	for _, m := range matches {
		s := sentence{start: m[0], end: m[1], words: countWords(text[m[0]:m[1]])}
		if s.words > 0 {
			sentences = append(sentences, s)
		}
		last = m[1]
	}
	if tail := text[last:]; strings.TrimSpace(tail) != "" {
		sentences = append(sentences, sentence{
			start: last,
			end:   len(text),
			words: countWords(tail),
		})
	}
	return sentences
}

// backUpWords returns the byte offset within text where the last n words of
// text[lo:hi] begin. With n == 0 it returns hi (no overlap).
func backUpWords(text string, lo, hi, n int) int {
	if n <= 0 {
		return hi
	}
	fields := strings.Fields(text[lo:hi])
	if len(fields) <= n {
		return lo
	}
	// Walk backwards over n word boundaries
	i := hi
	inWord := false
	seen := 0
	for i > lo {
		isSpace := isWhitespace(text[i-1])
		if !isSpace && !inWord {
			inWord = true
		} else if isSpace && inWord {
			inWord = false
			seen++
			if seen == n {
				return i
			}
		}
		i--
	}
	return lo
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

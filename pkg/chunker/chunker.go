package chunker

import (
	"strings"

	"ai-docchat-be/pkg/apperr"
)

// Chunk is one token-bounded segment of a document, the unit of embedding
// and retrieval. Index is 0-based and contiguous within a document.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// charsPerToken is the approximation used to map characters to model tokens.
// The real tokenizer lives behind the embedding provider; 4 chars/token is a
// safe estimate for English-like text.
const charsPerToken = 4

// separators, largest unit first. The splitter prefers keeping a paragraph
// whole, then a line, then a sentence, then a word.
var separators = []string{"\n\n", "\n", ". ", " "}

// EstimateTokens approximates the model-token count of s.
func EstimateTokens(s string) int {
	return tokensForChars(len([]rune(s)))
}

func tokensForChars(n int) int {
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Splitter splits raw document text into overlapping, token-bounded chunks.
type Splitter struct {
	maxTokens     int
	overlapTokens int
}

func NewSplitter(maxTokens, overlapTokens int) *Splitter {
	if maxTokens <= 0 {
		maxTokens = 375 // ~1500 chars, safe for embedding context limits
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = 0
	}
	return &Splitter{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
	}
}

// Split chunks text into ordered, token-bounded segments. Adjacent chunks
// share up to overlapTokens of trailing context. Trailing content is never
// dropped and no chunk is ever empty. A blank body fails with ErrEmptyInput.
func (s *Splitter) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.ErrEmptyInput
	}

	segments := s.segment(text, 0)
	merged := s.merge(segments)

	chunks := make([]Chunk, 0, len(merged))
	for _, content := range merged {
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Content:    content,
			TokenCount: EstimateTokens(content),
		})
	}
	return chunks, nil
}

// segment recursively splits text on the separator hierarchy until every
// piece fits within maxTokens. Separators stay attached to the preceding
// piece, so concatenating all segments reproduces the input exactly.
func (s *Splitter) segment(text string, sepIdx int) []string {
	if EstimateTokens(text) <= s.maxTokens {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	if sepIdx >= len(separators) {
		return s.hardCut(text)
	}

	sep := separators[sepIdx]
	if !strings.Contains(text, sep) {
		return s.segment(text, sepIdx+1)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		out = append(out, s.segment(part, sepIdx+1)...)
	}
	return out
}

// hardCut is the fallback for a single unbreakable run: strict rune slicing
// at the token bound rather than failing.
func (s *Splitter) hardCut(text string) []string {
	maxChars := s.maxTokens * charsPerToken
	runes := []rune(text)

	var out []string
	for i := 0; i < len(runes); i += maxChars {
		end := i + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// merge greedily packs segments into chunks up to maxTokens, carrying the
// trailing overlapTokens of each chunk into the next so context spanning a
// boundary is not lost to retrieval.
func (s *Splitter) merge(segments []string) []string {
	var (
		chunks  []string
		current []string
		chars   int
		fresh   int // segments in current that are not carried-over overlap
	)

	flush := func() {
		if fresh == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, ""))
	}

	for _, seg := range segments {
		segChars := len([]rune(seg))

		if len(current) > 0 && tokensForChars(chars+segChars) > s.maxTokens {
			flush()
			current, chars = s.carryOverlap(current, segChars)
			fresh = 0
		}

		current = append(current, seg)
		chars += segChars
		fresh++
	}
	flush()

	return chunks
}

// carryOverlap returns the trailing segments of the flushed chunk that fit
// within overlapTokens and still leave room for the next segment.
func (s *Splitter) carryOverlap(prev []string, nextChars int) ([]string, int) {
	if s.overlapTokens == 0 {
		return nil, 0
	}

	var carried []string
	chars := 0
	for i := len(prev) - 1; i >= 0; i-- {
		segChars := len([]rune(prev[i]))
		if tokensForChars(chars+segChars) > s.overlapTokens {
			break
		}
		carried = append([]string{prev[i]}, carried...)
		chars += segChars
	}

	// Drop oldest carried segments while the overlap plus the incoming
	// segment would overflow the chunk bound.
	for len(carried) > 0 && tokensForChars(chars+nextChars) > s.maxTokens {
		chars -= len([]rune(carried[0]))
		carried = carried[1:]
	}

	return carried, chars
}

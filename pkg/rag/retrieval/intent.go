package retrieval

import (
	"strings"
	"unicode"
)

// comparisonSignals are the words and phrases whose presence marks a query
// as a cross-document comparison. Matching is on whole words, so "each"
// never fires on "reach".
var comparisonSignals = map[string]bool{
	"compare":     true,
	"compared":    true,
	"comparison":  true,
	"contrast":    true,
	"difference":  true,
	"differences": true,
	"differ":      true,
	"versus":      true,
	"vs":          true,
	"both":        true,
	"each":        true,
	"whereas":     true,
}

// IsComparisonQuery reports whether the query phrasing implies contrasting
// multiple documents, which switches retrieval to document-balanced mode.
func IsComparisonQuery(query string) bool {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if comparisonSignals[w] {
			return true
		}
	}
	return false
}

package analysis

import (
	"regexp"
	"sort"
	"strings"
)

var wordExpr = regexp.MustCompile(`\b\w{4,}\b`)

// KeywordExtractor ranks words by frequency. Simple on purpose: the upstream
// text is already normalized, so plain counting works well enough here.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract returns up to topN keywords, most frequent first. Ties keep the
// order of first appearance in the text so extraction is deterministic.
func (e *KeywordExtractor) Extract(text string, topN int) []string {
	if topN <= 0 {
		return nil
	}

	words := wordExpr.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, w := range words {
		if _, ok := stopwords[w]; ok {
			continue
		}
		if _, ok := counts[w]; !ok {
			firstSeen[w] = order
			order++
		}
		counts[w]++
	}

	unique := make([]string, 0, len(counts))
	for w := range counts {
		unique = append(unique, w)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return firstSeen[unique[i]] < firstSeen[unique[j]]
	})

	if len(unique) > topN {
		unique = unique[:topN]
	}
	return unique
}

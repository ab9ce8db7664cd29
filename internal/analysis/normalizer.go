package analysis

import (
	"regexp"
	"strings"
)

var (
	htmlTagExpr = regexp.MustCompile(`<[^>]+>`)
	urlExpr     = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	mentionExpr = regexp.MustCompile(`[@#]\w+`)
	nonWordExpr = regexp.MustCompile(`[^a-z\s]`)
)

// Indonesian stopwords stripped during normalization. This mirrors the list
// used by keyword extraction plus the high-frequency function words the
// upstream corpus was cleaned with.
var stopwords = map[string]struct{}{
	"yang": {}, "dari": {}, "untuk": {}, "dengan": {}, "pada": {},
	"dalam": {}, "adalah": {}, "akan": {}, "telah": {}, "ini": {},
	"itu": {}, "dan": {}, "atau": {}, "juga": {}, "karena": {},
	"oleh": {}, "sebagai": {}, "tidak": {}, "sudah": {}, "bisa": {},
}

// Suffixes stripped by the light stemmer, longest first.
var stemSuffixes = []string{"kannya", "annya", "inya", "kan", "nya", "an", "i"}

// Normalizer cleans raw text for the target language ahead of classification.
// It is pure and total: empty input yields an empty string.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize lowercases the text, strips HTML tags, URLs, mentions, hashtags
// and non-letter characters, collapses whitespace, removes stopwords, and
// applies light suffix stemming.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = htmlTagExpr.ReplaceAllString(text, "")
	text = urlExpr.ReplaceAllString(text, "")
	text = mentionExpr.ReplaceAllString(text, "")
	// Dropping everything outside a-z also removes emoji and punctuation.
	text = nonWordExpr.ReplaceAllString(text, "")

	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := stopwords[w]; ok {
			continue
		}
		out = append(out, stem(w))
	}
	return strings.Join(out, " ")
}

// stem removes one common suffix when the remaining root stays meaningful.
func stem(word string) string {
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= 4 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

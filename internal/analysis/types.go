package analysis

import "errors"

// ErrNoContent signals that a page could not be reduced to a usable article:
// fetch errors, a missing title, and missing body text all collapse into it.
var ErrNoContent = errors.New("no content found")

// Article is the structured output of content acquisition for one URL.
type Article struct {
	Title           string
	Content         string
	Author          string
	PublicationDate string
	URL             string
}

// CrawledItem is one item gathered by a topic crawl: a social post or a news
// article, with whatever metadata the source exposed.
type CrawledItem struct {
	Source string
	Type   string
	Text   string
	Author string
	URL    string
	Title  string
	Date   string
}

package pipeline

import (
	"context"

	"hoaxalyzer/internal/analysis"
	"hoaxalyzer/internal/models"
)

// JobStore is the slice of the job store the pipeline mutates. Every update
// targets a single job_id; the store applies each atomically.
type JobStore interface {
	MarkProcessing(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// ResultStore persists the final aggregated report, once per job.
type ResultStore interface {
	SaveResult(ctx context.Context, id string, result models.Result) error
}

// ContentAcquirer fetches and parses a single article page.
// analysis.ErrNoContent covers every acquisition failure mode.
type ContentAcquirer interface {
	Acquire(ctx context.Context, url string) (analysis.Article, error)
}

// TopicCrawler gathers up to maxItems items for a keyword. An empty result
// with a nil error means the crawl found nothing.
type TopicCrawler interface {
	Crawl(ctx context.Context, keyword string, maxItems int) ([]analysis.CrawledItem, error)
}

// TextNormalizer cleans raw text. Pure and total.
type TextNormalizer interface {
	Normalize(text string) string
}

// SentimentClassifier scores one text. Implementations degrade to a safe
// default internally instead of returning an error.
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) models.SentimentResult
}

// HoaxClassifier classifies one text, with the same internal degradation
// contract as SentimentClassifier.
type HoaxClassifier interface {
	ClassifyHoax(ctx context.Context, text string) models.HoaxResult
}

// KeywordExtractor returns up to topN keywords, most frequent first.
type KeywordExtractor interface {
	Extract(text string, topN int) []string
}

// Explainer builds the explainability report. Never fails.
type Explainer interface {
	Explain(text string, verdict models.HoaxResult) models.ExplainReport
}

// Archiver stores raw acquired content. Optional; may be nil.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

package models

import (
	"time"
)

// Sentiment labels emitted by the classifier.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Hoax labels emitted by the classifier and the aggregator.
const (
	HoaxLabelHoax      = "hoax"
	HoaxLabelFactual   = "factual"
	HoaxLabelUncertain = "uncertain"
)

// SentimentResult is one classification outcome; Score is the confidence
// of the winning label.
type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HoaxResult is one hoax classification. Probability is the mass assigned
// to the hoax class, regardless of which label won.
type HoaxResult struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// ArticleReport is the per-item slice of a Result. For topic jobs the
// article id is "<job_id>_<index>"; for URL jobs it equals the job id.
type ArticleReport struct {
	ArticleID          string          `json:"article_id"`
	SourceURL          string          `json:"source_url"`
	Title              string          `json:"title"`
	Content            string          `json:"content"`
	Author             string          `json:"author,omitempty"`
	PublicationDate    string          `json:"publication_date,omitempty"`
	Sentiment          SentimentResult `json:"sentiment"`
	HoaxClassification HoaxResult      `json:"hoax_classification"`
}

// SourceBreakdown groups items by declared source, in first-appearance order.
type SourceBreakdown struct {
	Source       string  `json:"source"`
	Count        int     `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// ExplainReport is the explainability payload attached to a Result.
type ExplainReport struct {
	Keywords            []string  `json:"keywords"`
	Weights             []float64 `json:"weights"`
	Explanation         string    `json:"explanation"`
	ContributingFactors []string  `json:"contributing_factors"`
}

// Result is the final aggregated report for a completed job. Written exactly
// once; never updated afterwards.
type Result struct {
	JobID              string            `json:"job_id"`
	QueryType          string            `json:"query_type"`
	QueryInput         string            `json:"query_input"`
	OverallSentiment   string            `json:"overall_sentiment"`
	SentimentBreakdown map[string]int    `json:"sentiment_breakdown"`
	HoaxProbability    float64           `json:"hoax_probability"`
	HoaxLabel          string            `json:"hoax_label"`
	Articles           []ArticleReport   `json:"articles"`
	SourceBreakdown    []SourceBreakdown `json:"source_breakdown"`
	TopKeywords        []string          `json:"top_keywords"`
	Explainability     ExplainReport     `json:"explainability"`
	TotalItems         int               `json:"total_items"`
	AnalyzedAt         time.Time         `json:"analyzed_at"`
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hoaxalyzer/internal/models"
)

// Progress schedule for the URL pipeline.
const (
	urlProgressAcquiring  = 10
	urlProgressNormalized = 30
	urlProgressSentiment  = 50
	urlProgressHoax       = 70
	urlProgressExplained  = 85
	urlProgressPersisting = 95
)

// Progress schedule for the topic pipeline.
const (
	topicProgressCrawling   = 10
	topicProgressCrawled    = 30
	topicProgressNormalized = 50
	topicProgressAnalyzed   = 80
	topicProgressExplained  = 95
)

// Limits bound the per-kind pipeline behavior.
type Limits struct {
	CrawlMaxItems int // topic crawl cap
	ExplainMaxLen int // combined-text truncation ahead of the explainer
	PreviewMaxLen int // article content preview length
	URLKeywords   int // top keywords for single-URL results
	TopicKeywords int // top keywords for topic results
}

// DefaultLimits returns the limits the service ships with.
func DefaultLimits() Limits {
	return Limits{
		CrawlMaxItems: 50,
		ExplainMaxLen: 5000,
		PreviewMaxLen: 500,
		URLKeywords:   10,
		TopicKeywords: 15,
	}
}

// Deps wires all collaborators into the pipeline.
type Deps struct {
	Jobs       JobStore
	Results    ResultStore
	Acquirer   ContentAcquirer
	Crawler    TopicCrawler
	Normalizer TextNormalizer
	Sentiment  SentimentClassifier
	Hoax       HoaxClassifier
	Keywords   KeywordExtractor
	Explainer  Explainer
	Archive    Archiver // optional
	Limits     Limits
	Log        *slog.Logger
}

// Pipeline runs the fixed stage sequence for one job kind. Collaborators are
// shared across concurrent runs and must be safe for concurrent invocation;
// per-run state lives entirely on the stack.
type Pipeline struct {
	deps Deps
}

// New constructs the pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	if deps.Limits == (Limits{}) {
		deps.Limits = DefaultLimits()
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// Run executes the pipeline for the job's kind. Any stage error is logged,
// the job is marked failed with progress 0, and the error is returned to the
// caller for accounting only — it carries no result.
func (p *Pipeline) Run(ctx context.Context, job models.Job) error {
	var err error
	switch job.Kind {
	case models.KindURL:
		err = p.runURL(ctx, job)
	case models.KindTopic:
		err = p.runTopic(ctx, job)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if err != nil {
		p.deps.Log.Error("pipeline failed",
			"job_id", job.ID, "kind", job.Kind, "err", err)
		// The run context may already be expired; the terminal status must
		// still land.
		markCtx := context.WithoutCancel(ctx)
		if markErr := p.deps.Jobs.MarkFailed(markCtx, job.ID); markErr != nil {
			p.deps.Log.Error("mark failed", "job_id", job.ID, "err", markErr)
		}
		return err
	}
	return nil
}

func (p *Pipeline) runURL(ctx context.Context, job models.Job) error {
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressAcquiring); err != nil {
		return err
	}

	article, err := p.deps.Acquirer.Acquire(ctx, job.Input)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", job.Input, err)
	}
	p.archive(ctx, "articles/"+job.ID+".txt", []byte(article.Content), "text/plain; charset=utf-8")

	cleaned := p.deps.Normalizer.Normalize(article.Content)
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressNormalized); err != nil {
		return err
	}

	sentiment := p.deps.Sentiment.ClassifySentiment(ctx, cleaned)
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressSentiment); err != nil {
		return err
	}

	hoax := p.deps.Hoax.ClassifyHoax(ctx, cleaned)
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressHoax); err != nil {
		return err
	}

	explainability := p.deps.Explainer.Explain(cleaned, hoax)
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressExplained); err != nil {
		return err
	}

	breakdown := map[string]int{
		models.SentimentPositive: 0,
		models.SentimentNegative: 0,
		models.SentimentNeutral:  0,
	}
	breakdown[sentiment.Label] = 1

	result := models.Result{
		JobID:              job.ID,
		QueryType:          models.KindURL,
		QueryInput:         job.Input,
		OverallSentiment:   sentiment.Label,
		SentimentBreakdown: breakdown,
		HoaxProbability:    hoax.Probability,
		HoaxLabel:          hoax.Label,
		Articles: []models.ArticleReport{{
			ArticleID:          job.ID,
			SourceURL:          job.Input,
			Title:              article.Title,
			Content:            preview(article.Content, p.deps.Limits.PreviewMaxLen),
			Author:             article.Author,
			PublicationDate:    article.PublicationDate,
			Sentiment:          sentiment,
			HoaxClassification: hoax,
		}},
		SourceBreakdown: []models.SourceBreakdown{{
			Source:       "Direct URL",
			Count:        1,
			AvgSentiment: sentiment.Score,
		}},
		TopKeywords:    p.deps.Keywords.Extract(cleaned, p.deps.Limits.URLKeywords),
		Explainability: explainability,
		TotalItems:     1,
		AnalyzedAt:     time.Now().UTC(),
	}

	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, urlProgressPersisting); err != nil {
		return err
	}
	if err := p.deps.Results.SaveResult(ctx, job.ID, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return p.deps.Jobs.MarkCompleted(ctx, job.ID)
}

func (p *Pipeline) runTopic(ctx context.Context, job models.Job) error {
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, topicProgressCrawling); err != nil {
		return err
	}

	items, err := p.deps.Crawler.Crawl(ctx, job.Input, p.deps.Limits.CrawlMaxItems)
	if err != nil {
		return fmt.Errorf("crawl %q: %w", job.Input, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("crawl %q: %w", job.Input, ErrNoItems)
	}
	if batch, err := json.Marshal(items); err == nil {
		p.archive(ctx, "crawls/"+job.ID+".json", batch, "application/json")
	}
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, topicProgressCrawled); err != nil {
		return err
	}

	// Index alignment between items, cleaned texts, and both classification
	// slices is load-bearing: aggregation and the per-item reports pair them
	// positionally.
	cleaned := make([]string, len(items))
	for i, item := range items {
		cleaned[i] = p.deps.Normalizer.Normalize(item.Text)
	}
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, topicProgressNormalized); err != nil {
		return err
	}

	sentiments := make([]models.SentimentResult, len(items))
	hoaxes := make([]models.HoaxResult, len(items))
	for i, text := range cleaned {
		sentiments[i] = p.deps.Sentiment.ClassifySentiment(ctx, text)
		hoaxes[i] = p.deps.Hoax.ClassifyHoax(ctx, text)
	}
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, topicProgressAnalyzed); err != nil {
		return err
	}

	breakdown := SentimentBreakdown(sentiments)
	avgProbability, err := AverageHoaxProbability(hoaxes)
	if err != nil {
		return err
	}
	overallHoax := OverallHoaxLabel(avgProbability)

	allText := joinTexts(cleaned)
	explainability := p.deps.Explainer.Explain(
		truncate(allText, p.deps.Limits.ExplainMaxLen),
		models.HoaxResult{Label: overallHoax, Probability: avgProbability},
	)
	if err := p.deps.Jobs.MarkProcessing(ctx, job.ID, topicProgressExplained); err != nil {
		return err
	}

	articles := make([]models.ArticleReport, len(items))
	for i, item := range items {
		title := item.Title
		if title == "" {
			title = job.Input
		}
		articles[i] = models.ArticleReport{
			ArticleID:          fmt.Sprintf("%s_%d", job.ID, i),
			SourceURL:          item.URL,
			Title:              title,
			Content:            preview(item.Text, p.deps.Limits.PreviewMaxLen),
			Author:             item.Author,
			PublicationDate:    item.Date,
			Sentiment:          sentiments[i],
			HoaxClassification: hoaxes[i],
		}
	}

	result := models.Result{
		JobID:              job.ID,
		QueryType:          models.KindTopic,
		QueryInput:         job.Input,
		OverallSentiment:   OverallSentiment(breakdown),
		SentimentBreakdown: breakdown,
		HoaxProbability:    avgProbability,
		HoaxLabel:          overallHoax,
		Articles:           articles,
		SourceBreakdown:    SourcesBreakdown(items, sentiments),
		TopKeywords:        p.deps.Keywords.Extract(allText, p.deps.Limits.TopicKeywords),
		Explainability:     explainability,
		TotalItems:         len(items),
		AnalyzedAt:         time.Now().UTC(),
	}

	if err := p.deps.Results.SaveResult(ctx, job.ID, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return p.deps.Jobs.MarkCompleted(ctx, job.ID)
}

// archive uploads raw content when an archive is configured. Best effort.
func (p *Pipeline) archive(ctx context.Context, key string, body []byte, contentType string) {
	if p.deps.Archive == nil {
		return
	}
	if err := p.deps.Archive.Put(ctx, key, body, contentType); err != nil {
		p.deps.Log.Warn("archive upload failed", "key", key, "err", err)
	}
}

// preview caps content at max runes. The ellipsis is always appended, even
// for short content, to keep the persisted payload shape stable.
func preview(text string, max int) string {
	r := []rune(text)
	if max > 0 && len(r) > max {
		text = string(r[:max])
	}
	return text + "..."
}

func truncate(text string, max int) string {
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}
	return string(r[:max])
}

func joinTexts(texts []string) string {
	return strings.Join(texts, " ")
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"hoaxalyzer/internal/analysis"
	"hoaxalyzer/internal/models"
)

type statusUpdate struct {
	status   string
	progress int
}

type fakeJobStore struct {
	mu      sync.Mutex
	updates []statusUpdate
}

func (f *fakeJobStore) record(status string, progress int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{status, progress})
}

func (f *fakeJobStore) MarkProcessing(_ context.Context, _ string, progress int) error {
	f.record(models.StatusProcessing, progress)
	return nil
}

func (f *fakeJobStore) MarkCompleted(_ context.Context, _ string) error {
	f.record(models.StatusCompleted, 100)
	return nil
}

func (f *fakeJobStore) MarkFailed(_ context.Context, _ string) error {
	f.record(models.StatusFailed, 0)
	return nil
}

func (f *fakeJobStore) progressValues() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.updates))
	for i, u := range f.updates {
		out[i] = u.progress
	}
	return out
}

func (f *fakeJobStore) last() statusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

type fakeResultStore struct {
	saved []models.Result
}

func (f *fakeResultStore) SaveResult(_ context.Context, _ string, result models.Result) error {
	f.saved = append(f.saved, result)
	return nil
}

type fakeAcquirer struct {
	article analysis.Article
	err     error
}

func (f *fakeAcquirer) Acquire(context.Context, string) (analysis.Article, error) {
	return f.article, f.err
}

type fakeCrawler struct {
	items []analysis.CrawledItem
	err   error
}

func (f *fakeCrawler) Crawl(context.Context, string, int) ([]analysis.CrawledItem, error) {
	return f.items, f.err
}

// passNormalizer tags its input so tests can check which text reached which
// downstream stage.
type passNormalizer struct{}

func (passNormalizer) Normalize(text string) string { return "clean:" + text }

// indexedClassifier returns results keyed by the input text so alignment
// violations are observable.
type indexedClassifier struct{}

func (indexedClassifier) ClassifySentiment(_ context.Context, text string) models.SentimentResult {
	return models.SentimentResult{Label: models.SentimentPositive, Score: float64(len(text))}
}

func (indexedClassifier) ClassifyHoax(_ context.Context, text string) models.HoaxResult {
	return models.HoaxResult{Label: models.HoaxLabelUncertain, Probability: 0.5, Confidence: float64(len(text))}
}

type fakeKeywords struct{}

func (fakeKeywords) Extract(_ string, topN int) []string {
	return []string{"kata", "kunci"}[:min(2, topN)]
}

type recordingExplainer struct {
	gotText    string
	gotVerdict models.HoaxResult
}

func (e *recordingExplainer) Explain(text string, verdict models.HoaxResult) models.ExplainReport {
	e.gotText = text
	e.gotVerdict = verdict
	return models.ExplainReport{Explanation: "ok"}
}

func newTestPipeline(jobs *fakeJobStore, results *fakeResultStore, acq ContentAcquirer, crawler TopicCrawler, explainer Explainer) *Pipeline {
	return New(Deps{
		Jobs:       jobs,
		Results:    results,
		Acquirer:   acq,
		Crawler:    crawler,
		Normalizer: passNormalizer{},
		Sentiment:  indexedClassifier{},
		Hoax:       indexedClassifier{},
		Keywords:   fakeKeywords{},
		Explainer:  explainer,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestURLPipelineProgressSchedule(t *testing.T) {
	jobs := &fakeJobStore{}
	results := &fakeResultStore{}
	acq := &fakeAcquirer{article: analysis.Article{Title: "Judul", Content: "isi artikel", URL: "https://example.com/a"}}
	p := newTestPipeline(jobs, results, acq, nil, &recordingExplainer{})

	job := models.Job{ID: "job-1", Kind: models.KindURL, Input: "https://example.com/a"}
	if err := p.Run(context.Background(), job); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []int{10, 30, 50, 70, 85, 95, 100}
	got := jobs.progressValues()
	if len(got) != len(want) {
		t.Fatalf("got %d updates %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress sequence = %v, want %v", got, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, got)
		}
	}

	if len(results.saved) != 1 {
		t.Fatalf("saved %d results, want 1", len(results.saved))
	}
	res := results.saved[0]
	if res.TotalItems != 1 {
		t.Errorf("total_items = %d, want 1", res.TotalItems)
	}
	if res.Articles[0].ArticleID != "job-1" {
		t.Errorf("article_id = %s, want job-1", res.Articles[0].ArticleID)
	}
	if len(res.SourceBreakdown) != 1 || res.SourceBreakdown[0].Source != "Direct URL" {
		t.Errorf("source breakdown = %+v", res.SourceBreakdown)
	}
	if res.SourceBreakdown[0].AvgSentiment != res.Articles[0].Sentiment.Score {
		t.Errorf("direct url avg sentiment should equal the item score")
	}
}

func TestURLPipelineAcquireFailure(t *testing.T) {
	jobs := &fakeJobStore{}
	results := &fakeResultStore{}
	acq := &fakeAcquirer{err: analysis.ErrNoContent}
	p := newTestPipeline(jobs, results, acq, nil, &recordingExplainer{})

	job := models.Job{ID: "job-2", Kind: models.KindURL, Input: "https://example.com/missing"}
	err := p.Run(context.Background(), job)
	if !errors.Is(err, analysis.ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}

	last := jobs.last()
	if last.status != models.StatusFailed || last.progress != 0 {
		t.Errorf("terminal update = %+v, want failed/0", last)
	}
	if len(results.saved) != 0 {
		t.Errorf("saved %d results, want none on failure", len(results.saved))
	}
}

func TestURLPipelineContentPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"long content capped at 500", strings.Repeat("a", 600), strings.Repeat("a", 500) + "..."},
		{"short content keeps the marker", "berita singkat", "berita singkat..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &fakeJobStore{}
			results := &fakeResultStore{}
			acq := &fakeAcquirer{article: analysis.Article{Title: "t", Content: tt.content}}
			p := newTestPipeline(jobs, results, acq, nil, &recordingExplainer{})

			if err := p.Run(context.Background(), models.Job{ID: "job-3", Kind: models.KindURL, Input: "https://example.com"}); err != nil {
				t.Fatalf("run: %v", err)
			}
			if content := results.saved[0].Articles[0].Content; content != tt.want {
				t.Errorf("preview = %q, want %q", content, tt.want)
			}
		})
	}
}

func TestTopicPipelineAlignmentAndAggregation(t *testing.T) {
	items := make([]analysis.CrawledItem, 4)
	for i := range items {
		items[i] = analysis.CrawledItem{
			Source: fmt.Sprintf("Source-%d", i%2),
			Text:   strings.Repeat("x", i+1), // distinct lengths key the classifier
			URL:    fmt.Sprintf("https://example.com/%d", i),
			Title:  fmt.Sprintf("Item %d", i),
		}
	}
	jobs := &fakeJobStore{}
	results := &fakeResultStore{}
	explainer := &recordingExplainer{}
	p := newTestPipeline(jobs, results, nil, &fakeCrawler{items: items}, explainer)

	job := models.Job{ID: "topic-1", Kind: models.KindTopic, Input: "pemilu"}
	if err := p.Run(context.Background(), job); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []int{10, 30, 50, 80, 95, 100}
	got := jobs.progressValues()
	if len(got) != len(want) {
		t.Fatalf("got updates %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress sequence = %v, want %v", got, want)
		}
	}

	res := results.saved[0]
	if res.TotalItems != 4 {
		t.Fatalf("total_items = %d, want 4", res.TotalItems)
	}
	for i, article := range res.Articles {
		if article.ArticleID != fmt.Sprintf("topic-1_%d", i) {
			t.Errorf("article %d id = %s", i, article.ArticleID)
		}
		// The classifier encodes input length in the score, and the
		// normalizer prefixes "clean:"; the i-th result must line up with
		// the i-th crawled item.
		wantScore := float64(len("clean:") + i + 1)
		if article.Sentiment.Score != wantScore {
			t.Errorf("article %d sentiment score = %f, want %f (alignment broken)", i, article.Sentiment.Score, wantScore)
		}
		if article.SourceURL != items[i].URL {
			t.Errorf("article %d url = %s, want %s", i, article.SourceURL, items[i].URL)
		}
	}

	if res.HoaxLabel != models.HoaxLabelUncertain || res.HoaxProbability != 0.5 {
		t.Errorf("overall hoax = %s/%f", res.HoaxLabel, res.HoaxProbability)
	}
	if explainer.gotVerdict.Label != models.HoaxLabelUncertain {
		t.Errorf("explainer verdict = %+v", explainer.gotVerdict)
	}
}

func TestTopicPipelineExplainTruncation(t *testing.T) {
	items := []analysis.CrawledItem{{Source: "Twitter", Text: strings.Repeat("b", 9000)}}
	jobs := &fakeJobStore{}
	results := &fakeResultStore{}
	explainer := &recordingExplainer{}
	p := newTestPipeline(jobs, results, nil, &fakeCrawler{items: items}, explainer)

	if err := p.Run(context.Background(), models.Job{ID: "topic-2", Kind: models.KindTopic, Input: "x"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(explainer.gotText) != 5000 {
		t.Errorf("explainer text length = %d, want 5000", len(explainer.gotText))
	}
}

func TestTopicPipelineEmptyCrawlFails(t *testing.T) {
	jobs := &fakeJobStore{}
	results := &fakeResultStore{}
	p := newTestPipeline(jobs, results, nil, &fakeCrawler{}, &recordingExplainer{})

	err := p.Run(context.Background(), models.Job{ID: "topic-3", Kind: models.KindTopic, Input: "sepi"})
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
	last := jobs.last()
	if last.status != models.StatusFailed || last.progress != 0 {
		t.Errorf("terminal update = %+v, want failed/0", last)
	}
	if len(results.saved) != 0 {
		t.Errorf("no result should be written for a failed job")
	}
}

func TestUnknownKindFails(t *testing.T) {
	jobs := &fakeJobStore{}
	p := newTestPipeline(jobs, &fakeResultStore{}, nil, nil, &recordingExplainer{})

	if err := p.Run(context.Background(), models.Job{ID: "j", Kind: "batch"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if last := jobs.last(); last.status != models.StatusFailed {
		t.Errorf("terminal status = %s, want failed", last.status)
	}
}

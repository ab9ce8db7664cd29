package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"
)

// SampleCrawler is a stand-in for the multi-source topic crawl. It emits a
// deterministic mix of social posts and news items for a keyword so the rest
// of the system can be exercised without platform credentials. Real crawlers
// plug in behind the same interface.
type SampleCrawler struct{}

func NewSampleCrawler() *SampleCrawler {
	return &SampleCrawler{}
}

var (
	sampleMoods   = []string{"Great news!", "Concerning development.", "Interesting update."}
	sampleOutlets = []string{"Kompas.com", "Detik.com", "Tempo.co", "CNN Indonesia"}
)

// Crawl returns up to maxItems items for the keyword, half social posts and
// half news articles. Seeded by the keyword so output is stable per topic.
func (c *SampleCrawler) Crawl(_ context.Context, keyword string, maxItems int) ([]CrawledItem, error) {
	if maxItems <= 0 {
		return nil, nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(keyword))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	items := make([]CrawledItem, 0, maxItems)
	now := time.Now()

	for i := 0; i < maxItems/2; i++ {
		items = append(items, CrawledItem{
			Source: "Twitter",
			Type:   "tweet",
			Text:   fmt.Sprintf("Sample post about %s. This is placeholder text for demonstration purposes. %s", keyword, sampleMoods[rng.Intn(len(sampleMoods))]),
			Author: fmt.Sprintf("@user%d", i+1),
			URL:    fmt.Sprintf("https://twitter.com/user%d/status/%d", i+1, 1000000+rng.Intn(9000000)),
			Date:   now.AddDate(0, 0, -rng.Intn(30)).Format(time.RFC3339),
		})
	}
	for i := 0; len(items) < maxItems; i++ {
		outlet := sampleOutlets[rng.Intn(len(sampleOutlets))]
		items = append(items, CrawledItem{
			Source: outlet,
			Type:   "article",
			Text:   fmt.Sprintf("Sample news article about %s. This is comprehensive coverage of the topic with multiple paragraphs of placeholder body text.", keyword),
			Title:  fmt.Sprintf("Breaking: Development in %s Case", keyword),
			Author: fmt.Sprintf("Reporter %d", i+1),
			URL:    fmt.Sprintf("https://%s/news/article-%d", strings.ToLower(strings.ReplaceAll(outlet, " ", "")), 1000+rng.Intn(9000)),
			Date:   now.AddDate(0, 0, -rng.Intn(7)).Format(time.RFC3339),
		})
	}
	return items, nil
}

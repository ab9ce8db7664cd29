package analysis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Scraper fetches an article page and extracts its structured fields.
type Scraper struct {
	client *http.Client
}

// NewScraper wires an HTTP client; timeout defaults to 10s when zero.
func NewScraper(client *http.Client, timeout time.Duration) *Scraper {
	if client == nil {
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Scraper{client: client}
}

// Acquire downloads and parses the page at url. Any fetch error, a missing
// title, or missing body text returns ErrNoContent.
func (s *Scraper) Acquire(ctx context.Context, url string) (Article, error) {
	doc, err := s.fetchDocument(ctx, url)
	if err != nil {
		return Article{}, ErrNoContent
	}

	title := extractTitle(doc)
	content := extractContent(doc)
	if title == "" || content == "" {
		return Article{}, ErrNoContent
	}

	return Article{
		Title:           title,
		Content:         content,
		Author:          extractAuthor(doc),
		PublicationDate: extractDate(doc),
		URL:             url,
	}, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func extractTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractContent walks common article containers and joins their paragraph
// text, falling back to every paragraph on the page.
func extractContent(doc *goquery.Document) string {
	selectors := []string{
		"article",
		".article-content",
		".post-content",
		".entry-content",
		"#content",
	}
	for _, sel := range selectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if text := joinParagraphs(container.Find("p")); text != "" {
			return text
		}
	}
	return joinParagraphs(doc.Find("p"))
}

func joinParagraphs(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func extractAuthor(doc *goquery.Document) string {
	for _, sel := range []string{".author", ".by-author", `[rel="author"]`} {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractDate(doc *goquery.Document) string {
	for _, sel := range []string{".date", ".published", `[property="article:published_time"]`} {
		tag := doc.Find(sel).First()
		if tag.Length() == 0 {
			continue
		}
		if content, ok := tag.Attr("content"); ok && content != "" {
			return content
		}
		if text := strings.TrimSpace(tag.Text()); text != "" {
			return text
		}
	}
	return ""
}

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hoaxalyzer/internal/models"
)

// MLClient talks to the external model service for sentiment and hoax
// classification. Model errors never surface to the caller: every path
// degrades to a safe default so a flaky model service cannot fail a pipeline.
type MLClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *slog.Logger
}

// NewMLClient creates a reusable HTTP client.
func NewMLClient(endpoint, apiKey string, timeout time.Duration, log *slog.Logger) *MLClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &MLClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// ClassifySentiment scores the text. On any error it degrades to a neutral
// result with score 0.33.
func (c *MLClient) ClassifySentiment(ctx context.Context, text string) models.SentimentResult {
	var resp models.SentimentResult
	if err := c.post(ctx, "/sentiment", map[string]any{"text": text}, &resp); err != nil {
		c.log.Warn("sentiment classification degraded", "err", err)
		return models.SentimentResult{Label: models.SentimentNeutral, Score: 0.33}
	}
	return resp
}

// ClassifyHoax returns the hoax probability mass for the text and derives the
// per-item label locally: hoax above 0.6, factual below 0.4, uncertain in
// between. On any error it degrades to (uncertain, 0.5, 0.5).
func (c *MLClient) ClassifyHoax(ctx context.Context, text string) models.HoaxResult {
	var resp struct {
		Probability float64 `json:"probability"`
		Confidence  float64 `json:"confidence"`
	}
	if err := c.post(ctx, "/hoax", map[string]any{"text": text}, &resp); err != nil {
		c.log.Warn("hoax classification degraded", "err", err)
		return models.HoaxResult{Label: models.HoaxLabelUncertain, Probability: 0.5, Confidence: 0.5}
	}
	return models.HoaxResult{
		Label:       hoaxLabelFor(resp.Probability),
		Probability: resp.Probability,
		Confidence:  resp.Confidence,
	}
}

func hoaxLabelFor(probability float64) string {
	switch {
	case probability > 0.6:
		return models.HoaxLabelHoax
	case probability < 0.4:
		return models.HoaxLabelFactual
	default:
		return models.HoaxLabelUncertain
	}
}

func (c *MLClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

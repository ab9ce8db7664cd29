package pipeline

import (
	"errors"

	"hoaxalyzer/internal/analysis"
	"hoaxalyzer/internal/models"
)

// ErrNoItems signals an aggregation over zero items. The crawl-empty check
// upstream keeps this from happening on the normal path.
var ErrNoItems = errors.New("no items to aggregate")

// sentimentLabels fixes the tally and tie-break order for the overall
// sentiment: the first label holding the maximum count wins. Not alphabetical.
var sentimentLabels = []string{
	models.SentimentPositive,
	models.SentimentNegative,
	models.SentimentNeutral,
}

// SentimentBreakdown tallies items per sentiment label. All three labels are
// always present in the map, zero counts included.
func SentimentBreakdown(results []models.SentimentResult) map[string]int {
	breakdown := make(map[string]int, len(sentimentLabels))
	for _, label := range sentimentLabels {
		breakdown[label] = 0
	}
	for _, r := range results {
		breakdown[r.Label]++
	}
	return breakdown
}

// OverallSentiment picks the label with the highest count, ties broken by
// the fixed label order.
func OverallSentiment(breakdown map[string]int) string {
	overall := sentimentLabels[0]
	best := breakdown[overall]
	for _, label := range sentimentLabels[1:] {
		if breakdown[label] > best {
			overall = label
			best = breakdown[label]
		}
	}
	return overall
}

// AverageHoaxProbability is the arithmetic mean of per-item hoax
// probabilities. Errors on an empty set.
func AverageHoaxProbability(results []models.HoaxResult) (float64, error) {
	if len(results) == 0 {
		return 0, ErrNoItems
	}
	var sum float64
	for _, r := range results {
		sum += r.Probability
	}
	return sum / float64(len(results)), nil
}

// OverallHoaxLabel maps the mean probability to a verdict. The 0.7/0.3
// thresholds here are deliberate and differ from the per-item 0.6/0.4 pair
// applied inside the classifier.
func OverallHoaxLabel(avgProbability float64) string {
	switch {
	case avgProbability > 0.7:
		return models.HoaxLabelHoax
	case avgProbability < 0.3:
		return models.HoaxLabelFactual
	default:
		return models.HoaxLabelUncertain
	}
}

// SourcesBreakdown groups items by declared source, pairing each item with
// its sentiment by index. Groups appear in first-encounter order; items
// without a source fall under "Unknown".
func SourcesBreakdown(items []analysis.CrawledItem, sentiments []models.SentimentResult) []models.SourceBreakdown {
	type acc struct {
		count int
		sum   float64
	}
	totals := make(map[string]*acc)
	order := make([]string, 0)

	for i, item := range items {
		source := item.Source
		if source == "" {
			source = "Unknown"
		}
		a, ok := totals[source]
		if !ok {
			a = &acc{}
			totals[source] = a
			order = append(order, source)
		}
		a.count++
		a.sum += sentiments[i].Score
	}

	out := make([]models.SourceBreakdown, 0, len(order))
	for _, source := range order {
		a := totals[source]
		out = append(out, models.SourceBreakdown{
			Source:       source,
			Count:        a.count,
			AvgSentiment: a.sum / float64(a.count),
		})
	}
	return out
}

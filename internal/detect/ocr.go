package detect

import (
	"sort"
	"strings"

	"github.com/screenwatch/screenwatch/internal/models"
)

// OCRHit is one recognised word on screen.
type OCRHit struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       models.Rect `json:"bbox"`
}

// MatchToken returns the highest-confidence hit at or above minConf whose
// text contains token, ignoring case.
func MatchToken(hits []OCRHit, token string, minConf float64) (OCRHit, bool) {
	needle := strings.ToLower(strings.TrimSpace(token))
	if needle == "" {
		return OCRHit{}, false
	}

	ranked := make([]OCRHit, len(hits))
	copy(ranked, hits)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	for _, hit := range ranked {
		if hit.Confidence < minConf {
			continue
		}
		if strings.Contains(strings.ToLower(hit.Text), needle) {
			return hit, true
		}
	}
	return OCRHit{}, false
}

// DetectOCR runs one OCR detector over hits.
func DetectOCR(spec Spec, hits []OCRHit) models.DetectorResult {
	hit, ok := MatchToken(hits, spec.Token, spec.MinConf)
	if !ok {
		return models.DetectorResult{}
	}
	text := hit.Text
	bbox := hit.BBox
	return models.DetectorResult{
		Found:      true,
		Confidence: hit.Confidence,
		Text:       &text,
		BBox:       &bbox,
	}
}

package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/models"
)

// TemplateMatcher locates a template image inside a captured frame.
type TemplateMatcher interface {
	Match(ctx context.Context, frame image.Image, template string, confidence float64) (models.Rect, float64, bool, error)
}

// Capture is everything a suite needs to evaluate detectors for one scan.
type Capture struct {
	Image image.Image
	Hits  []OCRHit
}

// Suite evaluates a catalog of detectors against a capture.
type Suite struct {
	catalog Catalog
	matcher TemplateMatcher
	logger  zerolog.Logger
}

// NewSuite creates a suite. matcher may be nil when no image detectors are
// evaluated locally; those detectors are then omitted from results.
func NewSuite(catalog Catalog, matcher TemplateMatcher) *Suite {
	return &Suite{
		catalog: catalog,
		matcher: matcher,
		logger:  logging.Component("detect"),
	}
}

// Catalog returns the suite's detector catalog.
func (s *Suite) Catalog() Catalog {
	return s.catalog
}

// Run evaluates every detector in the catalog. A detector that fails is
// left out of the result set so resolution treats it as not found.
func (s *Suite) Run(ctx context.Context, capture Capture) models.ResultSet {
	results := make(map[string]models.DetectorResult, len(s.catalog))
	for _, name := range s.catalog.Names() {
		spec := s.catalog[name]
		switch spec.Kind {
		case KindOCR:
			results[name] = DetectOCR(spec, capture.Hits)
		case KindImage:
			if s.matcher == nil || capture.Image == nil {
				continue
			}
			result, err := s.detectImage(ctx, spec, capture.Image)
			if err != nil {
				s.logger.Warn().Err(err).Str("detector", name).Msg("image detector failed")
				continue
			}
			results[name] = result
		}
	}
	return models.NewResultSet(results)
}

func (s *Suite) detectImage(ctx context.Context, spec Spec, frame image.Image) (models.DetectorResult, error) {
	var best models.DetectorResult
	for _, template := range spec.Templates {
		if err := ctx.Err(); err != nil {
			return models.DetectorResult{}, err
		}
		box, score, ok, err := s.matcher.Match(ctx, frame, template, spec.Confidence)
		if err != nil {
			return models.DetectorResult{}, fmt.Errorf("match %s: %w", template, err)
		}
		if !ok || score <= best.Confidence {
			continue
		}
		bbox := box
		best = models.DetectorResult{Found: true, Confidence: score, BBox: &bbox}
	}
	return best, nil
}

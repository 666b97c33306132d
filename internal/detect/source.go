package detect

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/models"
)

// ErrSourceExhausted is returned by Next once a source has no more frames.
var ErrSourceExhausted = errors.New("frame source exhausted")

const maxRecordSize = 4 << 20

// Frame is the detector output for one scan plus the context the
// scanner needs around it.
type Frame struct {
	// Window is the game window position on screen.
	Window models.Rect

	// Results is the detector snapshot.
	Results models.ResultSet

	// NameText is raw OCR text from the player name region.
	NameText string

	// NameConfidence is the OCR confidence for NameText, 0-1.
	NameConfidence float64
}

// Source produces frames for the scanner.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}

// record is one line of a frame file.
type record struct {
	Window         models.Rect                      `json:"window"`
	Results        map[string]models.DetectorResult `json:"results"`
	OCRHits        []OCRHit                         `json:"ocr_hits"`
	NameText       string                           `json:"name_text"`
	NameConfidence *float64                         `json:"name_confidence"`
}

// JSONLSource reads one frame per line. Precomputed results are taken as
// is; OCR detectors are evaluated from ocr_hits when a line carries them.
type JSONLSource struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	closer  io.Closer
	suite   *Suite
	line    int
	logger  zerolog.Logger
}

// NewJSONLSource reads frames from r. suite supplies the detector catalog;
// results for detectors outside it are dropped.
func NewJSONLSource(r io.Reader, suite *Suite) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	source := &JSONLSource{
		scanner: scanner,
		suite:   suite,
		logger:  logging.Component("source"),
	}
	if closer, ok := r.(io.Closer); ok {
		source.closer = closer
	}
	return source
}

// OpenJSONLSource opens path, or stdin when path is "-".
func OpenJSONLSource(path string, suite *Suite) (*JSONLSource, error) {
	if path == "-" {
		return NewJSONLSource(io.NopCloser(os.Stdin), suite), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame source: %w", err)
	}
	return NewJSONLSource(file, suite), nil
}

// Next returns the next frame, skipping blank and comment lines.
func (s *JSONLSource) Next(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read frame line %d: %w", s.line+1, err)
			}
			return nil, ErrSourceExhausted
		}
		s.line++

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode frame line %d: %w", s.line, err)
		}
		return s.frame(ctx, rec), nil
	}
}

// Close releases the underlying reader.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *JSONLSource) frame(ctx context.Context, rec record) *Frame {
	catalog := s.suite.Catalog()
	results := make(map[string]models.DetectorResult, len(catalog))

	if len(rec.OCRHits) > 0 {
		computed := s.suite.Run(ctx, Capture{Hits: rec.OCRHits})
		for name, result := range computed.Map() {
			results[name] = result
		}
	}

	for name, result := range rec.Results {
		if !catalog.Has(name) {
			s.logger.Warn().Int("line", s.line).Str("detector", name).Msg("dropping result for unknown detector")
			continue
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			s.logger.Warn().
				Int("line", s.line).
				Str("detector", name).
				Float64("confidence", result.Confidence).
				Msg("dropping result with confidence outside [0, 1]")
			continue
		}
		results[name] = result
	}

	confidence := 1.0
	if rec.NameConfidence != nil {
		confidence = *rec.NameConfidence
	}

	return &Frame{
		Window:         rec.Window,
		Results:        models.NewResultSet(results),
		NameText:       rec.NameText,
		NameConfidence: confidence,
	}
}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	mu     sync.Mutex
	frames []*Frame
	next   int
}

// NewSliceSource creates a source over frames.
func NewSliceSource(frames ...*Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame or ErrSourceExhausted.
func (s *SliceSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		return nil, ErrSourceExhausted
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

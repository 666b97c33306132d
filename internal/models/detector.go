package models

import "sort"

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Center returns the integer centre point of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// DetectorResult is the output of one detector for one scan.
type DetectorResult struct {
	Found      bool    `json:"found" yaml:"found"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Text       *string `json:"text,omitempty" yaml:"text,omitempty"`
	BBox       *Rect   `json:"bbox,omitempty" yaml:"bbox,omitempty"`
}

// ResultSet is an immutable snapshot of all detector outputs for one scan.
type ResultSet struct {
	results map[string]DetectorResult
}

// NewResultSet copies results into a new snapshot.
func NewResultSet(results map[string]DetectorResult) ResultSet {
	copied := make(map[string]DetectorResult, len(results))
	for name, result := range results {
		copied[name] = result
	}
	return ResultSet{results: copied}
}

// Get returns the result for a detector and whether it was present in the scan.
func (s ResultSet) Get(name string) (DetectorResult, bool) {
	result, ok := s.results[name]
	return result, ok
}

// Found reports whether the named detector was present and found.
// A missing detector is treated as not found.
func (s ResultSet) Found(name string) bool {
	result, ok := s.results[name]
	return ok && result.Found
}

// Has reports whether the named detector reported at all.
func (s ResultSet) Has(name string) bool {
	_, ok := s.results[name]
	return ok
}

// Len returns the number of detectors in the snapshot.
func (s ResultSet) Len() int {
	return len(s.results)
}

// Names returns the detector names in the snapshot, sorted.
func (s ResultSet) Names() []string {
	names := make([]string, 0, len(s.results))
	for name := range s.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the underlying results.
func (s ResultSet) Map() map[string]DetectorResult {
	copied := make(map[string]DetectorResult, len(s.results))
	for name, result := range s.results {
		copied[name] = result
	}
	return copied
}

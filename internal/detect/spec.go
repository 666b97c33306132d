// Package detect describes the detectors that feed state resolution and
// turns raw detector output into result sets.
package detect

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the detector implementation family.
type Kind string

const (
	KindOCR   Kind = "ocr"
	KindImage Kind = "image"
)

// Spec configures one named detector.
type Spec struct {
	// Kind selects OCR token matching or template image matching.
	Kind Kind `mapstructure:"kind" yaml:"kind"`

	// Token is the case-insensitive text an OCR detector looks for.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// MinConf is the lowest OCR word confidence, 0-1.
	MinConf float64 `mapstructure:"min_conf" yaml:"min_conf,omitempty"`

	// Templates are image paths tried against the same frame.
	Templates []string `mapstructure:"templates" yaml:"templates,omitempty"`

	// Confidence is the template match threshold, 0-1.
	Confidence float64 `mapstructure:"confidence" yaml:"confidence,omitempty"`
}

// Catalog is the closed set of detectors known at configuration load.
type Catalog map[string]Spec

// Names returns the detector names, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a configured detector.
func (c Catalog) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Validate checks every spec and returns one error per problem.
func (c Catalog) Validate() []error {
	var errs []error
	for _, name := range c.Names() {
		spec := c[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("detector with empty name"))
			continue
		}
		switch spec.Kind {
		case KindOCR:
			if strings.TrimSpace(spec.Token) == "" {
				errs = append(errs, fmt.Errorf("detector %s: ocr detector needs a token", name))
			}
			if spec.MinConf < 0 || spec.MinConf > 1 {
				errs = append(errs, fmt.Errorf("detector %s: min_conf %.2f is outside [0, 1]", name, spec.MinConf))
			}
		case KindImage:
			if len(spec.Templates) == 0 {
				errs = append(errs, fmt.Errorf("detector %s: image detector needs at least one template", name))
			}
			if spec.Confidence < 0 || spec.Confidence > 1 {
				errs = append(errs, fmt.Errorf("detector %s: confidence %.2f is outside [0, 1]", name, spec.Confidence))
			}
		default:
			errs = append(errs, fmt.Errorf("detector %s: unknown kind %q", name, spec.Kind))
		}
	}
	return errs
}

// DefaultCatalog returns detectors matching the built-in rule set.
func DefaultCatalog() Catalog {
	return Catalog{
		"DEATH_TEXT":        {Kind: KindOCR, Token: "you died", MinConf: 0.6},
		"NET_REVEAL_TEXT":   {Kind: KindOCR, Token: "net reveal", MinConf: 0.6},
		"END_RUN_TEXT":      {Kind: KindOCR, Token: "end run", MinConf: 0.6},
		"START_BUTTON_TEXT": {Kind: KindOCR, Token: "start", MinConf: 0.6},
		"AUTO_RED_ICON":     {Kind: KindImage, Templates: []string{"assets/auto_red.png"}, Confidence: 0.85},
		"AUTO_GREEN_ICON":   {Kind: KindImage, Templates: []string{"assets/auto_green.png"}, Confidence: 0.85},
		"DISCONNECTED_ICON": {Kind: KindImage, Templates: []string{"assets/disconnected.png"}, Confidence: 0.85},
		"LOADING_ICON":      {Kind: KindImage, Templates: []string{"assets/loading.png"}, Confidence: 0.85},
		"LEAVE_BUTTON":      {Kind: KindImage, Templates: []string{"assets/leave_button.png"}, Confidence: 0.85},
		"TO_LOBBY_BUTTON":   {Kind: KindImage, Templates: []string{"assets/to_lobby.png"}, Confidence: 0.85},
	}
}

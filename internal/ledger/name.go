package ledger

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrNameExtraction reports OCR text that holds no usable player name.
var ErrNameExtraction = errors.New("no usable player name in OCR text")

// NameReading is the raw OCR output for the name region of a death screen.
type NameReading struct {
	Text       string
	Confidence float64
}

var playerNamePattern = regexp.MustCompile(`^[\p{L}\p{N}_-]{3,32}$`)

// ExtractPlayerName reads a player name out of OCR text. Punctuation and
// spaces at either edge are stripped; what remains must be a whole name of
// 3-32 letters, digits, underscores or hyphens. Anything else, including
// readings below minConfidence, yields ErrNameExtraction.
func ExtractPlayerName(reading NameReading, minConfidence float64) (string, error) {
	if reading.Confidence < minConfidence {
		return "", ErrNameExtraction
	}

	name := strings.TrimFunc(reading.Text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if !playerNamePattern.MatchString(name) {
		return "", ErrNameExtraction
	}
	return name, nil
}

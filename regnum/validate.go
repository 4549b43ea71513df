package regnum

import (
	"fmt"
	"strings"
)

// DefaultMinLength is the shortest digit string accepted as a registration
// number. Shorter reads are treated as OCR noise.
const DefaultMinLength = 5

// Normalize trims surrounding whitespace, including newlines the engine
// appends after a line.
func Normalize(raw string) string { return strings.TrimSpace(raw) }

// Validate checks that text is a non-empty string of ASCII digits of at
// least minLength characters. text is not trimmed.
func Validate(text string, minLength int) error {
	if text == "" {
		return fmt.Errorf("empty text")
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return fmt.Errorf("non-digit character %q at offset %d", text[i], i)
		}
	}
	if len(text) < minLength {
		return fmt.Errorf("%d digits, need at least %d", len(text), minLength)
	}
	return nil
}

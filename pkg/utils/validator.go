package utils

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidateMaxLength rejects values longer than max characters
func ValidateMaxLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return fmt.Errorf("%s exceeds maximum length of %d characters (got %d)", field, max, n)
	}
	return nil
}

// ValidateNonNegative rejects negative amounts
func ValidateNonNegative(field string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%s must not be negative: %.2f", field, value)
	}
	return nil
}

// SanitizeText removes control characters, keeping tabs and line breaks
func SanitizeText(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

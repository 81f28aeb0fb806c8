package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxReferenceLength bounds reference numbers, which double as ledger bill numbers
const MaxReferenceLength = 64

var (
	controlChars   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	referenceRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-]*$`)
)

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ValidateReference accepts an empty reference or one made of letters, digits and . _ / -
func ValidateReference(ref string) error {
	if ref == "" {
		return nil
	}
	if len(ref) > MaxReferenceLength {
		return fmt.Errorf("reference number longer than %d characters", MaxReferenceLength)
	}
	if !referenceRegex.MatchString(ref) {
		return fmt.Errorf("reference number %q contains unsupported characters", ref)
	}
	return nil
}

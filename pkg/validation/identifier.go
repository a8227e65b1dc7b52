package validation

import "fmt"

// MaxIdentifierLength bounds Identifier.
const MaxIdentifierLength = 128

// IsIdentifierChar reports whether ch is an ASCII letter, digit, hyphen
// or underscore.
func IsIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// Identifier checks that s is a non-empty identifier. kind names the value
// in the error, e.g. "credential name".
func Identifier(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if len(s) > MaxIdentifierLength {
		return fmt.Errorf("%s exceeds %d characters", kind, MaxIdentifierLength)
	}
	for _, ch := range s {
		if !IsIdentifierChar(ch) {
			return fmt.Errorf("invalid %s %q: only letters, digits, '-' and '_' are allowed", kind, s)
		}
	}
	return nil
}

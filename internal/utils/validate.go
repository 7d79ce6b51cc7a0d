package utils // package utils provides small validation helpers shared by handlers

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: one @ with non-space text either side
// and a dot in the domain. Deliverability is Stripe's and Resend's problem;
// this only rejects obvious garbage before any upstream call is made.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether the address looks like an email.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateRequired checks fields in order and returns a message naming the
// first missing one, or "" when all are present. Pairs preserve declaration
// order so validation failures are deterministic.
func ValidateRequired(pairs ...Field) string {
	for _, f := range pairs {
		if f.missing() {
			return fmt.Sprintf("Missing required field: %s", f.Name)
		}
	}
	return ""
}

// Field is one named value checked by ValidateRequired.
type Field struct {
	Name  string
	Value any
}

func (f Field) missing() bool {
	switch v := f.Value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case nil:
		return true
	}
	return false
}

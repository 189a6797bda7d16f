// Package validation holds side-effect free input checks that run before any
// graph mutation.
package validation

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	dErrors "smarttracing/pkg/domain-errors"
)

// ValidatePhoneNumber accepts internationally formatted numbers: a leading '+',
// a known country calling code and a subscriber number of possible length for
// that country. Separators such as spaces, dashes and parentheses are allowed.
func ValidatePhoneNumber(candidate string) error {
	trimmed := strings.TrimSpace(candidate)
	if !strings.HasPrefix(trimmed, "+") {
		return invalidPhone(candidate)
	}
	number, err := phonenumbers.Parse(trimmed, "")
	if err != nil {
		return invalidPhone(candidate)
	}
	if !phonenumbers.IsPossibleNumber(number) {
		return invalidPhone(candidate)
	}
	return nil
}

// ValidateOptionalPhoneNumber validates candidate only when it is non-empty.
func ValidateOptionalPhoneNumber(candidate string) error {
	if candidate == "" {
		return nil
	}
	return ValidatePhoneNumber(candidate)
}

func invalidPhone(candidate string) error {
	return dErrors.Newf(dErrors.CodeInvalidPhoneNumber, "invalid phone number %q", candidate)
}

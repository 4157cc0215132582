// Package contact normalizes the customer contact fields the storefront
// collects on checkout and inquiry forms.
package contact

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidPhone = errors.New("phone number must have 10 digits")
	ErrInvalidZip   = errors.New("ZIP code must be 5 digits")
	ErrInvalidEmail = errors.New("invalid email address")
)

// validate applies the same rules gin uses for binding:"email" fields
var validate = validator.New()

// NormalizePhone strips formatting and a leading US country code, returning
// the bare 10 digits
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// NormalizeZip trims a ZIP code and checks it is exactly five digits
func NormalizeZip(raw string) (string, error) {
	zip := strings.TrimSpace(raw)
	if len(zip) != 5 {
		return "", ErrInvalidZip
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return "", ErrInvalidZip
		}
	}
	return zip, nil
}

// NormalizeEmail lowercases and validates an address
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

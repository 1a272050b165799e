// Package security holds input hygiene helpers shared by the HTTP layer and services.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\\\[\]{};':"|,.<>?]`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// PasswordReport is the outcome of ValidatePassword.
type PasswordReport struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidatePassword checks a password against the account policy and returns
// every violated rule in user-facing form.
func ValidatePassword(password string) PasswordReport {
	errs := []string{}

	if utf8.RuneCountInString(password) < PasswordMinLength {
		errs = append(errs, "La contraseña debe tener al menos 8 caracteres")
	}
	if !upperRe.MatchString(password) {
		errs = append(errs, "La contraseña debe incluir al menos una letra mayúscula")
	}
	if !lowerRe.MatchString(password) {
		errs = append(errs, "La contraseña debe incluir al menos una letra minúscula")
	}
	if !digitRe.MatchString(password) {
		errs = append(errs, "La contraseña debe incluir al menos un número")
	}
	if !specialRe.MatchString(password) {
		errs = append(errs, "La contraseña debe incluir al menos un carácter especial")
	}

	return PasswordReport{IsValid: len(errs) == 0, Errors: errs}
}

var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// SanitizeInput escapes HTML-significant characters in free text.
func SanitizeInput(input string) string {
	return sanitizer.Replace(input)
}

// ValidateEmail reports whether s looks like an email address.
func ValidateEmail(s string) bool {
	return emailRe.MatchString(s)
}

// Package security provides input validation, credential masking and
// TOTP two-factor enrolment.
package security

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	apperrors "stockdesk/internal/errors"
)

// Validation patterns
var (
	// Ticker pattern: letters, digits and the separators Yahoo uses
	// (BRK.B, BTC-USD, ^GSPC, EURUSD=X)
	symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,14}$`)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	last4Pattern = regexp.MustCompile(`^[0-9]{4}$`)

	// API key patterns for detection (not validation)
	apiKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(sk-[A-Za-z0-9_\-]{20,})`), // OpenAI keys
		regexp.MustCompile(`(AIza[A-Za-z0-9_\-]{20,})`), // Google API keys
	}
)

// MaxTextLength bounds free-form profile fields.
const MaxTextLength = 500

// ValidateSymbol normalizes and validates a ticker symbol.
func ValidateSymbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	if symbol == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if len(symbol) > 15 {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol too long (max 15 characters)")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}

	return symbol, nil
}

// ParseNumber parses a numeric form field. Blank or non-numeric input is
// reported as a validation error naming the field.
func ParseNumber(field, raw string) (float64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0, apperrors.NewValidationError(field, raw, "value is required")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError(field, raw, "must be a number")
	}
	return v, nil
}

// ParsePositive parses a numeric form field that must be greater than zero.
func ParsePositive(field, raw string) (float64, error) {
	v, err := ParseNumber(field, raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, apperrors.NewValidationError(field, raw, "must be greater than zero")
	}
	return v, nil
}

// ValidateEmail validates an email address. An empty address is allowed.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return apperrors.NewValidationError("email", email, "invalid email address")
	}
	return nil
}

// ValidateCardLast4 validates the stored card suffix. An empty value is allowed.
func ValidateCardLast4(last4 string) error {
	if last4 == "" {
		return nil
	}
	if !last4Pattern.MatchString(last4) {
		return apperrors.NewValidationError("card_last4", last4, "must be exactly 4 digits")
	}
	return nil
}

// ValidateText validates free-form text input.
func ValidateText(field, text string, maxLen int) error {
	if len(text) > maxLen {
		return apperrors.NewValidationError(field, text[:min(20, len(text))]+"...", "text too long")
	}
	return nil
}

// SanitizeText removes control characters from free-form text.
func SanitizeText(text string) string {
	var result strings.Builder
	for _, r := range text {
		if !unicode.IsControl(r) || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// MaskCredential masks a credential value for display.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSensitive masks API keys embedded in a string, such as an upstream
// error message.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, MaskCredential)
	}
	return result
}

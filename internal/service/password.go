package service

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword checks the strength policy and returns every violated
// rule, not just the first one.
func ValidatePassword(password string) []string {
	var violations []string

	if len(password) < 8 {
		violations = append(violations, "Password must be at least 8 characters long.")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter.")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter.")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one digit.")
	}
	if !hasSymbol {
		violations = append(violations, "Password must contain at least one special character.")
	}

	return violations
}

const resetCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const resetCodeLength = 6

// GenerateResetCode produces a 6-character code from a CSPRNG.
func GenerateResetCode() (string, error) {
	buf := make([]byte, resetCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	code := make([]byte, resetCodeLength)
	for i, b := range buf {
		code[i] = resetCodeAlphabet[int(b)%len(resetCodeAlphabet)]
	}

	return string(code), nil
}

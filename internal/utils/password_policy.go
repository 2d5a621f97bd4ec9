package utils

import (
	"strings"
	"unicode"
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword enforces the registration password policy: 8..128 chars
// with at least one uppercase letter, one lowercase letter, one digit and
// one special character. It returns a human-readable reason on failure and
// an empty string when the password is acceptable.
func ValidatePassword(plain string) string {
	if len(plain) < 8 {
		return "password must be at least 8 characters"
	}
	if len(plain) > 128 {
		return "password must be at most 128 characters"
	}
	var upper, lower, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return "password must contain an uppercase letter"
	case !lower:
		return "password must contain a lowercase letter"
	case !digit:
		return "password must contain a digit"
	case !special:
		return "password must contain a special character"
	}
	return ""
}

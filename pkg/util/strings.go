package util

import (
	"strings"
	"unicode"
)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits, keeping a leading '+'.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeIdentifier applies email rules to identifiers containing '@' and trims the rest.
// Non-email identifiers can be phones or staff ids, so they are left as typed.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return NormalizeEmail(identifier)
	}
	return identifier
}

// IsValidEmail performs basic email validation.
func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false
	}

	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}

// IsValidPhone accepts ten-digit numbers, optionally with a country prefix.
func IsValidPhone(phone string) bool {
	digits := strings.TrimPrefix(NormalizePhone(phone), "+")
	return len(digits) >= 10 && len(digits) <= 13
}

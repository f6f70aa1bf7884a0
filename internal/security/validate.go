package security

import (
	"fmt"
	"strings"
)

// reservedUsernames are never assignable through registration.
var reservedUsernames = map[string]struct{}{
	"admin":     {},
	"root":      {},
	"system":    {},
	"api":       {},
	"null":      {},
	"undefined": {},
	"test":      {},
}

// commonPasswords are rejected outright regardless of complexity.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"abc123":      {},
	"password123": {},
	"admin":       {},
	"12345678":    {},
	"welcome":     {},
	"letmein":     {},
}

const passwordSpecials = "@$!%*?&"

// ValidateUsername checks a candidate username and returns every rule it
// violates. An empty slice means the username is acceptable.
func ValidateUsername(username string) []string {
	var errs []string
	username = strings.TrimSpace(username)
	if username == "" {
		return []string{"Username is required"}
	}
	if len(username) < 3 {
		errs = append(errs, "Username must be at least 3 characters long")
	}
	if len(username) > 30 {
		errs = append(errs, "Username must not exceed 30 characters")
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			errs = append(errs, "Username can only contain letters, numbers, underscores, and dashes")
			break
		}
	}
	if first := username[0]; !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		errs = append(errs, "Username must start with a letter")
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		errs = append(errs, "Username is reserved and cannot be used")
	}
	return errs
}

// ValidatePassword checks a candidate password and returns every rule it
// violates. Passwords keep their whitespace; they are never trimmed.
func ValidatePassword(password string) []string {
	var errs []string
	if password == "" {
		return []string{"Password is required"}
	}
	if len(password) < 8 {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		errs = append(errs, "Password must not exceed 128 characters")
	}
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	if !hasLower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !hasUpper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !hasDigit {
		errs = append(errs, "Password must contain at least one number")
	}
	if !hasSpecial {
		errs = append(errs, fmt.Sprintf("Password must contain at least one special character (%s)", passwordSpecials))
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		errs = append(errs, "Password is too common, please choose a stronger password")
	}
	return errs
}

// ValidateRole checks that a candidate role names a known role.
func ValidateRole(role string) []string {
	if strings.TrimSpace(role) == "" {
		return []string{"Role is required"}
	}
	if _, ok := ParseRole(role); !ok {
		return []string{"Role is not recognized"}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

package password

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// weakPatterns are checked in order; only the first match is reported
var weakPatterns = []string{"123", "abc", "password", "qwerty", "000", "111"}

const (
	SuggestionGoodLength   = "use at least 8 characters for better security"
	SuggestionSpecial      = "add special characters (!@#$%^&*) to make it stronger"
	SuggestionStrongLength = "passwords with 12+ characters are much more secure"
)

// Suggest returns advisory hints for strengthening a password.
// It never blocks anything and runs regardless of whether the password is valid.
func Suggest(password string) []string {
	suggestions := make([]string, 0, 4)
	length := utf8.RuneCountInString(password)

	if length < GoodLength {
		suggestions = append(suggestions, SuggestionGoodLength)
	}

	if !strings.ContainsAny(password, SpecialCharacters) {
		suggestions = append(suggestions, SuggestionSpecial)
	}

	if length < StrongLength {
		suggestions = append(suggestions, SuggestionStrongLength)
	}

	if pattern, ok := findWeakPattern(password); ok {
		suggestions = append(suggestions, fmt.Sprintf("avoid common patterns like '%s'", pattern))
	}

	return suggestions
}

func findWeakPattern(password string) (string, bool) {
	lower := strings.ToLower(password)
	for _, pattern := range weakPatterns {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// Package password scores candidate passwords and produces advisory hints for
// improving them. Everything here is a pure function and safe for concurrent use.
package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength    = 6  // Mandatory minimum length
	GoodLength   = 8  // Bonus threshold
	StrongLength = 12 // Second bonus threshold

	MaxScore = 100

	// MaxDisplayedSuggestions is how many suggestions callers show to users
	MaxDisplayedSuggestions = 2
)

// SpecialCharacters is the set of symbols that earn the special-character bonus
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

// Violation messages, in the order the rules are checked
const (
	ViolationRequired   = "password is required"
	ViolationMinLength  = "must have at least 6 characters"
	ViolationLowercase  = "must contain a lowercase letter"
	ViolationUppercase  = "must contain an UPPERCASE letter"
	ViolationDigit      = "must contain a number"
	ViolationWhitespace = "must not contain spaces"
)

// Points awarded per rule
const (
	pointsMinLength    = 20
	pointsGoodLength   = 10
	pointsStrongLength = 10
	pointsLowercase    = 15
	pointsUppercase    = 15
	pointsDigit        = 15
	pointsSpecial      = 15
	pointsNoWhitespace = 10
)

// Evaluation is the outcome of scoring a password.
// Valid is true exactly when Violations is empty; Score is computed independently.
type Evaluation struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
	Score      int      `json:"score"`
}

// charClasses records which character classes appear in a password
type charClasses struct {
	lower      bool
	upper      bool
	digit      bool
	special    bool
	whitespace bool
}

// classify treats letters as ASCII and digits as any Unicode decimal digit
func classify(password string) charClasses {
	var c charClasses
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case unicode.IsDigit(r):
			c.digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			c.special = true
		case unicode.IsSpace(r):
			c.whitespace = true
		}
	}
	return c
}

// Evaluate checks a password against the mandatory rules and computes its strength score
func Evaluate(password string) Evaluation {
	if password == "" {
		return Evaluation{
			Valid:      false,
			Violations: []string{ViolationRequired},
			Score:      0,
		}
	}

	violations := make([]string, 0, 5)
	score := 0

	// 1. Length (mandatory, with two bonus tiers)
	length := utf8.RuneCountInString(password)
	if length < MinLength {
		violations = append(violations, ViolationMinLength)
	} else {
		score += pointsMinLength
		if length >= GoodLength {
			score += pointsGoodLength
		}
		if length >= StrongLength {
			score += pointsStrongLength
		}
	}

	classes := classify(password)

	// 2. Character classes (mandatory)
	if !classes.lower {
		violations = append(violations, ViolationLowercase)
	} else {
		score += pointsLowercase
	}

	if !classes.upper {
		violations = append(violations, ViolationUppercase)
	} else {
		score += pointsUppercase
	}

	if !classes.digit {
		violations = append(violations, ViolationDigit)
	} else {
		score += pointsDigit
	}

	// 3. Special characters only add points
	if classes.special {
		score += pointsSpecial
	}

	// 4. No whitespace (mandatory)
	if classes.whitespace {
		violations = append(violations, ViolationWhitespace)
	} else {
		score += pointsNoWhitespace
	}

	return Evaluation{
		Valid:      len(violations) == 0,
		Violations: violations,
		Score:      clampScore(score),
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Level returns a human-readable label for a strength score
func Level(score int) string {
	switch {
	case score < 30:
		return "very weak"
	case score < 50:
		return "weak"
	case score < 70:
		return "medium"
	case score < 90:
		return "strong"
	default:
		return "very strong"
	}
}

// Color returns the CSS colour used to render a strength score
func Color(score int) string {
	switch {
	case score < 30:
		return "red"
	case score < 50:
		return "orange"
	case score < 70:
		return "yellow"
	case score < 90:
		return "lightgreen"
	default:
		return "green"
	}
}

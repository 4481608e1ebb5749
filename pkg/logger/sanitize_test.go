package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "u***@*******.com", SanitizedEmail("user@example.com"))
	assert.Equal(t, "a@***.**.ve", SanitizedEmail("a@gob.co.ve"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
}

func TestSanitizedIdentifier(t *testing.T) {
	assert.Equal(t, "u***@*******.com", SanitizedIdentifier("user@example.com"))
	assert.Equal(t, "*********67", SanitizedIdentifier("04141234567"))
	assert.Equal(t, "**", SanitizedIdentifier("ab"))
	assert.Equal(t, "", SanitizedIdentifier(""))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("email=user@example.com"))
	assert.True(t, SanitizeQueryString("Access_Token=abc"))
	assert.False(t, SanitizeQueryString("page=2&limit=10"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactedAttr("phone", "04141234567", "production").Value.String())
	assert.Equal(t, "04141234567", RedactedAttr("phone", "04141234567", "development").Value.String())
}

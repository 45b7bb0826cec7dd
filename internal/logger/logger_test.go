package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"collection", "exams", "Authorization", "Bearer abc", "jwt_secret", "s3cr3t", "dangling"})
	assert.Equal(t, []interface{}{"collection", "exams", "Authorization", "[REDACTED]", "jwt_secret", "[REDACTED]", "dangling"}, got)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info", "k", 1)
		l.Warn("warn")
		l.Error("error")
	})
}

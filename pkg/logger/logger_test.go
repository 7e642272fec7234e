package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := map[string]string{
		"operador@empresa.com.br": "o*******@*******.com.br",
		"a@b.com":                 "a@*.com",
		"no-at-sign":              "[invalid-email]",
		"@empresa.com":            "[invalid-email]",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizedEmail(in), in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("Email=x"))
	assert.False(t, SanitizeQueryString("days=14"))
	assert.False(t, SanitizeQueryString("start=2024-01-01T00:00:00Z"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactedAttr("k", "v", "production").Value.String())
	assert.Equal(t, "v", RedactedAttr("k", "v", "development").Value.String())
}

func newCapturingAuditLogger() (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	al.now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }
	return al, &buf
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	al, buf := newCapturingAuditLogger()

	al.LogAuthAttempt(AuditEvent{
		EventType:     "login_failed",
		Email:         "operador@empresa.com.br",
		IPAddress:     "10.0.0.1",
		FailureReason: "invalid_credentials",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "auth", record["audit_type"])
	assert.Equal(t, "o*******@*******.com.br", record["email"])
	assert.Equal(t, "2024-03-01T10:30:00Z", record["timestamp"])
	assert.Equal(t, false, record["success"])
}

func TestAuditLogger_LogMachineAction(t *testing.T) {
	al, buf := newCapturingAuditLogger()

	al.LogMachineAction("stop_registered", "u1", 7, map[string]string{"reason": "setup"})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "machine", record["audit_type"])
	assert.Equal(t, float64(7), record["machine_id"])
	assert.Equal(t, "setup", record["reason"])
}

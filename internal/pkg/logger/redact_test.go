package logger

import "testing"

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://ingest:pw@db/analytics", "postgres://ingest:***@db/analytics"},
		{"redis://:hunter2@cache:6379/0", "redis://:hunter2@cache:6379/0"}, // no user part, left as-is
		{"no credentials here", "no credentials here"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RedactDSN(tt.in); got != tt.want {
			t.Errorf("RedactDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactValueSecretKeys(t *testing.T) {
	for _, key := range []string{"db_password", "api_key", "session_token", "client_secret"} {
		if got := redactValue(key, "hunter2"); got != "***" {
			t.Errorf("redactValue(%q) = %q, want ***", key, got)
		}
	}
	if got := redactValue("client_id", "acme"); got != "acme" {
		t.Errorf("non-secret key redacted: %q", got)
	}
}

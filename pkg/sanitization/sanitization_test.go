package sanitization

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestSanitizeLogString(t *testing.T) {
	t.Parallel()

	if got := SanitizeLogString("a\r\nb"); got != "ab" {
		t.Fatalf("expected control characters stripped, got %q", got)
	}
	if got := SanitizeLogString(""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestSanitizeFieldValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		in   any
		want any
	}{
		{"api_key", "abc123", "[REDACTED]"},
		{"X-Api-Key", "abc123", "[REDACTED]"},
		{"value", "abc123", "[REDACTED]"},
		{"aws_secret_access_key", "wJalr", "[REDACTED]"},
		{"customApiKeyHeader", "x", "[REDACTED]"},
		{"session", "ok", "ok"},
		{"api_key_id", "a1b2c3d4e5", "...d4e5"},
		{"key_id", "abc", "[REDACTED]"},
		{"key_id", 42, "[REDACTED]"},
		{"status", 200, 200},
		{"ok", true, true},
		{"path", "/crews\n", "/crews"},
		{"", "x\ny", "xy"},
		{"err", errors.New("bad\r\nthing"), "badthing"},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		if got := SanitizeFieldValue(tt.key, tt.in); got != tt.want {
			t.Fatalf("SanitizeFieldValue(%q, %#v)=%#v, want %#v", tt.key, tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFieldValue_NestedMaps(t *testing.T) {
	t.Parallel()

	out, ok := SanitizeFieldValue("request", map[string]any{
		"x-api-key": "secret",
		"path":      "/crews",
	}).(map[string]any)
	if !ok {
		t.Fatal("expected map result")
	}
	if out["x-api-key"] != "[REDACTED]" || out["path"] != "/crews" {
		t.Fatalf("unexpected nested sanitization: %#v", out)
	}

	headers, ok := SanitizeFieldValue("headers", map[string]string{"authorization": "Bearer x"}).(map[string]any)
	if !ok || headers["authorization"] != "[REDACTED]" {
		t.Fatalf("unexpected header map sanitization: %#v", headers)
	}
}

func TestSanitizeHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("x-api-key", "abcd")
	h.Set("Accept", "application/json")
	h.Add("X-Request-Id", "01J\nX")

	got := SanitizeHeaders(h)
	if got["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("expected api key header redacted, got %q", got["X-Api-Key"])
	}
	if got["Accept"] != "application/json" || got["X-Request-Id"] != "01JX" {
		t.Fatalf("unexpected headers: %#v", got)
	}
}

func TestMaskFirstLast(t *testing.T) {
	t.Parallel()

	if got := MaskFirstLast("", 2, 2); got != "(empty)" {
		t.Fatalf("expected empty marker, got %q", got)
	}
	if got := MaskFirstLast("abcdef", 3, 3); got != "***masked***" {
		t.Fatalf("expected masked marker, got %q", got)
	}
	if got := MaskFirstLast("abcdef", -1, 2); got != "***masked***" {
		t.Fatalf("expected masked marker for negative lengths, got %q", got)
	}
	if got := MaskFirstLast("abcdef", 2, 2); got != "ab***ef" {
		t.Fatalf("expected first/last preserved, got %q", got)
	}
}

func TestSanitizeJSON(t *testing.T) {
	t.Parallel()

	if got := SanitizeJSON(nil); got != "(empty)" {
		t.Fatalf("expected empty marker, got %q", got)
	}
	if got := SanitizeJSON([]byte("{")); got[:15] != "(malformed JSON" {
		t.Fatalf("expected malformed marker, got %q", got)
	}

	out := SanitizeJSON([]byte(`{"message":"hi","items":[{"value":"k"}],"meta":{"secret_token":"t"}}`))
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %q: %v", out, err)
	}
	if decoded["message"] != "hi" {
		t.Fatalf("unexpected message: %#v", decoded["message"])
	}
	items := decoded["items"].([]any)
	if items[0].(map[string]any)["value"] != "[REDACTED]" {
		t.Fatalf("expected nested value redacted: %#v", items)
	}
	if decoded["meta"].(map[string]any)["secret_token"] != "[REDACTED]" {
		t.Fatalf("expected nested secret redacted: %#v", decoded["meta"])
	}
}

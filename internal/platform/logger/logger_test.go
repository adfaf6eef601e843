package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"email", "someone@example.com",
		"refresh_token", "abc",
		"lesson_id", "L1",
	})
	if len(out) != 6 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("email not redacted: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("refresh_token not redacted: %v", out[3])
	}
	if out[5] != "L1" {
		t.Fatalf("lesson_id should pass through, got %v", out[5])
	}
}

func TestSanitizeKVsHashesUserIDs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "8d1e"})
	got, ok := out[1].(string)
	if !ok || !strings.HasPrefix(got, "hash:") {
		t.Fatalf("user_id not hashed: %v", out[1])
	}
	again := sanitizeKVs([]interface{}{"user_id", "8d1e"})
	if again[1] != got {
		t.Fatalf("hash not stable: %v vs %v", again[1], got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected: %v", out)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig") {
		t.Fatalf("expected jwt detection")
	}
	if looksLikeJWT("a.b.c") {
		t.Fatalf("short dotted string is not a jwt")
	}
}

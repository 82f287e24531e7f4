package auth

import (
	"strings"
	"testing"
)

func TestGenerateResetToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken failed: %v", err)
	}

	if !strings.HasPrefix(tok.Plaintext, "prt_") {
		t.Errorf("token should carry prt_ prefix, got: %s", tok.Plaintext)
	}
	if err := ParseResetToken(tok.Plaintext); err != nil {
		t.Errorf("generated token should parse, got: %v", err)
	}

	match, err := VerifyPassword(tok.Plaintext, tok.Hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !match {
		t.Error("stored hash should verify the plaintext token")
	}
}

func TestGenerateResetToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken failed: %v", err)
	}
	b, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken failed: %v", err)
	}
	if a.Plaintext == b.Plaintext {
		t.Error("tokens must be unique")
	}
}

func TestParseResetToken_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "prt_", "prt_zzzz", "xrt_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"} {
		if err := ParseResetToken(raw); err != ErrInvalidResetToken {
			t.Errorf("ParseResetToken(%q) = %v, want ErrInvalidResetToken", raw, err)
		}
	}
}

package auth

import (
	"strings"
	"testing"
)

func TestTokenGenerator_GenerateToken(t *testing.T) {
	tg := NewTokenGenerator()

	token, tokenHash, tokenPrefix, err := tg.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("token %q does not start with %q", token, TokenPrefix)
	}
	if len(tokenHash) != 64 {
		t.Errorf("token hash length = %d, want 64 hex chars", len(tokenHash))
	}
	if !strings.HasPrefix(tokenPrefix, TokenPrefix) {
		t.Errorf("prefix %q does not start with %q", tokenPrefix, TokenPrefix)
	}
	if len(tokenPrefix) != len(TokenPrefix)+8 {
		t.Errorf("prefix length = %d, want %d", len(tokenPrefix), len(TokenPrefix)+8)
	}
	if tg.HashToken(token) != tokenHash {
		t.Error("HashToken(token) does not match returned hash")
	}
}

func TestTokenGenerator_GenerateToken_Uniqueness(t *testing.T) {
	tg := NewTokenGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _, _, err := tg.GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestTokenGenerator_HashToken(t *testing.T) {
	tg := NewTokenGenerator()
	token := "arbor_test123456789"

	hash1 := tg.HashToken(token)
	hash2 := tg.HashToken(token)
	if hash1 != hash2 {
		t.Error("HashToken is not deterministic")
	}

	hash3 := tg.HashToken("arbor_different")
	if hash1 == hash3 {
		t.Error("different tokens produced the same hash")
	}
}

func TestTokenGenerator_ValidateTokenFormat(t *testing.T) {
	tg := NewTokenGenerator()

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:    "valid token",
			token:   "arbor_abc123def456",
			wantErr: false,
		},
		{
			name:    "missing prefix",
			token:   "abc123def456",
			wantErr: true,
		},
		{
			name:    "empty after prefix",
			token:   "arbor_",
			wantErr: true,
		},
		{
			name:    "invalid base64url",
			token:   "arbor_!!!invalid!!!",
			wantErr: true,
		},
		{
			name:    "empty string",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tg.ValidateTokenFormat(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenFormat(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestTokenGenerator_ExtractPrefix(t *testing.T) {
	tg := NewTokenGenerator()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "long token",
			token: "arbor_abc123def456",
			want:  "arbor_abc123de",
		},
		{
			name:  "short token",
			token: "arbor_abc",
			want:  "arbor_abc",
		},
		{
			name:  "wrong prefix",
			token: "other_abc123def456",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tg.ExtractPrefix(tt.token); got != tt.want {
				t.Errorf("ExtractPrefix(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

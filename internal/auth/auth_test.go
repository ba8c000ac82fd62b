package auth

import (
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(secret, 42, "bouncer", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.PlayerID != 42 || claims.Username != "bouncer" {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := IssueToken(secret, 42, "bouncer", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ValidateToken(secret, token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := IssueToken(secret, 42, "bouncer", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ValidateToken([]byte("other-secret"), token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	if _, err := ValidateToken(secret, "not.a.token"); err == nil {
		t.Fatal("garbage must be rejected")
	}
	if _, err := ValidateToken(secret, ""); err == nil {
		t.Fatal("empty token must be rejected")
	}
}

func TestMissingPlayerIDRejected(t *testing.T) {
	token, err := IssueToken(secret, 0, "ghost", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ValidateToken(secret, token); err == nil {
		t.Fatal("token without a player id must be rejected")
	}
}

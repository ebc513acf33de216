package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewOwnerTokens("secret", time.Hour)

	token, id, err := tokens.Issue("ABC555")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := tokens.Verify(token, "ABC555")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != id {
		t.Fatalf("expected token id %s, got %s", id, got)
	}
}

func TestVerifyRejectsOtherRoom(t *testing.T) {
	tokens := NewOwnerTokens("secret", time.Hour)
	token, _, _ := tokens.Issue("ABC555")

	if _, err := tokens.Verify(token, "XYZ999"); err != ErrInvalidToken {
		t.Fatalf("expected invalid token for other room, got %v", err)
	}
}

func TestVerifyRejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := NewOwnerTokens("secret", time.Minute)
	token, _, _ := issuer.Issue("ABC555")

	if _, err := NewOwnerTokens("other", time.Minute).Verify(token, "ABC555"); err != ErrInvalidToken {
		t.Fatalf("expected foreign secret rejected, got %v", err)
	}

	later := NewOwnerTokens("secret", time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := later.Verify(token, "ABC555"); err != ErrInvalidToken {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	if _, err := issuer.Verify("", "ABC555"); err != ErrInvalidToken {
		t.Fatalf("expected empty token rejected, got %v", err)
	}
}

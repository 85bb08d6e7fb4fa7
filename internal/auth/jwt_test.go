package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

var alice = Identity{UserID: 7, Username: "alice", Email: "alice@example.com"}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_EmptySecret(t *testing.T) {
	if _, err := NewTokenService(""); err == nil {
		t.Fatal("NewTokenService() must refuse an empty secret")
	}
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(alice)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Issue() token doesn't look like a JWT: %q", token)
	}
}

func TestIssue_ExpiresAfter24Hours(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(alice)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Parse without verification to look at the raw claims.
	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}

	lifetime := c.ExpiresAt.Sub(c.IssuedAt.Time)
	if lifetime != TokenLifetime {
		t.Errorf("token lifetime = %v, want %v", lifetime, TokenLifetime)
	}
	if c.Subject != "7" {
		t.Errorf("sub = %q, want %q", c.Subject, "7")
	}
	if c.ID == "" {
		t.Error("jti should be set")
	}
}

func TestIssue_TokensAreUnique(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Issue(alice)
	token2, _ := ts.Issue(alice)

	if token1 == token2 {
		t.Error("Issue() returned identical tokens; jti should differ")
	}
}

// =========================================================================
// VERIFY TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(alice)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if *got != alice {
		t.Errorf("Verify() identity = %+v, want %+v", *got, alice)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// A token that expired one minute ago (beyond any leeway).
	token, err := ts.IssueWithDuration(alice, -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("an expired token must not also be reported as invalid")
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(alice)

	// Replace the signature segment entirely.
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".c2lnbmF0dXJl"

	_, err := ts.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.Issue(alice)

	_, err := ts2.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_ExpiredAndWrongSecretIsInvalid(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.IssueWithDuration(alice, -time.Hour)

	// The signature is checked, so a forged expired token is not "expired".
	_, err := ts2.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	ts := newTestTokenService(t)

	c := claims{
		Identity: alice,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}

	if _, err := ts.Verify(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsMissingUserID(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(Identity{Username: "ghost"})

	if _, err := ts.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_GarbageInput(t *testing.T) {
	ts := newTestTokenService(t)

	for _, in := range []string{"", "not.a.jwt.token", "abc"} {
		if _, err := ts.Verify(in); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", in, err)
		}
	}
}

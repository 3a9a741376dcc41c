package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", time.Hour)

	tok, err := m.Issue("user-123", "alice", user.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	if claims.UserID != "user-123" || claims.Username != "alice" || claims.Role != user.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt

	m := NewManager("secret", time.Hour, WithClock(func() time.Time { return clock }))

	tok, err := m.Issue("u1", "bob", user.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock = issuedAt.Add(59 * time.Minute)
	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("expected token valid before expiry, got %v", err)
	}

	clock = issuedAt.Add(time.Hour)
	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}

	clock = issuedAt.Add(2 * time.Hour)
	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after expiry, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewManager("right-secret", time.Hour).Issue("u2", "carol", user.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewManager("wrong-secret", time.Hour).Verify(tok)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_RejectsMalformedAndForeignTokens(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u3",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u4"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token without exp: %v", err)
	}

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token without user: %v", err)
	}

	for name, tok := range map[string]string{
		"garbage":    "not.a.jwt",
		"empty":      "",
		"alg none":   noneToken,
		"no expiry":  noExpiry,
		"no user id": noUser,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	t.Parallel()

	if got := NewManager("s", 0).TTL(); got != DefaultTTL {
		t.Fatalf("TTL = %v, want %v", got, DefaultTTL)
	}
}

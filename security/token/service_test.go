package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/errors"
)

func testJWTSettings() config.JWTSettings {
	return config.JWTSettings{
		Secret:     "test-secret",
		Algorithm:  "HS256",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Audience:   "fastcore-test",
		Issuer:     "fastcore",
	}
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(testJWTSettings(), store, nil), store
}

func TestIssueAndValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	claims, err := svc.Validate(ctx, access, Access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Kind != Access {
		t.Fatalf("expected access kind, got %s", claims.Kind)
	}
	if claims.ID == "" {
		t.Fatal("expected a token identifier")
	}
}

func TestCreatePair(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreatePair(ctx, "user-1")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("expected bearer, got %s", pair.TokenType)
	}
	if pair.AccessExpiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected access expiry: %d", pair.AccessExpiresIn)
	}
	if _, err := svc.Validate(ctx, pair.AccessToken, Access); err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if _, err := svc.Validate(ctx, pair.RefreshToken, Refresh); err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
}

func TestEmptySubjectRejected(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateAccessToken(context.Background(), ""); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestWrongKindRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	refresh, err := svc.CreateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Validate(ctx, refresh, Access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN for kind mismatch, got %v", err)
	}
}

func TestRevokedTokenFailsEvenWithValidSignature(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Revoke(ctx, access); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Validate(ctx, access, Access); !errors.IsCode(err, errors.CodeRevokedToken) {
		t.Fatalf("expected REVOKED_TOKEN, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Revoke(ctx, access); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := svc.Revoke(ctx, access); err != nil {
		t.Fatalf("second revoke should succeed: %v", err)
	}
}

func TestExpiredTokenFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issued := time.Now()
	svc.SetClock(func() time.Time { return issued })

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.SetClock(func() time.Time { return issued.Add(31 * time.Minute) })
	if _, err := svc.Validate(ctx, access, Access); !errors.IsCode(err, errors.CodeExpiredToken) {
		t.Fatalf("expected EXPIRED_TOKEN, got %v", err)
	}
}

func TestExpiredTokenStillRevocable(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	issued := time.Now()
	svc.SetClock(func() time.Time { return issued })

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	claims, err := svc.Validate(ctx, access, Access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	svc.SetClock(func() time.Time { return issued.Add(31 * time.Minute) })
	if err := svc.Revoke(ctx, access); err != nil {
		t.Fatalf("revoking an expired token: %v", err)
	}
	rec, err := store.GetByID(ctx, claims.ID)
	if err != nil || rec == nil {
		t.Fatalf("record lookup: rec=%v err=%v", rec, err)
	}
	if !rec.Revoked {
		t.Fatal("record should be revoked")
	}
}

func TestUnknownRecordFailsAsInvalid(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Validate(ctx, access, Access); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// Simulate losing the record entirely (cleanup, store reset).
	if _, err := store.DeleteExpiredBefore(ctx, time.Now().Add(365*24*time.Hour)); err != nil {
		t.Fatalf("clear store: %v", err)
	}

	if _, err := svc.Validate(ctx, access, Access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN without a record, got %v", err)
	}
	if err := svc.Revoke(ctx, access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN revoking without a record, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	parts := strings.Split(access, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", access)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	if _, err := svc.Validate(ctx, tampered, Access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN for bad signature, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := testJWTSettings()
	other.Secret = "a-different-secret"
	stranger := NewService(other, store, nil)

	if _, err := stranger.Validate(ctx, access, Access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN across secrets, got %v", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreatePair(ctx, "user-1")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	access, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.Validate(ctx, access, Access)
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected same subject, got %s", claims.Subject)
	}

	// The original refresh token stays valid; rotation is the caller's call.
	if _, err := svc.Validate(ctx, pair.RefreshToken, Refresh); err != nil {
		t.Fatalf("refresh token should survive: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.CreateAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Refresh(ctx, access); !errors.IsCode(err, errors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN refreshing with an access token, got %v", err)
	}
}

func TestRevokeAllForSubject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreatePair(ctx, "user-1")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	otherAccess, err := svc.CreateAccessToken(ctx, "user-2")
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	n, err := svc.RevokeAllForSubject(ctx, "user-1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}

	if _, err := svc.Validate(ctx, pair.AccessToken, Access); !errors.IsCode(err, errors.CodeRevokedToken) {
		t.Fatalf("access should be revoked, got %v", err)
	}
	if _, err := svc.Validate(ctx, pair.RefreshToken, Refresh); !errors.IsCode(err, errors.CodeRevokedToken) {
		t.Fatalf("refresh should be revoked, got %v", err)
	}
	if _, err := svc.Validate(ctx, otherAccess, Access); err != nil {
		t.Fatalf("other subject must be untouched: %v", err)
	}
}

func TestAnyKindAccepted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	refresh, err := svc.CreateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Validate(ctx, refresh, ""); err != nil {
		t.Fatalf("empty kind should accept any token: %v", err)
	}
}

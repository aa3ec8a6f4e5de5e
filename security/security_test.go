package security

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/security/token"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not be the plaintext")
	}
	if !VerifyPassword("s3cret", hash) {
		t.Fatal("correct password should verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password should differ")
	}
}

type stubAuthenticator struct {
	subjects map[string]string // username -> password hash
}

func (a *stubAuthenticator) Authenticate(_ context.Context, creds Credentials) (Subject, error) {
	hash, ok := a.subjects[creds.Username]
	if !ok || !VerifyPassword(creds.Password, hash) {
		return Subject{}, errors.InvalidCredentials()
	}
	return Subject{ID: creds.Username}, nil
}

func (a *stubAuthenticator) LoadSubject(_ context.Context, id string) (Subject, error) {
	if _, ok := a.subjects[id]; !ok {
		return Subject{}, errors.NotFoundResource("subject", id)
	}
	return Subject{ID: id}, nil
}

type brokenAuthenticator struct{}

func (brokenAuthenticator) Authenticate(context.Context, Credentials) (Subject, error) {
	return Subject{}, fmt.Errorf("directory unreachable")
}

func (brokenAuthenticator) LoadSubject(context.Context, string) (Subject, error) {
	return Subject{}, fmt.Errorf("directory unreachable")
}

func testTokenService(t *testing.T) *token.Service {
	t.Helper()
	cfg := config.JWTSettings{
		Secret:     "test-secret",
		Algorithm:  "HS256",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	return token.NewService(cfg, token.NewMemoryStore(), nil)
}

func TestLoginIssuesPair(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := &stubAuthenticator{subjects: map[string]string{"alice": hash}}
	tokens := testTokenService(t)

	pair, err := Login(ctx, auth, tokens, Credentials{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.Validate(ctx, pair.AccessToken, token.Access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice, got %s", claims.Subject)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := &stubAuthenticator{subjects: map[string]string{"alice": hash}}
	tokens := testTokenService(t)

	_, err = Login(ctx, auth, tokens, Credentials{Username: "alice", Password: "wrong"})
	if !errors.IsCode(err, errors.CodeInvalidCredentials) {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
	_, err = Login(ctx, auth, tokens, Credentials{Username: "nobody", Password: "s3cret"})
	if !errors.IsCode(err, errors.CodeInvalidCredentials) {
		t.Fatalf("expected INVALID_CREDENTIALS for unknown user, got %v", err)
	}
}

func TestLoginHidesAuthenticatorInternals(t *testing.T) {
	ctx := context.Background()
	tokens := testTokenService(t)

	_, err := Login(ctx, brokenAuthenticator{}, tokens, Credentials{Username: "alice", Password: "s3cret"})
	if !errors.IsCode(err, errors.CodeInvalidCredentials) {
		t.Fatalf("internal failures must surface as INVALID_CREDENTIALS, got %v", err)
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		code   Code
		status int
	}{
		{Validation(""), CodeValidation, http.StatusBadRequest},
		{BadRequest(""), CodeBadRequest, http.StatusBadRequest},
		{Unauthorized(""), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden(""), CodeForbidden, http.StatusForbidden},
		{NotFound(""), CodeNotFound, http.StatusNotFound},
		{Conflict(""), CodeConflict, http.StatusConflict},
		{RateLimited(10, "1m"), CodeRateLimited, http.StatusTooManyRequests},
		{InvalidToken(nil), CodeInvalidToken, http.StatusUnauthorized},
		{ExpiredToken(), CodeExpiredToken, http.StatusUnauthorized},
		{RevokedToken(), CodeRevokedToken, http.StatusUnauthorized},
		{InvalidCredentials(), CodeInvalidCredentials, http.StatusUnauthorized},
		{Database(nil), CodeDatabase, http.StatusInternalServerError},
		{Internal("", nil), CodeInternal, http.StatusInternalServerError},
	}

	for _, c := range cases {
		if c.err.Code != c.code {
			t.Errorf("expected code %s, got %s", c.code, c.err.Code)
		}
		if c.err.HTTPStatus != c.status {
			t.Errorf("%s: expected status %d, got %d", c.code, c.status, c.err.HTTPStatus)
		}
		if c.err.Message == "" {
			t.Errorf("%s: empty default message", c.code)
		}
	}
}

func TestFromWrappedError(t *testing.T) {
	inner := NotFound("user not found")
	wrapped := fmt.Errorf("lookup failed: %w", inner)

	e := From(wrapped)
	if e.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND through wrap chain, got %s", e.Code)
	}
}

func TestFromForeignError(t *testing.T) {
	e := From(stderrors.New("boom"))
	if e.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR, got %s", e.Code)
	}
	if e.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", e.HTTPStatus)
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", RevokedToken())
	if !stderrors.Is(err, RevokedToken()) {
		t.Fatal("expected Is to match on code")
	}
	if stderrors.Is(err, ExpiredToken()) {
		t.Fatal("expected Is not to match a different code")
	}
	if !IsCode(err, CodeRevokedToken) {
		t.Fatal("expected IsCode match")
	}
}

func TestWithDetailsAndField(t *testing.T) {
	e := Validation("bad email").WithField("email").WithDetails("got", "nope")
	if e.Field != "email" {
		t.Fatalf("expected field email, got %q", e.Field)
	}
	if e.Details["got"] != "nope" {
		t.Fatalf("unexpected details: %v", e.Details)
	}
}

func TestNotFoundResource(t *testing.T) {
	e := NotFoundResource("User", 42)
	if e.Message != "User with id '42' not found" {
		t.Fatalf("unexpected message: %q", e.Message)
	}
	if e.Details["resource_type"] != "User" {
		t.Fatalf("unexpected details: %v", e.Details)
	}
}

// Package errors defines the fastcore error taxonomy and its HTTP mapping.
//
// Every error surfaced to a client is an *Error carrying a stable machine
// code, a human-readable message and the HTTP status it translates to. The
// HTTP boundary (httputil.WriteError) is the single point where these are
// rewritten into the wire envelope.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error kind on the wire.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeExpiredToken       Code = "EXPIRED_TOKEN"
	CodeRevokedToken       Code = "REVOKED_TOKEN"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeDatabase           Code = "DB_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is the taxonomy member type.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Field      string
	Details    map[string]interface{}
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the error code so callers can use errors.Is with sentinel
// constructors, e.g. errors.Is(err, errors.NotFound("")).
func (e *Error) Is(target error) bool {
	var te *Error
	if stderrors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// WithField marks the error as caused by a specific input field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func newError(code Code, status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

// Validation reports invalid input (400).
func Validation(message string) *Error {
	return newError(CodeValidation, http.StatusBadRequest, message, "Validation error")
}

// BadRequest reports a malformed request (400).
func BadRequest(message string) *Error {
	return newError(CodeBadRequest, http.StatusBadRequest, message, "Bad request")
}

// Unauthorized reports missing or failed authentication (401).
func Unauthorized(message string) *Error {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, "Authentication required")
}

// Forbidden reports insufficient permission (403).
func Forbidden(message string) *Error {
	return newError(CodeForbidden, http.StatusForbidden, message, "Permission denied")
}

// NotFound reports a missing resource (404).
func NotFound(message string) *Error {
	return newError(CodeNotFound, http.StatusNotFound, message, "Resource not found")
}

// NotFoundResource builds a 404 for a typed resource lookup.
func NotFoundResource(resourceType string, id interface{}) *Error {
	e := NotFound(fmt.Sprintf("%s with id '%v' not found", resourceType, id))
	e.WithDetails("resource_type", resourceType)
	e.WithDetails("resource_id", id)
	return e
}

// Conflict reports a resource conflict such as a duplicate entry (409).
func Conflict(message string) *Error {
	return newError(CodeConflict, http.StatusConflict, message, "Resource conflict")
}

// RateLimited reports that the request rate threshold was exceeded (429).
func RateLimited(limit int, window string) *Error {
	e := newError(CodeRateLimited, http.StatusTooManyRequests, "", "Rate limit exceeded")
	e.WithDetails("limit", limit)
	e.WithDetails("window", window)
	return e
}

// InvalidToken reports a malformed or signature-invalid token (401).
func InvalidToken(err error) *Error {
	e := newError(CodeInvalidToken, http.StatusUnauthorized, "", "Invalid token")
	e.Err = err
	return e
}

// ExpiredToken reports a token past its expiry (401).
func ExpiredToken() *Error {
	return newError(CodeExpiredToken, http.StatusUnauthorized, "", "Token has expired")
}

// RevokedToken reports use of an explicitly revoked token (401).
func RevokedToken() *Error {
	return newError(CodeRevokedToken, http.StatusUnauthorized, "", "Token has been revoked")
}

// InvalidCredentials reports a credential mismatch at login (401).
func InvalidCredentials() *Error {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, "", "Invalid credentials")
}

// Database wraps a data-access failure (500).
func Database(err error) *Error {
	e := newError(CodeDatabase, http.StatusInternalServerError, "", "Database error")
	e.Err = err
	return e
}

// Internal wraps an unexpected failure (500).
func Internal(message string, err error) *Error {
	e := newError(CodeInternal, http.StatusInternalServerError, message, "An unexpected error occurred")
	e.Err = err
	return e
}

// From extracts the taxonomy member from err, walking the wrap chain. Errors
// outside the taxonomy are wrapped as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Internal("", err)
}

// IsCode reports whether err maps to the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

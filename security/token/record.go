// Package token implements stateful JWT issuance and validation: every
// issued token has a persisted record, and validity depends on the record's
// revoked flag in addition to signature and expiry checks.
package token

import (
	"context"
	"time"
)

// Kind distinguishes access from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// Record is the persisted state of one issued token.
//
// Lifecycle: created on issue, revoked flag set on logout or explicit
// revocation, never deleted by the core (cleanup is external housekeeping).
type Record struct {
	ID        string    `db:"id" json:"id"`
	Subject   string    `db:"subject" json:"subject"`
	Kind      Kind      `db:"kind" json:"kind"`
	IssuedAt  time.Time `db:"issued_at" json:"issued_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Revoked   bool      `db:"revoked" json:"revoked"`
	Audience  string    `db:"audience" json:"audience,omitempty"`
	Issuer    string    `db:"issuer" json:"issuer,omitempty"`
}

// Expired reports whether the record's expiry has passed.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists token records.
type Store interface {
	// Create inserts a new record.
	Create(ctx context.Context, rec Record) error
	// GetByID returns the record, or nil when no record exists.
	GetByID(ctx context.Context, id string) (*Record, error)
	// Revoke sets the revoked flag. Revoking an already-revoked or absent
	// record is not an error.
	Revoke(ctx context.Context, id string) error
	// RevokeAllForSubject revokes every non-revoked record of a subject,
	// optionally sparing excludeID. Returns the number revoked.
	RevokeAllForSubject(ctx context.Context, subject, excludeID string) (int64, error)
	// DeleteExpiredBefore removes records expired before cutoff. Hook for
	// external housekeeping; the core never calls it.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

package token

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/fastcore-dev/fastcore/db"
	"github.com/fastcore-dev/fastcore/errors"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS fastcore_tokens (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE,
	audience   TEXT NOT NULL DEFAULT '',
	issuer     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS fastcore_tokens_subject_idx ON fastcore_tokens (subject);
`

// SQLStore persists token records in a relational table. It never commits;
// run it against the pool or a request-owned transaction.
type SQLStore struct {
	q db.Querier
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore builds a token store over q.
func NewSQLStore(q db.Querier) *SQLStore {
	return &SQLStore{q: q}
}

// EnsureSchema creates the token table when absent.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, schemaDDL); err != nil {
		return errors.Database(err)
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, rec Record) error {
	_, err := s.q.NamedExecContext(ctx, `
		INSERT INTO fastcore_tokens (id, subject, kind, issued_at, expires_at, revoked, audience, issuer)
		VALUES (:id, :subject, :kind, :issued_at, :expires_at, :revoked, :audience, :issuer)
	`, rec)
	if err != nil {
		return errors.Database(err)
	}
	return nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.q.GetContext(ctx, &rec, `
		SELECT id, subject, kind, issued_at, expires_at, revoked, audience, issuer
		FROM fastcore_tokens WHERE id = $1
	`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Database(err)
	}
	return &rec, nil
}

func (s *SQLStore) Revoke(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE fastcore_tokens SET revoked = TRUE WHERE id = $1 AND revoked = FALSE
	`, id)
	if err != nil {
		return errors.Database(err)
	}
	return nil
}

func (s *SQLStore) RevokeAllForSubject(ctx context.Context, subject, excludeID string) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE fastcore_tokens SET revoked = TRUE
		WHERE subject = $1 AND revoked = FALSE AND id <> $2
	`, subject, excludeID)
	if err != nil {
		return 0, errors.Database(err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *SQLStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM fastcore_tokens WHERE expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, errors.Database(err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

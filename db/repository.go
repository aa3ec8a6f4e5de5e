package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fastcore-dev/fastcore/errors"
)

// Identifiable lets the repository assign generated identifiers on create.
type Identifiable interface {
	GetID() string
	SetID(id string)
}

// Page describes an optional pagination request. Zero values mean "all rows".
type Page struct {
	Number int
	Size   int
}

// Repository implements create/read/update/delete/list for one entity table.
// Rows are scanned through sqlx struct tags (`db:"..."`). The repository
// never commits: run it against the pool for auto-commit semantics or
// against a transaction managed by WithTx.
type Repository[T any] struct {
	q          Querier
	table      string
	entity     string
	idColumn   string
	orderBy    string
	insertCols []string
}

// RepositoryConfig declares the table shape a Repository operates on.
type RepositoryConfig struct {
	// Table is the relation name.
	Table string
	// Entity names the type in not-found messages; defaults to Table.
	Entity string
	// IDColumn defaults to "id".
	IDColumn string
	// OrderBy defaults to IDColumn.
	OrderBy string
	// InsertColumns are the columns written on create, bound by name from
	// the entity's db tags.
	InsertColumns []string
}

// NewRepository builds a repository over q for the configured table.
func NewRepository[T any](q Querier, cfg RepositoryConfig) *Repository[T] {
	if cfg.Entity == "" {
		cfg.Entity = cfg.Table
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = cfg.IDColumn
	}
	return &Repository[T]{
		q:          q,
		table:      cfg.Table,
		entity:     cfg.Entity,
		idColumn:   cfg.IDColumn,
		orderBy:    cfg.OrderBy,
		insertCols: cfg.InsertColumns,
	}
}

// WithQuerier rebinds the repository to another querier, typically a
// transaction started by the request lifecycle.
func (r *Repository[T]) WithQuerier(q Querier) *Repository[T] {
	clone := *r
	clone.q = q
	return &clone
}

// Get fetches one entity by identifier.
func (r *Repository[T]) Get(ctx context.Context, id interface{}) (T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", r.table, r.idColumn)
	if err := r.q.GetContext(ctx, &entity, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return entity, errors.NotFoundResource(r.entity, id)
		}
		return entity, errors.Database(err)
	}
	return entity, nil
}

// List returns a page of entities plus the total row count.
func (r *Repository[T]) List(ctx context.Context, page Page) ([]T, int, error) {
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if err := r.q.QueryRowxContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, errors.Database(err)
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", r.table, r.orderBy)
	args := []interface{}{}
	if page.Size > 0 {
		offset := 0
		if page.Number > 1 {
			offset = (page.Number - 1) * page.Size
		}
		query += " LIMIT $1 OFFSET $2"
		args = append(args, page.Size, offset)
	}

	entities := []T{}
	if err := r.q.SelectContext(ctx, &entities, query, args...); err != nil {
		return nil, 0, errors.Database(err)
	}
	return entities, total, nil
}

// Create persists a new entity. When the entity is Identifiable and carries
// no identifier yet, one is generated before the insert. Requires
// InsertColumns to have been configured.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	if len(r.insertCols) == 0 {
		var zero T
		return zero, errors.Internal(fmt.Sprintf("repository %s has no insert columns configured", r.table), nil)
	}
	if ident, ok := any(&entity).(Identifiable); ok && ident.GetID() == "" {
		ident.SetID(uuid.NewString())
	}

	placeholders := make([]string, len(r.insertCols))
	for i, col := range r.insertCols {
		placeholders[i] = ":" + col
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.table,
		strings.Join(r.insertCols, ", "),
		strings.Join(placeholders, ", "),
	)
	if _, err := r.q.NamedExecContext(ctx, query, entity); err != nil {
		return entity, errors.Database(err)
	}
	return entity, nil
}

// Update applies partial field changes by column name and returns the
// updated entity. Missing identifiers fail with not-found.
func (r *Repository[T]) Update(ctx context.Context, id interface{}, changes map[string]interface{}) (T, error) {
	var entity T
	if len(changes) == 0 {
		return r.Get(ctx, id)
	}

	// Deterministic column order keeps queries stable for tests and logs.
	cols := make([]string, 0, len(changes))
	for col := range changes {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, changes[col])
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		r.table,
		strings.Join(assignments, ", "),
		r.idColumn,
		len(cols)+1,
	)
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return entity, errors.Database(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return entity, errors.NotFoundResource(r.entity, id)
	}
	return r.Get(ctx, id)
}

// Delete removes an entity by identifier, failing with not-found when the
// identifier is absent.
func (r *Repository[T]) Delete(ctx context.Context, id interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table, r.idColumn)
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Database(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFoundResource(r.entity, id)
	}
	return nil
}

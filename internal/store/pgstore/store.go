package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending/internal/apperr"
)

const (
	dialectPostgres     = "postgres"
	codeUniqueViolation = "23505"
)

var dialect = goqu.Dialect(dialectPostgres)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func build(b sqlBuilder, op string) (string, []any, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return "", nil, apperr.Store(err, "build "+op+" query")
	}
	return query, args, nil
}

func parseID(id, what string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Validation("Invalid " + what + " id")
	}
	return u.String(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// inTx runs fn in a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Store(err, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Store(err, "commit transaction")
	}
	return nil
}

func exists(ctx context.Context, q querier, table, id string) (bool, error) {
	query, args, err := build(dialect.From(table).Select(goqu.COUNT("*")).Where(goqu.Ex{"id": id}).Prepared(true), "count")
	if err != nil {
		return false, err
	}
	var n int64
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, apperr.Store(err, "count "+table)
	}
	return n > 0, nil
}

// Package pgstore persists books, users and borrowals in PostgreSQL through
// a pgx pool, building SQL with goqu.
package pgstore

import (
	"context"

	"library-lending/internal/apperr"
)

const (
	tableBorrowals = "borrowals"
	tableBooks     = "books"
	tableUsers     = "users"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            uuid PRIMARY KEY,
		name          text NOT NULL,
		email         text NOT NULL UNIQUE,
		is_admin      boolean NOT NULL DEFAULT false,
		password_hash text NOT NULL DEFAULT '',
		created_at    timestamptz NOT NULL,
		updated_at    timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id           uuid PRIMARY KEY,
		name         text NOT NULL,
		isbn         text NOT NULL DEFAULT '',
		author_id    text NOT NULL DEFAULT '',
		genre_id     text NOT NULL DEFAULT '',
		category     text NOT NULL,
		is_available boolean NOT NULL DEFAULT true,
		summary      text NOT NULL DEFAULT '',
		photo_url    text NOT NULL DEFAULT '',
		issued_to    uuid NULL,
		issued_at    timestamptz NULL,
		created_at   timestamptz NOT NULL,
		updated_at   timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS borrowals (
		id             uuid PRIMARY KEY,
		book_id        uuid NOT NULL,
		member_id      uuid NOT NULL,
		borrowed_date  timestamptz NOT NULL,
		due_date       timestamptz NOT NULL,
		status         text NOT NULL,
		fine_amount    double precision NOT NULL DEFAULT 0,
		fine_paid      boolean NOT NULL DEFAULT false,
		payment_mode   text NOT NULL DEFAULT 'OFFLINE',
		receipt_number text NULL,
		paid_at        timestamptz NULL,
		amount_paid    double precision NOT NULL DEFAULT 0,
		returned_at    timestamptz NULL,
		created_at     timestamptz NOT NULL,
		updated_at     timestamptz NOT NULL,
		CHECK (due_date >= borrowed_date)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS borrowals_one_active_per_book
		ON borrowals (book_id) WHERE status = 'Issued'`,
	`CREATE INDEX IF NOT EXISTS borrowals_member_id ON borrowals (member_id)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperr.Store(err, "migrate schema")
		}
	}
	return nil
}

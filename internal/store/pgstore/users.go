package pgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"library-lending/internal/apperr"
	"library-lending/internal/models"
)

var userColumns = []any{"id", "name", "email", "is_admin", "password_hash", "created_at", "updated_at"}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	id := uuid.NewString()
	email := strings.ToLower(u.Email)
	insert := dialect.Insert(tableUsers).
		Rows(goqu.Record{
			"id":            id,
			"name":          u.Name,
			"email":         email,
			"is_admin":      u.IsAdmin,
			"password_hash": u.PasswordHash,
			"created_at":    u.CreatedAt,
			"updated_at":    u.UpdatedAt,
		}).
		Prepared(true)
	query, args, err := build(insert, "insert user")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Email already registered")
		}
		return apperr.Store(err, "insert user")
	}
	u.ID = id
	u.Email = email
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	id, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, goqu.Ex{"id": id})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, goqu.Ex{"email": strings.ToLower(email)})
}

func (s *Store) findUser(ctx context.Context, where goqu.Ex) (*models.User, error) {
	query, args, err := build(dialect.From(tableUsers).Select(userColumns...).Where(where).Prepared(true), "find user")
	if err != nil {
		return nil, err
	}
	u, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Store(err, "find user")
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := build(dialect.From(tableUsers).Select(userColumns...).Order(goqu.I("created_at").Asc()).Prepared(true), "list users")
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(err, "list users")
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Store(err, "scan user")
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(err, "list users")
	}
	return out, nil
}

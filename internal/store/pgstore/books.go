package pgstore

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"library-lending/internal/apperr"
	"library-lending/internal/models"
)

var bookColumns = []any{
	"id", "name", "isbn", "author_id", "genre_id", "category", "is_available",
	"summary", "photo_url", "issued_to", "issued_at", "created_at", "updated_at",
}

func scanBook(row pgx.Row) (models.Book, error) {
	var (
		b        models.Book
		category string
	)
	err := row.Scan(&b.ID, &b.Name, &b.ISBN, &b.AuthorID, &b.GenreID, &category, &b.IsAvailable,
		&b.Summary, &b.PhotoURL, &b.IssuedTo, &b.IssuedAt, &b.CreatedAt, &b.UpdatedAt)
	b.Category = models.Category(category)
	return b, err
}

func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	where := goqu.Ex{}
	if filter.Category != nil {
		where["category"] = string(*filter.Category)
	}
	if filter.Available != nil {
		where["is_available"] = *filter.Available
	}

	ds := dialect.From(tableBooks).Select(bookColumns...).Where(where).Order(goqu.I("created_at").Asc()).Prepared(true)
	query, args, err := build(ds, "list books")
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(err, "list books")
	}
	defer rows.Close()

	out := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, apperr.Store(err, "scan book")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(err, "list books")
	}
	return out, nil
}

func (s *Store) GetBook(ctx context.Context, id string) (*models.Book, error) {
	id, err := parseID(id, "book")
	if err != nil {
		return nil, err
	}
	query, args, err := build(dialect.From(tableBooks).Select(bookColumns...).Where(goqu.Ex{"id": id}).Prepared(true), "get book")
	if err != nil {
		return nil, err
	}
	b, err := scanBook(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Store(err, "get book")
	}
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	id := uuid.NewString()
	insert := dialect.Insert(tableBooks).
		Rows(goqu.Record{
			"id":           id,
			"name":         b.Name,
			"isbn":         b.ISBN,
			"author_id":    b.AuthorID,
			"genre_id":     b.GenreID,
			"category":     string(b.Category),
			"is_available": b.IsAvailable,
			"summary":      b.Summary,
			"photo_url":    b.PhotoURL,
			"created_at":   b.CreatedAt,
			"updated_at":   b.UpdatedAt,
		}).
		Prepared(true)
	query, args, err := build(insert, "insert book")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return apperr.Store(err, "insert book")
	}
	b.ID = id
	return nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, u models.BookUpdate) (*models.Book, error) {
	id, err := parseID(id, "book")
	if err != nil {
		return nil, err
	}

	set := goqu.Record{"updated_at": s.now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.ISBN != nil {
		set["isbn"] = *u.ISBN
	}
	if u.AuthorID != nil {
		set["author_id"] = *u.AuthorID
	}
	if u.GenreID != nil {
		set["genre_id"] = *u.GenreID
	}
	if u.Category != nil {
		set["category"] = string(*u.Category)
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.PhotoURL != nil {
		set["photo_url"] = *u.PhotoURL
	}

	update := dialect.Update(tableBooks).Set(set).Where(goqu.Ex{"id": id}).Returning(bookColumns...).Prepared(true)
	query, args, err := build(update, "update book")
	if err != nil {
		return nil, err
	}
	b, err := scanBook(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Store(err, "update book")
	}
	return &b, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) (*models.Book, error) {
	id, err := parseID(id, "book")
	if err != nil {
		return nil, err
	}

	del := dialect.Delete(tableBooks).Where(goqu.Ex{"id": id, "is_available": true}).Returning(bookColumns...).Prepared(true)
	query, args, err := build(del, "delete book")
	if err != nil {
		return nil, err
	}
	b, err := scanBook(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Store(err, "delete book")
		}
		found, err := exists(ctx, s.pool, tableBooks, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Conflict("Book is currently issued")
	}
	return &b, nil
}

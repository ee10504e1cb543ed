package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/models"
)

var borrowalColumns = []any{
	"b.id", "b.book_id", "b.member_id", "b.borrowed_date", "b.due_date", "b.status",
	"b.fine_amount", "b.fine_paid", "b.payment_mode", "b.receipt_number", "b.paid_at",
	"b.amount_paid", "b.returned_at", "b.created_at", "b.updated_at",
	goqu.I("u.name").As("member_name"), goqu.I("u.email").As("member_email"),
	goqu.I("bk.name").As("book_name"),
}

func joinedBorrowals() *goqu.SelectDataset {
	return dialect.From(goqu.T(tableBorrowals).As("b")).
		Select(borrowalColumns...).
		LeftJoin(goqu.T(tableUsers).As("u"), goqu.On(goqu.Ex{"u.id": goqu.I("b.member_id")})).
		LeftJoin(goqu.T(tableBooks).As("bk"), goqu.On(goqu.Ex{"bk.id": goqu.I("b.book_id")})).
		Order(goqu.I("b.created_at").Asc(), goqu.I("b.id").Asc()).
		Prepared(true)
}

func scanBorrowal(row pgx.Row) (models.Borrowal, error) {
	var (
		b                       models.Borrowal
		status, mode            string
		memberName, memberEmail *string
		bookName                *string
	)
	err := row.Scan(
		&b.ID, &b.BookID, &b.MemberID, &b.BorrowedDate, &b.DueDate, &status,
		&b.FineAmount, &b.FinePaid, &mode, &b.ReceiptNumber, &b.PaidAt,
		&b.AmountPaid, &b.ReturnedAt, &b.CreatedAt, &b.UpdatedAt,
		&memberName, &memberEmail, &bookName,
	)
	if err != nil {
		return b, err
	}
	b.Status = models.BorrowalStatus(status)
	b.PaymentMode = models.PaymentMode(mode)
	if memberName != nil {
		b.Member = &models.MemberSummary{ID: b.MemberID, Name: *memberName}
		if memberEmail != nil {
			b.Member.Email = *memberEmail
		}
	}
	if bookName != nil {
		b.Book = &models.BookSummary{ID: b.BookID, Name: *bookName}
	}
	return b, nil
}

func (s *Store) Create(ctx context.Context, b *models.Borrowal) error {
	bookID, err := parseID(b.BookID, "book")
	if err != nil {
		return err
	}
	memberID, err := parseID(b.MemberID, "member")
	if err != nil {
		return err
	}
	id := uuid.NewString()

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		claim := dialect.Update(tableBooks).
			Set(goqu.Record{
				"is_available": false,
				"issued_to":    memberID,
				"issued_at":    b.CreatedAt,
				"updated_at":   b.CreatedAt,
			}).
			Where(goqu.Ex{"id": bookID, "is_available": true}).
			Prepared(true)
		query, args, err := build(claim, "claim book")
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return apperr.Store(err, "claim book")
		}
		if tag.RowsAffected() == 0 {
			found, err := exists(ctx, tx, tableBooks, bookID)
			if err != nil {
				return err
			}
			if !found {
				return apperr.NotFound("Book not found")
			}
			return apperr.Conflict("Book is not available")
		}

		insert := dialect.Insert(tableBorrowals).
			Rows(goqu.Record{
				"id":            id,
				"book_id":       bookID,
				"member_id":     memberID,
				"borrowed_date": b.BorrowedDate,
				"due_date":      b.DueDate,
				"status":        string(b.Status),
				"fine_amount":   b.FineAmount,
				"fine_paid":     b.FinePaid,
				"payment_mode":  string(b.PaymentMode),
				"created_at":    b.CreatedAt,
				"updated_at":    b.UpdatedAt,
			}).
			Prepared(true)
		query, args, err = build(insert, "insert borrowal")
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("Book is not available")
			}
			return apperr.Store(err, "insert borrowal")
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.ID = id
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Borrowal, error) {
	id, err := parseID(id, "borrowal")
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.pool, id)
}

func (s *Store) get(ctx context.Context, q querier, id string) (*models.Borrowal, error) {
	query, args, err := build(joinedBorrowals().Where(goqu.Ex{"b.id": id}), "get borrowal")
	if err != nil {
		return nil, err
	}
	b, err := scanBorrowal(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Borrowal not found")
		}
		return nil, apperr.Store(err, "get borrowal")
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context, filter lending.Filter) ([]models.Borrowal, error) {
	ds := joinedBorrowals()
	if filter.MemberID != "" {
		memberID, err := parseID(filter.MemberID, "member")
		if err != nil {
			return nil, err
		}
		ds = ds.Where(goqu.Ex{"b.member_id": memberID})
	}

	query, args, err := build(ds, "list borrowals")
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(err, "list borrowals")
	}
	defer rows.Close()

	out := make([]models.Borrowal, 0)
	for rows.Next() {
		b, err := scanBorrowal(rows)
		if err != nil {
			return nil, apperr.Store(err, "scan borrowal")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(err, "list borrowals")
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, ch lending.Change) (*models.Borrowal, error) {
	id, err := parseID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	var updated *models.Borrowal
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		set := goqu.Record{"updated_at": ch.At}
		where := goqu.Ex{"id": id}
		if ch.BorrowedDate != nil {
			set["borrowed_date"] = *ch.BorrowedDate
		}
		if ch.DueDate != nil {
			set["due_date"] = *ch.DueDate
		}
		if ch.Return {
			set["status"] = string(models.StatusReturned)
			set["returned_at"] = ch.At
			where["status"] = string(models.StatusIssued)
		}

		query, args, err := build(dialect.Update(tableBorrowals).Set(set).Where(where).Returning("book_id").Prepared(true), "update borrowal")
		if err != nil {
			return err
		}
		var bookID string
		if err := tx.QueryRow(ctx, query, args...).Scan(&bookID); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return apperr.Store(err, "update borrowal")
			}
			found, err := exists(ctx, tx, tableBorrowals, id)
			if err != nil {
				return err
			}
			if !found || !ch.Return {
				return apperr.NotFound("Borrowal not found")
			}
			return apperr.Conflict("Borrowal already returned")
		}

		if ch.Return {
			if err := releaseBook(ctx, tx, bookID, ch.At); err != nil {
				return err
			}
		}

		updated, err = s.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) (*models.Borrowal, error) {
	id, err := parseID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	var deleted *models.Borrowal
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		b, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		query, args, err := build(dialect.Delete(tableBorrowals).Where(goqu.Ex{"id": id}).Returning("status", "book_id").Prepared(true), "delete borrowal")
		if err != nil {
			return err
		}
		var status, bookID string
		if err := tx.QueryRow(ctx, query, args...).Scan(&status, &bookID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("Borrowal not found")
			}
			return apperr.Store(err, "delete borrowal")
		}

		if models.BorrowalStatus(status) == models.StatusIssued {
			if err := releaseBook(ctx, tx, bookID, s.now()); err != nil {
				return err
			}
		}
		b.Status = models.BorrowalStatus(status)
		deleted = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) MarkFinePaid(ctx context.Context, id string, p lending.Payment) (*models.Borrowal, error) {
	id, err := parseID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	var paid *models.Borrowal
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		update := dialect.Update(tableBorrowals).
			Set(goqu.Record{
				"fine_paid":      true,
				"payment_mode":   string(models.PaymentOffline),
				"receipt_number": p.ReceiptNumber,
				"paid_at":        p.PaidAt,
				"amount_paid":    p.Amount,
				"updated_at":     p.PaidAt,
			}).
			Where(goqu.Ex{"id": id, "fine_paid": false}).
			Prepared(true)
		query, args, err := build(update, "record payment")
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return apperr.Store(err, "record payment")
		}
		if tag.RowsAffected() == 0 {
			found, err := exists(ctx, tx, tableBorrowals, id)
			if err != nil {
				return err
			}
			if !found {
				return apperr.NotFound("Borrowal not found")
			}
			return apperr.Conflict("Fine already paid")
		}

		paid, err = s.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

func releaseBook(ctx context.Context, q querier, bookID string, at time.Time) error {
	release := dialect.Update(tableBooks).
		Set(goqu.Record{
			"is_available": true,
			"issued_to":    nil,
			"issued_at":    nil,
			"updated_at":   at,
		}).
		Where(goqu.Ex{"id": bookID}).
		Prepared(true)
	query, args, err := build(release, "release book")
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return apperr.Store(err, "release book")
	}
	return nil
}

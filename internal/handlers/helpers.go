package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

// BookStore is the catalog persistence the book and metrics handlers use.
type BookStore interface {
	ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	CreateBook(ctx context.Context, b *models.Book) error
	UpdateBook(ctx context.Context, id string, u models.BookUpdate) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) (*models.Book, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type nopAudit struct{}

func (nopAudit) Log(context.Context, string, string, any) error { return nil }

func auditOrNop(a lending.AuditLogger) lending.AuditLogger {
	if a == nil {
		return nopAudit{}
	}
	return a
}

func callerFrom(w http.ResponseWriter, r *http.Request) (lending.Caller, bool) {
	c, ok := lending.CallerFrom(r.Context())
	if !ok || c.ID == "" {
		utils.JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return lending.Caller{}, false
	}
	return c, true
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseDate(field, value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("Invalid " + field)
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, apperr.Validation("Invalid " + key)
	}
	return n, nil
}

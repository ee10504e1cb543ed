package lending

import (
	"context"
	"time"

	"library-lending/internal/models"
)

// Store persists borrowals together with the availability of the books they
// reference. Each method is one atomic unit: implementations either apply
// the borrowal write and the book write together or neither.
//
// Read methods return records with Member and Book summaries joined.
// Errors are classified with the apperr kinds.
type Store interface {
	// Create claims the book (only if it is available) and inserts b,
	// assigning b.ID. Unknown book: NotFound. Book already issued: Conflict.
	Create(ctx context.Context, b *models.Borrowal) error
	Get(ctx context.Context, id string) (*models.Borrowal, error)
	List(ctx context.Context, filter Filter) ([]models.Borrowal, error)
	// Update applies ch. When ch.Return is set the write is conditional on
	// the borrowal still being Issued and the book is released with it.
	Update(ctx context.Context, id string, ch Change) (*models.Borrowal, error)
	// Delete removes the borrowal and releases its book if it was Issued.
	Delete(ctx context.Context, id string) (*models.Borrowal, error)
	// MarkFinePaid records p only if the fine is still unpaid; a paid fine
	// is a Conflict and leaves the record untouched.
	MarkFinePaid(ctx context.Context, id string, p Payment) (*models.Borrowal, error)
}

type Filter struct {
	MemberID string // empty matches every member
}

type Change struct {
	BorrowedDate *time.Time
	DueDate      *time.Time
	Return       bool
	At           time.Time
}

type Payment struct {
	ReceiptNumber string
	Amount        float64
	PaidAt        time.Time
}

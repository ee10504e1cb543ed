// Package lending owns the borrowal lifecycle: issuing a book to a member,
// editing and returning the loan, removing it and recording offline fine
// payments. Fines are always derived at read time.
package lending

import (
	"context"
	"time"

	"go.uber.org/zap"

	"library-lending/internal/apperr"
	"library-lending/internal/constants"
	"library-lending/internal/fine"
	"library-lending/internal/listing"
	"library-lending/internal/models"
)

// AuditLogger records a mutation for the audit trail.
type AuditLogger interface {
	Log(ctx context.Context, entity, action string, data any) error
}

type Service struct {
	store    Store
	fines    fine.Calculator
	now      func() time.Time
	receipts func(time.Time) string
	log      *zap.Logger
	audit    AuditLogger
	notify   func(ctx context.Context, b models.Borrowal)
}

// Option configures a Service.
type Option func(*Service)

func WithFineCalculator(c fine.Calculator) Option {
	return func(s *Service) { s.fines = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithReceiptGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.receipts = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithPaymentNotifier registers a hook run after a fine payment is recorded.
func WithPaymentNotifier(fn func(ctx context.Context, b models.Borrowal)) Option {
	return func(s *Service) { s.notify = fn }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		fines:    fine.New(fine.DefaultRatePerDay),
		now:      time.Now,
		receipts: NewReceiptNumber,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	BookID       string
	MemberID     string
	BorrowedDate time.Time
	DueDate      time.Time
	Status       models.BorrowalStatus // optional, must be Issued when set
}

type Patch struct {
	BorrowedDate *time.Time
	DueDate      *time.Time
	Status       *models.BorrowalStatus
}

func (p Patch) IsEmpty() bool {
	return p.BorrowedDate == nil && p.DueDate == nil && p.Status == nil
}

func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*models.Borrowal, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if !caller.IsAdmin && in.MemberID != caller.ID {
		return nil, apperr.Forbidden("Members can only borrow books for themselves")
	}

	now := s.now()
	b := models.Borrowal{
		BookID:       in.BookID,
		MemberID:     in.MemberID,
		BorrowedDate: in.BorrowedDate,
		DueDate:      in.DueDate,
		Status:       models.StatusIssued,
		PaymentMode:  models.PaymentOffline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, &b); err != nil {
		s.log.Info("borrowal not created",
			zap.String("book_id", in.BookID), zap.String("member_id", in.MemberID), zap.Error(err))
		return nil, err
	}

	created, err := s.store.Get(ctx, b.ID)
	if err != nil {
		// the loan exists; answer without the joined display fields
		s.log.Warn("created borrowal could not be read back", zap.String("borrowal_id", b.ID), zap.Error(err))
		created = &b
	}

	s.record(ctx, caller, constants.CheckOut, created)
	s.log.Info("borrowal created",
		zap.String("borrowal_id", b.ID), zap.String("book_id", b.BookID), zap.String("member_id", b.MemberID))

	return s.enrich(*created), nil
}

func (s *Service) Get(ctx context.Context, caller Caller, id string) (*models.Borrowal, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && b.MemberID != caller.ID {
		return nil, apperr.NotFound("Borrowal not found")
	}
	return s.enrich(*b), nil
}

// List returns every borrowal for an admin and only the caller's own for a
// member.
func (s *Service) List(ctx context.Context, caller Caller) ([]models.Borrowal, error) {
	filter := Filter{}
	if !caller.IsAdmin {
		filter.MemberID = caller.ID
	}

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]models.Borrowal, 0, len(list))
	for _, b := range list {
		out = append(out, *s.enrich(b))
	}
	return out, nil
}

// Search runs List through the table query.
func (s *Service) Search(ctx context.Context, caller Caller, q listing.Query) (listing.Page[models.Borrowal], error) {
	list, err := s.List(ctx, caller)
	if err != nil {
		return listing.Page[models.Borrowal]{}, err
	}
	return listing.Apply(list, BorrowalTable, q), nil
}

func (s *Service) Update(ctx context.Context, caller Caller, id string, p Patch) (*models.Borrowal, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbidden("Only admins can update borrowals")
	}
	if p.IsEmpty() {
		return nil, apperr.Validation("No update fields provided")
	}
	if p.Status != nil && !models.IsValidBorrowalStatus(string(*p.Status)) {
		return nil, apperr.Validation("Invalid status")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	borrowed, due := current.BorrowedDate, current.DueDate
	if p.BorrowedDate != nil {
		if p.BorrowedDate.IsZero() {
			return nil, apperr.Validation("borrowedDate is required")
		}
		borrowed = *p.BorrowedDate
	}
	if p.DueDate != nil {
		if p.DueDate.IsZero() {
			return nil, apperr.Validation("dueDate is required")
		}
		due = *p.DueDate
	}
	if due.Before(borrowed) {
		return nil, apperr.Validation("dueDate must not be before borrowedDate")
	}

	ch := Change{BorrowedDate: p.BorrowedDate, DueDate: p.DueDate, At: s.now()}
	if p.Status != nil {
		switch {
		case *p.Status == models.StatusReturned && current.IsActive():
			ch.Return = true
		case *p.Status == models.StatusIssued && !current.IsActive():
			return nil, apperr.Conflict("A returned borrowal cannot be issued again")
		}
	}

	updated, err := s.store.Update(ctx, id, ch)
	if err != nil {
		return nil, err
	}

	action := constants.Update
	if ch.Return {
		action = constants.CheckIn
		s.log.Info("borrowal returned", zap.String("borrowal_id", id), zap.String("book_id", updated.BookID))
	}
	s.record(ctx, caller, action, updated)

	return s.enrich(*updated), nil
}

func (s *Service) Delete(ctx context.Context, caller Caller, id string) (*models.Borrowal, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbidden("Only admins can delete borrowals")
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, constants.Delete, deleted)
	s.log.Info("borrowal deleted", zap.String("borrowal_id", id), zap.String("book_id", deleted.BookID))

	return s.enrich(*deleted), nil
}

// PayFine records an offline payment of the fine currently owed, which may
// be 0, and issues a receipt.
func (s *Service) PayFine(ctx context.Context, caller Caller, id string) (*models.Borrowal, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbidden("Only admins can record fine payments")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.FinePaid {
		return nil, apperr.Conflict("Fine already paid")
	}

	// a loan that owes nothing still gets a receipt, recorded as 0
	amount := s.fineFor(*current)

	now := s.now()
	paid, err := s.store.MarkFinePaid(ctx, id, Payment{
		ReceiptNumber: s.receipts(now),
		Amount:        amount,
		PaidAt:        now,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, constants.PayFine, paid)
	s.log.Info("fine paid",
		zap.String("borrowal_id", id), zap.Float64("amount", amount), zap.Stringp("receipt", paid.ReceiptNumber))
	if s.notify != nil {
		s.notify(ctx, *paid)
	}

	return s.enrich(*paid), nil
}

// FineFor exposes the derived fine of b at the service clock.
func (s *Service) FineFor(b models.Borrowal) float64 {
	return s.fineFor(b)
}

func (s *Service) enrich(b models.Borrowal) *models.Borrowal {
	b.FineAmount = s.fineFor(b)
	return &b
}

// fineFor never fails: malformed dates report no fine. A returned loan
// stops accruing at its return time.
func (s *Service) fineFor(b models.Borrowal) float64 {
	if b.DueDate.IsZero() || (!b.BorrowedDate.IsZero() && b.DueDate.Before(b.BorrowedDate)) {
		s.log.Warn("malformed borrowal dates, reporting no fine",
			zap.String("borrowal_id", b.ID), zap.Time("borrowed_date", b.BorrowedDate), zap.Time("due_date", b.DueDate))
		return 0
	}

	at := s.now()
	if b.ReturnedAt != nil && b.ReturnedAt.Before(at) {
		at = *b.ReturnedAt
	}
	return s.fines.Compute(b.DueDate, b.FinePaid, at)
}

func (s *Service) record(ctx context.Context, caller Caller, action string, b *models.Borrowal) {
	if s.audit == nil {
		return
	}
	entry := map[string]any{"performed_by": caller.ID, "borrowal": b}
	if err := s.audit.Log(ctx, models.BorrowalEntity, action, entry); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func validateCreate(in CreateInput) error {
	switch {
	case in.BookID == "":
		return apperr.Validation("bookId is required")
	case in.MemberID == "":
		return apperr.Validation("memberId is required")
	case in.BorrowedDate.IsZero():
		return apperr.Validation("borrowedDate is required")
	case in.DueDate.IsZero():
		return apperr.Validation("dueDate is required")
	case in.DueDate.Before(in.BorrowedDate):
		return apperr.Validation("dueDate must not be before borrowedDate")
	case in.Status != "" && in.Status != models.StatusIssued:
		return apperr.Validation("A new borrowal must have status Issued")
	}
	return nil
}

// Package memstore keeps books, users and borrowals in process memory. It
// backs the "memory" store driver and the service tests.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/models"
)

type Store struct {
	mu sync.RWMutex

	books     map[string]models.Book
	bookIDs   []string
	users     map[string]models.User
	userIDs   []string
	borrowals map[string]models.Borrowal
	loanIDs   []string

	now func() time.Time
}

func New() *Store {
	return &Store{
		books:     map[string]models.Book{},
		users:     map[string]models.User{},
		borrowals: map[string]models.Borrowal{},
		now:       time.Now,
	}
}

// ---- borrowals ----

func (s *Store) Create(_ context.Context, b *models.Borrowal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[b.BookID]
	if !ok {
		return apperr.NotFound("Book not found")
	}
	if !book.IsAvailable {
		return apperr.Conflict("Book is not available")
	}

	b.ID = uuid.NewString()
	issuedAt := b.CreatedAt
	memberID := b.MemberID
	book.IsAvailable = false
	book.IssuedTo = &memberID
	book.IssuedAt = &issuedAt
	book.UpdatedAt = issuedAt

	s.books[book.ID] = book
	s.borrowals[b.ID] = *b
	s.loanIDs = append(s.loanIDs, b.ID)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*models.Borrowal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.borrowals[id]
	if !ok {
		return nil, apperr.NotFound("Borrowal not found")
	}
	joined := s.join(b)
	return &joined, nil
}

func (s *Store) List(_ context.Context, filter lending.Filter) ([]models.Borrowal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Borrowal, 0, len(s.loanIDs))
	for _, id := range s.loanIDs {
		b := s.borrowals[id]
		if filter.MemberID != "" && b.MemberID != filter.MemberID {
			continue
		}
		out = append(out, s.join(b))
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, id string, ch lending.Change) (*models.Borrowal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrowals[id]
	if !ok {
		return nil, apperr.NotFound("Borrowal not found")
	}
	if ch.Return && !b.IsActive() {
		return nil, apperr.Conflict("Borrowal already returned")
	}

	if ch.BorrowedDate != nil {
		b.BorrowedDate = *ch.BorrowedDate
	}
	if ch.DueDate != nil {
		b.DueDate = *ch.DueDate
	}
	if ch.Return {
		at := ch.At
		b.Status = models.StatusReturned
		b.ReturnedAt = &at
		s.release(b.BookID, at)
	}
	b.UpdatedAt = ch.At

	s.borrowals[id] = b
	joined := s.join(b)
	return &joined, nil
}

func (s *Store) Delete(_ context.Context, id string) (*models.Borrowal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrowals[id]
	if !ok {
		return nil, apperr.NotFound("Borrowal not found")
	}
	joined := s.join(b)

	delete(s.borrowals, id)
	s.loanIDs = removeID(s.loanIDs, id)
	if b.IsActive() {
		s.release(b.BookID, s.now())
	}
	return &joined, nil
}

func (s *Store) MarkFinePaid(_ context.Context, id string, p lending.Payment) (*models.Borrowal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrowals[id]
	if !ok {
		return nil, apperr.NotFound("Borrowal not found")
	}
	if b.FinePaid {
		return nil, apperr.Conflict("Fine already paid")
	}

	receipt, paidAt := p.ReceiptNumber, p.PaidAt
	b.FinePaid = true
	b.PaymentMode = models.PaymentOffline
	b.ReceiptNumber = &receipt
	b.PaidAt = &paidAt
	b.AmountPaid = p.Amount
	b.UpdatedAt = paidAt

	s.borrowals[id] = b
	joined := s.join(b)
	return &joined, nil
}

// release must be called with the write lock held.
func (s *Store) release(bookID string, at time.Time) {
	book, ok := s.books[bookID]
	if !ok {
		return
	}
	book.IsAvailable = true
	book.IssuedTo = nil
	book.IssuedAt = nil
	book.UpdatedAt = at
	s.books[bookID] = book
}

func (s *Store) join(b models.Borrowal) models.Borrowal {
	if u, ok := s.users[b.MemberID]; ok {
		summary := u.Summary()
		b.Member = &summary
	}
	if book, ok := s.books[b.BookID]; ok {
		b.Book = &models.BookSummary{ID: book.ID, Name: book.Name}
	}
	return b
}

// ---- books ----

func (s *Store) ListBooks(_ context.Context, filter models.BookFilter) ([]models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Book, 0, len(s.bookIDs))
	for _, id := range s.bookIDs {
		if b := s.books[id]; filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetBook(_ context.Context, id string) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, apperr.NotFound("Book not found")
	}
	return &b, nil
}

func (s *Store) CreateBook(_ context.Context, b *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, exists := s.books[b.ID]; exists {
		return apperr.Conflict("Book already exists")
	}
	s.books[b.ID] = *b
	s.bookIDs = append(s.bookIDs, b.ID)
	return nil
}

func (s *Store) UpdateBook(_ context.Context, id string, u models.BookUpdate) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, apperr.NotFound("Book not found")
	}
	u.Apply(&b)
	b.UpdatedAt = s.now()
	s.books[id] = b
	return &b, nil
}

func (s *Store) DeleteBook(_ context.Context, id string) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, apperr.NotFound("Book not found")
	}
	if !b.IsAvailable {
		return nil, apperr.Conflict("Book is currently issued")
	}
	delete(s.books, id)
	s.bookIDs = removeID(s.bookIDs, id)
	return &b, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("Email already registered")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = *u
	s.userIDs = append(s.userIDs, u.ID)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.userIDs))
	for _, id := range s.userIDs {
		out = append(out, s.users[id])
	}
	return out, nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

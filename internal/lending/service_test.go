package lending_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/internal/apperr"
	"library-lending/internal/fine"
	"library-lending/internal/lending"
	"library-lending/internal/listing"
	"library-lending/internal/models"
	"library-lending/internal/store/memstore"
)

var (
	borrowed = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due      = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	today    = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store   *memstore.Store
	svc     *lending.Service
	admin   lending.Caller
	member  lending.Caller
	other   lending.Caller
	book    models.Book
	another models.Book
	audit   *recordingAudit
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Log(_ context.Context, _, action string, _ any) error {
	r.actions = append(r.actions, action)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	users := []models.User{
		{Name: "Grace Admin", Email: "grace@example.com", IsAdmin: true},
		{Name: "Ada Member", Email: "ada@example.com"},
		{Name: "Linus Member", Email: "linus@example.com"},
	}
	for i := range users {
		require.NoError(t, store.CreateUser(ctx, &users[i]))
	}

	book := models.Book{Name: "Dune", ISBN: "1", Category: models.CategoryFiction, IsAvailable: true}
	another := models.Book{Name: "Dracula", ISBN: "2", Category: models.CategoryLiterature, IsAvailable: true}
	require.NoError(t, store.CreateBook(ctx, &book))
	require.NoError(t, store.CreateBook(ctx, &another))

	audit := &recordingAudit{}
	svc := lending.NewService(store,
		lending.WithFineCalculator(fine.New(10)),
		lending.WithClock(func() time.Time { return today }),
		lending.WithAuditLogger(audit),
	)

	return &fixture{
		store:   store,
		svc:     svc,
		admin:   lending.Caller{ID: users[0].ID, IsAdmin: true},
		member:  lending.Caller{ID: users[1].ID},
		other:   lending.Caller{ID: users[2].ID},
		book:    book,
		another: another,
		audit:   audit,
	}
}

func (f *fixture) issue(t *testing.T, book models.Book, member lending.Caller) *models.Borrowal {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.admin, lending.CreateInput{
		BookID:       book.ID,
		MemberID:     member.ID,
		BorrowedDate: borrowed,
		DueDate:      due,
	})
	require.NoError(t, err)
	return b
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	b := f.issue(t, f.book, f.member)

	assert.Equal(t, models.StatusIssued, b.Status)
	assert.False(t, b.FinePaid)
	assert.Nil(t, b.ReceiptNumber)
	assert.Equal(t, models.PaymentOffline, b.PaymentMode)
	require.NotNil(t, b.Member)
	assert.Equal(t, "Ada Member", b.Member.Name)
	require.NotNil(t, b.Book)
	assert.Equal(t, "Dune", b.Book.Name)

	book, err := f.store.GetBook(context.Background(), f.book.ID)
	require.NoError(t, err)
	assert.False(t, book.IsAvailable)
	assert.Equal(t, []string{"CHECK_OUT"}, f.audit.actions)
}

func TestCreateReportsFineAtCurrentTime(t *testing.T) {
	f := newFixture(t)
	b := f.issue(t, f.book, f.member)

	// the example loan is already five days overdue on the fixture clock
	assert.Equal(t, 50.0, b.FineAmount)
}

func TestCreateAgainstUnavailableBook(t *testing.T) {
	f := newFixture(t)
	f.issue(t, f.book, f.member)

	_, err := f.svc.Create(context.Background(), f.admin, lending.CreateInput{
		BookID: f.book.ID, MemberID: f.other.ID, BorrowedDate: borrowed, DueDate: due,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	all, err := f.svc.List(context.Background(), f.admin)
	require.NoError(t, err)
	active := 0
	for _, b := range all {
		if b.BookID == f.book.ID && b.IsActive() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   lending.CreateInput
	}{
		{"missing book", lending.CreateInput{MemberID: f.member.ID, BorrowedDate: borrowed, DueDate: due}},
		{"missing member", lending.CreateInput{BookID: f.book.ID, BorrowedDate: borrowed, DueDate: due}},
		{"missing borrowed date", lending.CreateInput{BookID: f.book.ID, MemberID: f.member.ID, DueDate: due}},
		{"missing due date", lending.CreateInput{BookID: f.book.ID, MemberID: f.member.ID, BorrowedDate: borrowed}},
		{"due before borrowed", lending.CreateInput{BookID: f.book.ID, MemberID: f.member.ID, BorrowedDate: due, DueDate: borrowed}},
		{"created as returned", lending.CreateInput{BookID: f.book.ID, MemberID: f.member.ID, BorrowedDate: borrowed, DueDate: due, Status: models.StatusReturned}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.admin, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	book, err := f.store.GetBook(context.Background(), f.book.ID)
	require.NoError(t, err)
	assert.True(t, book.IsAvailable, "rejected input must not touch the book")
}

func TestMemberCanOnlyBorrowForSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.member, lending.CreateInput{
		BookID: f.book.ID, MemberID: f.other.ID, BorrowedDate: borrowed, DueDate: due,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	b, err := f.svc.Create(ctx, f.member, lending.CreateInput{
		BookID: f.book.ID, MemberID: f.member.ID, BorrowedDate: borrowed, DueDate: due,
	})
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, b.MemberID)
}

func TestListFiltersByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.issue(t, f.book, f.member)
	f.issue(t, f.another, f.other)

	own, err := f.svc.List(ctx, f.member)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := f.svc.List(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, b := range all {
		assert.Equal(t, 50.0, b.FineAmount)
	}
}

func TestGetHidesOtherMembersLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	_, err := f.svc.Get(ctx, f.other, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.Get(ctx, f.member, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.FineAmount)

	_, err = f.svc.Get(ctx, f.admin, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	newDue := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.Update(ctx, f.admin, b.ID, lending.Patch{DueDate: &newDue})
	require.NoError(t, err)
	assert.True(t, newDue.Equal(got.DueDate))
	assert.Equal(t, 0.0, got.FineAmount)
	assert.Equal(t, models.StatusIssued, got.Status)

	tooEarly := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.Update(ctx, f.admin, b.ID, lending.Patch{DueDate: &tooEarly})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Update(ctx, f.admin, b.ID, lending.Patch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bogus := models.BorrowalStatus("Lost")
	_, err = f.svc.Update(ctx, f.admin, b.ID, lending.Patch{Status: &bogus})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Update(ctx, f.member, b.ID, lending.Patch{DueDate: &newDue})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateToReturnedReleasesBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	returned := models.StatusReturned
	got, err := f.svc.Update(ctx, f.admin, b.ID, lending.Patch{Status: &returned})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, got.Status)
	assert.Equal(t, []string{"CHECK_OUT", "CHECK_IN"}, f.audit.actions)

	book, err := f.store.GetBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.True(t, book.IsAvailable)

	issued := models.StatusIssued
	_, err = f.svc.Update(ctx, f.admin, b.ID, lending.Patch{Status: &issued})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// the book can be lent again through a new borrowal
	again := f.issue(t, f.book, f.other)
	assert.NotEqual(t, b.ID, again.ID)
}

func TestReturnedLoanStopsAccruing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	returned := models.StatusReturned
	_, err := f.svc.Update(ctx, f.admin, b.ID, lending.Patch{Status: &returned})
	require.NoError(t, err)

	later := lending.NewService(f.store,
		lending.WithFineCalculator(fine.New(10)),
		lending.WithClock(func() time.Time { return today.AddDate(0, 0, 30) }),
	)
	got, err := later.Get(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.FineAmount)
}

func TestDeleteRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	_, err := f.svc.Delete(ctx, f.member, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	deleted, err := f.svc.Delete(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, deleted.ID)

	book, err := f.store.GetBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.True(t, book.IsAvailable)

	_, err = f.svc.Get(ctx, f.admin, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPayFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)
	require.Equal(t, 50.0, b.FineAmount)

	paid, err := f.svc.PayFine(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.True(t, paid.FinePaid)
	assert.Equal(t, models.PaymentOffline, paid.PaymentMode)
	require.NotNil(t, paid.ReceiptNumber)
	assert.Regexp(t, regexp.MustCompile(`^RCPT-\d{13}-[0-9a-f]{8}$`), *paid.ReceiptNumber)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, today.Equal(*paid.PaidAt))
	assert.Equal(t, 50.0, paid.AmountPaid)
	assert.Equal(t, 0.0, paid.FineAmount)
	assert.Equal(t, 0.0, f.svc.FineFor(*paid))

	_, err = f.svc.PayFine(ctx, f.admin, b.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	again, err := f.svc.Get(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, *paid.ReceiptNumber, *again.ReceiptNumber)
	assert.True(t, paid.PaidAt.Equal(*again.PaidAt))
}

func TestPayFineOnTimeLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payDay := borrowed.AddDate(0, 0, 3)
	onTime := lending.NewService(f.store, lending.WithClock(func() time.Time { return payDay }))
	b := f.issue(t, f.book, f.member)

	paid, err := onTime.PayFine(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.True(t, paid.FinePaid)
	assert.Equal(t, 0.0, paid.AmountPaid)
	require.NotNil(t, paid.ReceiptNumber)
	assert.NotEmpty(t, *paid.ReceiptNumber)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, payDay.Equal(*paid.PaidAt))

	_, err = onTime.PayFine(ctx, f.admin, b.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestPayFineRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.issue(t, f.book, f.member)

	_, err := f.svc.PayFine(ctx, f.member, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.PayFine(ctx, f.admin, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue(t, f.book, f.member)
	f.issue(t, f.another, f.other)

	page, err := f.svc.Search(ctx, f.admin, listing.Query{Search: "linus"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Dracula", page.Items[0].BookName())

	page, err = f.svc.Search(ctx, f.admin, listing.Query{SortBy: "bookName", Order: listing.Asc, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dracula", page.Items[0].BookName())

	page, err = f.svc.Search(ctx, f.member, listing.Query{Search: "linus"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestCallerContext(t *testing.T) {
	ctx := lending.WithCaller(context.Background(), lending.Caller{ID: "u1", IsAdmin: true})
	c, ok := lending.CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", c.ID)
	assert.True(t, c.IsAdmin)

	_, ok = lending.CallerFrom(context.Background())
	assert.False(t, ok)
}

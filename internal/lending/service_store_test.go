package lending_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/models"
)

var admin = lending.Caller{ID: "admin", IsAdmin: true}

func TestStoreFailuresSurface(t *testing.T) {
	store := new(mockStore)
	svc := lending.NewService(store)
	storeErr := apperr.Store(errors.New("connection refused"), "find borrowals")

	store.On("List", mock.Anything, lending.Filter{}).Return(nil, storeErr)

	_, err := svc.List(context.Background(), admin)
	assert.ErrorIs(t, err, apperr.ErrStore)
	store.AssertExpectations(t)
}

func TestListScopesMembersAtTheStore(t *testing.T) {
	store := new(mockStore)
	svc := lending.NewService(store)

	store.On("List", mock.Anything, lending.Filter{MemberID: "m1"}).Return([]models.Borrowal{}, nil)

	_, err := svc.List(context.Background(), lending.Caller{ID: "m1"})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestMalformedDatesDoNotFailReads(t *testing.T) {
	store := new(mockStore)
	svc := lending.NewService(store)

	broken := []models.Borrowal{
		{ID: "no-due", MemberID: "m1", BorrowedDate: time.Now()},
		{ID: "inverted", MemberID: "m1", BorrowedDate: time.Now(), DueDate: time.Now().AddDate(0, 0, -40)},
	}
	store.On("List", mock.Anything, lending.Filter{}).Return(broken, nil)

	list, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, 0.0, b.FineAmount, b.ID)
	}
}

func TestCreateFallsBackWhenReadBackFails(t *testing.T) {
	store := new(mockStore)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := lending.NewService(store, lending.WithClock(func() time.Time { return now }))

	store.On("Create", mock.Anything, mock.AnythingOfType("*models.Borrowal")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Borrowal).ID = "b1" }).
		Return(nil)
	store.On("Get", mock.Anything, "b1").Return(nil, apperr.Store(errors.New("timeout"), "find borrowal"))

	b, err := svc.Create(context.Background(), admin, lending.CreateInput{
		BookID: "book", MemberID: "member", BorrowedDate: now, DueDate: now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, models.StatusIssued, b.Status)
	assert.Nil(t, b.Member)
}

func TestPayFineLosingRaceIsConflict(t *testing.T) {
	store := new(mockStore)
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	svc := lending.NewService(store,
		lending.WithClock(func() time.Time { return now }),
		lending.WithReceiptGenerator(func(time.Time) string { return "RCPT-fixed" }),
	)

	loan := &models.Borrowal{
		ID:           "b1",
		BorrowedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:       models.StatusIssued,
	}
	store.On("Get", mock.Anything, "b1").Return(loan, nil)
	store.On("MarkFinePaid", mock.Anything, "b1", lending.Payment{ReceiptNumber: "RCPT-fixed", Amount: 50, PaidAt: now}).
		Return(nil, apperr.Conflict("Fine already paid"))

	_, err := svc.PayFine(context.Background(), admin, "b1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	store.AssertExpectations(t)
}

func TestUpdateReturnAsksStoreToRelease(t *testing.T) {
	store := new(mockStore)
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := lending.NewService(store, lending.WithClock(func() time.Time { return now }))

	loan := &models.Borrowal{
		ID: "b1", BookID: "book", Status: models.StatusIssued,
		BorrowedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	returned := *loan
	returned.Status = models.StatusReturned

	store.On("Get", mock.Anything, "b1").Return(loan, nil)
	store.On("Update", mock.Anything, "b1", lending.Change{Return: true, At: now}).Return(&returned, nil)

	status := models.StatusReturned
	got, err := svc.Update(context.Background(), admin, "b1", lending.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, got.Status)
	store.AssertExpectations(t)
}

func TestReceiptNumberFormat(t *testing.T) {
	at := time.UnixMilli(1705708800123)
	first := lending.NewReceiptNumber(at)
	second := lending.NewReceiptNumber(at)

	assert.Regexp(t, `^RCPT-1705708800123-[0-9a-f]{8}$`, first)
	assert.NotEqual(t, first, second)
}

package lending_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, b *models.Borrowal) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockStore) Get(ctx context.Context, id string) (*models.Borrowal, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Borrowal)
	return b, args.Error(1)
}

func (m *mockStore) List(ctx context.Context, filter lending.Filter) ([]models.Borrowal, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]models.Borrowal)
	return list, args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id string, ch lending.Change) (*models.Borrowal, error) {
	args := m.Called(ctx, id, ch)
	b, _ := args.Get(0).(*models.Borrowal)
	return b, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id string) (*models.Borrowal, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Borrowal)
	return b, args.Error(1)
}

func (m *mockStore) MarkFinePaid(ctx context.Context, id string, p lending.Payment) (*models.Borrowal, error) {
	args := m.Called(ctx, id, p)
	b, _ := args.Get(0).(*models.Borrowal)
	return b, args.Error(1)
}

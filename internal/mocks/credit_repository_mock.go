package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vibe-server/internal/repository"
)

// MockCreditRepository is a mock type for the CreditRepository type
type MockCreditRepository struct {
	mock.Mock
}

func (_m *MockCreditRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	ret := _m.Called(ctx, userID, amount)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockCreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	ret := _m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *MockCreditRepository) Grant(ctx context.Context, userID uuid.UUID, amount int64) error {
	ret := _m.Called(ctx, userID, amount)
	return ret.Error(0)
}

// NewMockCreditRepository creates a new instance of MockCreditRepository.
func NewMockCreditRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCreditRepository {
	m := &MockCreditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.CreditRepository = (*MockCreditRepository)(nil)

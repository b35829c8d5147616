package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vibe-server/internal/repository"
)

// MockReconcileGuard is a mock type for the ReconcileGuard type
type MockReconcileGuard struct {
	mock.Mock
}

func (_m *MockReconcileGuard) Acquire(ctx context.Context, taskID string) (bool, error) {
	ret := _m.Called(ctx, taskID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockReconcileGuard) Release(ctx context.Context, taskID string) error {
	ret := _m.Called(ctx, taskID)
	return ret.Error(0)
}

// NewMockReconcileGuard creates a new instance of MockReconcileGuard.
func NewMockReconcileGuard(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReconcileGuard {
	m := &MockReconcileGuard{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.ReconcileGuard = (*MockReconcileGuard)(nil)

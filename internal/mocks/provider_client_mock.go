package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vibe-server/internal/model"
	"vibe-server/internal/provider"
)

// MockProviderClient is a mock type for the provider.Client type
type MockProviderClient struct {
	mock.Mock
}

func (_m *MockProviderClient) Submit(ctx context.Context, req provider.SubmitRequest) (string, error) {
	ret := _m.Called(ctx, req)
	return ret.String(0), ret.Error(1)
}

func (_m *MockProviderClient) FetchStatus(ctx context.Context, taskID string) (model.GenerationResult, error) {
	ret := _m.Called(ctx, taskID)
	return ret.Get(0).(model.GenerationResult), ret.Error(1)
}

// NewMockProviderClient creates a new instance of MockProviderClient.
func NewMockProviderClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProviderClient {
	m := &MockProviderClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ provider.Client = (*MockProviderClient)(nil)

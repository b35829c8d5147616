package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vibe-server/internal/service"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

func (_m *MockAIClient) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)
	return ret.String(0), ret.Error(1)
}

func (_m *MockAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)
	return ret.String(0), ret.Error(1)
}

// NewMockAIClient creates a new instance of MockAIClient.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.AIClient = (*MockAIClient)(nil)

// MockImageVerifier is a mock type for the ImageVerifier type
type MockImageVerifier struct {
	mock.Mock
}

func (_m *MockImageVerifier) Verify(ctx context.Context, url string, min service.MinSize) (service.VerifiedImage, error) {
	ret := _m.Called(ctx, url, min)
	return ret.Get(0).(service.VerifiedImage), ret.Error(1)
}

// NewMockImageVerifier creates a new instance of MockImageVerifier.
func NewMockImageVerifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageVerifier {
	m := &MockImageVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.ImageVerifier = (*MockImageVerifier)(nil)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

func (_m *MockNotifier) NotifyTrackUpdate(ctx context.Context, payload service.TrackUpdatePayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.Notifier = (*MockNotifier)(nil)

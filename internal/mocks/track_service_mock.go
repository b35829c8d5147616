package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vibe-server/internal/model"
	"vibe-server/internal/service"
)

// MockTrackService is a mock type for the TrackService type
type MockTrackService struct {
	mock.Mock
}

func (_m *MockTrackService) SubmitGeneration(ctx context.Context, ownerID uuid.UUID, prompt, style string) (*model.Track, error) {
	ret := _m.Called(ctx, ownerID, prompt, style)

	var r0 *model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackService) GetTrack(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*model.Track, error) {
	ret := _m.Called(ctx, id, ownerID)

	var r0 *model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackService) ListTracks(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error) {
	ret := _m.Called(ctx, ownerID, limit)

	var r0 []*model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackService) CheckStatus(ctx context.Context, taskID string) (service.PollStatus, *model.Track, error) {
	ret := _m.Called(ctx, taskID)

	var r1 *model.Track
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(*model.Track)
	}
	return ret.Get(0).(service.PollStatus), r1, ret.Error(2)
}

// NewMockTrackService creates a new instance of MockTrackService.
// The first argument is typically a *testing.T value.
func NewMockTrackService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTrackService {
	m := &MockTrackService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.TrackService = (*MockTrackService)(nil)

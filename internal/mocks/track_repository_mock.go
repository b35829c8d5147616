package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vibe-server/internal/model"
	"vibe-server/internal/repository"
)

// MockTrackRepository is a mock type for the TrackRepository type
type MockTrackRepository struct {
	mock.Mock
}

func (_m *MockTrackRepository) Create(ctx context.Context, track *model.Track) error {
	ret := _m.Called(ctx, track)
	return ret.Error(0)
}

func (_m *MockTrackRepository) GetByTaskID(ctx context.Context, taskID string) (*model.Track, error) {
	ret := _m.Called(ctx, taskID)

	var r0 *model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error) {
	ret := _m.Called(ctx, ownerID, limit)

	var r0 []*model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*model.Track)
	}
	return r0, ret.Error(1)
}

func (_m *MockTrackRepository) Complete(ctx context.Context, taskID string, params model.CompleteTrackParams) (*model.Track, bool, error) {
	ret := _m.Called(ctx, taskID, params)

	var r0 *model.Track
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Track)
	}
	return r0, ret.Bool(1), ret.Error(2)
}

func (_m *MockTrackRepository) MarkFailed(ctx context.Context, taskID string) (bool, error) {
	ret := _m.Called(ctx, taskID)
	return ret.Bool(0), ret.Error(1)
}

// NewMockTrackRepository creates a new instance of MockTrackRepository.
// The first argument is typically a *testing.T value.
func NewMockTrackRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTrackRepository {
	m := &MockTrackRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.TrackRepository = (*MockTrackRepository)(nil)

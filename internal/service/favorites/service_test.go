package favorites

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type repoMock struct{ mock.Mock }

func (m *repoMock) Save(ctx context.Context, userID, eventID int64) error {
	return m.Called(ctx, userID, eventID).Error(0)
}

func (m *repoMock) Unsave(ctx context.Context, userID, eventID int64) error {
	return m.Called(ctx, userID, eventID).Error(0)
}

func (m *repoMock) List(ctx context.Context, userID int64) ([]domain.SavedEvent, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]domain.SavedEvent)
	return out, args.Error(1)
}

func TestSaveMissingEvent(t *testing.T) {
	repo := &repoMock{}
	repo.On("Save", mock.Anything, int64(1), int64(404)).
		Return(fmt.Errorf("postgresrepo.FavoriteRepo.Save:%w", repository.ErrReferenceMissing))

	err := New(repo).Save(context.Background(), 1, 404)

	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NotErrorIs(t, err, repository.ErrReferenceMissing)
	repo.AssertExpectations(t)
}

func TestSaveTwiceKeepsOneBookmark(t *testing.T) {
	repo := &repoMock{}
	repo.On("Save", mock.Anything, int64(1), int64(7)).Return(nil).Twice()
	repo.On("List", mock.Anything, int64(1)).Return([]domain.SavedEvent{
		{Event: domain.Event{ID: 7, Title: "Show"}},
	}, nil)

	s := New(repo)
	require.NoError(t, s.Save(context.Background(), 1, 7))
	require.NoError(t, s.Save(context.Background(), 1, 7))

	saved, err := s.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, int64(7), saved[0].Event.ID)
	repo.AssertExpectations(t)
}

func TestUnsavePassesThroughStoreErrors(t *testing.T) {
	boom := errors.New("pg down")
	repo := &repoMock{}
	repo.On("Unsave", mock.Anything, int64(1), int64(7)).Return(boom)

	err := New(repo).Unsave(context.Background(), 1, 7)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrEventNotFound)
}

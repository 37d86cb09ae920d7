package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
)

var ErrEventNotFound = errors.New("event not found")

// Repository stores saved events; postgresrepo.FavoriteRepo implements it.
type Repository interface {
	Save(ctx context.Context, userID, eventID int64) error
	Unsave(ctx context.Context, userID, eventID int64) error
	List(ctx context.Context, userID int64) ([]domain.SavedEvent, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save bookmarks an event. Saving twice is not an error.
//
// Returns:
//   - error: favorites.ErrEventNotFound if the event does not exist.
func (s *Service) Save(ctx context.Context, userID, eventID int64) error {
	const op = "service.favorites.Save"

	if err := s.repo.Save(ctx, userID, eventID); err != nil {
		if errors.Is(err, repository.ErrReferenceMissing) {
			return fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) Unsave(ctx context.Context, userID, eventID int64) error {
	const op = "service.favorites.Unsave"

	if err := s.repo.Unsave(ctx, userID, eventID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]domain.SavedEvent, error) {
	const op = "service.favorites.List"

	out, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

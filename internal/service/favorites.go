package service

import (
	"context"
	"errors"

	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// Favorites manages a user's favorite media set.
type Favorites struct {
	favorites FavoriteStore
	media     MediaStore
}

// NewFavorites builds the favorites service.
func NewFavorites(favorites FavoriteStore, media MediaStore) *Favorites {
	return &Favorites{favorites: favorites, media: media}
}

// Add marks mediaID as a favorite of userID.
func (s *Favorites) Add(ctx context.Context, userID, mediaID int64) error {
	added, err := s.favorites.Add(ctx, userID, mediaID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return domain.NotFound("user not found")
	}
	if err != nil {
		return notFoundOr(err, "media not found", "add favorite")
	}
	if !added {
		return domain.Conflict("media already in favorites")
	}
	return nil
}

// Remove unmarks a favorite.
func (s *Favorites) Remove(ctx context.Context, userID, mediaID int64) error {
	removed, err := s.favorites.Remove(ctx, userID, mediaID)
	if err != nil {
		return domain.Internal("remove favorite", err)
	}
	if !removed {
		return domain.NotFound("media is not a favorite")
	}
	return nil
}

// List returns the user's favorites, most recently added first.
func (s *Favorites) List(ctx context.Context, userID int64) ([]domain.Media, error) {
	items, err := s.media.ListByFavorite(ctx, userID)
	if err != nil {
		return nil, domain.Internal("list favorites", err)
	}
	return items, nil
}

// Package service holds the rating platform's business operations. Each service
// depends only on the narrow store interfaces it needs; *repository.Repository
// members satisfy all of them.
package service

import (
	"context"
	"errors"

	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// MediaStore persists catalogue entries.
type MediaStore interface {
	Create(ctx context.Context, media domain.Media) (domain.Media, error)
	GetByID(ctx context.Context, id int64) (domain.Media, error)
	Update(ctx context.Context, media domain.Media) (domain.Media, error)
	Delete(ctx context.Context, id, creatorID int64) ([]int64, error)
	List(ctx context.Context, filters domain.MediaFilters) ([]domain.Media, error)
	ListByFavorite(ctx context.Context, userID int64) ([]domain.Media, error)
}

// MediaAverager recomputes a media entry's average score from stored ratings.
type MediaAverager interface {
	RecomputeAverage(ctx context.Context, mediaID int64) error
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, username string, email *string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	UpdateEmail(ctx context.Context, id int64, email *string) (domain.User, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// UserStatistician recomputes a user's rating statistics from stored ratings.
type UserStatistician interface {
	RecomputeStatistics(ctx context.Context, userID int64) error
}

// RatingStore persists ratings.
type RatingStore interface {
	Create(ctx context.Context, params repository.RatingCreateParams) (domain.Rating, error)
	GetByID(ctx context.Context, id int64) (domain.Rating, error)
	FindByMediaAndUser(ctx context.Context, mediaID, userID int64) (domain.Rating, error)
	Update(ctx context.Context, id, ownerID int64, stars int, comment *string) (domain.Rating, error)
	Confirm(ctx context.Context, id, ownerID int64) (domain.Rating, error)
	Delete(ctx context.Context, id, ownerID int64) error
	ListByMedia(ctx context.Context, mediaID int64) ([]domain.Rating, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Rating, error)
}

// LikeRegistrar records a like and bumps the rating's counter as one unit.
type LikeRegistrar interface {
	Register(ctx context.Context, ratingID, userID int64) (bool, error)
}

// FavoriteStore persists favorite marks.
type FavoriteStore interface {
	Add(ctx context.Context, userID, mediaID int64) (bool, error)
	Remove(ctx context.Context, userID, mediaID int64) (bool, error)
}

// notFoundOr translates a repository miss into a NotFound error and anything else
// into Internal.
func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(notFoundMsg)
	}
	return domain.Internal(internalMsg, err)
}

func isInternal(err error) bool {
	return errors.Is(err, domain.ErrInternal)
}

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// clampLimit applies the default to non-positive limits and caps large ones.
func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

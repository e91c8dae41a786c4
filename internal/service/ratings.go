package service

import (
	"context"
	"errors"

	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/metrics"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// MediaGetter loads a single media entry.
type MediaGetter interface {
	GetByID(ctx context.Context, id int64) (domain.Media, error)
}

// UserGetter loads a single user.
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Ratings implements the rating operations exposed to callers. Every committed
// create, update or delete is followed by a synchronous aggregate recompute.
type Ratings struct {
	ratings    RatingStore
	media      MediaGetter
	users      UserGetter
	ledger     *Ledger
	aggregates *Maintainer
}

// NewRatings builds the rating service.
func NewRatings(ratings RatingStore, media MediaGetter, users UserGetter, ledger *Ledger, aggregates *Maintainer) *Ratings {
	return &Ratings{
		ratings:    ratings,
		media:      media,
		users:      users,
		ledger:     ledger,
		aggregates: aggregates,
	}
}

// RateMedia creates userID's rating of mediaID.
func (s *Ratings) RateMedia(ctx context.Context, userID, mediaID int64, input domain.RatingInput) (rating domain.Rating, err error) {
	defer func() { metrics.RecordRatingMutation("create", err, isInternal(err)) }()

	in, err := input.Validate()
	if err != nil {
		return domain.Rating{}, err
	}
	if _, err := s.media.GetByID(ctx, mediaID); err != nil {
		return domain.Rating{}, notFoundOr(err, "media not found", "load media")
	}
	if _, err := s.ratings.FindByMediaAndUser(ctx, mediaID, userID); err == nil {
		return domain.Rating{}, domain.Conflict("media already rated by this user")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Rating{}, domain.Internal("lookup existing rating", err)
	}

	rating, err = s.ratings.Create(ctx, repository.RatingCreateParams{
		MediaID: mediaID,
		UserID:  userID,
		Stars:   in.Stars,
		Comment: in.Comment,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return domain.Rating{}, domain.Conflict("media already rated by this user")
	case err != nil:
		return domain.Rating{}, notFoundOr(err, "media or user not found", "create rating")
	}

	if err := s.aggregates.AfterRatingChanged(ctx, userID, mediaID); err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}

// UpdateRating replaces the stars and comment of a rating owned by userID.
func (s *Ratings) UpdateRating(ctx context.Context, userID, ratingID int64, input domain.RatingInput) (rating domain.Rating, err error) {
	defer func() { metrics.RecordRatingMutation("update", err, isInternal(err)) }()

	current, err := s.owned(ctx, userID, ratingID, "only the author can edit a rating")
	if err != nil {
		return domain.Rating{}, err
	}
	in, err := input.Validate()
	if err != nil {
		return domain.Rating{}, err
	}

	rating, err = s.ratings.Update(ctx, ratingID, userID, in.Stars, in.Comment)
	if err != nil {
		return domain.Rating{}, notFoundOr(err, "rating not found", "update rating")
	}
	if err := s.aggregates.AfterRatingChanged(ctx, userID, current.MediaID); err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}

// DeleteRating removes a rating owned by userID.
func (s *Ratings) DeleteRating(ctx context.Context, userID, ratingID int64) (err error) {
	defer func() { metrics.RecordRatingMutation("delete", err, isInternal(err)) }()

	current, err := s.owned(ctx, userID, ratingID, "only the author can delete a rating")
	if err != nil {
		return err
	}
	if err := s.ratings.Delete(ctx, ratingID, userID); err != nil {
		return notFoundOr(err, "rating not found", "delete rating")
	}
	return s.aggregates.AfterRatingChanged(ctx, userID, current.MediaID)
}

// ConfirmComment makes the rating's comment visible to everyone.
func (s *Ratings) ConfirmComment(ctx context.Context, userID, ratingID int64) (rating domain.Rating, err error) {
	defer func() { metrics.RecordRatingMutation("confirm", err, isInternal(err)) }()

	if _, err := s.owned(ctx, userID, ratingID, "only the author can confirm a comment"); err != nil {
		return domain.Rating{}, err
	}
	rating, err = s.ratings.Confirm(ctx, ratingID, userID)
	if err != nil {
		return domain.Rating{}, notFoundOr(err, "rating not found", "confirm rating")
	}
	return rating, nil
}

// LikeRating likes another user's rating and returns it with the updated counter.
// A repeated like is a Conflict.
func (s *Ratings) LikeRating(ctx context.Context, userID, ratingID int64) (domain.Rating, error) {
	registered, err := s.ledger.Like(ctx, ratingID, userID)
	if err != nil {
		return domain.Rating{}, err
	}
	if !registered {
		return domain.Rating{}, domain.Conflict("rating already liked")
	}
	rating, err := s.ratings.GetByID(ctx, ratingID)
	if err != nil {
		return domain.Rating{}, notFoundOr(err, "rating not found", "reload rating")
	}
	return rating.VisibleTo(userID), nil
}

// ListForMedia returns a media entry's ratings as seen by viewerID.
func (s *Ratings) ListForMedia(ctx context.Context, viewerID, mediaID int64) ([]domain.Rating, error) {
	if _, err := s.media.GetByID(ctx, mediaID); err != nil {
		return nil, notFoundOr(err, "media not found", "load media")
	}
	ratings, err := s.ratings.ListByMedia(ctx, mediaID)
	if err != nil {
		return nil, domain.Internal("list media ratings", err)
	}
	return visible(ratings, viewerID), nil
}

// ListForUser returns userID's rating history as seen by viewerID.
func (s *Ratings) ListForUser(ctx context.Context, viewerID, userID int64) ([]domain.Rating, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "user not found", "load user")
	}
	ratings, err := s.ratings.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal("list user ratings", err)
	}
	return visible(ratings, viewerID), nil
}

func (s *Ratings) owned(ctx context.Context, userID, ratingID int64, forbidden string) (domain.Rating, error) {
	rating, err := s.ratings.GetByID(ctx, ratingID)
	if err != nil {
		return domain.Rating{}, notFoundOr(err, "rating not found", "load rating")
	}
	if rating.UserID != userID {
		return domain.Rating{}, domain.Forbidden(forbidden)
	}
	return rating, nil
}

func visible(ratings []domain.Rating, viewerID int64) []domain.Rating {
	out := make([]domain.Rating, len(ratings))
	for i, r := range ratings {
		out[i] = r.VisibleTo(viewerID)
	}
	return out
}

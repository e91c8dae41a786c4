package service

import (
	"context"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

// Media manages catalogue entries. Only an entry's creator may change or remove it.
type Media struct {
	media      MediaStore
	aggregates *Maintainer
}

// NewMedia builds the media service.
func NewMedia(media MediaStore, aggregates *Maintainer) *Media {
	return &Media{media: media, aggregates: aggregates}
}

// Create validates input and stores a new entry owned by creatorID.
func (s *Media) Create(ctx context.Context, creatorID int64, input domain.MediaInput) (domain.Media, error) {
	media, err := input.Validate()
	if err != nil {
		return domain.Media{}, err
	}
	media.CreatorID = creatorID
	created, err := s.media.Create(ctx, media)
	if err != nil {
		return domain.Media{}, notFoundOr(err, "user not found", "create media")
	}
	s.aggregates.InvalidateTopRated(ctx)
	return created, nil
}

// Get returns one entry.
func (s *Media) Get(ctx context.Context, id int64) (domain.Media, error) {
	media, err := s.media.GetByID(ctx, id)
	if err != nil {
		return domain.Media{}, notFoundOr(err, "media not found", "load media")
	}
	return media, nil
}

// List returns the entries matching filters.
func (s *Media) List(ctx context.Context, filters domain.MediaFilters) ([]domain.Media, error) {
	items, err := s.media.List(ctx, filters)
	if err != nil {
		return nil, domain.Internal("list media", err)
	}
	return items, nil
}

// Update applies patch to an entry owned by userID. The average score is never
// touched by an edit.
func (s *Media) Update(ctx context.Context, userID, mediaID int64, patch domain.MediaPatch) (domain.Media, error) {
	current, err := s.owned(ctx, userID, mediaID, "only the creator can edit this media")
	if err != nil {
		return domain.Media{}, err
	}
	next, err := patch.Apply(current)
	if err != nil {
		return domain.Media{}, err
	}
	updated, err := s.media.Update(ctx, next)
	if err != nil {
		return domain.Media{}, notFoundOr(err, "media not found", "update media")
	}
	s.aggregates.InvalidateTopRated(ctx)
	return updated, nil
}

// Delete removes an entry owned by userID together with its ratings, likes and
// favorites, then refreshes the statistics of everyone who had rated it.
func (s *Media) Delete(ctx context.Context, userID, mediaID int64) error {
	if _, err := s.owned(ctx, userID, mediaID, "only the creator can delete this media"); err != nil {
		return err
	}
	raters, err := s.media.Delete(ctx, mediaID, userID)
	if err != nil {
		return notFoundOr(err, "media not found", "delete media")
	}
	return s.aggregates.AfterMediaDeleted(ctx, raters)
}

func (s *Media) owned(ctx context.Context, userID, mediaID int64, forbidden string) (domain.Media, error) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		return domain.Media{}, notFoundOr(err, "media not found", "load media")
	}
	if media.CreatorID != userID {
		return domain.Media{}, domain.Forbidden(forbidden)
	}
	return media, nil
}

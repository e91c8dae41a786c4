package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

// RatingsRepository provides helpers for media ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `id, media_id, user_id, stars, comment, confirmed, likes_count, created_at`

// RatingCreateParams captures the payload required to create a rating.
type RatingCreateParams struct {
	MediaID int64
	UserID  int64
	Stars   int
	Comment *string
}

// Create inserts a rating. A second rating for the same (media, user) pair yields
// ErrDuplicate; a missing media or user yields ErrNotFound.
func (r *RatingsRepository) Create(ctx context.Context, params RatingCreateParams) (domain.Rating, error) {
	query := fmt.Sprintf(`
        INSERT INTO ratings (media_id, user_id, stars, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING %s
    `, ratingColumns)

	rating, err := scanRating(r.pool.QueryRow(ctx, query, params.MediaID, params.UserID, params.Stars, params.Comment))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Rating{}, ErrDuplicate
		case isForeignKeyViolation(err):
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// GetByID retrieves a rating by identifier.
func (r *RatingsRepository) GetByID(ctx context.Context, id int64) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE id = $1`, ratingColumns)
	return r.getOne(ctx, query, id)
}

// FindByMediaAndUser retrieves the rating for a specific user/media combination.
func (r *RatingsRepository) FindByMediaAndUser(ctx context.Context, mediaID, userID int64) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE media_id = $1 AND user_id = $2`, ratingColumns)
	return r.getOne(ctx, query, mediaID, userID)
}

// Update changes stars and comment of a rating owned by ownerID. The confirmed
// flag and like counter are left untouched.
func (r *RatingsRepository) Update(ctx context.Context, id, ownerID int64, stars int, comment *string) (domain.Rating, error) {
	query := fmt.Sprintf(`
        UPDATE ratings
        SET stars = $3, comment = $4
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, ratingColumns)
	return r.getOne(ctx, query, id, ownerID, stars, comment)
}

// Confirm marks the rating's comment as publicly visible.
func (r *RatingsRepository) Confirm(ctx context.Context, id, ownerID int64) (domain.Rating, error) {
	query := fmt.Sprintf(`
        UPDATE ratings
        SET confirmed = TRUE
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, ratingColumns)
	return r.getOne(ctx, query, id, ownerID)
}

// Delete removes a rating owned by ownerID.
func (r *RatingsRepository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ratings WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMedia returns a media's ratings, newest first.
func (r *RatingsRepository) ListByMedia(ctx context.Context, mediaID int64) ([]domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE media_id = $1 ORDER BY created_at DESC, id DESC`, ratingColumns)
	return r.list(ctx, query, mediaID)
}

// ListByUser returns a user's rating history, newest first.
func (r *RatingsRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, ratingColumns)
	return r.list(ctx, query, userID)
}

func (r *RatingsRepository) getOne(ctx context.Context, query string, args ...interface{}) (domain.Rating, error) {
	rating, err := scanRating(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

func (r *RatingsRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.MediaID,
		&rating.UserID,
		&rating.Stars,
		&rating.Comment,
		&rating.Confirmed,
		&rating.LikesCount,
		&rating.CreatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}

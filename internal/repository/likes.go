package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-ratings/internal/store"
)

// ErrLikeTargetMissing means the like counter update found no rating row. The whole
// like transaction is rolled back when this happens.
var ErrLikeTargetMissing = errors.New("repository: like target rating missing")

// LikesRepository records at most one like per (rating, user) pair.
type LikesRepository struct {
	pool *pgxpool.Pool
}

// Register inserts the like and bumps the rating's counter in one transaction.
// It returns false without side effects when the pair was already recorded.
func (r *LikesRepository) Register(ctx context.Context, ratingID, userID int64) (bool, error) {
	var registered bool
	err := store.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		inserted, err := r.InsertIfAbsent(ctx, tx, ratingID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		found, err := r.IncrementCount(ctx, tx, ratingID)
		if err != nil {
			return err
		}
		if !found {
			return ErrLikeTargetMissing
		}
		registered = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return registered, nil
}

// InsertIfAbsent adds the (rating, user) pair and reports whether a row was written.
// Concurrent inserts of the same pair serialize on the primary key, so exactly one
// of them observes true. An unknown user yields ErrUserNotFound; a rating deleted
// underneath the insert yields ErrLikeTargetMissing.
func (r *LikesRepository) InsertIfAbsent(ctx context.Context, tx pgx.Tx, ratingID, userID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
        INSERT INTO rating_likes (rating_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (rating_id, user_id) DO NOTHING
    `, ratingID, userID)
	if err != nil {
		switch violatedForeignKey(err) {
		case likesUserFK:
			return false, ErrUserNotFound
		case likesRatingFK:
			return false, ErrLikeTargetMissing
		}
		return false, fmt.Errorf("insert like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementCount adds one to the rating's like counter and reports whether the rating exists.
func (r *LikesRepository) IncrementCount(ctx context.Context, tx pgx.Tx, ratingID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `UPDATE ratings SET likes_count = likes_count + 1 WHERE id = $1`, ratingID)
	if err != nil {
		return false, fmt.Errorf("increment like count: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of recorded likes for a rating.
func (r *LikesRepository) Count(ctx context.Context, ratingID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM rating_likes WHERE rating_id = $1`, ratingID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

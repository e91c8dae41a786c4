package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FavoritesRepository stores the user -> media favorite set.
type FavoritesRepository struct {
	pool *pgxpool.Pool
}

// Add marks a media entry as favorite. It returns false when it already was one.
// An unknown user yields ErrUserNotFound and an unknown media entry ErrNotFound.
func (r *FavoritesRepository) Add(ctx context.Context, userID, mediaID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO favorites (user_id, media_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, media_id) DO NOTHING
    `, userID, mediaID)
	if err != nil {
		switch fk := violatedForeignKey(err); {
		case fk == favoritesUserFK:
			return false, ErrUserNotFound
		case fk != "":
			return false, ErrNotFound
		}
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Remove unmarks a favorite. It returns false when the pair did not exist.
func (r *FavoritesRepository) Remove(ctx context.Context, userID, mediaID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND media_id = $2`, userID, mediaID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

// UsersRepository persists users and their derived rating statistics.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, email, total_ratings, average_rating, created_at`

// Create inserts a user. A taken username yields ErrDuplicate.
func (r *UsersRepository) Create(ctx context.Context, username string, email *string) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (username, email)
        VALUES ($1, $2)
        RETURNING %s
    `, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, username, email))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateEmail replaces the user's email; nil clears it. An unknown user yields
// ErrNotFound.
func (r *UsersRepository) UpdateEmail(ctx context.Context, id int64, email *string) (domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users
        SET email = $2
        WHERE id = $1
        RETURNING %s
    `, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update user email: %w", err)
	}
	return user, nil
}

// GetByUsername fetches a user by exact username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// RecomputeStatistics derives total_ratings and average_rating from the ratings
// currently stored for the user. Running it again yields the same values.
func (r *UsersRepository) RecomputeStatistics(ctx context.Context, userID int64) error {
	const query = `
        UPDATE users u
        SET total_ratings  = s.cnt,
            average_rating = s.avg
        FROM (
            SELECT COUNT(*)::int AS cnt, COALESCE(AVG(stars), 0)::float8 AS avg
            FROM ratings
            WHERE user_id = $1
        ) s
        WHERE u.id = $1
    `
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("recompute user statistics: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard lists the most active raters.
func (r *UsersRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	const query = `
        SELECT id, username, total_ratings, average_rating
        FROM users
        ORDER BY total_ratings DESC, average_rating DESC, username ASC
        LIMIT $1
    `
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalRatings, &e.AverageRating); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.TotalRatings,
		&user.AverageRating,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

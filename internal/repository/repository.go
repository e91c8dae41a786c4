package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-ratings/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrUserNotFound narrows ErrNotFound to a write that referenced an unknown user.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"

	likesUserFK     = "rating_likes_user_id_fkey"
	likesRatingFK   = "rating_likes_rating_id_fkey"
	favoritesUserFK = "favorites_user_id_fkey"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Users     *UsersRepository
	Media     *MediaRepository
	Ratings   *RatingsRepository
	Likes     *LikesRepository
	Favorites *FavoritesRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Users:     &UsersRepository{pool: pool},
		Media:     &MediaRepository{pool: pool},
		Ratings:   &RatingsRepository{pool: pool},
		Likes:     &LikesRepository{pool: pool},
		Favorites: &FavoritesRepository{pool: pool},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// violatedForeignKey returns the name of the foreign key constraint err reports,
// or "" when err is not a foreign key violation.
func violatedForeignKey(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return pgErr.ConstraintName
	}
	return ""
}

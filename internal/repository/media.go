package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

// MediaRepository provides persistence helpers for catalogue entries.
type MediaRepository struct {
	pool *pgxpool.Pool
}

const mediaColumns = `
    m.id,
    m.creator_id,
    m.title,
    m.description,
    m.category,
    m.release_year,
    m.genres,
    m.age_restriction,
    m.average_score,
    m.created_at
`

// Create inserts a new media row and returns the stored entity. The average score
// always starts at zero. An unknown creator yields ErrNotFound.
func (r *MediaRepository) Create(ctx context.Context, media domain.Media) (domain.Media, error) {
	query := fmt.Sprintf(`
        WITH m AS (
            INSERT INTO media (creator_id, title, description, category, release_year, genres, age_restriction)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING *
        )
        SELECT %s FROM m
    `, mediaColumns)

	created, err := scanMedia(r.pool.QueryRow(ctx, query,
		media.CreatorID,
		media.Title,
		media.Description,
		string(media.Category),
		media.ReleaseYear,
		genresOrEmpty(media.Genres),
		media.AgeRestriction,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Media{}, ErrNotFound
		}
		return domain.Media{}, err
	}
	return created, nil
}

// GetByID fetches a media entry by its identifier.
func (r *MediaRepository) GetByID(ctx context.Context, id int64) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media m WHERE m.id = $1`, mediaColumns)
	media, err := scanMedia(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Media{}, ErrNotFound
		}
		return domain.Media{}, err
	}
	return media, nil
}

// Update replaces the descriptive fields of a media entry owned by its creator.
// average_score is deliberately not part of the statement.
func (r *MediaRepository) Update(ctx context.Context, media domain.Media) (domain.Media, error) {
	query := fmt.Sprintf(`
        WITH m AS (
            UPDATE media
            SET title = $3,
                description = $4,
                category = $5,
                release_year = $6,
                genres = $7,
                age_restriction = $8
            WHERE id = $1 AND creator_id = $2
            RETURNING *
        )
        SELECT %s FROM m
    `, mediaColumns)

	updated, err := scanMedia(r.pool.QueryRow(ctx, query,
		media.ID,
		media.CreatorID,
		media.Title,
		media.Description,
		string(media.Category),
		media.ReleaseYear,
		genresOrEmpty(media.Genres),
		media.AgeRestriction,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Media{}, ErrNotFound
		}
		return domain.Media{}, err
	}
	return updated, nil
}

// Delete removes a media entry owned by creatorID. Ratings, likes and favorites
// referencing it are removed by cascade. It returns the ids of users whose ratings
// were removed so their statistics can be recomputed.
func (r *MediaRepository) Delete(ctx context.Context, id, creatorID int64) ([]int64, error) {
	const query = `
        WITH raters AS (
            SELECT DISTINCT user_id FROM ratings WHERE media_id = $1
        ), deleted AS (
            DELETE FROM media WHERE id = $1 AND creator_id = $2 RETURNING id
        )
        SELECT (SELECT COUNT(*) FROM deleted), COALESCE(array_agg(raters.user_id), '{}')
        FROM raters
    `
	var (
		deleted int64
		raters  []int64
	)
	if err := r.pool.QueryRow(ctx, query, id, creatorID).Scan(&deleted, &raters); err != nil {
		return nil, fmt.Errorf("delete media: %w", err)
	}
	if deleted == 0 {
		return nil, ErrNotFound
	}
	return raters, nil
}

// RecomputeAverage derives average_score from the ratings currently stored for the
// media. The result is a pure function of persisted rows, so concurrent or repeated
// runs converge on the same value.
func (r *MediaRepository) RecomputeAverage(ctx context.Context, mediaID int64) error {
	const query = `
        UPDATE media
        SET average_score = (
            SELECT COALESCE(AVG(stars), 0)::float8 FROM ratings WHERE media_id = $1
        )
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, query, mediaID)
	if err != nil {
		return fmt.Errorf("recompute media average: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindRatedAtLeast returns the media the user rated with at least minStars.
func (r *MediaRepository) FindRatedAtLeast(ctx context.Context, userID int64, minStars int) ([]domain.Media, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM media m
        JOIN ratings r ON r.media_id = m.id
        WHERE r.user_id = $1 AND r.stars >= $2
        ORDER BY m.id
    `, mediaColumns)
	return r.queryMedia(ctx, query, userID, minStars)
}

// FindNotRatedBy returns every media entry the user has not rated.
func (r *MediaRepository) FindNotRatedBy(ctx context.Context, userID int64) ([]domain.Media, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM media m
        WHERE NOT EXISTS (
            SELECT 1 FROM ratings r WHERE r.media_id = m.id AND r.user_id = $1
        )
        ORDER BY m.id
    `, mediaColumns)
	return r.queryMedia(ctx, query, userID)
}

// FindTopRated returns the catalogue's highest scored media.
func (r *MediaRepository) FindTopRated(ctx context.Context, limit int) ([]domain.Media, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM media m
        ORDER BY m.average_score DESC, m.created_at DESC, lower(m.title) ASC
        LIMIT $1
    `, mediaColumns)
	return r.queryMedia(ctx, query, limit)
}

// ListByFavorite returns the media a user marked as favorite, newest first.
func (r *MediaRepository) ListByFavorite(ctx context.Context, userID int64) ([]domain.Media, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM favorites f
        JOIN media m ON m.id = f.media_id
        WHERE f.user_id = $1
        ORDER BY f.created_at DESC, m.id DESC
    `, mediaColumns)
	return r.queryMedia(ctx, query, userID)
}

// likeEscaper quotes LIKE wildcards so a title filter matches them literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns media that match the provided filters.
func (r *MediaRepository) List(ctx context.Context, filters domain.MediaFilters) ([]domain.Media, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filters.Title); q != "" {
		where = append(where, fmt.Sprintf(`m.title ILIKE %s ESCAPE '\'`, arg("%"+likeEscaper.Replace(q)+"%")))
	}
	if g := domain.NormalizeGenre(filters.Genre); g != "" {
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(m.genres) g WHERE lower(trim(g)) = %s)", arg(g)))
	}
	if c := strings.TrimSpace(filters.Category); c != "" {
		where = append(where, fmt.Sprintf("m.category = %s", arg(strings.ToUpper(c))))
	}
	if filters.ReleaseYear != nil {
		where = append(where, fmt.Sprintf("m.release_year = %s", arg(*filters.ReleaseYear)))
	}
	if filters.AgeRestriction != nil {
		where = append(where, fmt.Sprintf("m.age_restriction = %s", arg(*filters.AgeRestriction)))
	}
	if filters.MinScore != nil {
		where = append(where, fmt.Sprintf("m.average_score >= %s", arg(*filters.MinScore)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(mediaColumns)
	queryBuilder.WriteString(" FROM media m")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	switch filters.SortBy {
	case "year":
		queryBuilder.WriteString(" ORDER BY m.release_year ASC NULLS LAST, m.id ASC")
	case "score":
		queryBuilder.WriteString(" ORDER BY m.average_score DESC, m.id ASC")
	default:
		queryBuilder.WriteString(" ORDER BY lower(m.title) ASC, m.id ASC")
	}

	return r.queryMedia(ctx, queryBuilder.String(), args...)
}

func (r *MediaRepository) queryMedia(ctx context.Context, query string, args ...interface{}) ([]domain.Media, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Media, 0)
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, media)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMedia(row pgx.Row) (domain.Media, error) {
	var (
		media    domain.Media
		category string
	)
	err := row.Scan(
		&media.ID,
		&media.CreatorID,
		&media.Title,
		&media.Description,
		&category,
		&media.ReleaseYear,
		&media.Genres,
		&media.AgeRestriction,
		&media.AverageScore,
		&media.CreatedAt,
	)
	if err != nil {
		return domain.Media{}, err
	}
	media.Category = domain.Category(category)
	if media.Genres == nil {
		media.Genres = []string{}
	}
	return media, nil
}

func genresOrEmpty(genres []string) []string {
	if genres == nil {
		return []string{}
	}
	return genres
}

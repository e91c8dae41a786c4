// Package recommend ranks unrated media for a user by content similarity to the
// media that user rated highly.
package recommend

import (
	"sort"
	"strings"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

const (
	// LikedThreshold is the minimum star value that puts a media item in the taste profile.
	LikedThreshold = 4

	// ReasonFallback tags entries served from the catalogue-wide top-rated list.
	ReasonFallback = "fallback_topRated"

	reasonPrefix  = "favoriteGenre="
	noGenre       = "none"
	favoriteBonus = 3
	categoryBonus = 2
	ageBonus      = 1
)

// FavoriteGenre returns the most frequent normalized genre across liked. Ties go
// to the lexicographically smallest genre. ok is false when liked carries no genres.
func FavoriteGenre(liked []domain.Media) (genre string, ok bool) {
	counts := make(map[string]int)
	for _, m := range liked {
		for g := range genreSet(m) {
			counts[g]++
		}
	}
	best := 0
	for g, n := range counts {
		if n > best || (n == best && g < genre) {
			genre, best = g, n
		}
	}
	return genre, best > 0
}

// Reason formats the reason attached to personalized entries.
func Reason(favorite string, ok bool) string {
	if !ok {
		return reasonPrefix + noGenre
	}
	return reasonPrefix + favorite
}

// Score rates one candidate against the taste profile: a bonus when it carries
// the favorite genre plus its best pairwise similarity to any liked item.
func Score(candidate domain.Media, liked []domain.Media, favorite string, hasFavorite bool) int {
	cg := genreSet(candidate)
	score := 0
	if hasFavorite {
		if _, ok := cg[favorite]; ok {
			score += favoriteBonus
		}
	}
	best := 0
	for _, l := range liked {
		if s := similarity(candidate, cg, l); s > best {
			best = s
		}
	}
	return score + best
}

func similarity(c domain.Media, cGenres map[string]struct{}, l domain.Media) int {
	s := 0
	if c.Category == l.Category {
		s += categoryBonus
	}
	if c.AgeRestriction != nil && l.AgeRestriction != nil && *c.AgeRestriction == *l.AgeRestriction {
		s += ageBonus
	}
	for g := range genreSet(l) {
		if _, ok := cGenres[g]; ok {
			s++
		}
	}
	return s
}

// Rank scores every candidate against liked and returns at most limit entries,
// ordered by score, then average score, then case-insensitive title. liked must
// not be empty; callers serve the fallback list in that case.
func Rank(liked, candidates []domain.Media, limit int) []domain.Recommendation {
	favorite, hasFavorite := FavoriteGenre(liked)
	reason := Reason(favorite, hasFavorite)

	out := make([]domain.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.Recommendation{
			Media:  c,
			Score:  Score(c, liked, favorite, hasFavorite),
			Reason: reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Media.AverageScore != b.Media.AverageScore {
			return a.Media.AverageScore > b.Media.AverageScore
		}
		at, bt := strings.ToLower(a.Media.Title), strings.ToLower(b.Media.Title)
		if at != bt {
			return at < bt
		}
		return a.Media.ID < b.Media.ID
	})
	return truncate(out, limit)
}

// Fallback tags media as top-rated fallback entries with score zero.
func Fallback(media []domain.Media, limit int) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(media))
	for _, m := range media {
		out = append(out, domain.Recommendation{Media: m, Score: 0, Reason: ReasonFallback})
	}
	return truncate(out, limit)
}

// SortTopRated orders media the way the top-rated list is ordered: average score
// descending, newest first, then case-insensitive title.
func SortTopRated(media []domain.Media) {
	sort.SliceStable(media, func(i, j int) bool {
		a, b := media[i], media[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}

func genreSet(m domain.Media) map[string]struct{} {
	set := make(map[string]struct{}, len(m.Genres))
	for _, g := range m.Genres {
		if n := domain.NormalizeGenre(g); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func truncate(recs []domain.Recommendation, limit int) []domain.Recommendation {
	if limit >= 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

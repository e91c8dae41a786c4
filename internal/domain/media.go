package domain

import (
	"strings"
	"time"
)

// Category is the fixed enumeration of media kinds.
type Category string

const (
	CategoryMovie  Category = "MOVIE"
	CategorySeries Category = "SERIES"
	CategoryGame   Category = "GAME"
)

// ParseCategory normalizes raw input and reports whether it names a known category.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case CategoryMovie, CategorySeries, CategoryGame:
		return c, true
	default:
		return c, false
	}
}

// Media represents a catalogue entry. AverageScore is derived from ratings and is
// only ever written by the aggregate maintainer.
type Media struct {
	ID             int64
	CreatorID      int64
	Title          string
	Description    string
	Category       Category
	ReleaseYear    *int
	Genres         []string
	AgeRestriction *int
	AverageScore   float64
	CreatedAt      time.Time
}

// HasGenre reports whether the media carries the genre, ignoring case and surrounding space.
func (m Media) HasGenre(genre string) bool {
	want := NormalizeGenre(genre)
	if want == "" {
		return false
	}
	for _, g := range m.Genres {
		if NormalizeGenre(g) == want {
			return true
		}
	}
	return false
}

// NormalizeGenre is the canonical comparison form of a genre label.
func NormalizeGenre(genre string) string {
	return strings.ToLower(strings.TrimSpace(genre))
}

// MediaInput carries user-supplied descriptive fields for a new media entry.
type MediaInput struct {
	Title          string
	Description    string
	Category       string
	ReleaseYear    *int
	Genres         []string
	AgeRestriction *int
}

// Validate checks the input and returns the normalized media it describes.
func (in MediaInput) Validate() (Media, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Media{}, Validation("title is required")
	}
	category, ok := ParseCategory(in.Category)
	if !ok {
		return Media{}, Validation("category must be one of MOVIE, SERIES, GAME")
	}
	if in.ReleaseYear != nil && *in.ReleaseYear <= 0 {
		return Media{}, Validation("releaseYear must be positive")
	}
	if in.AgeRestriction != nil && *in.AgeRestriction < 0 {
		return Media{}, Validation("ageRestriction must be non-negative")
	}
	return Media{
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Category:       category,
		ReleaseYear:    in.ReleaseYear,
		Genres:         CleanGenres(in.Genres),
		AgeRestriction: in.AgeRestriction,
	}, nil
}

// CleanGenres trims labels and drops empty entries and case-insensitive duplicates,
// keeping the first spelling seen.
func CleanGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		trimmed := strings.TrimSpace(g)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// MediaPatch describes a partial update. Unset fields leave the stored value alone;
// a set pointer field holding nil clears it.
type MediaPatch struct {
	Title          Optional[string]
	Description    Optional[string]
	Category       Optional[string]
	ReleaseYear    Optional[*int]
	Genres         Optional[[]string]
	AgeRestriction Optional[*int]
}

// Apply merges the patch onto current and validates the result.
func (p MediaPatch) Apply(current Media) (Media, error) {
	in := MediaInput{
		Title:          p.Title.Or(current.Title),
		Description:    p.Description.Or(current.Description),
		Category:       p.Category.Or(string(current.Category)),
		ReleaseYear:    p.ReleaseYear.Or(current.ReleaseYear),
		Genres:         p.Genres.Or(current.Genres),
		AgeRestriction: p.AgeRestriction.Or(current.AgeRestriction),
	}
	next, err := in.Validate()
	if err != nil {
		return Media{}, err
	}
	next.ID = current.ID
	next.CreatorID = current.CreatorID
	next.AverageScore = current.AverageScore
	next.CreatedAt = current.CreatedAt
	return next, nil
}

// MediaFilters narrows catalogue listings.
type MediaFilters struct {
	Title          string
	Genre          string
	Category       string
	ReleaseYear    *int
	AgeRestriction *int
	MinScore       *float64
	SortBy         string
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }

func TestRatingInputValidate(t *testing.T) {
	for stars := MinStars; stars <= MaxStars; stars++ {
		_, err := RatingInput{Stars: stars}.Validate()
		assert.NoError(t, err, "stars=%d", stars)
	}
	for _, stars := range []int{-1, 0, 6, 100} {
		_, err := RatingInput{Stars: stars}.Validate()
		assert.ErrorIs(t, err, ErrValidation, "stars=%d", stars)
	}

	out, err := RatingInput{Stars: 3, Comment: strPtr("   ")}.Validate()
	require.NoError(t, err)
	assert.Nil(t, out.Comment)

	out, err = RatingInput{Stars: 3, Comment: strPtr(" great ")}.Validate()
	require.NoError(t, err)
	require.NotNil(t, out.Comment)
	assert.Equal(t, "great", *out.Comment)
}

func TestRatingVisibleTo(t *testing.T) {
	r := Rating{UserID: 1, Comment: strPtr("secret")}

	assert.Nil(t, r.VisibleTo(2).Comment)
	assert.Equal(t, "secret", *r.VisibleTo(1).Comment)

	r.Confirmed = true
	assert.Equal(t, "secret", *r.VisibleTo(2).Comment)
}

func TestMediaInputValidate(t *testing.T) {
	m, err := MediaInput{
		Title:    "  Heat ",
		Category: "movie",
		Genres:   []string{"Action", " action", "", "Crime "},
	}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.Title)
	assert.Equal(t, CategoryMovie, m.Category)
	assert.Equal(t, []string{"Action", "Crime"}, m.Genres)

	cases := []MediaInput{
		{Title: "", Category: "MOVIE"},
		{Title: "x", Category: "BOOK"},
		{Title: "x", Category: "GAME", ReleaseYear: intPtr(0)},
		{Title: "x", Category: "GAME", AgeRestriction: intPtr(-1)},
	}
	for i, in := range cases {
		_, err := in.Validate()
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
}

func TestMediaPatchApply(t *testing.T) {
	current := Media{
		ID:             7,
		CreatorID:      3,
		Title:          "Old",
		Category:       CategorySeries,
		AgeRestriction: intPtr(12),
		Genres:         []string{"drama"},
		AverageScore:   4.5,
	}

	next, err := MediaPatch{Title: Some("New")}.Apply(current)
	require.NoError(t, err)
	assert.Equal(t, "New", next.Title)
	assert.Equal(t, CategorySeries, next.Category)
	assert.Equal(t, 12, *next.AgeRestriction)
	assert.Equal(t, 4.5, next.AverageScore)
	assert.Equal(t, int64(7), next.ID)

	cleared, err := MediaPatch{AgeRestriction: Some[*int](nil)}.Apply(current)
	require.NoError(t, err)
	assert.Nil(t, cleared.AgeRestriction)

	_, err = MediaPatch{Category: Some("book")}.Apply(current)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMediaHasGenre(t *testing.T) {
	m := Media{Genres: []string{" Action", "Sci-Fi"}}
	assert.True(t, m.HasGenre("action"))
	assert.True(t, m.HasGenre("SCI-FI "))
	assert.False(t, m.HasGenre("drama"))
	assert.False(t, m.HasGenre(""))
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("like rating: %w", Internal("could not register like", cause))

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, ErrInternal, KindOf(err))
	assert.Equal(t, "could not register like", MessageOf(err))

	assert.Equal(t, ErrConflict, KindOf(Conflict("already liked")))
	assert.Equal(t, ErrInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
}

func TestValidateUsername(t *testing.T) {
	name, err := ValidateUsername("  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, err = ValidateUsername(" ")
	assert.ErrorIs(t, err, ErrValidation)
}

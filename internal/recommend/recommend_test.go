package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/media-ratings/internal/cache"
	"github.com/Clark-Hu/media-ratings/internal/domain"
)

func intPtr(v int) *int { return &v }

func media(id int64, title string, category domain.Category, age *int, avg float64, genres ...string) domain.Media {
	return domain.Media{
		ID:             id,
		Title:          title,
		Category:       category,
		AgeRestriction: age,
		AverageScore:   avg,
		Genres:         genres,
		CreatedAt:      time.Unix(1_700_000_000+id, 0),
	}
}

// fakeCatalog answers from a fixed set of media and one user's star ratings.
type fakeCatalog struct {
	all       []domain.Media
	stars     map[int64]int
	err       error
	topCalls  atomic.Int32
	lastLimit int
}

func (c *fakeCatalog) FindRatedAtLeast(_ context.Context, _ int64, minStars int) ([]domain.Media, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Media, 0)
	for _, m := range c.all {
		if s, ok := c.stars[m.ID]; ok && s >= minStars {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindNotRatedBy(_ context.Context, _ int64) ([]domain.Media, error) {
	out := make([]domain.Media, 0)
	for _, m := range c.all {
		if _, ok := c.stars[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindTopRated(_ context.Context, limit int) ([]domain.Media, error) {
	c.topCalls.Add(1)
	c.lastLimit = limit
	out := append([]domain.Media(nil), c.all...)
	SortTopRated(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newEngine(c Catalog, store cache.Cache) *Engine {
	return NewEngine(c, Options{Cache: store}, zerolog.Nop())
}

func TestActionGameOutranksDrama(t *testing.T) {
	liked := []domain.Media{
		media(1, "Heat", domain.CategoryMovie, intPtr(16), 4.5, "Action"),
		media(2, "Ronin", domain.CategoryMovie, intPtr(16), 4.0, "action", "Thriller"),
	}
	game := media(3, "Strike Force", domain.CategoryGame, intPtr(16), 3.0, "Action")
	drama := media(4, "Quiet Days", domain.CategoryMovie, intPtr(16), 4.9, "Drama")

	recs := Rank(liked, []domain.Media{drama, game}, 10)
	require.Len(t, recs, 2)
	assert.Equal(t, game.ID, recs[0].Media.ID)
	assert.Equal(t, 5, recs[0].Score)
	assert.Equal(t, drama.ID, recs[1].Media.ID)
	assert.Equal(t, 3, recs[1].Score)
	assert.Greater(t, recs[0].Score, recs[1].Score)
	for _, r := range recs {
		assert.Equal(t, "favoriteGenre=action", r.Reason)
	}
}

func TestScoreUsesBestLikedMatch(t *testing.T) {
	liked := []domain.Media{
		media(1, "A", domain.CategorySeries, nil, 0, "Comedy"),
		media(2, "B", domain.CategoryGame, intPtr(18), 0, "Horror", "Survival"),
	}
	c := media(3, "C", domain.CategoryGame, intPtr(18), 0, "survival", "HORROR")

	favorite, ok := FavoriteGenre(liked)
	require.True(t, ok)
	// comedy, horror and survival tie at one; comedy is smallest.
	assert.Equal(t, "comedy", favorite)
	// Best pair is B: category 2 + age 1 + two shared genres.
	assert.Equal(t, 5, Score(c, liked, favorite, ok))
}

func TestAgeRestrictionRequiresBothSet(t *testing.T) {
	liked := []domain.Media{media(1, "L", domain.CategoryMovie, nil, 0)}
	c := media(2, "C", domain.CategoryGame, nil, 0)
	assert.Equal(t, 0, Score(c, liked, "", false))

	c.AgeRestriction = intPtr(0)
	liked[0].AgeRestriction = intPtr(0)
	assert.Equal(t, 1, Score(c, liked, "", false))
}

func TestFavoriteGenreTieBreakIsDeterministic(t *testing.T) {
	liked := []domain.Media{
		media(1, "A", domain.CategoryMovie, nil, 0, "Sci-Fi", "Drama"),
		media(2, "B", domain.CategoryMovie, nil, 0, " drama ", "sci-fi"),
		media(3, "C", domain.CategoryMovie, nil, 0, "Western"),
	}
	for i := 0; i < 50; i++ {
		genre, ok := FavoriteGenre(liked)
		require.True(t, ok)
		assert.Equal(t, "drama", genre)
	}

	_, ok := FavoriteGenre([]domain.Media{media(1, "A", domain.CategoryMovie, nil, 0)})
	assert.False(t, ok)
	assert.Equal(t, "favoriteGenre=none", Reason("", false))
}

func TestRankTieBreaks(t *testing.T) {
	liked := []domain.Media{media(1, "L", domain.CategoryMovie, nil, 0)}
	candidates := []domain.Media{
		media(2, "beta", domain.CategoryMovie, nil, 3.0),
		media(3, "Alpha", domain.CategoryMovie, nil, 3.0),
		media(4, "Zeta", domain.CategoryMovie, nil, 4.0),
		media(5, "Other", domain.CategoryGame, nil, 5.0),
	}
	recs := Rank(liked, candidates, 10)
	got := make([]string, 0, len(recs))
	for _, r := range recs {
		got = append(got, r.Media.Title)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "beta", "Other"}, got)
}

func TestRankRespectsLimit(t *testing.T) {
	liked := []domain.Media{media(1, "L", domain.CategoryMovie, nil, 0)}
	candidates := make([]domain.Media, 0, 30)
	for i := 0; i < 30; i++ {
		candidates = append(candidates, media(int64(i+10), fmt.Sprintf("M%02d", i), domain.CategoryMovie, nil, 0))
	}
	assert.Len(t, Rank(liked, candidates, 5), 5)
	assert.Empty(t, Rank(liked, nil, 5))
}

func catalogFixture() *fakeCatalog {
	return &fakeCatalog{
		all: []domain.Media{
			media(1, "Loved", domain.CategoryMovie, intPtr(16), 4.0, "Action"),
			media(2, "Meh", domain.CategoryMovie, nil, 2.0, "Drama"),
			media(3, "Game", domain.CategoryGame, intPtr(16), 3.5, "Action"),
			media(4, "Series", domain.CategorySeries, nil, 5.0, "Comedy"),
			media(5, "Doc", domain.CategoryMovie, nil, 1.0),
		},
		stars: map[int64]int{},
	}
}

func TestRecommendNeverReturnsRatedMedia(t *testing.T) {
	c := catalogFixture()
	c.stars = map[int64]int{1: 5, 2: 2}
	e := newEngine(c, nil)

	for _, limit := range []int{1, 2, 3, 50} {
		recs, err := e.Recommend(context.Background(), 7, limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(recs), limit)
		for _, r := range recs {
			assert.NotContains(t, []int64{1, 2}, r.Media.ID)
			assert.Equal(t, "favoriteGenre=action", r.Reason)
		}
	}

	recs, err := e.Recommend(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(3), recs[0].Media.ID)
}

func TestRecommendFallbackWhenNothingLiked(t *testing.T) {
	c := catalogFixture()
	e := newEngine(c, nil)

	recs, err := e.Recommend(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	ids := make([]int64, 0, 3)
	for _, r := range recs {
		ids = append(ids, r.Media.ID)
		assert.Equal(t, ReasonFallback, r.Reason)
		assert.Zero(t, r.Score)
	}
	assert.Equal(t, []int64{4, 1, 3}, ids)
}

func TestRecommendFallbackSkipsLowRatedMedia(t *testing.T) {
	c := catalogFixture()
	c.stars = map[int64]int{4: 3}
	e := newEngine(c, nil)

	recs, err := e.Recommend(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.NotEqual(t, int64(4), r.Media.ID)
		assert.Equal(t, ReasonFallback, r.Reason)
	}
	assert.Equal(t, int64(1), recs[0].Media.ID)
}

func TestRecommendFallbackUsesCache(t *testing.T) {
	c := catalogFixture()
	store := cache.NewMemory()
	e := newEngine(c, store)
	ctx := context.Background()

	_, err := e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	_, err = e.Recommend(ctx, 8, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.topCalls.Load())
	assert.Equal(t, MaxLimit, c.lastLimit)

	require.NoError(t, store.Delete(ctx, cache.TopRatedKey))
	_, err = e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.topCalls.Load())
}

func TestRecommendCorruptCacheFallsThrough(t *testing.T) {
	c := catalogFixture()
	store := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cache.TopRatedKey, []byte("{not json"), time.Minute))

	recs, err := newEngine(c, store).Recommend(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(4), recs[0].Media.ID)
}

// recomputingCatalog simulates an average recompute that lands while the
// top-rated list is being read: the list is taken, then the scores change and
// the cache is invalidated before the read returns.
type recomputingCatalog struct {
	*fakeCatalog
	store cache.Cache
	fired bool
}

func (c *recomputingCatalog) FindTopRated(ctx context.Context, limit int) ([]domain.Media, error) {
	out, err := c.fakeCatalog.FindTopRated(ctx, limit)
	if err != nil || c.fired {
		return out, err
	}
	c.fired = true
	c.all[0].AverageScore = 1.0
	c.all[1].AverageScore = 5.0
	if err := cache.InvalidateTopRated(ctx, c.store); err != nil {
		return nil, err
	}
	return out, nil
}

func TestRecommendDoesNotCacheListLoadedAcrossInvalidation(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	c := &recomputingCatalog{
		fakeCatalog: &fakeCatalog{
			all: []domain.Media{
				media(1, "A", domain.CategoryMovie, nil, 4.0),
				media(2, "B", domain.CategoryMovie, nil, 2.0),
			},
			stars: map[int64]int{},
		},
		store: store,
	}
	e := newEngine(c, store)

	first, err := e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].Media.ID)

	_, found, err := store.Get(ctx, cache.TopRatedKey)
	require.NoError(t, err)
	assert.False(t, found)

	second, err := e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, int64(2), second[0].Media.ID)
	assert.Equal(t, int64(1), second[1].Media.ID)
	assert.EqualValues(t, 2, c.topCalls.Load())
}

func TestRecommendRejectsEntryFromOlderGeneration(t *testing.T) {
	c := catalogFixture()
	store := cache.NewMemory()
	e := newEngine(c, store)
	ctx := context.Background()

	_, err := e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.topCalls.Load())

	// Bump only the counter so the stored entry is left behind.
	_, err = store.Incr(ctx, cache.TopRatedGenerationKey)
	require.NoError(t, err)
	_, err = e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.topCalls.Load())

	_, err = e.Recommend(ctx, 7, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.topCalls.Load())
}

func TestRecommendStoreFailureIsInternal(t *testing.T) {
	c := catalogFixture()
	c.err = errors.New("db down")

	_, err := newEngine(c, nil).Recommend(context.Background(), 7, 5)
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestRecommendEmptyCatalog(t *testing.T) {
	recs, err := newEngine(&fakeCatalog{stars: map[int64]int{}}, nil).Recommend(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLimitNormalization(t *testing.T) {
	e := newEngine(catalogFixture(), nil)
	assert.Equal(t, DefaultLimit, e.Limit(0))
	assert.Equal(t, DefaultLimit, e.Limit(-1))
	assert.Equal(t, 42, e.Limit(42))
	assert.Equal(t, MaxLimit, e.Limit(MaxLimit+1))

	custom := NewEngine(catalogFixture(), Options{DefaultLimit: 3}, zerolog.Nop())
	assert.Equal(t, 3, custom.Limit(0))
}

func TestSortTopRated(t *testing.T) {
	items := []domain.Media{
		media(1, "b", domain.CategoryMovie, nil, 4.0),
		media(2, "a", domain.CategoryMovie, nil, 4.0),
		media(3, "c", domain.CategoryMovie, nil, 5.0),
	}
	items[1].CreatedAt = items[0].CreatedAt
	SortTopRated(items)
	ids := make([]int64, 0, 3)
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
	assert.True(t, sort.SliceIsSorted(items, func(i, j int) bool { return items[i].AverageScore > items[j].AverageScore }))
}

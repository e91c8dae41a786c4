package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/media-ratings/internal/cache"
	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

type pair struct{ a, b int64 }

// memDB mimics the relational store closely enough for service tests:
// unique (media, user) ratings, cascading media deletes and derived aggregates
// computed from current rows.
type memDB struct {
	mu        sync.Mutex
	nextID    int64
	clock     time.Time
	users     map[int64]domain.User
	media     map[int64]domain.Media
	ratings   map[int64]domain.Rating
	likes     map[pair]struct{}
	favorites map[pair]time.Time

	recomputeErr error
	registerErr  error
}

func newMemDB() *memDB {
	return &memDB{
		clock:     time.Unix(1_700_000_000, 0).UTC(),
		users:     make(map[int64]domain.User),
		media:     make(map[int64]domain.Media),
		ratings:   make(map[int64]domain.Rating),
		likes:     make(map[pair]struct{}),
		favorites: make(map[pair]time.Time),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

type fakeUsers struct{ db *memDB }
type fakeMedia struct{ db *memDB }
type fakeRatings struct{ db *memDB }
type fakeLikes struct{ db *memDB }
type fakeFavorites struct{ db *memDB }

func (f fakeUsers) Create(_ context.Context, username string, email *string) (domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Username == username {
			return domain.User{}, repository.ErrDuplicate
		}
	}
	u := domain.User{ID: f.db.id(), Username: username, Email: email, CreatedAt: f.db.tick()}
	f.db.users[u.ID] = u
	return u, nil
}

func (f fakeUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) UpdateEmail(_ context.Context, id int64, email *string) (domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	u.Email = email
	f.db.users[id] = u
	return u, nil
}

func (f fakeUsers) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.LeaderboardEntry, 0, len(f.db.users))
	for _, u := range f.db.users {
		out = append(out, domain.LeaderboardEntry{UserID: u.ID, Username: u.Username, TotalRatings: u.TotalRatings, AverageRating: u.AverageRating})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRatings != out[j].TotalRatings {
			return out[i].TotalRatings > out[j].TotalRatings
		}
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeUsers) RecomputeStatistics(_ context.Context, userID int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.recomputeErr != nil {
		return f.db.recomputeErr
	}
	u, ok := f.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	var sum, n int
	for _, r := range f.db.ratings {
		if r.UserID == userID {
			sum += r.Stars
			n++
		}
	}
	u.TotalRatings = n
	u.AverageRating = 0
	if n > 0 {
		u.AverageRating = float64(sum) / float64(n)
	}
	f.db.users[userID] = u
	return nil
}

func (f fakeMedia) Create(_ context.Context, media domain.Media) (domain.Media, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[media.CreatorID]; !ok {
		return domain.Media{}, repository.ErrNotFound
	}
	media.ID = f.db.id()
	media.AverageScore = 0
	media.CreatedAt = f.db.tick()
	f.db.media[media.ID] = media
	return media, nil
}

func (f fakeMedia) GetByID(_ context.Context, id int64) (domain.Media, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.media[id]
	if !ok {
		return domain.Media{}, repository.ErrNotFound
	}
	return m, nil
}

func (f fakeMedia) Update(_ context.Context, media domain.Media) (domain.Media, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	current, ok := f.db.media[media.ID]
	if !ok || current.CreatorID != media.CreatorID {
		return domain.Media{}, repository.ErrNotFound
	}
	media.AverageScore = current.AverageScore
	media.CreatedAt = current.CreatedAt
	f.db.media[media.ID] = media
	return media, nil
}

func (f fakeMedia) Delete(_ context.Context, id, creatorID int64) ([]int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	current, ok := f.db.media[id]
	if !ok || current.CreatorID != creatorID {
		return nil, repository.ErrNotFound
	}
	delete(f.db.media, id)
	raters := make([]int64, 0)
	for rid, r := range f.db.ratings {
		if r.MediaID != id {
			continue
		}
		raters = append(raters, r.UserID)
		delete(f.db.ratings, rid)
		for p := range f.db.likes {
			if p.a == rid {
				delete(f.db.likes, p)
			}
		}
	}
	for p := range f.db.favorites {
		if p.b == id {
			delete(f.db.favorites, p)
		}
	}
	sort.Slice(raters, func(i, j int) bool { return raters[i] < raters[j] })
	return raters, nil
}

func (f fakeMedia) List(_ context.Context, _ domain.MediaFilters) ([]domain.Media, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.Media, 0, len(f.db.media))
	for _, m := range f.db.media {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeMedia) ListByFavorite(_ context.Context, userID int64) ([]domain.Media, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.Media, 0)
	for p := range f.db.favorites {
		if p.a == userID {
			out = append(out, f.db.media[p.b])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeMedia) RecomputeAverage(_ context.Context, mediaID int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.recomputeErr != nil {
		return f.db.recomputeErr
	}
	m, ok := f.db.media[mediaID]
	if !ok {
		return repository.ErrNotFound
	}
	var sum, n int
	for _, r := range f.db.ratings {
		if r.MediaID == mediaID {
			sum += r.Stars
			n++
		}
	}
	m.AverageScore = 0
	if n > 0 {
		m.AverageScore = float64(sum) / float64(n)
	}
	f.db.media[mediaID] = m
	return nil
}

func (f fakeRatings) Create(_ context.Context, p repository.RatingCreateParams) (domain.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.media[p.MediaID]; !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	if _, ok := f.db.users[p.UserID]; !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	for _, r := range f.db.ratings {
		if r.MediaID == p.MediaID && r.UserID == p.UserID {
			return domain.Rating{}, repository.ErrDuplicate
		}
	}
	r := domain.Rating{ID: f.db.id(), MediaID: p.MediaID, UserID: p.UserID, Stars: p.Stars, Comment: p.Comment, CreatedAt: f.db.tick()}
	f.db.ratings[r.ID] = r
	return r, nil
}

func (f fakeRatings) GetByID(_ context.Context, id int64) (domain.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.ratings[id]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	return r, nil
}

func (f fakeRatings) FindByMediaAndUser(_ context.Context, mediaID, userID int64) (domain.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.ratings {
		if r.MediaID == mediaID && r.UserID == userID {
			return r, nil
		}
	}
	return domain.Rating{}, repository.ErrNotFound
}

func (f fakeRatings) Update(_ context.Context, id, ownerID int64, stars int, comment *string) (domain.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.ratings[id]
	if !ok || r.UserID != ownerID {
		return domain.Rating{}, repository.ErrNotFound
	}
	r.Stars = stars
	r.Comment = comment
	f.db.ratings[id] = r
	return r, nil
}

func (f fakeRatings) Confirm(_ context.Context, id, ownerID int64) (domain.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.ratings[id]
	if !ok || r.UserID != ownerID {
		return domain.Rating{}, repository.ErrNotFound
	}
	r.Confirmed = true
	f.db.ratings[id] = r
	return r, nil
}

func (f fakeRatings) Delete(_ context.Context, id, ownerID int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.ratings[id]
	if !ok || r.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.db.ratings, id)
	return nil
}

func (f fakeRatings) ListByMedia(_ context.Context, mediaID int64) ([]domain.Rating, error) {
	return f.filter(func(r domain.Rating) bool { return r.MediaID == mediaID }), nil
}

func (f fakeRatings) ListByUser(_ context.Context, userID int64) ([]domain.Rating, error) {
	return f.filter(func(r domain.Rating) bool { return r.UserID == userID }), nil
}

func (f fakeRatings) filter(keep func(domain.Rating) bool) []domain.Rating {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.Rating, 0)
	for _, r := range f.db.ratings {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeLikes) Register(_ context.Context, ratingID, userID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.registerErr != nil {
		return false, f.db.registerErr
	}
	if _, ok := f.db.users[userID]; !ok {
		return false, repository.ErrUserNotFound
	}
	key := pair{ratingID, userID}
	if _, dup := f.db.likes[key]; dup {
		return false, nil
	}
	r, ok := f.db.ratings[ratingID]
	if !ok {
		return false, repository.ErrLikeTargetMissing
	}
	f.db.likes[key] = struct{}{}
	r.LikesCount++
	f.db.ratings[ratingID] = r
	return true, nil
}

func (f fakeFavorites) Add(_ context.Context, userID, mediaID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[userID]; !ok {
		return false, repository.ErrUserNotFound
	}
	if _, ok := f.db.media[mediaID]; !ok {
		return false, repository.ErrNotFound
	}
	key := pair{userID, mediaID}
	if _, dup := f.db.favorites[key]; dup {
		return false, nil
	}
	f.db.favorites[key] = f.db.tick()
	return true, nil
}

func (f fakeFavorites) Remove(_ context.Context, userID, mediaID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	key := pair{userID, mediaID}
	if _, ok := f.db.favorites[key]; !ok {
		return false, nil
	}
	delete(f.db.favorites, key)
	return true, nil
}

type fixture struct {
	db         *memDB
	cache      *cache.Memory
	aggregates *Maintainer
	ledger     *Ledger
	ratings    *Ratings
	media      *Media
	users      *Users
	favorites  *Favorites
}

func newFixture() *fixture {
	db := newMemDB()
	c := cache.NewMemory()
	logger := zerolog.Nop()
	aggregates := NewMaintainer(fakeMedia{db}, fakeUsers{db}, c, logger)
	ledger := NewLedger(fakeRatings{db}, fakeLikes{db}, logger)
	return &fixture{
		db:         db,
		cache:      c,
		aggregates: aggregates,
		ledger:     ledger,
		ratings:    NewRatings(fakeRatings{db}, fakeMedia{db}, fakeUsers{db}, ledger, aggregates),
		media:      NewMedia(fakeMedia{db}, aggregates),
		users:      NewUsers(fakeUsers{db}),
		favorites:  NewFavorites(fakeFavorites{db}, fakeMedia{db}),
	}
}

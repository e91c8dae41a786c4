package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// Users registers members and serves their profiles.
type Users struct {
	users UserStore
}

// NewUsers builds the user service.
func NewUsers(users UserStore) *Users {
	return &Users{users: users}
}

// Register creates a user with a unique username.
func (s *Users) Register(ctx context.Context, username string, email *string) (domain.User, error) {
	name, err := domain.ValidateUsername(username)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.Create(ctx, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, domain.Conflict("username already taken")
		}
		return domain.User{}, domain.Internal("create user", err)
	}
	return user, nil
}

// Profile returns a user with their derived rating statistics.
func (s *Users) Profile(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, notFoundOr(err, "user not found", "load user")
	}
	return user, nil
}

// UpdateEmail changes userID's email. Only the user may change it; a blank
// address clears it.
func (s *Users) UpdateEmail(ctx context.Context, requesterID, userID int64, email *string) (domain.User, error) {
	if requesterID != userID {
		return domain.User{}, domain.Forbidden("only the owner can update this profile")
	}
	if email != nil {
		trimmed := strings.TrimSpace(*email)
		email = &trimmed
		if trimmed == "" {
			email = nil
		}
	}
	user, err := s.users.UpdateEmail(ctx, userID, email)
	if err != nil {
		return domain.User{}, notFoundOr(err, "user not found", "update user email")
	}
	return user, nil
}

// Leaderboard lists the most active raters, ordered by rating count, then
// average rating, then username.
func (s *Users) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := s.users.Leaderboard(ctx, clampLimit(limit, defaultListLimit))
	if err != nil {
		return nil, domain.Internal("load leaderboard", err)
	}
	return entries, nil
}

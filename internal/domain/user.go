package domain

import (
	"strings"
	"time"
)

// User is a platform member. TotalRatings and AverageRating are derived and only
// written by the aggregate maintainer.
type User struct {
	ID            int64
	Username      string
	Email         *string
	TotalRatings  int
	AverageRating float64
	CreatedAt     time.Time
}

// ValidateUsername trims and checks a username.
func ValidateUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", Validation("username is required")
	}
	if len(name) > 64 {
		return "", Validation("username must be at most 64 characters")
	}
	return name, nil
}

// LeaderboardEntry is one row of the public rating-activity leaderboard.
type LeaderboardEntry struct {
	UserID        int64
	Username      string
	TotalRatings  int
	AverageRating float64
}

// Recommendation pairs a suggested media item with its relevance score and the reason it was chosen.
type Recommendation struct {
	Media  Media
	Score  int
	Reason string
}

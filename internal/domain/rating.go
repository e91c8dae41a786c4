package domain

import (
	"strings"
	"time"
)

const (
	MinStars = 1
	MaxStars = 5
)

// Rating represents one user's star score for one media item.
type Rating struct {
	ID         int64
	MediaID    int64
	UserID     int64
	Stars      int
	Comment    *string
	Confirmed  bool
	LikesCount int
	CreatedAt  time.Time
}

// VisibleTo returns a copy with the comment hidden unless the comment was confirmed
// or the viewer wrote the rating.
func (r Rating) VisibleTo(viewerID int64) Rating {
	if r.Confirmed || r.UserID == viewerID {
		return r
	}
	r.Comment = nil
	return r
}

// RatingInput is the user-supplied part of a rating.
type RatingInput struct {
	Stars   int
	Comment *string
}

// Validate checks the star range and normalizes the comment. A blank comment becomes nil.
func (in RatingInput) Validate() (RatingInput, error) {
	if in.Stars < MinStars || in.Stars > MaxStars {
		return RatingInput{}, Validation("stars must be between 1 and 5")
	}
	out := RatingInput{Stars: in.Stars}
	if in.Comment != nil {
		if c := strings.TrimSpace(*in.Comment); c != "" {
			out.Comment = &c
		}
	}
	return out, nil
}

// Like records that a user liked a rating.
type Like struct {
	RatingID int64
	UserID   int64
}

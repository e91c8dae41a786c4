package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

type registerUserRequest struct {
	Username string  `json:"username" validate:"required,max=64"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type updateProfileRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
}

type userResponse struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         *string   `json:"email,omitempty"`
	TotalRatings  int       `json:"totalRatings"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
}

type leaderboardEntryResponse struct {
	UserID        int64   `json:"userId"`
	Username      string  `json:"username"`
	TotalRatings  int     `json:"totalRatings"`
	AverageRating float64 `json:"averageRating"`
}

type recommendationResponse struct {
	Media  mediaResponse `json:"media"`
	Score  int           `json:"score"`
	Reason string        `json:"reason"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := s.svc.Users.Register(r.Context(), req.Username, req.Email)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(user, true))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	user, err := s.svc.Users.Profile(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	viewerID, _ := callerID(r)
	s.respondJSON(w, http.StatusOK, toUserResponse(user, viewerID == userID))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := s.svc.Users.UpdateEmail(r.Context(), requester, userID, req.Email)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user, true))
}

func (s *Server) handleListUserRatings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	viewerID, _ := callerID(r)
	ratings, err := s.svc.Ratings.ListForUser(r.Context(), viewerID, userID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponses(ratings))
}

// handleRecommendations serves personalized suggestions. Only the user themself may
// ask for their own list.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	if requester != userID {
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "recommendations are only available to their owner")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if _, err := s.svc.Users.Profile(r.Context(), userID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}

	recs, err := s.svc.Recommend.Recommend(r.Context(), userID, limit)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	out := make([]recommendationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recommendationResponse{
			Media:  toMediaResponse(rec.Media),
			Score:  rec.Score,
			Reason: rec.Reason,
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	items, err := s.svc.Favorites.List(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponses(items))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	entries, err := s.svc.Users.Leaderboard(r.Context(), limit)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	out := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryResponse{
			UserID:        e.UserID,
			Username:      e.Username,
			TotalRatings:  e.TotalRatings,
			AverageRating: roundToTwoDecimals(e.AverageRating),
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// toUserResponse renders a user. The email is private to its owner.
func toUserResponse(u domain.User, includeEmail bool) userResponse {
	out := userResponse{
		ID:            u.ID,
		Username:      u.Username,
		TotalRatings:  u.TotalRatings,
		AverageRating: roundToTwoDecimals(u.AverageRating),
		CreatedAt:     u.CreatedAt,
	}
	if includeEmail {
		out.Email = u.Email
	}
	return out
}

package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

type ratingRequest struct {
	Stars   int     `json:"stars"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type ratingResponse struct {
	ID         int64     `json:"id"`
	MediaID    int64     `json:"mediaId"`
	UserID     int64     `json:"userId"`
	Stars      int       `json:"stars"`
	Comment    *string   `json:"comment"`
	Confirmed  bool      `json:"confirmed"`
	LikesCount int       `json:"likesCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Server) handleRateMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	rating, err := s.svc.Ratings.RateMedia(r.Context(), userID, mediaID, domain.RatingInput{
		Stars:   req.Stars,
		Comment: req.Comment,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toRatingResponse(rating))
}

func (s *Server) handleListMediaRatings(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	viewerID, _ := callerID(r)
	ratings, err := s.svc.Ratings.ListForMedia(r.Context(), viewerID, mediaID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponses(ratings))
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ratingID, ok := s.pathID(w, r, "ratingID")
	if !ok {
		return
	}
	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	rating, err := s.svc.Ratings.UpdateRating(r.Context(), userID, ratingID, domain.RatingInput{
		Stars:   req.Stars,
		Comment: req.Comment,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ratingID, ok := s.pathID(w, r, "ratingID")
	if !ok {
		return
	}
	if err := s.svc.Ratings.DeleteRating(r.Context(), userID, ratingID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLikeRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ratingID, ok := s.pathID(w, r, "ratingID")
	if !ok {
		return
	}
	rating, err := s.svc.Ratings.LikeRating(r.Context(), userID, ratingID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func (s *Server) handleConfirmRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ratingID, ok := s.pathID(w, r, "ratingID")
	if !ok {
		return
	}
	rating, err := s.svc.Ratings.ConfirmComment(r.Context(), userID, ratingID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func toRatingResponse(r domain.Rating) ratingResponse {
	return ratingResponse{
		ID:         r.ID,
		MediaID:    r.MediaID,
		UserID:     r.UserID,
		Stars:      r.Stars,
		Comment:    r.Comment,
		Confirmed:  r.Confirmed,
		LikesCount: r.LikesCount,
		CreatedAt:  r.CreatedAt,
	}
}

func toRatingResponses(ratings []domain.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, toRatingResponse(r))
	}
	return out
}

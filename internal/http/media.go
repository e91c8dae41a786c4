package httpserver

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/media-ratings/internal/domain"
)

type mediaCreateRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"max=4000"`
	Category       string   `json:"category" validate:"required"`
	ReleaseYear    *int     `json:"releaseYear" validate:"omitempty,gt=0"`
	Genres         []string `json:"genres" validate:"omitempty,dive,max=64"`
	AgeRestriction *int     `json:"ageRestriction" validate:"omitempty,gte=0"`
}

type mediaResponse struct {
	ID             int64     `json:"id"`
	CreatorID      int64     `json:"creatorId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	ReleaseYear    *int      `json:"releaseYear,omitempty"`
	Genres         []string  `json:"genres"`
	AgeRestriction *int      `json:"ageRestriction,omitempty"`
	AverageScore   float64   `json:"averageScore"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMediaFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	items, err := s.svc.Media.List(r.Context(), filters)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponses(items))
}

func buildMediaFilters(query url.Values) (domain.MediaFilters, error) {
	var filters domain.MediaFilters

	filters.Title = strings.TrimSpace(query.Get("title"))
	filters.Genre = strings.TrimSpace(query.Get("genre"))
	if val := strings.TrimSpace(query.Get("category")); val != "" {
		category, ok := domain.ParseCategory(val)
		if !ok {
			return filters, fmt.Errorf("invalid category value")
		}
		filters.Category = string(category)
	}
	if val := strings.TrimSpace(query.Get("releaseYear")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid releaseYear value")
		}
		filters.ReleaseYear = &year
	}
	if val := strings.TrimSpace(query.Get("ageRestriction")); val != "" {
		age, err := strconv.Atoi(val)
		if err != nil || age < 0 {
			return filters, fmt.Errorf("invalid ageRestriction value")
		}
		filters.AgeRestriction = &age
	}
	if val := strings.TrimSpace(query.Get("minScore")); val != "" {
		score, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(score) || score < 0 || score > domain.MaxStars {
			return filters, fmt.Errorf("invalid minScore value")
		}
		filters.MinScore = &score
	}
	switch sortBy := strings.ToLower(strings.TrimSpace(query.Get("sortBy"))); sortBy {
	case "", "title", "year", "score":
		filters.SortBy = sortBy
	default:
		return filters, fmt.Errorf("invalid sortBy value")
	}
	return filters, nil
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req mediaCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	media, err := s.svc.Media.Create(r.Context(), userID, domain.MediaInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		ReleaseYear:    req.ReleaseYear,
		Genres:         req.Genres,
		AgeRestriction: req.AgeRestriction,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/media/%d", media.ID))
	s.respondJSON(w, http.StatusCreated, toMediaResponse(media))
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	media, err := s.svc.Media.Get(r.Context(), mediaID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeJSONBody(w, r, &raw); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	patch, err := parseMediaPatch(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	media, err := s.svc.Media.Update(r.Context(), userID, mediaID, patch)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

// parseMediaPatch turns a partial JSON object into a patch. Absent keys leave the
// field untouched; null clears the optional fields.
func parseMediaPatch(raw map[string]json.RawMessage) (domain.MediaPatch, error) {
	var patch domain.MediaPatch
	if len(raw) == 0 {
		return patch, fmt.Errorf("request body must contain at least one field")
	}
	for key, value := range raw {
		var err error
		switch key {
		case "title":
			patch.Title, err = decodeField[string](key, value)
		case "description":
			patch.Description, err = decodeField[string](key, value)
		case "category":
			patch.Category, err = decodeField[string](key, value)
		case "releaseYear":
			patch.ReleaseYear, err = decodeField[*int](key, value)
		case "genres":
			patch.Genres, err = decodeField[[]string](key, value)
		case "ageRestriction":
			patch.AgeRestriction, err = decodeField[*int](key, value)
		default:
			err = fmt.Errorf("unknown field %s", key)
		}
		if err != nil {
			return domain.MediaPatch{}, err
		}
	}
	return patch, nil
}

func decodeField[T any](key string, value json.RawMessage) (domain.Optional[T], error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return domain.Optional[T]{}, fmt.Errorf("invalid value for field %s", key)
	}
	return domain.Some(v), nil
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	if err := s.svc.Media.Delete(r.Context(), userID, mediaID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	if err := s.svc.Favorites.Add(r.Context(), userID, mediaID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	mediaID, ok := s.pathID(w, r, "mediaID")
	if !ok {
		return
	}
	if err := s.svc.Favorites.Remove(r.Context(), userID, mediaID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toMediaResponse(m domain.Media) mediaResponse {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return mediaResponse{
		ID:             m.ID,
		CreatorID:      m.CreatorID,
		Title:          m.Title,
		Description:    m.Description,
		Category:       string(m.Category),
		ReleaseYear:    m.ReleaseYear,
		Genres:         genres,
		AgeRestriction: m.AgeRestriction,
		AverageScore:   roundToTwoDecimals(m.AverageScore),
		CreatedAt:      m.CreatedAt,
	}
}

func toMediaResponses(items []domain.Media) []mediaResponse {
	out := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMediaResponse(m))
	}
	return out
}

func roundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100.0
}

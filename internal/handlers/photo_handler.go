package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/repository"
)

const (
	defaultTake = 50
	maxTake     = 366
)

// PhotoHandler serves the saved photos as JSON
type PhotoHandler struct {
	repo repository.PhotoRepo
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(repo repository.PhotoRepo) *PhotoHandler {
	return &PhotoHandler{repo: repo}
}

// List returns saved photos, newest day first
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	take, _ := strconv.Atoi(r.URL.Query().Get("take"))

	if skip < 0 {
		skip = 0
	}
	if take <= 0 || take > maxTake {
		take = defaultTake
	}

	photos, err := h.repo.GetAll(r.Context(), skip, take)
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to list photos")
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	count, err := h.repo.GetCount(r.Context())
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to count photos")
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	respondJSON(w, http.StatusOK, models.PhotoListResponse{
		Photos:     models.PhotosToResponse(photos),
		TotalCount: count,
		Skip:       skip,
		Take:       take,
	})
}

// ListByYear returns the photos of one year in day order
func (h *PhotoHandler) ListByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		respondError(w, http.StatusBadRequest, "Year must be a positive number.")
		return
	}

	photos, err := h.repo.GetByYear(r.Context(), year)
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to list photos by year")
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	respondJSON(w, http.StatusOK, models.PhotoListResponse{
		Photos:     models.PhotosToResponse(photos),
		TotalCount: len(photos),
		Take:       len(photos),
	})
}

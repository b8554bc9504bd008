package handlers

import (
	"bytes"
	"net/http"

	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/repository"
)

// GalleryHandler renders the public photo wall
type GalleryHandler struct {
	photoRepo repository.PhotoRepo
}

// NewGalleryHandler creates a new GalleryHandler
func NewGalleryHandler(photoRepo repository.PhotoRepo) *GalleryHandler {
	return &GalleryHandler{photoRepo: photoRepo}
}

// Index renders every saved photo, newest day first
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	count, err := h.photoRepo.GetCount(r.Context())
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to count photos")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	photos := []*models.Photo{}
	if count > 0 {
		photos, err = h.photoRepo.GetAll(r.Context(), 0, count)
		if err != nil {
			observability.WithContext(r.Context()).WithError(err).Error("Failed to load photos")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	page := galleryPage{Count: count, Photos: make([]galleryPhoto, 0, len(photos))}
	for _, p := range photos {
		page.Photos = append(page.Photos, galleryPhoto{
			Year:         p.Year,
			DayOfYear:    p.DayOfYear,
			Date:         p.ObservedDay.Format("Mon 2 Jan 2006"),
			ImageURL:     p.ImageURL,
			ThumbnailURL: p.ThumbnailURL,
			PermalinkURL: p.PermalinkURL,
		})
	}

	var buf bytes.Buffer
	if err := galleryTemplate.Execute(&buf, page); err != nil {
		observability.Errorf("Failed to render gallery: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

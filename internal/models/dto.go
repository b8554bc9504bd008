package models

import "time"

// PhotoResponse is a single photo in API responses
type PhotoResponse struct {
	ID           int64     `json:"id"`
	Year         int       `json:"year"`
	DayOfYear    int       `json:"dayOfYear"`
	ObservedDay  time.Time `json:"observedDay"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	PermalinkURL string    `json:"permalinkUrl"`
}

// PhotoListResponse is returned when listing photos
type PhotoListResponse struct {
	Photos     []PhotoResponse `json:"photos"`
	TotalCount int             `json:"totalCount"`
	Skip       int             `json:"skip"`
	Take       int             `json:"take"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// PhotoToResponse converts a Photo to PhotoResponse
func PhotoToResponse(p *Photo) PhotoResponse {
	return PhotoResponse{
		ID:           p.ID,
		Year:         p.Year,
		DayOfYear:    p.DayOfYear,
		ObservedDay:  p.ObservedDay,
		ImageURL:     p.ImageURL,
		ThumbnailURL: p.ThumbnailURL,
		PermalinkURL: p.PermalinkURL,
	}
}

// PhotosToResponse converts a slice of photos, never returning nil
func PhotosToResponse(photos []*Photo) []PhotoResponse {
	out := make([]PhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, PhotoToResponse(p))
	}
	return out
}

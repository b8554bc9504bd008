package models

import (
	"time"
)

// Photo is the daily pick persisted for one calendar day
type Photo struct {
	ID           int64     `json:"id"`
	Year         int       `json:"year"`
	DayOfYear    int       `json:"dayOfYear"`
	ObservedDay  time.Time `json:"observedDay"`
	CapturedAt   time.Time `json:"capturedAt"`
	RemoteID     string    `json:"remoteId"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	PermalinkURL string    `json:"permalinkUrl"`
}

// NewPhotoFromMedia builds the record for the winning media item of a day.
// observed is the bucketed instant of the item, now becomes CapturedAt.
func NewPhotoFromMedia(item *MediaItem, observed time.Time, now time.Time) *Photo {
	return &Photo{
		Year:         observed.Year(),
		DayOfYear:    observed.YearDay(),
		ObservedDay:  observed,
		CapturedAt:   now.UTC(),
		RemoteID:     item.RemoteID,
		ImageURL:     item.StandardURL,
		ThumbnailURL: item.ThumbnailURL,
		PermalinkURL: item.PermalinkURL,
	}
}

// Validate checks the record before it is written
func (p *Photo) Validate() error {
	if p.RemoteID == "" {
		return ErrEmptyRemoteID
	}
	if p.Year <= 0 {
		return ErrInvalidYear
	}
	if p.DayOfYear < 1 || p.DayOfYear > 366 {
		return ErrInvalidDayOfYear
	}
	return nil
}

// DayKey identifies the calendar slot the photo occupies
func (p *Photo) DayKey() [2]int {
	return [2]int{p.Year, p.DayOfYear}
}

// Errors
type PhotoError struct {
	Message string
}

func (e PhotoError) Error() string {
	return e.Message
}

var (
	ErrEmptyRemoteID    = PhotoError{"remote id cannot be empty"}
	ErrInvalidYear      = PhotoError{"year must be positive"}
	ErrInvalidDayOfYear = PhotoError{"day of year must be between 1 and 366"}
	ErrPhotoNotFound    = PhotoError{"photo not found"}
	ErrDuplicatePhoto   = PhotoError{"a photo already exists for this day"}
)

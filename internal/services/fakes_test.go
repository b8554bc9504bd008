package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/threesixtyfive/server/internal/models"
)

// pagedFeed serves fixed pages keyed by the max_id cursor ("" is the first page)
type pagedFeed struct {
	mu       sync.Mutex
	pages    map[string]*Page
	failAt   string
	err      error
	requests []PageRequest
}

func newPagedFeed(items []*models.MediaItem, pageSize int) *pagedFeed {
	f := &pagedFeed{pages: make(map[string]*Page)}
	cursor := ""
	for start := 0; ; start += pageSize {
		end := start + pageSize
		if end > len(items) {
			end = len(items)
		}
		page := &Page{Items: items[start:end]}
		if end < len(items) {
			page.NextMaxID = items[end-1].RemoteID
		}
		f.pages[cursor] = page
		if page.NextMaxID == "" {
			break
		}
		cursor = page.NextMaxID
	}
	return f
}

func (f *pagedFeed) RecentMedia(ctx context.Context, req PageRequest) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if f.err != nil && req.MaxID == f.failAt {
		return nil, f.err
	}
	page, ok := f.pages[req.MaxID]
	if !ok {
		return nil, errors.New("unknown cursor " + req.MaxID)
	}
	return page, nil
}

type feedFactory struct {
	feed   MediaFeed
	tokens []string
}

func (f *feedFactory) ForToken(accessToken string) MediaFeed {
	f.tokens = append(f.tokens, accessToken)
	return f.feed
}

// memoryPhotoRepo keeps photos in insertion order
type memoryPhotoRepo struct {
	mu     sync.Mutex
	photos []*models.Photo
	nextID int64
}

func (r *memoryPhotoRepo) GetMostRecent(ctx context.Context) (*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.photos) == 0 {
		return nil, nil
	}
	return r.photos[len(r.photos)-1], nil
}

func (r *memoryPhotoRepo) GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := append([]*models.Photo(nil), r.photos...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return sorted[i].DayOfYear > sorted[j].DayOfYear
	})
	if skip >= len(sorted) {
		return []*models.Photo{}, nil
	}
	end := skip + take
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[skip:end], nil
}

func (r *memoryPhotoRepo) GetByYear(ctx context.Context, year int) ([]*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Photo{}
	for _, p := range r.photos {
		if p.Year == year {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfYear < out[j].DayOfYear })
	return out, nil
}

func (r *memoryPhotoRepo) GetCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.photos), nil
}

func (r *memoryPhotoRepo) Add(ctx context.Context, photo *models.Photo) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.photos {
		if p.DayKey() == photo.DayKey() || p.RemoteID == photo.RemoteID {
			return 0, models.ErrDuplicatePhoto
		}
	}
	r.nextID++
	stored := *photo
	stored.ID = r.nextID
	r.photos = append(r.photos, &stored)
	return r.nextID, nil
}

func (r *memoryPhotoRepo) Truncate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = nil
	return nil
}

type recordedEvent struct {
	eventType string
	payload   interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *eventRecorder) Publish(eventType string, payload interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{eventType, payload})
}

func (e *eventRecorder) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.eventType == eventType {
			n++
		}
	}
	return n
}

var testZone = time.FixedZone("UTC+01:00", 3600)

// onDay returns epoch seconds for the given local hour on a day of year
func onDay(year, day, hour int) int64 {
	return time.Date(year, time.January, day, hour, 0, 0, 0, testZone).Unix()
}

func localNoon(year, day int) time.Time {
	return time.Date(year, time.January, day, 12, 0, 0, 0, testZone)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/repository"
	"go.opentelemetry.io/otel/attribute"
)

// StreamLockKey guards the single photo stream. The most recent photo lookup
// spans all years, so runs for different years still share one key.
const StreamLockKey = "photo-stream"

// Event types published while reconciling
const (
	EventPhotoSaved        = "photo.saved"
	EventReconcileFinished = "reconcile.finished"
)

// MediaFeedFactory builds an authenticated feed for an access token
type MediaFeedFactory interface {
	ForToken(accessToken string) MediaFeed
}

// EventPublisher receives progress events of a run
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

// ReconcileService fills in the missing daily photos
type ReconcileService struct {
	photoRepo repository.PhotoRepo
	feeds     MediaFeedFactory
	reader    *FeedReader
	bucketer  *DayBucketer
	guard     *RunGuard
	events    EventPublisher
	metrics   *observability.ReconcileMetrics
	now       func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	photoRepo repository.PhotoRepo,
	feeds MediaFeedFactory,
	reader *FeedReader,
	bucketer *DayBucketer,
	guard *RunGuard,
	events EventPublisher,
	metrics *observability.ReconcileMetrics,
) *ReconcileService {
	return &ReconcileService{
		photoRepo: photoRepo,
		feeds:     feeds,
		reader:    reader,
		bucketer:  bucketer,
		guard:     guard,
		events:    events,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Bucketer returns the day bucketer used by the service
func (s *ReconcileService) Bucketer() *DayBucketer {
	return s.bucketer
}

// CurrentYear returns the year today falls in under the configured offset
func (s *ReconcileService) CurrentYear() int {
	return s.bucketer.Today(s.now()).Year()
}

// Reconcile saves the photo of every missing day it can find. Without any
// saved photo it looks for the first day of year with a post and saves only
// that one; otherwise it continues from the last saved photo up to today.
func (s *ReconcileService) Reconcile(ctx context.Context, accessToken string, year int) (*models.RunSummary, error) {
	if accessToken == "" {
		return nil, models.ErrNoAccessToken
	}

	release, err := s.guard.TryAcquire(StreamLockKey)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartServiceSpan(ctx, "ReconcileService", "Reconcile")
	defer span.End()
	span.SetAttributes(observability.Year(year))

	started := s.now()
	tomorrow := s.bucketer.StartOfTomorrow(started)

	last, err := s.photoRepo.GetMostRecent(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("load most recent photo: %w", err)
	}

	feed := s.feeds.ForToken(accessToken)

	var summary *models.RunSummary
	if last == nil {
		summary, err = s.bootstrap(ctx, feed, year, tomorrow)
	} else {
		span.SetAttributes(observability.RemoteID(last.RemoteID))
		summary, err = s.resume(ctx, feed, last, tomorrow)
	}
	if summary != nil {
		summary.StartedAt = started
		summary.Duration = s.now().Sub(started)
		s.metrics.RecordRun(ctx, string(summary.Mode), len(summary.Saved), summary.Duration, err)
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("reconcile.mode", string(summary.Mode)),
		attribute.Int("reconcile.saved", len(summary.Saved)),
		observability.Duration(summary.Duration),
	)
	observability.SetSuccess(span)

	observability.WithContext(ctx).WithFields(map[string]interface{}{
		"mode":  summary.Mode,
		"year":  summary.Year,
		"items": summary.ItemsFetched,
		"saved": len(summary.Saved),
	}).Info("Reconcile finished")

	if s.events != nil {
		s.events.Publish(EventReconcileFinished, summary)
	}

	return summary, nil
}

func (s *ReconcileService) bootstrap(ctx context.Context, feed MediaFeed, year int, tomorrow CalendarDay) (*models.RunSummary, error) {
	summary := &models.RunSummary{Mode: models.RunModeBootstrap, Year: year}
	start := s.bucketer.FirstDayOfYear(year)

	items, err := s.reader.Drain(ctx, feed, FeedFilter{MinTimestamp: start.Time().Unix()})
	if err != nil {
		return summary, fmt.Errorf("drain feed since %s: %w", start.Time().Format(time.RFC3339), err)
	}
	summary.ItemsFetched = len(items)

	candidates := s.groupByDay(items, func(t time.Time) bool {
		return !t.Before(start.Time()) && t.Before(tomorrow.Time())
	})

	for day := start; candidates.pendingFrom(day); day = day.Next() {
		onDay := candidates.on(day)
		if len(onDay) == 0 {
			continue
		}
		photo, err := s.save(ctx, onDay)
		if err != nil {
			return summary, err
		}
		summary.Saved = append(summary.Saved, photo)
		// one photo per bootstrap run, the next run resumes from it
		break
	}

	summary.NothingFound = len(summary.Saved) == 0
	return summary, nil
}

func (s *ReconcileService) resume(ctx context.Context, feed MediaFeed, last *models.Photo, tomorrow CalendarDay) (*models.RunSummary, error) {
	lastDay := s.bucketer.At(last.ObservedDay)
	summary := &models.RunSummary{
		Mode:   models.RunModeResume,
		Year:   lastDay.Year(),
		Cursor: last.RemoteID,
	}

	items, err := s.reader.Drain(ctx, feed, FeedFilter{MinID: last.RemoteID})
	if err != nil {
		return summary, fmt.Errorf("drain feed since %s: %w", last.RemoteID, err)
	}
	summary.ItemsFetched = len(items)

	candidates := s.groupByDay(items, func(t time.Time) bool {
		return t.After(last.ObservedDay) && t.Before(tomorrow.Time())
	})

	for day := lastDay.Next(); day.Before(tomorrow) && candidates.pendingFrom(day); day = day.Next() {
		onDay := candidates.on(day)
		if len(onDay) == 0 {
			continue
		}
		photo, err := s.save(ctx, onDay)
		if err != nil {
			return summary, err
		}
		summary.Saved = append(summary.Saved, photo)
		summary.Year = photo.Year
	}

	return summary, nil
}

func (s *ReconcileService) save(ctx context.Context, onDay []bucketedItem) (*models.Photo, error) {
	items := make([]*models.MediaItem, len(onDay))
	days := make(map[*models.MediaItem]CalendarDay, len(onDay))
	for i, c := range onDay {
		items[i] = c.item
		days[c.item] = c.day
	}

	winner := SelectBestPhoto(items)
	photo := models.NewPhotoFromMedia(winner, days[winner].Time(), s.now())
	if err := photo.Validate(); err != nil {
		return nil, fmt.Errorf("build photo for %s: %w", days[winner], err)
	}

	id, err := s.photoRepo.Add(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("save photo for day %d of %d: %w", photo.DayOfYear, photo.Year, err)
	}
	photo.ID = id

	observability.WithContext(ctx).WithFields(map[string]interface{}{
		"photo_id":   id,
		"remote_id":  photo.RemoteID,
		"year":       photo.Year,
		"day":        photo.DayOfYear,
		"likes":      winner.LikeCount,
		"candidates": len(items),
	}).Info("Saved photo of the day")

	s.metrics.RecordPhotoSaved(ctx, photo.Year)
	if s.events != nil {
		s.events.Publish(EventPhotoSaved, models.PhotoToResponse(photo))
	}

	return photo, nil
}

type bucketedItem struct {
	item *models.MediaItem
	day  CalendarDay
}

// dayCandidates holds the windowed items grouped by date
type dayCandidates struct {
	byDay  map[[2]int][]bucketedItem
	latest CalendarDay
	empty  bool
}

func (s *ReconcileService) groupByDay(items []*models.MediaItem, inWindow func(time.Time) bool) *dayCandidates {
	c := &dayCandidates{byDay: make(map[[2]int][]bucketedItem), empty: true}
	for _, item := range items {
		day := s.bucketer.Bucket(item.RawTimestamp)
		if !inWindow(day.Time()) {
			continue
		}
		key := [2]int{day.Year(), day.YearDay()}
		c.byDay[key] = append(c.byDay[key], bucketedItem{item: item, day: day})
		if c.empty || day.After(c.latest) {
			c.latest = day
			c.empty = false
		}
	}
	return c
}

// pendingFrom reports whether any candidate falls on day or later
func (c *dayCandidates) pendingFrom(day CalendarDay) bool {
	return !c.empty && !day.After(c.latest)
}

func (c *dayCandidates) on(day CalendarDay) []bucketedItem {
	return c.byDay[[2]int{day.Year(), day.YearDay()}]
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// FeedPageSize is the number of items requested per page
const FeedPageSize = 20

var (
	ErrInvalidFeedFilter = errors.New("feed filter needs exactly one of min timestamp or min id")
	ErrPaginationLoop    = errors.New("remote pagination returned a cursor twice")
)

// FeedFilter selects where a drain starts. Exactly one field is set.
type FeedFilter struct {
	MinTimestamp int64
	MinID        string
}

// Validate checks that the filter is usable
func (f FeedFilter) Validate() error {
	hasTimestamp := f.MinTimestamp != 0
	hasID := f.MinID != ""
	if hasTimestamp == hasID {
		return ErrInvalidFeedFilter
	}
	return nil
}

// PageRequest is one call against the remote media listing
type PageRequest struct {
	Count        int
	MinTimestamp int64
	MinID        string
	MaxID        string
}

// Page is one response of the remote media listing. An empty NextMaxID
// marks the last page.
type Page struct {
	Items     []*models.MediaItem
	NextMaxID string
}

// MediaFeed is the remote media listing of the connected account
type MediaFeed interface {
	RecentMedia(ctx context.Context, req PageRequest) (*Page, error)
}

// FeedReader drains a paginated media listing into memory
type FeedReader struct {
	timeout time.Duration
	metrics *observability.ReconcileMetrics
}

// NewFeedReader creates a reader. A zero timeout disables the drain deadline.
func NewFeedReader(timeout time.Duration, metrics *observability.ReconcileMetrics) *FeedReader {
	return &FeedReader{timeout: timeout, metrics: metrics}
}

// Drain requests pages until the remote stops returning a next cursor and
// returns every item in feed order. Any page failure aborts the drain.
func (r *FeedReader) Drain(ctx context.Context, feed MediaFeed, filter FeedFilter) ([]*models.MediaItem, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ctx, span := observability.StartServiceSpan(ctx, "FeedReader", "Drain")
	defer span.End()

	req := PageRequest{
		Count:        FeedPageSize,
		MinTimestamp: filter.MinTimestamp,
		MinID:        filter.MinID,
	}
	seen := make(map[string]bool)

	var items []*models.MediaItem
	pages := 0
	for {
		page, err := feed.RecentMedia(ctx, req)
		if err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("fetch page %d: %w", pages+1, err)
		}
		pages++
		r.metrics.RecordPage(ctx, len(page.Items))

		items = append(items, page.Items...)

		if page.NextMaxID == "" {
			break
		}
		if seen[page.NextMaxID] {
			observability.RecordError(span, ErrPaginationLoop)
			return nil, fmt.Errorf("%w: %s", ErrPaginationLoop, page.NextMaxID)
		}
		seen[page.NextMaxID] = true
		req.MaxID = page.NextMaxID
	}

	span.SetAttributes(
		attribute.Int("feed.pages", pages),
		attribute.Int("feed.items", len(items)),
	)
	observability.SetSuccess(span)

	observability.WithContext(ctx).WithFields(map[string]interface{}{
		"pages": pages,
		"items": len(items),
	}).Debug("Drained media feed")

	return items, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threesixtyfive/server/internal/models"
)

func numberedItems(n int) []*models.MediaItem {
	items := make([]*models.MediaItem, n)
	for i := range items {
		items[i] = item(fmt.Sprintf("m%03d", i), int64(1700000000+i), i)
	}
	return items
}

type blockingFeed struct{}

func (blockingFeed) RecentMedia(ctx context.Context, req PageRequest) (*Page, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type loopingFeed struct{ calls int }

func (f *loopingFeed) RecentMedia(ctx context.Context, req PageRequest) (*Page, error) {
	f.calls++
	return &Page{Items: []*models.MediaItem{item(fmt.Sprint(f.calls), 1, 0)}, NextMaxID: "same"}, nil
}

func TestFeedReaderDrain(t *testing.T) {
	ctx := context.Background()
	reader := NewFeedReader(time.Second, nil)

	t.Run("walks every page", func(t *testing.T) {
		feed := newPagedFeed(numberedItems(47), FeedPageSize)

		items, err := reader.Drain(ctx, feed, FeedFilter{MinTimestamp: 1700000000})
		require.NoError(t, err)
		assert.Len(t, items, 47)
		assert.Equal(t, "m000", items[0].RemoteID)
		assert.Equal(t, "m046", items[46].RemoteID)

		require.Len(t, feed.requests, 3)
		assert.Equal(t, "", feed.requests[0].MaxID)
		assert.Equal(t, "m019", feed.requests[1].MaxID)
		assert.Equal(t, "m039", feed.requests[2].MaxID)
		for _, req := range feed.requests {
			assert.Equal(t, FeedPageSize, req.Count)
			assert.Equal(t, int64(1700000000), req.MinTimestamp)
			assert.Empty(t, req.MinID)
		}
	})

	t.Run("min id filter is forwarded", func(t *testing.T) {
		feed := newPagedFeed(numberedItems(3), FeedPageSize)

		_, err := reader.Drain(ctx, feed, FeedFilter{MinID: "m100"})
		require.NoError(t, err)
		require.Len(t, feed.requests, 1)
		assert.Equal(t, "m100", feed.requests[0].MinID)
		assert.Zero(t, feed.requests[0].MinTimestamp)
	})

	t.Run("empty feed", func(t *testing.T) {
		feed := newPagedFeed(nil, FeedPageSize)

		items, err := reader.Drain(ctx, feed, FeedFilter{MinID: "x"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("filter needs exactly one bound", func(t *testing.T) {
		feed := newPagedFeed(nil, FeedPageSize)

		_, err := reader.Drain(ctx, feed, FeedFilter{})
		assert.ErrorIs(t, err, ErrInvalidFeedFilter)
		_, err = reader.Drain(ctx, feed, FeedFilter{MinTimestamp: 1, MinID: "a"})
		assert.ErrorIs(t, err, ErrInvalidFeedFilter)
		assert.Empty(t, feed.requests)
	})

	t.Run("page failure aborts the drain", func(t *testing.T) {
		boom := errors.New("boom")
		feed := newPagedFeed(numberedItems(47), FeedPageSize)
		feed.failAt = "m019"
		feed.err = boom

		items, err := reader.Drain(ctx, feed, FeedFilter{MinTimestamp: 1})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "fetch page 2")
		assert.Nil(t, items)
	})

	t.Run("repeated cursor", func(t *testing.T) {
		feed := &loopingFeed{}

		_, err := reader.Drain(ctx, feed, FeedFilter{MinTimestamp: 1})
		assert.ErrorIs(t, err, ErrPaginationLoop)
		assert.Equal(t, 2, feed.calls)
	})

	t.Run("deadline", func(t *testing.T) {
		short := NewFeedReader(20*time.Millisecond, nil)

		_, err := short.Drain(ctx, blockingFeed{}, FeedFilter{MinTimestamp: 1})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

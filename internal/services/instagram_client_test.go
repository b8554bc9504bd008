package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recentMediaBody = `{
  "meta": {"code": 200},
  "pagination": {"next_max_id": "1002_9", "next_url": "https://api.example.com/next"},
  "data": [
    {
      "id": "1001_9",
      "created_time": "1707465600",
      "link": "https://example.com/p/abc/",
      "likes": {"count": 14},
      "images": {
        "thumbnail": {"url": "https://cdn.example.com/t.jpg"},
        "standard_resolution": {"url": "https://cdn.example.com/s.jpg"}
      }
    },
    {
      "id": "1002_9",
      "created_time": 1707469200,
      "likes": {"count": 2},
      "images": {"standard_resolution": {"url": "https://cdn.example.com/s2.jpg"}}
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, settings BreakerSettings) *InstagramClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewInstagramClientFactory(server.URL+"/v1/", 5*time.Second, settings).NewClient("secret-token")
}

func TestInstagramClientRecentMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes a page and sends the token", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotQuery map[string][]string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, recentMediaBody)
		}, DefaultBreakerSettings())

		page, err := client.RecentMedia(ctx, PageRequest{Count: 20, MinTimestamp: 1704063600, MaxID: "999_9"})
		require.NoError(t, err)

		assert.Equal(t, "/v1/users/self/media/recent", gotPath)
		assert.Equal(t, "Bearer secret-token", gotAuth)
		assert.Equal(t, []string{"20"}, gotQuery["count"])
		assert.Equal(t, []string{"1704063600"}, gotQuery["min_timestamp"])
		assert.Equal(t, []string{"999_9"}, gotQuery["max_id"])
		assert.NotContains(t, gotQuery, "min_id")

		assert.Equal(t, "1002_9", page.NextMaxID)
		require.Len(t, page.Items, 2)
		first := page.Items[0]
		assert.Equal(t, "1001_9", first.RemoteID)
		assert.Equal(t, int64(1707465600), first.RawTimestamp)
		assert.Equal(t, 14, first.LikeCount)
		assert.Equal(t, "https://cdn.example.com/s.jpg", first.StandardURL)
		assert.Equal(t, "https://cdn.example.com/t.jpg", first.ThumbnailURL)
		assert.Equal(t, "https://example.com/p/abc/", first.PermalinkURL)
		assert.Equal(t, int64(1707469200), page.Items[1].RawTimestamp)
	})

	t.Run("min id filter", func(t *testing.T) {
		var gotQuery map[string][]string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			fmt.Fprint(w, `{"meta":{"code":200},"pagination":{},"data":[]}`)
		}, DefaultBreakerSettings())

		page, err := client.RecentMedia(ctx, PageRequest{MinID: "500_9"})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Empty(t, page.NextMaxID)
		assert.Equal(t, []string{"500_9"}, gotQuery["min_id"])
		assert.Equal(t, []string{"20"}, gotQuery["count"])
	})

	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrorTypeAuth},
		{"bad token", http.StatusBadRequest, `{"meta":{"code":400,"error_type":"OAuthAccessTokenException","error_message":"The access_token provided is invalid."}}`, ErrorTypeAuth},
		{"not found", http.StatusNotFound, ``, ErrorTypeNotFound},
		{"rate limited", http.StatusTooManyRequests, ``, ErrorTypeRateLimit},
		{"server error", http.StatusBadGateway, ``, ErrorTypeServerError},
		{"meta error in 200", http.StatusOK, `{"meta":{"code":429,"error_type":"OAuthRateLimitException","error_message":"slow down"}}`, ErrorTypeRateLimit},
		{"garbage", http.StatusOK, `<html>`, ErrorTypeParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, DefaultBreakerSettings())

			_, err := client.RecentMedia(ctx, PageRequest{MinTimestamp: 1})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
		})
	}
}

func TestInstagramClientBreaker(t *testing.T) {
	ctx := context.Background()
	settings := BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}

	t.Run("opens after repeated server errors", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}, settings)

		for i := 0; i < 2; i++ {
			_, err := client.RecentMedia(ctx, PageRequest{MinTimestamp: 1})
			require.Error(t, err)
		}

		_, err := client.RecentMedia(ctx, PageRequest{MinTimestamp: 1})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, ErrorTypeUnavailable, apiErr.Type)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("auth failures keep it closed", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}, settings)

		for i := 0; i < 4; i++ {
			_, err := client.RecentMedia(ctx, PageRequest{MinTimestamp: 1})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, ErrorTypeAuth, apiErr.Type)
		}
		assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	})
}

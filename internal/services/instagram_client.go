package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

// Error types for remote media API operations
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// APIError represents a failed call to the remote media API
type APIError struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("media api %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// countsAsFailure tells the circuit breaker whether the remote is unhealthy.
// Bad tokens and missing resources say nothing about the remote itself.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

// BreakerSettings configures the circuit breaker in front of the remote API
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings returns the breaker settings used when none are configured
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         5 * time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// InstagramClientFactory builds per-token clients that share one HTTP
// transport and one circuit breaker.
type InstagramClientFactory struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	breaker   *gobreaker.CircuitBreaker
}

// NewInstagramClientFactory creates a new InstagramClientFactory
func NewInstagramClientFactory(baseURL string, timeout time.Duration, settings BreakerSettings) *InstagramClientFactory {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media-api",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			observability.Warnf("Circuit breaker '%s' state changed from %v to %v", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	})

	return &InstagramClientFactory{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		transport: http.DefaultTransport,
		breaker:   breaker,
	}
}

// WithTransport replaces the base HTTP transport
func (f *InstagramClientFactory) WithTransport(rt http.RoundTripper) *InstagramClientFactory {
	f.transport = rt
	return f
}

// ForToken implements MediaFeedFactory
func (f *InstagramClientFactory) ForToken(accessToken string) MediaFeed {
	return f.NewClient(accessToken)
}

// NewClient creates a client authenticated with the given access token
func (f *InstagramClientFactory) NewClient(accessToken string) *InstagramClient {
	base := &http.Client{Transport: f.transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = f.timeout

	return &InstagramClient{
		httpClient: httpClient,
		baseURL:    f.baseURL,
		breaker:    f.breaker,
	}
}

// InstagramClient reads the recent media of the authenticated account
type InstagramClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
}

// RecentMedia fetches one page of the account's recent media
func (c *InstagramClient) RecentMedia(ctx context.Context, req PageRequest) (*Page, error) {
	pageURL := c.recentMediaURL(req)

	ctx, span := observability.StartClientSpan(ctx, "RecentMedia", pageURL)
	defer span.End()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchPage(ctx, pageURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &APIError{
				Type:    ErrorTypeUnavailable,
				Message: "remote media api is failing, requests are paused",
				Code:    http.StatusServiceUnavailable,
			}
		}
		observability.RecordError(span, err)
		return nil, err
	}

	page := result.(*Page)
	span.SetAttributes(
		attribute.Int("feed.page_items", len(page.Items)),
		attribute.Bool("feed.has_next", page.NextMaxID != ""),
	)
	observability.SetSuccess(span)
	return page, nil
}

func (c *InstagramClient) recentMediaURL(req PageRequest) string {
	q := url.Values{}
	count := req.Count
	if count <= 0 {
		count = FeedPageSize
	}
	q.Set("count", strconv.Itoa(count))
	if req.MinTimestamp != 0 {
		q.Set("min_timestamp", strconv.FormatInt(req.MinTimestamp, 10))
	}
	if req.MinID != "" {
		q.Set("min_id", req.MinID)
	}
	if req.MaxID != "" {
		q.Set("max_id", req.MaxID)
	}
	return c.baseURL + "/users/self/media/recent?" + q.Encode()
}

func (c *InstagramClient) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &APIError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("media api request: %w", ctxErr)
		}
		return nil, &APIError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	observability.GetLogger().WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Media API request completed")

	if err := checkResponseStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return decodeRecentMedia(resp.StatusCode, body)
}

type recentMediaResponse struct {
	Meta       apiMeta `json:"meta"`
	Pagination struct {
		NextMaxID string `json:"next_max_id"`
		NextURL   string `json:"next_url"`
	} `json:"pagination"`
	Data []mediaDatum `json:"data"`
}

type apiMeta struct {
	Code         int    `json:"code"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

type imageRef struct {
	URL string `json:"url"`
}

type mediaDatum struct {
	ID          string       `json:"id"`
	CreatedTime epochSeconds `json:"created_time"`
	Link        string       `json:"link"`
	Likes       struct {
		Count int `json:"count"`
	} `json:"likes"`
	Images struct {
		Thumbnail          imageRef `json:"thumbnail"`
		StandardResolution imageRef `json:"standard_resolution"`
	} `json:"images"`
}

// epochSeconds accepts created_time both as a quoted string and as a number
type epochSeconds int64

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || raw == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("created_time %q: %w", raw, err)
	}
	*e = epochSeconds(v)
	return nil
}

func decodeRecentMedia(status int, body []byte) (*Page, error) {
	var decoded recentMediaResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		observability.GetLogger().WithFields(map[string]interface{}{
			"status":       status,
			"error":        err.Error(),
			"body_preview": preview,
		}).Error("Failed to parse media API response")
		return nil, &APIError{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    status,
		}
	}

	if decoded.Meta.Code != 0 && decoded.Meta.Code != http.StatusOK {
		return nil, metaError(decoded.Meta)
	}

	page := &Page{
		Items:     make([]*models.MediaItem, 0, len(decoded.Data)),
		NextMaxID: decoded.Pagination.NextMaxID,
	}
	for _, d := range decoded.Data {
		page.Items = append(page.Items, &models.MediaItem{
			RemoteID:     d.ID,
			RawTimestamp: int64(d.CreatedTime),
			LikeCount:    d.Likes.Count,
			ThumbnailURL: d.Images.Thumbnail.URL,
			StandardURL:  d.Images.StandardResolution.URL,
			PermalinkURL: d.Link,
		})
	}
	return page, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func checkResponseStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	message := http.StatusText(status)
	var envelope struct {
		Meta apiMeta `json:"meta"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Meta.ErrorMessage != "" {
		message = envelope.Meta.ErrorMessage
	}

	errType := ErrorTypeUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = ErrorTypeAuth
	case status == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case status >= 500:
		errType = ErrorTypeServerError
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "token"):
		errType = ErrorTypeAuth
	}

	observability.GetLogger().WithFields(map[string]interface{}{
		"status": status,
		"type":   errType,
	}).Warn("Media API returned an error")

	return &APIError{Type: errType, Message: message, Code: status}
}

func metaError(meta apiMeta) *APIError {
	errType := ErrorTypeUnknown
	switch {
	case meta.ErrorType == "OAuthAccessTokenException" || meta.ErrorType == "OAuthPermissionsException":
		errType = ErrorTypeAuth
	case meta.ErrorType == "OAuthRateLimitException" || meta.Code == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case meta.Code >= 500:
		errType = ErrorTypeServerError
	}
	return &APIError{Type: errType, Message: meta.ErrorMessage, Code: meta.Code}
}

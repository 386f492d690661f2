// Package picker drives the Google Photos Picker API. The picker is an
// out-of-band UI in a separate browser window with no push channel back to
// this process, so the only integration point is polling the remote session
// until the user finishes selecting, honoring the server-suggested poll
// interval and timeout.
package picker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pickframe/photos-front/internal/log"
)

// ErrSelectionTimeout indicates the user did not finish selecting before the
// deadline. User-recoverable; callers surface it rather than retrying.
var ErrSelectionTimeout = errors.New("timed out waiting for media selection")

const (
	defaultBaseURL      = "https://photospicker.googleapis.com/v1"
	defaultPollInterval = 2 * time.Second
	pageSize            = 100
)

// DefaultWaitTimeout is the caller-side budget before the first
// server-suggested timeout arrives.
const DefaultWaitTimeout = 2 * time.Minute

// Client calls the Picker API with a user's access token per request
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	maxItemCount int
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the Picker API base URL (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAPIKey attaches an API key to every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithMaxItemCount caps how many items a session lets the user pick
func WithMaxItemCount(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxItemCount = n
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Picker API client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		maxItemCount: 50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PollingConfig carries the server's polling suggestions as protobuf-style
// duration strings ("2s", "2.5s")
type PollingConfig struct {
	PollInterval string `json:"pollInterval,omitempty"`
	TimeoutIn    string `json:"timeoutIn,omitempty"`
}

// Session is the remote picker session. MediaItemsSet flips to true when the
// user finishes interacting in the picker window; this process only reads it.
type Session struct {
	ID            string         `json:"id"`
	PickerURI     string         `json:"pickerUri"`
	MediaItemsSet bool           `json:"mediaItemsSet,omitempty"`
	PollingConfig *PollingConfig `json:"pollingConfig,omitempty"`
}

// MediaItem is a normalized picked item. Immutable once listed.
type MediaItem struct {
	ID         string `json:"id"`
	BaseURL    string `json:"baseUrl"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Width      int64  `json:"width,omitempty"`
	Height     int64  `json:"height,omitempty"`
	Type       string `json:"type,omitempty"`
	CreateTime string `json:"createTime,omitempty"`
}

// WaitOptions tunes WaitForSelection
type WaitOptions struct {
	// Timeout is the initial deadline budget; DefaultWaitTimeout if zero.
	// A server-suggested timeoutIn resets the deadline and overrides this.
	Timeout time.Duration

	// OnProgress, if set, is called once per poll iteration so a UI can show
	// liveness without this package knowing anything about it.
	OnProgress func(message string)
}

// CreateSession opens a new remote picker session and returns its
// interactive URI
func (c *Client) CreateSession(ctx context.Context, accessToken string) (*Session, error) {
	body := map[string]any{
		"pickingConfig": map[string]any{
			"maxItemCount": c.maxItemCount,
		},
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/sessions", accessToken, body, &session); err != nil {
		return nil, fmt.Errorf("creating picker session: %w", err)
	}
	return &session, nil
}

// GetSession fetches the current state of a picker session
func (c *Client) GetSession(ctx context.Context, accessToken, sessionID string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), accessToken, nil, &session); err != nil {
		return nil, fmt.Errorf("fetching picker session: %w", err)
	}
	return &session, nil
}

// WaitForSelection polls a session until the user finishes selecting, then
// lists the picked items. The poll interval and deadline follow the server's
// suggestions; a suggested timeoutIn resets the deadline from now. Returns
// ErrSelectionTimeout when the deadline passes with no selection, and the
// context error when the caller abandons the wait.
func (c *Client) WaitForSelection(ctx context.Context, accessToken, sessionID string, opts WaitOptions) ([]MediaItem, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if opts.OnProgress != nil {
			opts.OnProgress("Waiting for Google Photos selection...")
		}

		session, err := c.GetSession(ctx, accessToken, sessionID)
		if err != nil {
			return nil, err
		}

		if session.MediaItemsSet {
			return c.ListItems(ctx, accessToken, sessionID)
		}

		interval := defaultPollInterval
		if session.PollingConfig != nil {
			if d, ok := parseDuration(session.PollingConfig.PollInterval); ok {
				interval = d
			}
			if d, ok := parseDuration(session.PollingConfig.TimeoutIn); ok {
				deadline = time.Now().Add(d)
			}
		}

		log.LogDebugWithFields("picker", "Session not ready, sleeping", map[string]any{
			"sessionId": sessionID,
			"interval":  interval.String(),
		})

		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}

	return nil, ErrSelectionTimeout
}

// ListItems pages through the picked media items for a finished session,
// returning the order-preserving, id-deduplicated union of all pages.
// Malformed entries are dropped, not propagated as errors.
func (c *Client) ListItems(ctx context.Context, accessToken, sessionID string) ([]MediaItem, error) {
	var items []MediaItem
	seen := make(map[string]bool)
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("sessionId", sessionID)
		params.Set("pageSize", fmt.Sprint(pageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page mediaItemsPage
		if err := c.do(ctx, http.MethodGet, "/mediaItems?"+params.Encode(), accessToken, nil, &page); err != nil {
			return nil, fmt.Errorf("listing picked media items: %w", err)
		}

		for _, raw := range page.MediaItems {
			item, ok := normalize(raw)
			if !ok {
				log.LogWarnWithFields("picker", "Dropping malformed media item", map[string]any{
					"sessionId": sessionID,
					"id":        raw.ID,
				})
				continue
			}
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}

		if page.NextPageToken == "" {
			return items, nil
		}
		pageToken = page.NextPageToken
	}
}

type rawMediaFileMetadata struct {
	Width  int64 `json:"width,omitempty"`
	Height int64 `json:"height,omitempty"`
}

type rawMediaFile struct {
	BaseURL           string                `json:"baseUrl,omitempty"`
	MimeType          string                `json:"mimeType,omitempty"`
	Filename          string                `json:"filename,omitempty"`
	MediaFileMetadata *rawMediaFileMetadata `json:"mediaFileMetadata,omitempty"`
}

type rawMediaItem struct {
	ID         string        `json:"id,omitempty"`
	CreateTime string        `json:"createTime,omitempty"`
	Type       string        `json:"type,omitempty"`
	MediaFile  *rawMediaFile `json:"mediaFile,omitempty"`
}

type mediaItemsPage struct {
	MediaItems    []rawMediaItem `json:"mediaItems,omitempty"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// normalize converts a raw API entry, rejecting entries without an id or a
// source URL
func normalize(raw rawMediaItem) (MediaItem, bool) {
	if raw.ID == "" || raw.MediaFile == nil || raw.MediaFile.BaseURL == "" {
		return MediaItem{}, false
	}

	item := MediaItem{
		ID:         raw.ID,
		BaseURL:    raw.MediaFile.BaseURL,
		Filename:   raw.MediaFile.Filename,
		MimeType:   raw.MediaFile.MimeType,
		Type:       raw.Type,
		CreateTime: raw.CreateTime,
	}
	if item.Filename == "" {
		item.Filename = "Google Photos item"
	}
	if item.MimeType == "" {
		item.MimeType = "application/octet-stream"
	}
	if meta := raw.MediaFile.MediaFileMetadata; meta != nil {
		item.Width = meta.Width
		item.Height = meta.Height
	}
	return item, true
}

// do performs one API request with bearer auth and optional API key
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	endpoint := c.baseURL + path
	if c.apiKey != "" {
		separator := "?"
		if strings.Contains(path, "?") {
			separator = "&"
		}
		endpoint += separator + "key=" + url.QueryEscape(c.apiKey)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("picker API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// parseDuration parses the API's duration strings ("2s", "2.5s", "300s")
func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// sleep waits for the interval or until the context is cancelled, without
// leaking the timer
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

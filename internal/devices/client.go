package devices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	gocache "github.com/patrickmn/go-cache"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

const listCacheKey = "devices:list"

// SessionSource exposes the broker's currently held session.
type SessionSource interface {
	Session() *domainauth.Session
}

// Options groups dependencies for Client.
type Options struct {
	// BaseURL is the device backend root, with trailing slash.
	BaseURL string

	Tokens   ports.TokenResolver
	Sessions SessionSource

	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	// ListCacheTTL bounds how long the device list is served from cache.
	// Zero disables caching.
	ListCacheTTL time.Duration

	// TrendPointsExpr is the JMESPath expression extracting {t, v} points
	// from the backend's trend payload.
	TrendPointsExpr string

	Logger *slog.Logger
}

// Client calls the upstream device REST backend on behalf of the signed-in
// operator. Every request resolves a fresh bearer credential immediately
// before it is sent; tokens are never cached here.
type Client struct {
	baseURL   string
	tokens    ports.TokenResolver
	sessions  SessionSource
	http      *http.Client
	listCache *gocache.Cache
	trendExpr jmespath.JMESPath
	logger    *slog.Logger
}

// NewClient validates options and compiles the trend extraction expression.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, aerrors.MissingConfiguration("device backend base url")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var expr jmespath.JMESPath
	if opts.TrendPointsExpr != "" {
		compiled, err := jmespath.Compile(opts.TrendPointsExpr)
		if err != nil {
			return nil, aerrors.Wrap(err, aerrors.ErrCodeValidation, "invalid trend points expression")
		}
		expr = compiled
	}

	var listCache *gocache.Cache
	if opts.ListCacheTTL > 0 {
		listCache = gocache.New(opts.ListCacheTTL, 2*opts.ListCacheTTL)
	}

	return &Client{
		baseURL:   opts.BaseURL,
		tokens:    opts.Tokens,
		sessions:  opts.Sessions,
		http:      httpClient,
		listCache: listCache,
		trendExpr: expr,
		logger:    logger,
	}, nil
}

// Device is a monitored unit as reported by the backend.
type Device struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	Model    string     `json:"model,omitempty"`
	Firmware string     `json:"firmware,omitempty"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// Event is a single device event record.
type Event struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"deviceId"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// TrendPoint is one sample of a device metric series.
type TrendPoint struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// Settings is the mutable per-device configuration blob. The backend owns
// the schema; the gateway passes it through opaquely.
type Settings map[string]any

// List returns all devices visible to the operator, served from cache
// within the configured TTL.
func (c *Client) List(ctx context.Context) ([]Device, error) {
	if c.listCache != nil {
		if cached, ok := c.listCache.Get(listCacheKey); ok {
			if list, ok := cached.([]Device); ok {
				return list, nil
			}
		}
	}

	var list []Device
	if err := c.do(ctx, http.MethodGet, "v1/devices", nil, &list); err != nil {
		return nil, err
	}
	if c.listCache != nil {
		c.listCache.SetDefault(listCacheKey, list)
	}
	return list, nil
}

// Get returns a single device.
func (c *Client) Get(ctx context.Context, id string) (*Device, error) {
	var dev Device
	if err := c.do(ctx, http.MethodGet, "v1/devices/"+url.PathEscape(id), nil, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

// Events returns the most recent events for a device, newest first.
func (c *Client) Events(ctx context.Context, id string, limit int) ([]Event, error) {
	path := "v1/devices/" + url.PathEscape(id) + "/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var events []Event
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Trend returns the metric series for a device, extracting points from the
// backend payload with the configured JMESPath expression.
func (c *Client) Trend(ctx context.Context, id, metric string) ([]TrendPoint, error) {
	path := "v1/devices/" + url.PathEscape(id) + "/trend?metric=" + url.QueryEscape(metric)

	var payload any
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	if c.trendExpr == nil {
		return nil, aerrors.MissingConfiguration("device trend points expression")
	}

	extracted, err := c.trendExpr.Search(payload)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.ErrCodeInternal, "trend extraction failed")
	}
	if extracted == nil {
		return []TrendPoint{}, nil
	}

	// Round-trip through JSON to coerce the extracted shape into points.
	raw, err := json.Marshal(extracted)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.ErrCodeInternal, "trend extraction produced unencodable value")
	}
	var points []TrendPoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, aerrors.Wrap(err, aerrors.ErrCodeInternal, "trend extraction produced unexpected shape")
	}
	return points, nil
}

// UpdateSettings replaces a device's settings and invalidates the list cache.
func (c *Client) UpdateSettings(ctx context.Context, id string, settings Settings) error {
	path := "v1/devices/" + url.PathEscape(id) + "/settings"
	if err := c.do(ctx, http.MethodPut, path, settings, nil); err != nil {
		return err
	}
	if c.listCache != nil {
		c.listCache.Delete(listCacheKey)
	}
	return nil
}

// Operator is the backend's record of the signed-in operator.
type Operator struct {
	ID      string `json:"id"`
	UserKey string `json:"userKey"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// SyncMe upserts the operator record derived from the current session.
func (c *Client) SyncMe(ctx context.Context) (*Operator, error) {
	var op Operator
	if err := c.do(ctx, http.MethodPost, "v1/me/sync", nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// do performs one authenticated backend request. The bearer credential is
// resolved immediately before the call so an expired enterprise token is
// silently refreshed rather than sent stale.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	sess := c.sessions.Session()
	if sess == nil {
		return aerrors.NoActiveAccount()
	}
	token, err := c.tokens.ResolveBearerToken(ctx, *sess)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return aerrors.Wrap(err, aerrors.ErrCodeInternal, "encode request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return aerrors.Wrap(err, aerrors.ErrCodeInternal, "build backend request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return aerrors.Wrap(err, aerrors.ErrCodeInternal, "device backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return aerrors.Wrap(err, aerrors.ErrCodeInternal, "decode backend response")
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := fmt.Sprintf("device backend returned %d", resp.StatusCode)
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		message = envelope.Message
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return aerrors.NotFound(message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return aerrors.Validation(message)
	case http.StatusConflict:
		return aerrors.Conflict(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return aerrors.Wrap(aerrors.NoActiveAccount(), aerrors.ErrCodeNoActiveAccount, message)
	default:
		return aerrors.Internal(message)
	}
}

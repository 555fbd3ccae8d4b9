// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
)

const (
	// DefaultTimeout bounds interactive upstream requests.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when ClientConfig.UserAgent is empty.
	DefaultUserAgent = "skytrail/1.0"

	// maxErrorBodySize caps how much of a non-2xx body is kept for errors.
	maxErrorBodySize = 64 * 1024

	// maxTokenBodySize caps the grant response.
	maxTokenBodySize = 1 << 20

	// maxPayloadSize caps a states response; a global snapshot is a few MB.
	maxPayloadSize = 64 << 20

	endpointStates = "states"
	endpointTracks = "tracks"

	retryAfterHeader = "X-Rate-Limit-Retry-After-Seconds"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	UserAgent string

	// Timeout bounds each call, including a 401 retry. Callers may pass a
	// context with a shorter deadline.
	Timeout time.Duration

	// RequestsPerMinute paces outgoing calls; zero disables pacing.
	RequestsPerMinute int

	HTTPClient *http.Client
}

// Client performs states and track requests against OpenSky.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[rawResponse]
}

// NewClient creates a Client. A nil tokens source means every request goes
// out anonymously.
func NewClient(cfg ClientConfig, tokens TokenSource) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		tokens:    tokens,
		breaker:   newBreaker(),
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.tokens == nil {
		c.tokens = anonymousSource{}
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// BuildHeaders returns the request headers and the auth mode they encode.
// Authorization is present if and only if the mode is Authenticated.
func (c *Client) BuildHeaders(ctx context.Context) (http.Header, AuthMode) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", c.userAgent)
	if tok, ok := c.tokens.Token(ctx); ok {
		h.Set("Authorization", "Bearer "+tok.Value)
		return h, Authenticated
	}
	return h, Anonymous
}

// StatesResponse is the raw /states/all payload. Each row holds the 17
// positional state-vector columns.
type StatesResponse struct {
	Time   int64
	States [][]interface{}
}

// FetchStates requests current state vectors, scoped to bbox when non-nil.
func (c *Client) FetchStates(ctx context.Context, bbox *BoundingBox) (*StatesResponse, AuthMode, error) {
	var q url.Values
	if bbox != nil {
		q = bbox.Query()
	}

	body, mode, err := c.get(ctx, endpointStates, "/states/all", q)
	if err != nil {
		return nil, mode, err
	}

	var payload struct {
		Time   *int64          `json:"time"`
		States [][]interface{} `json:"states"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, mode, &UpstreamError{Kind: KindMalformedPayload, Endpoint: endpointStates, Status: http.StatusOK, Mode: mode, Err: err}
	}
	if payload.Time == nil {
		return nil, mode, &UpstreamError{Kind: KindMalformedPayload, Endpoint: endpointStates, Status: http.StatusOK, Mode: mode, Err: errors.New("missing time field")}
	}

	return &StatesResponse{Time: *payload.Time, States: payload.States}, mode, nil
}

// TrackResponse is the raw /tracks/all payload. Path rows are
// [time, latitude, longitude, baro_altitude, true_track, on_ground].
type TrackResponse struct {
	ICAO24    string          `json:"icao24"`
	Callsign  *string         `json:"callsign"`
	StartTime float64         `json:"startTime"`
	EndTime   float64         `json:"endTime"`
	Path      [][]interface{} `json:"path"`
}

// FetchTrack requests the trajectory of one aircraft. at is a unix time
// within the flight, or 0 for the live track.
func (c *Client) FetchTrack(ctx context.Context, icao24 string, at int64) (*TrackResponse, AuthMode, error) {
	q := url.Values{}
	q.Set("icao24", strings.ToLower(icao24))
	q.Set("time", strconv.FormatInt(at, 10))

	body, mode, err := c.get(ctx, endpointTracks, "/tracks/all", q)
	if err != nil {
		return nil, mode, err
	}

	var tr *TrackResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, mode, &UpstreamError{Kind: KindMalformedPayload, Endpoint: endpointTracks, Status: http.StatusOK, Mode: mode, Err: err}
	}
	if tr == nil {
		return nil, mode, &UpstreamError{Kind: KindNotFound, Endpoint: endpointTracks, Status: http.StatusOK, Mode: mode}
	}
	return tr, mode, nil
}

// get performs a bounded GET with one re-authentication retry on 401.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, AuthMode, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers, mode := c.BuildHeaders(ctx)
	res, err := c.do(ctx, endpoint, path, query, headers, mode)

	if err == nil && res.status == http.StatusUnauthorized && mode == Authenticated {
		logging.Ctx(ctx).Info().Str("endpoint", endpoint).Msg("OpenSky returned 401, re-authenticating once")
		metrics.UpstreamAuthRetries.Inc()
		c.tokens.Invalidate()
		headers, mode = c.BuildHeaders(ctx)
		res, err = c.do(ctx, endpoint, path, query, headers, mode)
	}

	if err != nil {
		return nil, mode, err
	}
	if err := statusError(endpoint, mode, res); err != nil {
		return nil, mode, err
	}
	return res.body, mode, nil
}

// do waits for the pacing limiter, then sends one request through the breaker.
func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values, headers http.Header, mode AuthMode) (rawResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return rawResponse{}, transportError(ctx, endpoint, mode, err)
		}
	}

	start := time.Now()
	res, err := c.execute(endpoint, mode, func() (rawResponse, error) {
		return c.roundTrip(ctx, endpoint, path, query, headers, mode)
	})
	metrics.RecordUpstreamRequest(endpoint, mode.String(), outcomeLabel(endpoint, mode, res, err), time.Since(start))
	return res, err
}

// roundTrip returns an error for transport failures and 5xx answers, which
// are the only outcomes the breaker counts as failures.
func (c *Client) roundTrip(ctx context.Context, endpoint, path string, query url.Values, headers http.Header, mode AuthMode) (rawResponse, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return rawResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return rawResponse{}, transportError(ctx, endpoint, mode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	res := rawResponse{status: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header)}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
		if err != nil {
			return rawResponse{}, transportError(ctx, endpoint, mode, err)
		}
		res.body = body
		return res, nil
	}

	res.body = readBodyForError(resp.Body)
	if resp.StatusCode >= 500 {
		return res, statusError(endpoint, mode, res)
	}
	return res, nil
}

// statusError maps a non-2xx status to its UpstreamError. 2xx yields nil.
func statusError(endpoint string, mode AuthMode, res rawResponse) error {
	if res.status >= 200 && res.status <= 299 {
		return nil
	}
	ue := &UpstreamError{Endpoint: endpoint, Status: res.status, Mode: mode, Body: string(res.body)}
	switch res.status {
	case http.StatusUnauthorized:
		ue.Kind = KindAuthenticationRejected
	case http.StatusNotFound:
		ue.Kind = KindNotFound
	case http.StatusTooManyRequests:
		ue.Kind = KindRateLimited
		ue.RetryAfter = res.retryAfter
	case http.StatusServiceUnavailable:
		ue.Kind = KindUnavailable
	default:
		ue.Kind = KindUnexpectedStatus
	}
	return ue
}

// transportError classifies a failure that produced no HTTP response.
func transportError(ctx context.Context, endpoint string, mode AuthMode, err error) error {
	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &UpstreamError{Kind: KindNetwork, Endpoint: endpoint, Mode: mode, Err: err}
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout(),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &UpstreamError{Kind: KindTimeout, Endpoint: endpoint, Mode: mode, Err: err}
	case strings.Contains(err.Error(), "would exceed context deadline"):
		// rate.Limiter.Wait gives up early when the deadline cannot be met.
		return &UpstreamError{Kind: KindTimeout, Endpoint: endpoint, Mode: mode, Err: err}
	default:
		return &UpstreamError{Kind: KindNetwork, Endpoint: endpoint, Mode: mode, Err: err}
	}
}

func outcomeLabel(endpoint string, mode AuthMode, res rawResponse, err error) string {
	if err == nil {
		err = statusError(endpoint, mode, res)
	}
	if err == nil {
		return "ok"
	}
	if kind, ok := KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get(retryAfterHeader)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// readBodyForError reads a bounded copy of an error body for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

type anonymousSource struct{}

func (anonymousSource) Token(context.Context) (AccessToken, bool) { return AccessToken{}, false }
func (anonymousSource) Invalidate()                               {}

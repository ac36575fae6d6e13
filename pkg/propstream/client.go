// Package propstream provides a client for the PropStream property data
// service. The service has no public, documented API: the client
// authenticates with a session token captured from the browser app,
// paces itself through a request gate, and absorbs transient upstream
// failures with bounded retries.
package propstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/propdata-cli/internal/resilience"
)

const (
	propertyPath    = "/eqbackend/resource/auth/ps4/property"
	suggestionsPath = "/eqbackend/resource/auth/ps4/property/suggestionsnew"

	// searchPath is provisional: the upstream search endpoint was captured
	// from the browser app but its exact contract is unverified.
	searchPath = "/eqbackend/resource/auth/ps4/search"

	// Browser-like identity so requests blend with organic app traffic.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	defaultReferer   = "https://app.propstream.com/search"
)

// Gate admits outbound requests. Every attempt, including retries, must
// pass through it so retried calls re-enter pacing and quota accounting.
type Gate interface {
	Acquire(ctx context.Context) error
}

// UpstreamError is a non-retryable HTTP failure from the service,
// surfaced to the caller as-is.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("propstream: upstream status %d: %s", e.StatusCode, e.Body)
}

// PropertyQuery narrows a property detail fetch.
type PropertyQuery struct {
	Address     string
	APN         string
	CityID      string
	AddressType string
}

// SearchCriteria filters a property search.
type SearchCriteria struct {
	Address string
	City    string
	State   string
	ZipCode string
	County  string
	APN     string
	Limit   int
	Offset  int
}

// Client defines the upstream operations.
type Client interface {
	// PropertyByID fetches full property details for a property ID.
	PropertyByID(ctx context.Context, id string, q PropertyQuery) (json.RawMessage, error)
	// Suggestions returns address autocomplete matches for a query string.
	Suggestions(ctx context.Context, query string) (json.RawMessage, error)
	// SearchProperties searches properties by criteria.
	SearchProperties(ctx context.Context, c SearchCriteria) (json.RawMessage, error)
	// TestConnection reports whether the base URL and auth token work.
	TestConnection(ctx context.Context) bool
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithGate routes every request attempt through the given gate.
func WithGate(g Gate) Option {
	return func(c *httpClient) { c.gate = g }
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.http.Timeout = d }
}

// WithRateLimit caps requests per second on top of the gate's pacing.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL   string
	authToken string
	gate      Gate
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	http      *http.Client
}

// noGate admits everything; used when no gate is configured.
type noGate struct{}

func (noGate) Acquire(context.Context) error { return nil }

// NewClient creates a PropStream client authenticated with the given
// session token.
func NewClient(authToken string, opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://app.propstream.com",
		authToken: authToken,
		gate:      noGate{},
		limiter:   rate.NewLimiter(2, 1),
		retry:     resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Referer", defaultReferer)
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
}

// send issues one logical request with gate accounting and retries.
// Each attempt re-enters the gate, so retries count against quota. A
// gate refusal (quota error) is not transient and propagates untouched.
func (c *httpClient) send(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("propstream", path)
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (json.RawMessage, error) {
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.attempt(ctx, method, path, query)
	})
}

func (c *httpClient) attempt(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "propstream: create request")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection-level failures are transient and retried.
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "propstream: read response body")
	}

	switch {
	case resilience.IsRetryableStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("propstream: status %d: %s", resp.StatusCode, truncate(body, 256)),
			resp.StatusCode,
		)
	case resp.StatusCode >= 400:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// A non-JSON success response is wrapped rather than failed.
	if !json.Valid(body) {
		wrapped, err := json.Marshal(map[string]any{
			"raw_response": string(body),
			"status_code":  resp.StatusCode,
		})
		if err != nil {
			return nil, eris.Wrap(err, "propstream: wrap raw response")
		}
		return wrapped, nil
	}

	return body, nil
}

func (c *httpClient) PropertyByID(ctx context.Context, id string, q PropertyQuery) (json.RawMessage, error) {
	addressType := q.AddressType
	if addressType == "" {
		addressType = "P"
	}

	params := url.Values{}
	params.Set("id", id)
	params.Set("addressType", addressType)
	if q.Address != "" {
		params.Set("streetAddress", q.Address)
	}
	if q.APN != "" {
		params.Set("apn", q.APN)
	}
	if q.CityID != "" {
		params.Set("cityId", q.CityID)
	}

	return c.send(ctx, http.MethodGet, propertyPath, params)
}

func (c *httpClient) Suggestions(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.send(ctx, http.MethodGet, suggestionsPath, params)
}

func (c *httpClient) SearchProperties(ctx context.Context, sc SearchCriteria) (json.RawMessage, error) {
	params := url.Values{}
	if sc.Address != "" {
		params.Set("streetAddress", sc.Address)
	}
	if sc.City != "" {
		params.Set("city", sc.City)
	}
	if sc.State != "" {
		params.Set("state", sc.State)
	}
	if sc.ZipCode != "" {
		params.Set("zip", sc.ZipCode)
	}
	if sc.County != "" {
		params.Set("county", sc.County)
	}
	if sc.APN != "" {
		params.Set("apn", sc.APN)
	}
	if sc.Limit > 0 {
		params.Set("limit", strconv.Itoa(sc.Limit))
	}
	if sc.Offset > 0 {
		params.Set("offset", strconv.Itoa(sc.Offset))
	}

	return c.send(ctx, http.MethodGet, searchPath, params)
}

// TestConnection issues a single direct probe against a known property
// ID, bypassing the gate and retries. It only validates that the base
// URL is reachable and the auth token is accepted.
func (c *httpClient) TestConnection(ctx context.Context) bool {
	params := url.Values{}
	params.Set("id", "1863342326")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+propertyPath+"?"+params.Encode(), nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Package client provides the upstream content API fetcher. Every call is
// isolated: failures are classified and reported in the result, never
// returned as errors or panics.
package client

import (
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

	"github.com/Sternrassler/cms-page-cache/pkg/registry"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream fetches.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_upstream_requests_total",
		Help: "Total upstream content requests by resource and status",
	}, []string{"resource", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cms_upstream_request_duration_seconds",
		Help:    "Upstream content request duration in seconds by resource",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_upstream_errors_total",
		Help: "Total upstream content errors by class",
	}, []string{"class"})
)

// ErrBaseURLRequired is returned by New when no upstream base URL is configured.
var ErrBaseURLRequired = errors.New("base url is required")

// Config holds the client configuration.
type Config struct {
	// BaseURL of the content API, e.g. "https://cms.example.com".
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	UserAgent string

	// Timeout bounds each upstream call.
	Timeout time.Duration

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64

	// Query parameter names used for fill depth and locale.
	FillDepthParam string
	LocaleParam    string

	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "cms-page-cache/1.0",
		Timeout:        10 * time.Second,
		MaxBodyBytes:   8 << 20,
		FillDepthParam: "fillDepth",
		LocaleParam:    "locale",
	}
}

// Pagination is the upstream list pagination block.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// ResponseMeta is the optional meta block of an upstream response.
type ResponseMeta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

// FetchResult is the outcome of one upstream call.
type FetchResult struct {
	ResourceName string
	Data         json.RawMessage
	Meta         *ResponseMeta
	Succeeded    bool
	Error        string
	Class        ErrorClass
	StatusCode   int
	Duration     time.Duration
	// Err holds the typed error behind Error, nil on success.
	Err *FetchError
}

// Client fetches named resources from the upstream content API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	registry   *registry.Registry
	config     Config
	logger     zerolog.Logger
}

// New creates a new content client. Resource names are resolved to
// endpoints through reg.
func New(cfg Config, reg *registry.Registry) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if reg == nil {
		reg = registry.Default()
	}

	defaults := DefaultConfig(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.FillDepthParam == "" {
		cfg.FillDepthParam = defaults.FillDepthParam
	}
	if cfg.LocaleParam == "" {
		cfg.LocaleParam = defaults.LocaleParam
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		registry:   reg,
		config:     cfg,
		logger:     log.With().Str("component", "cms-client").Logger(),
	}, nil
}

// Registry returns the registry used to resolve resource endpoints.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// BuildURL returns the upstream URL for resource in locale.
func (c *Client) BuildURL(resource, locale string, extra url.Values) string {
	res := c.registry.ResourceOrDefault(resource)

	u := *c.baseURL
	u.Path = c.baseURL.Path + res.Endpoint

	q := url.Values{}
	for k, vs := range extra {
		q[k] = append([]string(nil), vs...)
	}
	q.Set(c.config.FillDepthParam, strconv.Itoa(res.FillDepth))
	if locale != "" {
		q.Set(c.config.LocaleParam, locale)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch performs one GET for resource in locale. It never returns an
// error: failures are reported through FetchResult.
func (c *Client) Fetch(ctx context.Context, resource, locale string, extra url.Values) FetchResult {
	startTime := time.Now()
	result := FetchResult{ResourceName: resource}

	defer func() {
		result.Duration = time.Since(startTime)
		upstreamRequestDuration.WithLabelValues(resource).Observe(result.Duration.Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	target := c.BuildURL(resource, locale, extra)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.fail(&result, &FetchError{Resource: resource, Class: ErrorClassGeneric, Message: "create request", Err: err})
		return result
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	c.logger.Debug().
		Str("resource", resource).
		Str("locale", locale).
		Str("url", target).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.fail(&result, &FetchError{Resource: resource, Class: classifyTransport(err), Err: err})
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	body, err := c.readBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.fail(&result, &FetchError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    upstreamMessage(resp.StatusCode, body),
		})
		return result
	}
	if err != nil {
		class := ErrorClassDecode
		if !errors.Is(err, errBodyTooLarge) {
			class = classifyTransport(err)
		}
		c.fail(&result, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Class: class, Err: err})
		return result
	}

	var env struct {
		Data json.RawMessage `json:"data"`
		Meta *ResponseMeta   `json:"meta"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		c.fail(&result, &FetchError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Message:    "invalid JSON body",
			Err:        err,
		})
		return result
	}

	result.Succeeded = true
	result.Data = env.Data
	if len(result.Data) == 0 {
		result.Data = json.RawMessage(body)
	}
	result.Meta = env.Meta

	upstreamRequestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("resource", resource).
		Int("status", resp.StatusCode).
		Str("size", humanize.Bytes(uint64(len(body)))).
		Dur("duration", time.Since(startTime)).
		Msg("Upstream request succeeded")

	return result
}

var errBodyTooLarge = errors.New("response body too large")

// readBody reads at most MaxBodyBytes of body.
func (c *Client) readBody(body io.Reader) ([]byte, error) {
	limit := c.config.MaxBodyBytes
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > limit {
		return data[:limit], fmt.Errorf("%w: exceeds %s", errBodyTooLarge, humanize.Bytes(uint64(limit)))
	}
	return data, nil
}

// fail records fe on result and updates error metrics.
func (c *Client) fail(result *FetchResult, fe *FetchError) {
	result.Succeeded = false
	result.Err = fe
	result.Error = fe.Error()
	result.Class = fe.Class
	result.StatusCode = fe.StatusCode

	status := string(fe.Class)
	if fe.StatusCode != 0 {
		status = strconv.Itoa(fe.StatusCode)
	}
	upstreamErrorsTotal.WithLabelValues(string(fe.Class)).Inc()
	upstreamRequestsTotal.WithLabelValues(fe.Resource, status).Inc()

	c.logger.Warn().
		Str("resource", fe.Resource).
		Int("status", fe.StatusCode).
		Str("error_class", string(fe.Class)).
		Str("error", result.Error).
		Msg("Upstream request failed")
}

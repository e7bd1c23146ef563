package jsonrpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// MaxAttempts bounds the physical sends of one batch, retries included.
	MaxAttempts = 3

	// DefaultPageSize is the page size used by Paginate when none is given.
	DefaultPageSize = 200

	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second

	// maxBodySize caps how much of a reply body is read.
	maxBodySize = 64 << 20
)

type batchState int

const (
	stateIdle batchState = iota
	stateBatching
)

// Client is the transport for one API tenant. It owns the envelope id
// counter, the pending batch and the request counter.
//
// A Client is not safe for concurrent use. Use one client per goroutine or
// serialize access externally.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	pageSize   int
	newBackOff func() backoff.BackOff
	limiter    *rate.Limiter
	log        zerolog.Logger
	metrics    *Metrics
	now        func() time.Time

	nextID       int64
	requestCount int64
	state        batchState
	queue        []*Envelope
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPageSize sets the default page size for Paginate.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRetryBackOff sets the delay policy between retry attempts. The factory
// is called once per logical send. The number of attempts stays bounded by
// MaxAttempts; a policy returning backoff.Stop ends retries early.
func WithRetryBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// WithRateLimiter throttles physical sends on the client side. Each attempt,
// retries included, waits for one token.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMetrics records exchanges into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTokenSource supplies the bearer token from ts instead of the static
// token given to New.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// New creates a client for the API at baseURL authenticating with token. It
// returns a *ConfigurationError when either is empty, unless a token source is
// supplied with WithTokenSource.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		pageSize:   DefaultPageSize,
		newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	if token != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" || c.tokens == nil {
		return nil, &ConfigurationError{}
	}
	if err := ValidateBaseURL(c.baseURL); err != nil {
		return nil, err
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultConnectTimeout, DefaultTimeout)
	}
	return c, nil
}

// ValidateBaseURL reports a *ConfigurationError unless baseURL is an absolute
// http or https URL with a host.
func ValidateBaseURL(baseURL string) error {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return &ConfigurationError{Message: fmt.Sprintf("Gripp client is not configured: invalid API URL %q: %v", baseURL, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Message: fmt.Sprintf("Gripp client is not configured: API URL %q must be an absolute http(s) URL", baseURL)}
	}
	return nil
}

// NewHTTPClient returns an http.Client with a dial timeout shorter than its
// total timeout.
func NewHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// configured guards against a zero-value Client.
func (c *Client) configured() error {
	if c == nil || c.baseURL == "" || c.tokens == nil || c.httpClient == nil {
		return &ConfigurationError{}
	}
	return nil
}

// RequestCount returns the number of completed physical exchanges.
func (c *Client) RequestCount() int64 {
	if c == nil {
		return 0
	}
	return c.requestCount
}

// PageSize returns the default page size used by Paginate.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Call invokes method with positional params. While a batch is being
// collected the call is queued and a pending Response is returned.
func (c *Client) Call(ctx context.Context, method string, params []any) (*Response, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	env, err := c.build(method, params)
	if err != nil {
		return nil, err
	}

	if c.state == stateBatching {
		c.queue = append(c.queue, env)
		c.log.Trace().Str("method", method).Int64("id", env.ID).Int("queued", len(c.queue)).Msg("Queued call in batch")
		return newPendingResponse(env.ID), nil
	}

	items, err := c.send(ctx, []*Envelope{env})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return NewResponse(nil), nil
	}
	return NewResponse(items[0]), nil
}

package mediacms

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/metrics"
	"github.com/ManuGH/mediablock/internal/ratelimit"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 4 << 20
	userAgent       = "mediablock/1"
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	Timeout          time.Duration
	Limiter          *ratelimit.Limiter
	BreakerThreshold int
	BreakerReset     time.Duration
	HTTPClient       *http.Client
}

// Client calls the MediaCMS media detail API. One attempt per call, no retry.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter

	breakerThreshold int
	breakerReset     time.Duration
	breakersMu       sync.Mutex
	breakers         map[string]*CircuitBreaker
}

// NewClient builds a client with an instrumented transport.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		http:             hc,
		limiter:          opts.Limiter,
		breakerThreshold: opts.BreakerThreshold,
		breakerReset:     opts.BreakerReset,
		breakers:         make(map[string]*CircuitBreaker),
	}
}

// Media fetches and parses the detail document for ref.
func (c *Client) Media(ctx context.Context, ref Ref) (*MediaInfo, error) {
	if !c.limiter.Allow(ref.BaseURL) {
		return nil, &Error{Sentinel: ErrRateLimited, URL: ref.APIURL()}
	}

	var info *MediaInfo
	err := c.breaker(ref.BaseURL).Execute(func() error {
		var err error
		info, err = c.fetch(ctx, ref)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, &Error{Sentinel: ErrCircuitOpen, URL: ref.APIURL()}
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) fetch(ctx context.Context, ref Ref) (*MediaInfo, error) {
	apiURL := ref.APIURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrUnavailable, URL: apiURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.ObserveMediaCMSRequest(time.Since(start))
	if err != nil {
		return nil, &Error{Sentinel: classifyTransport(err), URL: apiURL, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Sentinel: classifyTransport(err), URL: apiURL, Status: res.StatusCode, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		sentinel := ErrUpstream
		if res.StatusCode == http.StatusNotFound {
			sentinel = ErrNotFound
		}
		return nil, &Error{Sentinel: sentinel, URL: apiURL, Status: res.StatusCode}
	}

	info, err := ParseMediaInfo(body)
	if err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, URL: apiURL, Status: res.StatusCode, Err: err}
	}
	info.Token = ref.Token
	info.BaseURL = ref.BaseURL

	logger := log.WithComponentFromContext(ctx, "mediacms")
	logger.Debug().
		Str(log.FieldBaseURL, ref.BaseURL).
		Str(log.FieldToken, ref.Token).
		Int("encodings", len(info.Encodings)).
		Bool("hls", info.MasterFile != "").
		Msg("media detail fetched")
	return info, nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}

// breaker returns the per-origin circuit breaker, or nil when disabled.
func (c *Client) breaker(origin string) *CircuitBreaker {
	if c.breakerThreshold <= 0 {
		return nil
	}
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	cb, ok := c.breakers[origin]
	if !ok {
		cb = NewCircuitBreaker(origin, c.breakerThreshold, c.breakerReset, originFailure)
		c.breakers[origin] = cb
	}
	return cb
}

// originFailure reports whether err says the origin is unhealthy.
// A missing media item or a malformed document does not.
func originFailure(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) ||
		(errors.Is(err, ErrUpstream) && upstreamStatus(err) >= 500)
}

func upstreamStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

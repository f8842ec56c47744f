package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultMaxAttempts = 3
	defaultRetryAfter  = 60 * time.Second
)

// Limits is the per-source request budget.
type Limits struct {
	MaxRequests int
	Per         time.Duration
}

type Options struct {
	Source      string
	Limits      Limits
	Timeout     time.Duration
	MaxAttempts int
	// BackoffBase is multiplied by 2^attempt between attempts.
	BackoffBase time.Duration
	UserAgent   string
	Headers     map[string]string
	Logger      *zap.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Request carries per-call query parameters and headers.
type Request struct {
	Query   url.Values
	Headers map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Fetcher performs rate-limited GETs for a single source. Each connector owns
// its own instance so limiter state is never shared between sources.
type Fetcher struct {
	source      string
	client      *resty.Client
	limiter     *windowLimiter
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Fetcher {
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeaders(map[string]string{
		"User-Agent":      ua,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "ja,en-US;q=0.9,en;q=0.8",
	})
	if len(opts.Headers) > 0 {
		client.SetHeaders(opts.Headers)
	}

	f := &Fetcher{
		source:      opts.Source,
		client:      client,
		limiter:     newWindowLimiter(opts.Limits.MaxRequests, opts.Limits.Per),
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		logger:      opts.Logger,
		now:         opts.Now,
		sleep:       opts.Sleep,
	}
	if f.maxAttempts <= 0 {
		f.maxAttempts = defaultMaxAttempts
	}
	if f.backoffBase <= 0 {
		f.backoffBase = time.Second
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.sleep == nil {
		f.sleep = sleepContext
	}
	return f
}

func (f *Fetcher) Source() string {
	return f.source
}

// Fetch issues a GET. The request window is checked once per call; retries
// of the same call do not consume additional budget.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, req *Request) (*Response, error) {
	if wait, ok := f.limiter.reserve(f.now()); !ok {
		return nil, &RateLimitedError{Source: f.source, RetryAfter: wait}
	}
	return f.attempt(ctx, rawURL, req)
}

// FetchWait is Fetch for callers that would rather sleep through an exhausted
// local window than fail fast. Upstream 429s still surface as RateLimitedError.
func (f *Fetcher) FetchWait(ctx context.Context, rawURL string, req *Request) (*Response, error) {
	for {
		wait, ok := f.limiter.reserve(f.now())
		if ok {
			break
		}
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return f.attempt(ctx, rawURL, req)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		resp, err := f.do(ctx, rawURL, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) || attempt == f.maxAttempts-1 {
			break
		}
		backoff := f.backoffBase * time.Duration(1<<attempt)
		f.logger.Debug("fetch retry",
			zap.String("source", f.source),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := f.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetJSON fetches rawURL and decodes the body into out.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, req *Request, out any) error {
	resp, err := f.Fetch(ctx, rawURL, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", f.source, rawURL, err)
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, req *Request) (*Response, error) {
	r := f.client.R().SetContext(ctx)
	if req != nil {
		if len(req.Query) > 0 {
			r.SetQueryParamsFromValues(req.Query)
		}
		if len(req.Headers) > 0 {
			r.SetHeaders(req.Headers)
		}
	}
	resp, err := r.Get(rawURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Source: f.source, URL: rawURL, Err: err}
	}
	status := resp.StatusCode()
	if status == http.StatusTooManyRequests {
		return nil, &RateLimitedError{
			Source:     f.source,
			RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After"), f.now()),
		}
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{
			Source:     f.source,
			URL:        rawURL,
			StatusCode: status,
			Err:        fmt.Errorf("HTTP %d", status),
		}
	}
	return &Response{
		StatusCode: status,
		Header:     resp.Header(),
		Body:       resp.Body(),
		URL:        resp.Request.URL,
	}, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

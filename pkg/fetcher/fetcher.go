package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dtnitsch/abstract-enricher/pkg/retry"
)

const (
	// DefaultTimeout bounds a single attempt, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes is the largest response body accepted. Larger
	// bodies fail with ErrBodyTooLarge and are not retried.
	DefaultMaxBodyBytes = 16 << 20
)

// Response is a successful (2xx) HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Fetcher issues HTTP requests and retries them according to a retry.Policy.
// It is meant to be built once and reused for sequential calls.
type Fetcher struct {
	client       *http.Client
	policy       retry.Policy
	logger       *slog.Logger
	userAgent    string
	maxBodyBytes int64
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBodyBytes caps the number of body bytes read per response.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// NewFetcher returns a Fetcher that retries according to policy.
func NewFetcher(policy retry.Policy, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &Fetcher{
		client:       &http.Client{Timeout: DefaultTimeout},
		policy:       policy,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
		sleep:        sleepContext,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the retry policy the fetcher was built with.
func (f *Fetcher) Policy() retry.Policy {
	return f.policy
}

// GetHtmlBytes fetches url and returns the body of a successful response.
func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get performs a GET request with retries.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.Do(ctx, http.MethodGet, url)
}

// Do performs a request with the given method, retrying transient failures.
// The caller sees either a 2xx response or a single *FetchError.
func (f *Fetcher) Do(ctx context.Context, method, url string) (*Response, error) {
	total, connect, read := f.policy.Total, f.policy.Connect, f.policy.Read
	retryable := f.policy.IsRetryableMethod(method)
	retries := 0

	for attempt := 1; ; attempt++ {
		resp, err := f.attempt(ctx, method, url)

		fail := &FetchError{Method: method, URL: url, Attempts: attempt}
		var wait time.Duration
		var waitSet bool

		switch {
		case err != nil:
			fail.Err = err
			if ctx.Err() != nil {
				fail.Err = ctx.Err()
				return nil, f.failed(fail)
			}
			if errors.Is(err, ErrBodyTooLarge) {
				return nil, f.failed(fail)
			}
			if isConnectError(err) {
				if connect <= 0 || total <= 0 {
					fail.Exhausted = true
					return nil, f.failed(fail)
				}
				connect--
			} else {
				if !retryable {
					return nil, f.failed(fail)
				}
				if read <= 0 || total <= 0 {
					fail.Exhausted = true
					return nil, f.failed(fail)
				}
				read--
			}

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return &Response{
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Body:       resp.body,
				Attempts:   attempt,
			}, nil

		default:
			fail.StatusCode = resp.StatusCode
			fail.Err = ErrStatus
			if !retryable || !f.policy.IsRetryableStatus(resp.StatusCode) {
				return nil, f.failed(fail)
			}
			if total <= 0 {
				fail.Exhausted = true
				return nil, f.failed(fail)
			}
			wait, waitSet = f.policy.RetryAfter(resp.Response, f.now())
		}

		total--
		if !waitSet {
			wait = f.policy.Backoff(retries)
		}
		retries++

		f.logger.Warn("Request failed, retrying",
			"method", method,
			"url", url,
			"attempt", attempt,
			"status_code", fail.StatusCode,
			"error", fail.Err,
			"wait", wait,
		)

		if err := f.sleep(ctx, wait); err != nil {
			fail.Err = err
			return nil, f.failed(fail)
		}
	}
}

// attemptResponse is an *http.Response whose body has already been read.
type attemptResponse struct {
	*http.Response
	body []byte
}

func (f *Fetcher) attempt(ctx context.Context, method, url string) (*attemptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodyBytes)
	}
	return &attemptResponse{Response: resp, body: body}, nil
}

func (f *Fetcher) failed(err *FetchError) error {
	f.logger.Error("Request failed",
		"method", err.Method,
		"url", err.URL,
		"attempts", err.Attempts,
		"status_code", err.StatusCode,
		"retries_exhausted", err.Exhausted,
		"error", err.Err,
	)
	return err
}

// isConnectError reports whether err happened before a connection was made.
func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

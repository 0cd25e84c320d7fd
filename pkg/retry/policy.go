// Package retry describes when and how long to wait before an HTTP request
// is attempted again. A Policy is plain data and is safe to share.
package retry

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRetries is the retry budget used by Default.
	DefaultRetries = 4
	// DefaultBackoffFactor is the backoff factor, in seconds, used by Default.
	DefaultBackoffFactor = 0.1
	// DefaultBackoffMax caps any single wait.
	DefaultBackoffMax = 120 * time.Second
)

// ServerErrorStatuses are always retried.
var ServerErrorStatuses = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryAfterStatuses are retried and may carry a Retry-After header.
var RetryAfterStatuses = []int{
	http.StatusRequestEntityTooLarge,
	http.StatusTooManyRequests,
	http.StatusServiceUnavailable,
}

// IdempotentMethods are the methods retried on read failures and retryable
// statuses without being asked for.
var IdempotentMethods = []string{
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPut,
	http.MethodTrace,
}

// Policy is an immutable retry configuration.
type Policy struct {
	Total   int // retries of any kind
	Connect int // retries after a failure to connect
	Read    int // retries after a failure once connected

	BackoffFactor     float64 // seconds; the k-th retry waits BackoffFactor * 2^k
	BackoffMax        time.Duration
	RespectRetryAfter bool

	statuses map[int]struct{}
	methods  map[string]struct{}
}

// New builds a Policy. Additional statuses and methods are merged with the
// defaults; they never replace them. Negative counts are treated as zero.
func New(retries int, backoffFactor float64, additionalStatus []int, additionalMethods []string) Policy {
	retries = max(retries, 0)
	if backoffFactor < 0 || math.IsNaN(backoffFactor) {
		backoffFactor = 0
	}

	statuses := make(map[int]struct{}, len(ServerErrorStatuses)+len(RetryAfterStatuses)+len(additionalStatus))
	for _, group := range [][]int{ServerErrorStatuses, RetryAfterStatuses, additionalStatus} {
		for _, code := range group {
			statuses[code] = struct{}{}
		}
	}

	methods := make(map[string]struct{}, len(IdempotentMethods)+len(additionalMethods))
	for _, m := range IdempotentMethods {
		methods[m] = struct{}{}
	}
	for _, m := range additionalMethods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			methods[m] = struct{}{}
		}
	}

	return Policy{
		Total:             retries,
		Connect:           retries,
		Read:              retries,
		BackoffFactor:     backoffFactor,
		BackoffMax:        DefaultBackoffMax,
		RespectRetryAfter: true,
		statuses:          statuses,
		methods:           methods,
	}
}

// Default returns the policy used when nothing is configured.
func Default() Policy {
	return New(DefaultRetries, DefaultBackoffFactor, nil, nil)
}

// WithBackoffMax returns a copy of p with a different wait ceiling.
// A non-positive value disables the ceiling.
func (p Policy) WithBackoffMax(d time.Duration) Policy {
	p.BackoffMax = d
	return p
}

// Backoff returns the wait before the k-th retry, counting from zero.
func (p Policy) Backoff(k int) time.Duration {
	if k < 0 || p.BackoffFactor == 0 {
		return 0
	}
	secs := p.BackoffFactor * math.Pow(2, float64(k))
	if p.BackoffMax > 0 && secs >= p.BackoffMax.Seconds() {
		return p.BackoffMax
	}
	return time.Duration(secs * float64(time.Second))
}

// IsRetryableStatus reports whether a response with this status is retried.
func (p Policy) IsRetryableStatus(code int) bool {
	_, ok := p.statuses[code]
	return ok
}

// IsRetryableMethod reports whether read failures and retryable statuses
// are retried for this method. Connection failures are retried for any method.
func (p Policy) IsRetryableMethod(method string) bool {
	_, ok := p.methods[strings.ToUpper(method)]
	return ok
}

// StatusCodes returns the retryable statuses in ascending order.
func (p Policy) StatusCodes() []int {
	out := make([]int, 0, len(p.statuses))
	for code := range p.statuses {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

// Methods returns the retryable methods in lexical order.
func (p Policy) Methods() []string {
	out := make([]string, 0, len(p.methods))
	for m := range p.methods {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// RetryAfter returns the server-requested wait for a response, if the policy
// honours it and the header is usable. The wait is capped at BackoffMax.
func (p Policy) RetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if !p.RespectRetryAfter || resp == nil || !slices.Contains(RetryAfterStatuses, resp.StatusCode) {
		return 0, false
	}
	d, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	if !ok {
		return 0, false
	}
	if p.BackoffMax > 0 && d > p.BackoffMax {
		d = p.BackoffMax
	}
	return d, true
}

// ParseRetryAfter parses a Retry-After value given either as delta-seconds
// or as an HTTP date. Dates in the past yield a zero wait.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	return max(at.Sub(now), 0), true
}

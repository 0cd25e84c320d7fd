package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted matches a FetchError whose retry budget ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrStatus is the cause of a FetchError for a non-2xx response.
	ErrStatus = errors.New("unsuccessful status code")

	// ErrBodyTooLarge is the cause of a FetchError for a body over the size cap.
	ErrBodyTooLarge = errors.New("response body too large")
)

// FetchError is the single failure returned once a request is given up on.
type FetchError struct {
	Method     string
	URL        string
	StatusCode int // last status received, 0 if none
	Attempts   int
	Exhausted  bool
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch %s %s after %d attempt(s)", e.Method, e.URL, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status code: %d", e.StatusCode)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrStatus) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRetriesExhausted) match exhausted failures.
func (e *FetchError) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Exhausted
}

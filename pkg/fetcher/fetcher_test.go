package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/abstract-enricher/pkg/retry"
)

// recordSleep returns a sleep func that records waits instead of sleeping.
func recordSleep(waits *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

// statusSequence serves the given statuses in order, repeating the last one.
func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		status := statuses[min(n, len(statuses))-1]
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGet_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(retry.Default(), nil, WithUserAgent("enricher-test"))
	resp, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != "<html>hello</html>" {
		t.Errorf("Get() body = %q, want %q", resp.Body, "<html>hello</html>")
	}
	if resp.Attempts != 1 {
		t.Errorf("Get() attempts = %d, want 1", resp.Attempts)
	}
	if gotUA != "enricher-test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "enricher-test")
	}
}

func TestGet_ServerErrorExhaustsRetries(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusServiceUnavailable)

	var waits []time.Duration
	f := NewFetcher(retry.New(2, 0.1, nil, nil), nil, recordSleep(&waits))
	_, err := f.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Get() error = nil, want failure")
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("errors.Is(err, ErrRetriesExhausted) = false for %v", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", fetchErr.StatusCode)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", fetchErr.Attempts)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want retries+1 = 3", got)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("waits[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestGet_ZeroRetries(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusInternalServerError)

	f := NewFetcher(retry.New(0, 0.1, nil, nil), nil)
	if _, err := f.Get(context.Background(), srv.URL); !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("Get() error = %v, want ErrRetriesExhausted", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestGet_NonRetryableStatus(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusNotFound)

	var waits []time.Duration
	f := NewFetcher(retry.Default(), nil, recordSleep(&waits))
	_, err := f.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("Get() error = %v, want ErrStatus", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("404 reported as retries exhausted")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
	if len(waits) != 0 {
		t.Errorf("waits = %v, want none", waits)
	}
}

func TestGet_RecoversAfterTransientFailure(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusBadGateway, http.StatusOK)

	var waits []time.Duration
	f := NewFetcher(retry.Default(), nil, recordSleep(&waits))
	resp, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Attempts != 2 || hits.Load() != 2 {
		t.Errorf("attempts = %d, hits = %d, want 2 and 2", resp.Attempts, hits.Load())
	}
	if len(waits) != 1 {
		t.Errorf("waits = %v, want exactly one", waits)
	}
}

func TestGet_HonoursRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	var waits []time.Duration
	f := NewFetcher(retry.Default(), nil, recordSleep(&waits))
	if _, err := f.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(waits) != 1 || waits[0] != 3*time.Second {
		t.Errorf("waits = %v, want [3s]", waits)
	}
}

func TestGet_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var waits []time.Duration
	f := NewFetcher(retry.New(2, 0.1, nil, nil), nil, recordSleep(&waits))
	_, err := f.Get(context.Background(), url)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Get() error = %v, want *FetchError", err)
	}
	if !fetchErr.Exhausted {
		t.Error("Exhausted = false, want true")
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", fetchErr.StatusCode)
	}
	if fetchErr.Attempts != 3 || len(waits) != 2 {
		t.Errorf("attempts = %d, waits = %d, want 3 and 2", fetchErr.Attempts, len(waits))
	}
}

func TestDo_MethodNotRetryable(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusServiceUnavailable)

	f := NewFetcher(retry.New(2, 0, nil, nil), nil)
	if _, err := f.Do(context.Background(), http.MethodPost, srv.URL); err == nil {
		t.Fatal("Do(POST) error = nil, want failure")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("POST hits = %d, want 1", got)
	}

	hits.Store(0)
	f = NewFetcher(retry.New(2, 0, nil, []string{"POST"}), nil)
	if _, err := f.Do(context.Background(), http.MethodPost, srv.URL); !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Do(POST) error = %v, want ErrRetriesExhausted", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("POST hits with POST allowed = %d, want 3", got)
	}
}

func TestGet_SleepCancelled(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusServiceUnavailable)

	f := NewFetcher(retry.Default(), nil, WithSleep(func(context.Context, time.Duration) error {
		return context.Canceled
	}))
	_, err := f.Get(context.Background(), srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestGetHtmlBytes(t *testing.T) {
	srv, _ := statusSequence(t, http.StatusOK)

	f := NewFetcher(retry.Default(), nil)
	body, err := f.GetHtmlBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetHtmlBytes() error = %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("GetHtmlBytes() = %q", body)
	}
}

func TestGet_BodyOverLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html>0123456789</html>"))
	}))
	defer srv.Close()

	var waits []time.Duration
	f := NewFetcher(retry.New(3, 0.1, nil, nil), nil, WithMaxBodyBytes(10), recordSleep(&waits))
	_, err := f.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Get() error = %v, want ErrBodyTooLarge", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1 (no retries)", got)
	}
	if len(waits) != 0 {
		t.Errorf("waits = %v, want none", waits)
	}
}

func TestGet_BodyAtLimit(t *testing.T) {
	body := "<html>ok</html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(retry.Default(), nil, WithMaxBodyBytes(int64(len(body))))
	resp, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != body {
		t.Errorf("Get() body = %q, want %q", resp.Body, body)
	}
}

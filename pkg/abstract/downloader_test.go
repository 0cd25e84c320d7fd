package abstract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dtnitsch/abstract-enricher/models"
	"github.com/dtnitsch/abstract-enricher/pkg/extractor"
	"github.com/dtnitsch/abstract-enricher/pkg/fetcher"
	"github.com/dtnitsch/abstract-enricher/pkg/retry"
)

type stubGetter struct {
	resp *fetcher.Response
	err  error
	urls []string
}

func (g *stubGetter) Get(_ context.Context, url string) (*fetcher.Response, error) {
	g.urls = append(g.urls, url)
	return g.resp, g.err
}

type stubExtractor struct {
	text string
	ok   bool
}

func (e stubExtractor) Extract([]byte) (string, bool) { return e.text, e.ok }

type memoryRecorder struct {
	accesses []models.Access
	err      error
}

func (r *memoryRecorder) RecordAccess(a models.Access) error {
	r.accesses = append(r.accesses, a)
	return r.err
}

func TestFetch(t *testing.T) {
	okResp := &fetcher.Response{StatusCode: 200, Body: []byte("<html/>"), Attempts: 1}

	tests := []struct {
		name        string
		getter      *stubGetter
		extractor   stubExtractor
		want        string
		wantOutcome models.Outcome
	}{
		{
			name:        "abstract found",
			getter:      &stubGetter{resp: okResp},
			extractor:   stubExtractor{text: "\n  The abstract.\n", ok: true},
			want:        "\n  The abstract.\n",
			wantOutcome: models.OutcomeOK,
		},
		{
			name:        "download failed",
			getter:      &stubGetter{err: &fetcher.FetchError{StatusCode: 503, Attempts: 5, Exhausted: true}},
			extractor:   stubExtractor{text: "unused", ok: true},
			want:        DownloadFailed,
			wantOutcome: models.OutcomeDownloadFailed,
		},
		{
			name:        "nil response without error",
			getter:      &stubGetter{},
			extractor:   stubExtractor{text: "unused", ok: true},
			want:        DownloadFailed,
			wantOutcome: models.OutcomeDownloadFailed,
		},
		{
			name:        "section missing",
			getter:      &stubGetter{resp: okResp},
			extractor:   stubExtractor{ok: false},
			want:        NotFound,
			wantOutcome: models.OutcomeNotFound,
		},
		{
			name:        "section blank",
			getter:      &stubGetter{resp: okResp},
			extractor:   stubExtractor{text: " \n\t", ok: true},
			want:        NotFound,
			wantOutcome: models.OutcomeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			d := NewDownloader(tt.getter, tt.extractor, "https://pubmed.example/{id}/", nil, WithRecorder(rec))

			got := d.Fetch(context.Background(), "12345")
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
			if len(tt.getter.urls) != 1 || tt.getter.urls[0] != "https://pubmed.example/12345/" {
				t.Errorf("requested URLs = %v, want [https://pubmed.example/12345/]", tt.getter.urls)
			}
			if len(rec.accesses) != 1 {
				t.Fatalf("recorded %d accesses, want 1", len(rec.accesses))
			}
			if rec.accesses[0].Outcome != tt.wantOutcome {
				t.Errorf("recorded outcome = %q, want %q", rec.accesses[0].Outcome, tt.wantOutcome)
			}
			if rec.accesses[0].Identifier != "12345" {
				t.Errorf("recorded identifier = %q, want 12345", rec.accesses[0].Identifier)
			}
		})
	}
}

func TestFetch_LogsWarningWithIdentifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := NewDownloader(&stubGetter{err: errors.New("boom")}, stubExtractor{}, "https://x.example/{id}", logger)
	d.Fetch(context.Background(), "777")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "identifier=777") {
		t.Errorf("log output = %q, want a WARN line naming identifier 777", out)
	}
}

func TestFetch_RecorderErrorDoesNotChangeResult(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("disk full")}
	resp := &fetcher.Response{StatusCode: 200, Body: []byte("x"), Attempts: 2}
	d := NewDownloader(&stubGetter{resp: resp}, stubExtractor{text: "text", ok: true}, "https://x.example/{id}", nil, WithRecorder(rec))

	if got := d.Fetch(context.Background(), "1"); got != "text" {
		t.Errorf("Fetch() = %q, want %q", got, "text")
	}
	if rec.accesses[0].Attempts != 2 || rec.accesses[0].Text != "text" {
		t.Errorf("recorded access = %+v", rec.accesses[0])
	}
}

func TestURL_EscapesIdentifier(t *testing.T) {
	d := NewDownloader(&stubGetter{}, stubExtractor{}, "https://x.example/{id}/", nil)
	if got := d.URL("a b/c"); got != "https://x.example/a%20b%2Fc/" {
		t.Errorf("URL() = %q", got)
	}
}

func TestFetch_AgainstServer(t *testing.T) {
	var hits222 atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/111/":
			_, _ = w.Write([]byte(`<html><body><div id="abstract">Found it.</div></body></html>`))
		case "/333/":
			_, _ = w.Write([]byte(`<html><body><p>No abstract here.</p></body></html>`))
		default:
			hits222.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := fetcher.NewFetcher(retry.New(1, 0, nil, nil), nil)
	ext, err := extractor.NewSectionExtractor(extractor.DefaultSelector)
	if err != nil {
		t.Fatalf("NewSectionExtractor() error = %v", err)
	}
	d := NewDownloader(f, ext, srv.URL+"/{id}/", nil)

	if got := d.Fetch(context.Background(), "111"); got != "Found it." {
		t.Errorf("Fetch(111) = %q, want %q", got, "Found it.")
	}
	if got := d.Fetch(context.Background(), "222"); got != DownloadFailed {
		t.Errorf("Fetch(222) = %q, want %q", got, DownloadFailed)
	}
	if got := hits222.Load(); got != 2 {
		t.Errorf("attempts for 222 = %d, want 2", got)
	}
	if got := d.Fetch(context.Background(), "333"); got != NotFound {
		t.Errorf("Fetch(333) = %q, want %q", got, NotFound)
	}
}

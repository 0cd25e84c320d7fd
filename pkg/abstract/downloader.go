// Package abstract turns a record identifier into the abstract text of its
// document page. Fetch never fails: network and extraction problems are
// reported as fixed placeholder strings so one bad identifier cannot stop a batch.
package abstract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dtnitsch/abstract-enricher/models"
	"github.com/dtnitsch/abstract-enricher/pkg/extractor"
	"github.com/dtnitsch/abstract-enricher/pkg/fetcher"
)

const (
	// DownloadFailed is returned when the page could not be retrieved.
	DownloadFailed = "Abstract download failed: could not download page"
	// NotFound is returned when the page was retrieved but had no abstract.
	NotFound = "Abstract download failed: abstract not found on page"
)

// Getter retrieves a document. *fetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

// Recorder receives one Access per Fetch call.
type Recorder interface {
	RecordAccess(access models.Access) error
}

// Downloader turns an identifier into the abstract text of its page.
type Downloader struct {
	getter      Getter
	extractor   extractor.Extractor
	urlTemplate string
	logger      *slog.Logger
	recorder    Recorder
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRecorder attaches a recorder that is told about every fetch.
func WithRecorder(r Recorder) Option {
	return func(d *Downloader) { d.recorder = r }
}

// NewDownloader builds a Downloader. urlTemplate must contain models.IDPlaceholder.
func NewDownloader(getter Getter, ext extractor.Extractor, urlTemplate string, logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Downloader{
		getter:      getter,
		extractor:   ext,
		urlTemplate: urlTemplate,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URL returns the document URL for identifier.
func (d *Downloader) URL(identifier string) string {
	return models.RenderURL(d.urlTemplate, identifier)
}

// Fetch returns the abstract for identifier, or DownloadFailed / NotFound.
func (d *Downloader) Fetch(ctx context.Context, identifier string) string {
	access := models.Access{Identifier: identifier, URL: d.URL(identifier)}
	defer func() { d.record(access) }()

	resp, err := d.getter.Get(ctx, access.URL)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			access.StatusCode = fetchErr.StatusCode
			access.Attempts = fetchErr.Attempts
		}
		access.Outcome = models.OutcomeDownloadFailed
		d.logger.Warn("Failed to download page", "identifier", identifier, "url", access.URL, "error", err)
		return DownloadFailed
	}
	access.StatusCode = resp.StatusCode
	access.Attempts = resp.Attempts

	text, ok := d.extractor.Extract(resp.Body)
	if !ok || strings.TrimSpace(text) == "" {
		access.Outcome = models.OutcomeNotFound
		d.logger.Warn("No abstract found", "identifier", identifier, "url", access.URL)
		return NotFound
	}

	access.Outcome = models.OutcomeOK
	access.Text = text
	return text
}

func (d *Downloader) record(access models.Access) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordAccess(access); err != nil {
		d.logger.Warn("Failed to record access", "identifier", access.Identifier, "error", err)
	}
}

// Package pipeline appends a fetched field to each row of a lazy row sequence,
// one row at a time and in input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/dtnitsch/abstract-enricher/models"
)

// ErrMissingIdentifier means the identifier field is absent from the input.
// It is a structural error and ends the run.
var ErrMissingIdentifier = errors.New("identifier field missing")

// ErrInterrupted wraps the context error when a run is cancelled. The row
// being fetched at that moment is not yielded.
var ErrInterrupted = errors.New("run interrupted")

// Fetcher computes the appended value for one identifier. It must not fail;
// problems are expressed in the returned value.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) string
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, identifier string) string

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, identifier string) string {
	return f(ctx, identifier)
}

// Pipeline enriches rows one at a time with the value fetched for their identifier.
type Pipeline struct {
	fetcher         Fetcher
	identifierField string
	resultField     string
	logger          *slog.Logger
	progress        func(rowNumber int)
	count           int
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithProgress replaces the default progress log line.
func WithProgress(fn func(rowNumber int)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.progress = fn
		}
	}
}

// New returns a pipeline that appends resultField, fetched by identifierField.
func New(fetcher Fetcher, identifierField, resultField string, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		fetcher:         fetcher,
		identifierField: identifierField,
		resultField:     resultField,
		logger:          logger,
	}
	p.progress = func(n int) { p.logger.Info("Processed row", "row", n) }
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Header returns the output header for an input header: the input fields in
// order with the result field last.
func (p *Pipeline) Header(input []string) ([]string, error) {
	if len(input) == 0 {
		return nil, errors.New("input has no field names")
	}
	if !slices.Contains(input, p.identifierField) {
		return nil, fmt.Errorf("%w: %q not in header %v", ErrMissingIdentifier, p.identifierField, input)
	}
	return models.AppendField(input, p.resultField), nil
}

// Enrich returns a sequence that, for each input row, fetches the value for
// the row's identifier and yields the row with the result field appended.
// A source error is passed through and ends the sequence. Cancelling ctx
// ends the sequence with ErrInterrupted instead of writing the current row.
func (p *Pipeline) Enrich(ctx context.Context, rows iter.Seq2[*models.Row, error]) iter.Seq2[*models.Row, error] {
	return func(yield func(*models.Row, error) bool) {
		for row, err := range rows {
			if cerr := ctx.Err(); cerr != nil {
				yield(nil, p.interrupted(cerr))
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			id, ok := row.Get(p.identifierField)
			if !ok {
				yield(nil, fmt.Errorf("%w: row %d has no %q field", ErrMissingIdentifier, p.count+1, p.identifierField))
				return
			}

			value := p.fetcher.Fetch(ctx, id)
			if cerr := ctx.Err(); cerr != nil {
				yield(nil, p.interrupted(cerr))
				return
			}
			row.Append(p.resultField, value)
			p.count++

			if !yield(row, nil) {
				return
			}
			if IsPowerOfTwo(p.count) {
				p.progress(p.count)
			}
		}
	}
}

func (p *Pipeline) interrupted(cause error) error {
	return fmt.Errorf("%w before row %d: %w", ErrInterrupted, p.count+1, cause)
}

// Count returns how many rows have been produced.
func (p *Pipeline) Count() int {
	return p.count
}

// IsPowerOfTwo reports whether n is 1, 2, 4, 8, ...
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

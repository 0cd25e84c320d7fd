// Package runner connects a row source, an enrichment pipeline and a row sink.
package runner

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/dtnitsch/abstract-enricher/models"
	"github.com/dtnitsch/abstract-enricher/pkg/pipeline"
)

// Source provides the input header and rows. *table.Reader satisfies it.
type Source interface {
	Header() []string
	Rows() iter.Seq2[*models.Row, error]
}

// Sink accepts the output header once and then rows. *table.Writer satisfies it.
type Sink interface {
	WriteHeader(fields []string) error
	Write(row *models.Row) error
	Flush() error
}

// Stats summarises a finished run.
type Stats struct {
	Rows     int
	Duration time.Duration
}

// SecondsPerRow is the average processing time per row, or 0 with no rows.
func (s Stats) SecondsPerRow() float64 {
	if s.Rows == 0 {
		return 0
	}
	return s.Duration.Seconds() / float64(s.Rows)
}

// Run streams every row from src through p into sink. Rows already written
// stay written if a structural error stops the run part way.
func Run(ctx context.Context, src Source, p *pipeline.Pipeline, sink Sink) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	header, err := p.Header(src.Header())
	if err != nil {
		return stats, err
	}
	if err := sink.WriteHeader(header); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	for row, err := range p.Enrich(ctx, src.Rows()) {
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		if err := sink.Write(row); err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to write row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++
	}

	if err := sink.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// LogSummary reports the row count and, when rows were processed, the rate.
func LogSummary(logger *slog.Logger, stats Stats) {
	logger.Info(fmt.Sprintf("Download complete, processed %d rows", stats.Rows),
		"rows", stats.Rows,
		"duration", stats.Duration,
	)
	if stats.Rows > 0 {
		rate := stats.SecondsPerRow()
		logger.Info(fmt.Sprintf("Process rate: %.3f s/row", rate), "seconds_per_row", rate)
	}
}

package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/abstract-enricher/internal/common"
	"github.com/dtnitsch/abstract-enricher/models"
	"github.com/dtnitsch/abstract-enricher/pkg/abstract"
	"github.com/dtnitsch/abstract-enricher/pkg/db"
	"github.com/dtnitsch/abstract-enricher/pkg/detector"
	"github.com/dtnitsch/abstract-enricher/pkg/extractor"
	"github.com/dtnitsch/abstract-enricher/pkg/fetcher"
	"github.com/dtnitsch/abstract-enricher/pkg/pipeline"
	"github.com/dtnitsch/abstract-enricher/pkg/retry"
	"github.com/dtnitsch/abstract-enricher/pkg/runner"
	"github.com/dtnitsch/abstract-enricher/pkg/table"
	"github.com/urfave/cli/v2"
)

func EnrichAction(c *cli.Context) error {
	logger, err := common.NewLogger(os.Stderr, c.String("log-format"),
		common.LogLevel(c.Bool("quiet"), c.Bool("verbose")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if c.NArg() != 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := ConfigFromContext(c)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	stats, err := Run(ctx, cfg, c.Args().Get(0), c.Args().Get(1), logger)
	stop()
	if err != nil {
		logger.Error("enrichment failed", "error", err, "rows_written", stats.Rows)
		os.Exit(2)
	}

	runner.LogSummary(logger, stats)
	return nil
}

// Run enriches inputPath into outputPath. Row-level fetch failures become
// sentinel values; any returned error is structural and ends the run.
func Run(ctx context.Context, cfg *models.EnrichConfig, inputPath, outputPath string, logger *slog.Logger) (runner.Stats, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return runner.Stats{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	reader, err := table.NewReader(in)
	if err != nil {
		return runner.Stats{}, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	ext, err := extractor.New(cfg.Extractor, cfg.Selector, cfg.RenderURL(""))
	if err != nil {
		return runner.Stats{}, err
	}

	policy := retry.New(cfg.Retries, cfg.BackoffFactor, cfg.AdditionalStatusCodes, cfg.AdditionalMethods).
		WithBackoffMax(cfg.BackoffMax)
	client := fetcher.NewFetcher(policy, logger,
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
	)

	var opts []abstract.Option
	var ledger *db.DB
	var runID int64
	if cfg.LedgerPath != "" {
		ledger, err = db.Open(cfg.LedgerPath)
		if err != nil {
			return runner.Stats{}, err
		}
		defer ledger.Close()

		runID, err = ledger.StartRun(db.RunInfo{
			InputPath:       inputPath,
			OutputPath:      outputPath,
			IdentifierField: cfg.IdentifierField,
			URLTemplate:     cfg.URLTemplate,
		})
		if err != nil {
			return runner.Stats{}, err
		}

		var language func(string) string
		if cfg.DetectLanguage {
			language = detector.NewLanguageDetector().Code
		}
		opts = append(opts, abstract.WithRecorder(ledger.Recorder(runID, language)))
		logger.Debug("Recording run in ledger", "path", ledger.Path(), "run_id", runID)
	}

	downloader := abstract.NewDownloader(client, ext, cfg.URLTemplate, logger, opts...)
	p := pipeline.New(downloader, cfg.IdentifierField, cfg.ResultField, logger)

	stats, err := enrichFile(ctx, reader, p, outputPath)

	if ledger != nil {
		if ferr := ledger.FinishRun(runID, stats.Rows, stats.Duration, err); ferr != nil {
			logger.Warn("failed to finish run in ledger", "run_id", runID, "error", ferr)
		}
	}
	return stats, err
}

// enrichFile checks the header before creating the output so that a missing
// identifier column leaves no output file behind.
func enrichFile(ctx context.Context, reader *table.Reader, p *pipeline.Pipeline, outputPath string) (runner.Stats, error) {
	if _, err := p.Header(reader.Header()); err != nil {
		return runner.Stats{}, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return runner.Stats{}, fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	stats, err := runner.Run(ctx, reader, p, table.NewWriter(out))
	if err != nil {
		return stats, err
	}
	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("failed to close output: %w", err)
	}
	return stats, nil
}

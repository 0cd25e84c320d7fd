package enrich

import (
	"fmt"
	"os"

	"github.com/dtnitsch/abstract-enricher/internal/common"
	"github.com/dtnitsch/abstract-enricher/models"
	"github.com/urfave/cli/v2"
)

// Flags are shared by the enrich command and the app's default action.
var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "YAML config file; explicitly set flags override its values",
		EnvVars: []string{"ENRICH_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "identifier-field",
		Aliases: []string{"id-field"},
		Usage:   "input column holding the identifier (default: PMID)",
		EnvVars: []string{"ENRICH_IDENTIFIER_FIELD"},
	},
	&cli.StringFlag{
		Name:    "result-field",
		Usage:   "output column receiving the fetched text (default: abstract)",
		EnvVars: []string{"ENRICH_RESULT_FIELD"},
	},
	&cli.StringFlag{
		Name:    "url-template",
		Usage:   "page URL with {id} in place of the identifier",
		EnvVars: []string{"ENRICH_URL_TEMPLATE"},
	},
	&cli.IntFlag{
		Name:    "retries",
		Usage:   "retries per request after the first attempt (default: 4)",
		EnvVars: []string{"ENRICH_RETRIES"},
	},
	&cli.Float64Flag{
		Name:    "backoff-factor",
		Usage:   "seconds; the k-th retry waits factor * 2^k (default: 0.1)",
		EnvVars: []string{"ENRICH_BACKOFF_FACTOR"},
	},
	&cli.DurationFlag{
		Name:    "backoff-max",
		Usage:   "upper bound on any single backoff wait (default: 2m0s)",
		EnvVars: []string{"ENRICH_BACKOFF_MAX"},
	},
	&cli.DurationFlag{
		Name:    "timeout",
		Usage:   "per-attempt HTTP timeout (default: 30s)",
		EnvVars: []string{"ENRICH_TIMEOUT"},
	},
	&cli.IntSliceFlag{
		Name:    "retry-status",
		Usage:   "extra HTTP status code to retry (repeatable)",
		EnvVars: []string{"ENRICH_RETRY_STATUS"},
	},
	&cli.StringSliceFlag{
		Name:    "retry-method",
		Usage:   "extra HTTP method to retry (repeatable)",
		EnvVars: []string{"ENRICH_RETRY_METHOD"},
	},
	&cli.StringFlag{
		Name:    "user-agent",
		Usage:   "User-Agent header sent with every request",
		EnvVars: []string{"ENRICH_USER_AGENT"},
	},
	&cli.StringFlag{
		Name:    "extractor",
		Usage:   "text extractor: section or readability (default: section)",
		EnvVars: []string{"ENRICH_EXTRACTOR"},
	},
	&cli.StringFlag{
		Name:    "selector",
		Usage:   "CSS selector of the section to extract (default: div#abstract)",
		EnvVars: []string{"ENRICH_SELECTOR"},
	},
	&cli.StringFlag{
		Name:    "ledger",
		Usage:   "SQLite file recording runs and fetch outcomes (disabled when empty)",
		EnvVars: []string{"ENRICH_LEDGER"},
	},
	&cli.BoolFlag{
		Name:    "detect-language",
		Usage:   "tag extracted text with its language in the ledger",
		EnvVars: []string{"ENRICH_DETECT_LANGUAGE"},
	},
	&cli.StringFlag{
		Name:    "log-format",
		Value:   common.LogFormatJSON,
		Usage:   "log output: json or text",
		EnvVars: []string{"ENRICH_LOG_FORMAT"},
	},
	&cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "only log errors",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "include debug logs",
	},
}

// ConfigFromContext builds the run configuration: defaults, then the
// --config file, then any flag or environment variable that was set.
func ConfigFromContext(c *cli.Context) (*models.EnrichConfig, error) {
	cfg := models.DefaultEnrichConfig()
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("identifier-field") {
		cfg.IdentifierField = c.String("identifier-field")
	}
	if c.IsSet("result-field") {
		cfg.ResultField = c.String("result-field")
	}
	if c.IsSet("url-template") {
		cfg.URLTemplate = c.String("url-template")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("backoff-factor") {
		cfg.BackoffFactor = c.Float64("backoff-factor")
	}
	if c.IsSet("backoff-max") {
		cfg.BackoffMax = c.Duration("backoff-max")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("retry-status") {
		cfg.AdditionalStatusCodes = c.IntSlice("retry-status")
	}
	if c.IsSet("retry-method") {
		cfg.AdditionalMethods = c.StringSlice("retry-method")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if c.IsSet("extractor") {
		cfg.Extractor = c.String("extractor")
	}
	if c.IsSet("selector") {
		cfg.Selector = c.String("selector")
	}
	if c.IsSet("ledger") {
		cfg.LedgerPath = c.String("ledger")
	}
	if c.IsSet("detect-language") {
		cfg.DetectLanguage = c.Bool("detect-language")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Error: expected an input and an output CSV path")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  abstract-enricher enrich input.csv output.csv")
	fmt.Fprintln(os.Stderr, "  abstract-enricher enrich --retries 2 --ledger runs.db input.csv output.csv")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Need help? Run: abstract-enricher enrich --help")
}

// Package models defines data structures for configuration and enrichment.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dtnitsch/abstract-enricher/internal/common"
	"gopkg.in/yaml.v3"
)

// IDPlaceholder is replaced by the row identifier when building a fetch URL.
const IDPlaceholder = "{id}"

// EnrichConfig holds runtime configuration for an enrichment run.
// Values come from defaults, an optional YAML file, and CLI flags, in that order.
type EnrichConfig struct {
	IdentifierField string `yaml:"identifier_field"`
	ResultField     string `yaml:"result_field"`
	URLTemplate     string `yaml:"url_template"`

	Retries               int           `yaml:"retries"`
	BackoffFactor         float64       `yaml:"backoff_factor"`
	BackoffMax            time.Duration `yaml:"backoff_max"`
	Timeout               time.Duration `yaml:"timeout"`
	AdditionalStatusCodes []int         `yaml:"additional_status_codes"`
	AdditionalMethods     []string      `yaml:"additional_methods"`
	UserAgent             string        `yaml:"user_agent"`

	Extractor string `yaml:"extractor"` // section | readability
	Selector  string `yaml:"selector"`

	LedgerPath     string `yaml:"ledger_path"` // empty disables the run ledger
	DetectLanguage bool   `yaml:"detect_language"`
}

// DefaultEnrichConfig returns the configuration for PubMed abstracts.
func DefaultEnrichConfig() *EnrichConfig {
	return &EnrichConfig{
		IdentifierField: "PMID",
		ResultField:     "abstract",
		URLTemplate:     "https://pubmed.ncbi.nlm.nih.gov/{id}/",
		Retries:         4,
		BackoffFactor:   0.1,
		BackoffMax:      120 * time.Second,
		Timeout:         30 * time.Second,
		UserAgent:       "abstract-enricher/1.0",
		Extractor:       "section",
		Selector:        "div#abstract",
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*EnrichConfig, error) {
	cfg := DefaultEnrichConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// RenderURL substitutes the identifier into the URL template.
func (c *EnrichConfig) RenderURL(identifier string) string {
	return RenderURL(c.URLTemplate, identifier)
}

// RenderURL substitutes a path-escaped identifier into template.
func RenderURL(template, identifier string) string {
	return strings.ReplaceAll(template, IDPlaceholder, url.PathEscape(identifier))
}

// Validate reports every problem with the configuration at once.
func (c *EnrichConfig) Validate() error {
	var errs []error
	if c.IdentifierField == "" {
		errs = append(errs, errors.New("identifier_field must not be empty"))
	}
	if c.ResultField == "" {
		errs = append(errs, errors.New("result_field must not be empty"))
	}
	if c.IdentifierField != "" && c.IdentifierField == c.ResultField {
		errs = append(errs, fmt.Errorf("identifier_field and result_field must differ (both %q)", c.ResultField))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must be >= 0, got %d", c.Retries))
	}
	if c.BackoffFactor < 0 {
		errs = append(errs, fmt.Errorf("backoff_factor must be >= 0, got %v", c.BackoffFactor))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %v", c.Timeout))
	}
	switch c.Extractor {
	case "section":
		if c.Selector == "" {
			errs = append(errs, errors.New("selector must not be empty for the section extractor"))
		}
	case "readability":
	default:
		errs = append(errs, fmt.Errorf("unknown extractor %q (want section or readability)", c.Extractor))
	}
	if !strings.Contains(c.URLTemplate, IDPlaceholder) {
		errs = append(errs, fmt.Errorf("url_template must contain %s", IDPlaceholder))
	} else if err := common.ValidateURL(c.RenderURL("0")); err != nil {
		errs = append(errs, fmt.Errorf("url_template does not render to a valid http(s) URL: %s: %w", c.URLTemplate, err))
	}
	return errors.Join(errs...)
}

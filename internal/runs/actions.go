package runs

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dtnitsch/abstract-enricher/models"
	dbpkg "github.com/dtnitsch/abstract-enricher/pkg/db"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// RunReport is the YAML shape of one ledger run.
type RunReport struct {
	RunID           int64          `yaml:"run_id"`
	Status          string         `yaml:"status"`
	Input           string         `yaml:"input"`
	Output          string         `yaml:"output"`
	IdentifierField string         `yaml:"identifier_field"`
	URLTemplate     string         `yaml:"url_template"`
	Rows            int            `yaml:"rows"`
	SecondsPerRow   float64        `yaml:"seconds_per_row,omitempty"`
	StartedAt       string         `yaml:"started_at"`
	FinishedAt      string         `yaml:"finished_at,omitempty"`
	Error           string         `yaml:"error,omitempty"`
	Outcomes        map[string]int `yaml:"outcomes,omitempty"`
	Languages       map[string]int `yaml:"languages,omitempty"`
}

func RunsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("ledger"))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer database.Close()

	reports, err := BuildReports(database, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		fmt.Println("No runs found")
		return nil
	}
	return WriteYAML(os.Stdout, reports)
}

// BuildReports loads the most recent runs with their outcome and language counts.
func BuildReports(database *dbpkg.DB, limit int) ([]RunReport, error) {
	runs, err := database.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	reports := make([]RunReport, 0, len(runs))
	for _, r := range runs {
		report := RunReport{
			RunID:           r.RunID,
			Status:          r.Status,
			Input:           r.InputPath,
			Output:          r.OutputPath,
			IdentifierField: r.IdentifierField,
			URLTemplate:     r.URLTemplate,
			Rows:            r.RowCount,
			StartedAt:       r.StartedAt.Format(time.DateTime),
			Error:           r.ErrorMessage,
		}
		if r.FinishedAt != nil {
			report.FinishedAt = r.FinishedAt.Format(time.DateTime)
		}
		if r.RowCount > 0 {
			report.SecondsPerRow = float64(int(r.DurationSeconds/float64(r.RowCount)*1000)) / 1000
		}

		outcomes, err := database.OutcomeCounts(r.RunID)
		if err != nil {
			return nil, err
		}
		if len(outcomes) > 0 {
			report.Outcomes = make(map[string]int, len(outcomes))
			for _, o := range []models.Outcome{models.OutcomeOK, models.OutcomeNotFound, models.OutcomeDownloadFailed} {
				if n, ok := outcomes[o]; ok {
					report.Outcomes[string(o)] = n
				}
			}
		}

		languages, err := database.LanguageCounts(r.RunID)
		if err != nil {
			return nil, err
		}
		if len(languages) > 0 {
			report.Languages = languages
		}

		reports = append(reports, report)
	}
	return reports, nil
}

// WriteYAML encodes reports as a YAML list.
func WriteYAML(w io.Writer, reports []RunReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode runs: %w", err)
	}
	return enc.Close()
}

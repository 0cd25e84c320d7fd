package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/abstract-enricher/internal/enrich"
	"github.com/dtnitsch/abstract-enricher/internal/runs"
	"github.com/dtnitsch/abstract-enricher/pkg/help"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:      "abstract-enricher",
		Usage:     "Add a fetched abstract column to every row of a CSV file",
		ArgsUsage: "INPUT OUTPUT",
		Flags:     enrich.Flags,
		Action: func(c *cli.Context) error {
			if c.NArg() == 2 {
				return enrich.EnrichAction(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "enrich",
				Usage:     "Fetch the abstract for each identifier in INPUT and write OUTPUT",
				ArgsUsage: "INPUT OUTPUT",
				Flags:     enrich.Flags,
				Action:    enrich.EnrichAction,
			},
			{
				Name:  "runs",
				Usage: "Show recent runs recorded in the ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "ledger",
						Usage:   "SQLite ledger file (default: next to the binary)",
						EnvVars: []string{"ENRICH_LEDGER"},
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 10,
						Usage: "maximum number of runs to show",
					},
				},
				Action: runs.RunsAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a YAML quick reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

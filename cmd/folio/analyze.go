package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/report"
)

type analyzeCmd struct {
	out io.Writer

	lotsFile   string
	quotesFile string
	twrFile    string
	rate       float64
	currency   string
	name       string
	asJSON     bool
	plain      bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "value lots and score portfolio health" }
func (*analyzeCmd) Usage() string {
	return `folio analyze -lots <file> [-quotes <file>] [-twr <file>] [-rate n] [-currency CODE] [-json]

  Runs the analytics engine over local JSON files and prints a health report.
  The lots file holds a JSON array of lots or an object with a "lots" array.
  The quotes file maps tickers to quotes. Nothing is fetched.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.lotsFile, "lots", "", "Path to the lots JSON file (required)")
	f.StringVar(&c.quotesFile, "quotes", "", "Path to a ticker -> quote JSON file")
	f.StringVar(&c.twrFile, "twr", "", "Path to a TWR dataset JSON file")
	f.Float64Var(&c.rate, "rate", 1, "Display currency units per 1 USD")
	f.StringVar(&c.currency, "currency", "USD", "Display currency code for formatting")
	f.StringVar(&c.name, "name", "Portfolio", "Portfolio name shown in the report")
	f.BoolVar(&c.asJSON, "json", false, "Print the snapshot as JSON")
	f.BoolVar(&c.plain, "plain", false, "Print raw markdown without terminal styling")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.lotsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -lots is required")
		return subcommands.ExitUsageError
	}

	if err := c.run(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *analyzeCmd) run(now time.Time) error {
	lots, err := readLots(c.lotsFile)
	if err != nil {
		return err
	}

	var quotes map[string]models.Quote
	if c.quotesFile != "" {
		if err := readJSON(c.quotesFile, &quotes); err != nil {
			return err
		}
	}

	var dataset *models.TWRDataset
	if c.twrFile != "" {
		dataset = &models.TWRDataset{}
		if err := readJSON(c.twrFile, dataset); err != nil {
			return err
		}
	}

	snap := analytics.Analyze(analytics.Input{
		Lots:   lots,
		Quotes: quotes,
		Rate:   c.rate,
		TWR:    dataset,
	})
	snap.Currency = strings.ToUpper(strings.TrimSpace(c.currency))
	snap.Rate = c.rate

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	md := report.FormatSnapshot(c.name, snap, now)
	if c.plain {
		_, err := io.WriteString(c.out, md)
		return err
	}
	return printMarkdown(c.out, md)
}

// readLots accepts either a bare array of lots or {"lots": [...]}.
func readLots(path string) ([]models.Lot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lots file %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var lots []models.Lot
		if err := json.Unmarshal(data, &lots); err != nil {
			return nil, fmt.Errorf("failed to parse lots file %s: %w", path, err)
		}
		return lots, nil
	}

	var wrapped struct {
		Lots []models.Lot `json:"lots"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse lots file %s: %w", path, err)
	}
	if wrapped.Lots == nil {
		return nil, errors.New("lots file has no \"lots\" array")
	}
	return wrapped.Lots, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text if styling fails.
func printMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, err = io.WriteString(w, md)
	return err
}

type versionCmd struct {
	out io.Writer
}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print version information" }
func (*versionCmd) Usage() string            { return "folio version\n" }
func (*versionCmd) SetFlags(_ *flag.FlagSet) {}

func (c *versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Fprintf(c.out, "folio %s\n", common.GetFullVersion())
	return subcommands.ExitSuccess
}

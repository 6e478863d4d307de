// Command report computes one dashboard state and writes it as JSON or CSV.
//
//	report -grade RBS -origins GH,CI -horizon 3 -format csv -out reports/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rcnpulse/internal/config"
	apierrors "rcnpulse/internal/errors"
	"rcnpulse/internal/exporter"
	"rcnpulse/internal/infrastructure"
	"rcnpulse/internal/services"
	"rcnpulse/internal/validation"
	"rcnpulse/pkg/contracts/domain"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	grade   string
	origins string
	horizon int
	format  string
	out     string
	ledger  string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.grade, "grade", "", "grade code (default RBS)")
	fs.StringVar(&opts.origins, "origins", "", "comma-separated origin ISO codes (default all)")
	fs.IntVar(&opts.horizon, "horizon", 0, "forecast horizon in months, 1-6 (default 3)")
	fs.StringVar(&opts.format, "format", "json", "output format: json or csv")
	fs.StringVar(&opts.out, "out", "", "output directory; stdout when empty")
	fs.StringVar(&opts.ledger, "ledger", "", "ledger file, overrides RCN_LEDGER_FILE")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch opts.format {
	case "json", "csv":
	default:
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func (o options) filters() domain.Filters {
	f := domain.Filters{Grade: strings.ToUpper(o.grade), Horizon: o.horizon}
	if o.origins != "" {
		f.Origins = []string{}
		for _, iso := range strings.Split(o.origins, ",") {
			if iso = strings.ToUpper(strings.TrimSpace(iso)); iso != "" {
				f.Origins = append(f.Origins, iso)
			}
		}
	}
	return f
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "configuration:", err)
		return exitError
	}
	if opts.ledger != "" {
		cfg.Ledger.Path = opts.ledger
	}
	logger := infrastructure.NewLogger(stderr, cfg.Logging.Level)

	pipeline, err := services.NewPipelineContext(ctx, cfg, services.PipelineDeps{Logger: logger})
	if err != nil {
		logger.Error("pipeline unavailable", slog.String("error", err.Error()),
			slog.Bool("fatal", apierrors.IsFatal(err)))
		return exitError
	}

	state, err := pipeline.ComputeDashboardState(ctx, opts.filters())
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			if details, ok := apiErr.Details.([]apierrors.ValidationError); ok {
				for _, d := range details {
					fmt.Fprintf(stderr, "%s: %s\n", d.Field, d.Message)
				}
				return exitUsage
			}
		}
		logger.Error("dashboard failed", slog.String("error", err.Error()))
		return exitError
	}

	if err := write(state, opts, stdout, logger); err != nil {
		logger.Error("write failed", slog.String("error", err.Error()))
		return exitError
	}
	return exitOK
}

// sections are the CSV tables in output order
func sections(state *domain.DashboardState) []struct {
	name  string
	table exporter.Table
} {
	prices := exporter.ForecastTable(state.Forecast)
	if !state.ForecastAvailable {
		prices = exporter.SeriesTable(state.PriceSeries)
		if state.FallbackSeries != nil {
			prices = exporter.SeriesTable(*state.FallbackSeries)
		}
	}

	return []struct {
		name  string
		table exporter.Table
	}{
		{"kpis", exporter.KPITable(state.KPIs)},
		{"prices", prices},
		{"buy", exporter.BuyTable(state.BuyOptions)},
		{"sell", exporter.SellTable(state.SellOptions)},
		{"vessels", exporter.VesselTable(state.Vessels)},
		{"volume", exporter.VolumeTable(state.MonthlyVolume)},
		{"top_origins", exporter.OriginTable(state.TopOrigins)},
	}
}

func write(state *domain.DashboardState, opts options, stdout io.Writer, logger *slog.Logger) error {
	if opts.out != "" {
		if err := validation.NewFileValidator(logger).ValidateOutputDirectory(opts.out); err != nil {
			return err
		}
	}

	if opts.format == "json" {
		out := stdout
		if opts.out != "" {
			f, err := os.Create(filepath.Join(opts.out, "dashboard.json"))
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	writer := exporter.NewCSVWriter().WithLogger(logger)
	for i, s := range sections(state) {
		if opts.out != "" {
			if err := writer.WriteFile(filepath.Join(opts.out, s.name+".csv"), s.table); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "# %s\n", s.name)
		if err := writer.WriteCSV(stdout, s.table, exporter.WriteOptions{}); err != nil {
			return err
		}
	}
	return nil
}

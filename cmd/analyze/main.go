// analyze runs the registration pipeline from the command line: load an
// export file, apply a filter selection and print the dashboard snapshot as
// JSON, or write the filtered rows back out as CSV.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"regpulse/internal/config"
	apperrors "regpulse/internal/errors"
	"regpulse/internal/infrastructure"
	"regpulse/internal/services"
	"regpulse/pkg/contracts/domain"
)

func main() {
	input := flag.String("in", "", "path to the registrations CSV or XLSX export (required)")
	colleges := flag.String("colleges", "", "comma-separated college filter")
	years := flag.String("years", "", "comma-separated year-of-study filter")
	from := flag.String("from", "", "inclusive start date (YYYY-MM-DD)")
	to := flag.String("to", "", "inclusive end date (YYYY-MM-DD)")
	event := flag.String("event", "", "show the drilldown for one event instead of the full dashboard")
	export := flag.String("export", "", "write the filtered rows as CSV to this path instead of printing aggregations")
	logLevel := flag.String("log-level", "warn", "log level: debug | info | warn | error")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -in registrations.csv [-colleges ...] [-years ...] [-from ...] [-to ...] [-event ...] [-export out.csv]")
		os.Exit(2)
	}

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level:  *logLevel,
		Format: "json",
		Output: "console",
	})
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	content, err := os.ReadFile(*input)
	if err != nil {
		logger.Error("failed to read input file", slog.String("path", *input), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	svc := services.NewDashboardService(services.DashboardServiceConfig{Logger: logger})

	summary, err := svc.Load(ctx, filepath.Base(*input), content)
	if err != nil {
		fail(err)
	}

	sel := domain.FilterSelection{
		Colleges: splitList(*colleges),
		Years:    splitList(*years),
		From:     *from,
		To:       *to,
	}

	switch {
	case *export != "":
		data, _, err := svc.Export(ctx, summary.ID, sel)
		if err != nil {
			fail(err)
		}
		if err := os.WriteFile(*export, data, 0644); err != nil {
			logger.Error("failed to write export", slog.String("path", *export), slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(data), *export)

	case *event != "":
		dd, err := svc.Drilldown(ctx, summary.ID, *event, sel)
		if err != nil {
			fail(err)
		}
		printJSON(dd)

	default:
		snap, err := svc.Snapshot(ctx, summary.ID, sel)
		if err != nil {
			fail(err)
		}
		printJSON(struct {
			Summary   *domain.DatasetSummary    `json:"summary"`
			Dashboard *domain.DashboardSnapshot `json:"dashboard"`
		}{summary, snap})
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode output", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// fail prints a friendly message for expected pipeline failures and a raw
// one otherwise.
func fail(err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "error (%s): %s\n", appErr.Type, appErr.Message)
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

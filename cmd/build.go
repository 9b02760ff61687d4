package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cervejazero/internal/bundle"
	"github.com/sells-group/cervejazero/internal/export"
	"github.com/sells-group/cervejazero/internal/model"
)

var (
	buildMinYear int
	buildMaxYear int
	buildTimeout time.Duration
	buildOffline bool
	buildFormat  string
	buildOutput  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the fact bundle once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("build"); err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := buildFlagOptions(cmd)
		b, err := env.Assembler.Build(cmd.Context(), opts)
		if err != nil {
			return err
		}

		return withOutput(buildOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return writeBuild(w, buildFormat, b)
		})
	},
}

// buildFlagOptions applies command flags over the configured options.
func buildFlagOptions(cmd *cobra.Command) bundle.Options {
	opts := buildOptions(cfg, buildOffline)
	if cmd.Flags().Changed("min-year") {
		opts.MinYear = buildMinYear
	}
	if cmd.Flags().Changed("max-year") {
		opts.MaxYear = buildMaxYear
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = buildTimeout
	}
	return opts
}

// withOutput runs fn against path, or against def when path is empty.
func withOutput(path string, def io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(def)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func writeBuild(w io.Writer, format string, b *model.Bundle) error {
	switch format {
	case "", "table":
		return writeSummary(w, b)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(b), "encode bundle")
	case "csv":
		return export.WriteCSV(w, b.Facts)
	default:
		return eris.Errorf("unsupported format %q (table, json, csv)", format)
	}
}

func writeSummary(out io.Writer, b *model.Bundle) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", b.Meta.Status)
	_, _ = fmt.Fprintf(w, "Refreshed:\t%s\n", b.Meta.LastRefreshUTC)
	_, _ = fmt.Fprintf(w, "Sources:\t%d\n", b.Meta.SourceCount)
	_, _ = fmt.Fprintf(w, "Notes:\t%s\n", b.Meta.Notes)
	_, _ = fmt.Fprintf(w, "Facts:\t%d\n", len(b.Facts))
	_, _ = fmt.Fprintln(w)

	type counts struct{ official, estimated, missing int }
	byMetric := map[model.Metric]*counts{}
	for _, r := range b.Facts {
		c, ok := byMetric[r.Metric]
		if !ok {
			c = &counts{}
			byMetric[r.Metric] = c
		}
		switch {
		case !r.Finite():
			c.missing++
		case r.Status == model.StatusEstimated:
			c.estimated++
		default:
			c.official++
		}
	}
	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, string(m))
	}
	sort.Strings(metrics)

	_, _ = fmt.Fprintln(w, "METRIC\tOFFICIAL\tESTIMATED\tMISSING")
	_, _ = fmt.Fprintln(w, "------\t--------\t---------\t-------")
	for _, m := range metrics {
		c := byMetric[model.Metric(m)]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", m, c.official, c.estimated, c.missing)
	}
	return w.Flush()
}

func init() {
	buildCmd.Flags().IntVar(&buildMinYear, "min-year", 0, "first projected year (default from config)")
	buildCmd.Flags().IntVar(&buildMaxYear, "max-year", 0, "last projected year (default from config)")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "per-source fetch timeout (default from config)")
	buildCmd.Flags().BoolVar(&buildOffline, "offline", false, "skip runtime refresh")
	buildCmd.Flags().StringVar(&buildFormat, "format", "table", "output format: table, json, csv")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(buildCmd)
}

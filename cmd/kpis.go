package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/cervejazero/internal/facts"
	"github.com/sells-group/cervejazero/internal/insight"
)

var (
	kpisYear    int
	kpisOffline bool
)

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Print the main KPI cards for a year",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("build"); err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := env.Assembler.Build(cmd.Context(), buildOptions(cfg, kpisOffline))
		if err != nil {
			return err
		}

		t := facts.NewTable(b.Facts)
		year := kpisYear
		if year == 0 {
			if years := t.Years(); len(years) > 0 {
				year = years[len(years)-1]
			}
		}
		return writeKPIs(cmd.OutOrStdout(), year, insight.MainKPIs(t, year))
	},
}

func writeKPIs(out io.Writer, year int, kpis []insight.KPI) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "KPIs %d\n\n", year)
	_, _ = fmt.Fprintln(w, "KPI\tVALUE\tDELTA\tSTATUS")
	_, _ = fmt.Fprintln(w, "---\t-----\t-----\t------")
	for _, k := range kpis {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n", k.Label, k.Formatted, k.Delta.Arrow, k.Delta.Formatted, k.Status)
	}
	return w.Flush()
}

func init() {
	kpisCmd.Flags().IntVar(&kpisYear, "year", 0, "year to report (default latest)")
	kpisCmd.Flags().BoolVar(&kpisOffline, "offline", false, "skip runtime refresh")
	rootCmd.AddCommand(kpisCmd)
}

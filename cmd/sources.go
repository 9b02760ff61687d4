package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/model"
	"github.com/sells-group/cervejazero/internal/refresh"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the runtime sources scraped for brewery counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := runtimeSources(cfg)
		if err != nil {
			return err
		}
		return writeSources(cmd.OutOrStdout(), sources, cfg.Refresh.Enabled)
	},
}

func writeSources(out io.Writer, sources []model.RuntimeSource, enabled bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tYEAR\tURL")
	_, _ = fmt.Fprintln(w, "--\t----\t---")
	for _, s := range sources {
		year := "-"
		if y, ok := refresh.YearFromID(s.ID); ok {
			year = fmt.Sprint(y)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, year, s.URL)
	}
	if !enabled {
		_, _ = fmt.Fprintln(w, "\n(refresh disabled)")
	}
	return w.Flush()
}

var pruneGrace time.Duration

var sourcesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired pages from the page cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Refresh.PageCacheDSN == "" {
			return eris.New("refresh.page_cache_dsn is not configured")
		}
		env, err := initPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()
		if env.Refresher == nil {
			return eris.New("refresh is disabled")
		}

		n, err := env.Refresher.PruneCache(cmd.Context(), pruneGrace)
		if err != nil {
			return err
		}
		zap.L().Info("page cache pruned", zap.Int("deleted", n))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired pages\n", n)
		return nil
	},
}

func init() {
	sourcesPruneCmd.Flags().DurationVar(&pruneGrace, "grace", 0, "keep pages expired for less than this")
	sourcesCmd.AddCommand(sourcesPruneCmd)
	rootCmd.AddCommand(sourcesCmd)
}

package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/export"
)

var (
	exportFormat  string
	exportOutput  string
	exportOffline bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the fact bundle to XLSX or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if exportOutput == "" {
			return eris.New("--output is required")
		}
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := env.Assembler.Build(cmd.Context(), buildOptions(cfg, exportOffline))
		if err != nil {
			return err
		}

		if err := withOutput(exportOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return export.Write(w, format, b)
		}); err != nil {
			return err
		}

		zap.L().Info("bundle exported",
			zap.String("format", string(format)),
			zap.String("path", exportOutput),
			zap.Int("facts", len(b.Facts)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "export format: xlsx, csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "skip runtime refresh")
	rootCmd.AddCommand(exportCmd)
}

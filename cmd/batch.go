package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/batch"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate briefs for every row of a CSV or XLSX file",
	Long:  "Reads identities from --input (CSV or XLSX with email, name/company or social_url columns) and writes one JSON line per row, in input order, to --output or stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}

		rows, err := batch.ReadFile(ctx, batchInput)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		out, closeOut, err := openOutput(cmd.OutOrStdout(), batchOutput)
		if err != nil {
			return err
		}
		defer closeOut()

		sum, err := batch.NewRunner(env.Service, cfg.Batch.Concurrency).Run(ctx, rows, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", formatSummary(sum))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or XLSX file of identities")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "JSON lines output file (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "rows processed at once (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// openOutput returns path opened for writing, or stdout when path is
// empty or "-".
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "batch: create output %s", path)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			zap.L().Warn("batch: close output", zap.Error(err))
		}
	}, nil
}

func formatSummary(s batch.Summary) string {
	return fmt.Sprintf("%d rows: %d succeeded, %d fallback, %d failed (%d quota)",
		s.Rows, s.Succeeded, s.Fallbacks, s.Failed, s.Quota)
}

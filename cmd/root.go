package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/config"
	"github.com/sells-group/meetingintel/internal/metrics"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "meetingintel",
	Short: "Pre-meeting persona briefs from public evidence",
	Long:  "Resolves an email, name and company, or social profile into a cited persona brief. Evidence is fused from web search, the company site, code hosts and social profiles, then generated under a schema-validating guard.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		metrics.Register()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

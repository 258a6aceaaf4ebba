package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/pipeline"
)

var (
	briefEmail   string
	briefName    string
	briefCompany string
	briefSocial  string
	briefTrace   bool
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Generate one persona brief and print it as JSON",
	Example: `  meetingintel brief --email jane.doe@acme.com
  meetingintel brief --name "Jane Doe" --company Acme
  meetingintel brief --social https://www.linkedin.com/in/janedoe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := identity.Request{
			Email:     briefEmail,
			Name:      briefName,
			Company:   briefCompany,
			SocialURL: briefSocial,
		}
		// Reject bad input before touching the store or any provider.
		if _, err := identity.Normalize(req); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "brief")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Analyze(ctx, req)
		if err != nil {
			return briefError(err)
		}
		return writeBrief(cmd.OutOrStdout(), res, briefTrace)
	},
}

func init() {
	briefCmd.Flags().StringVar(&briefEmail, "email", "", "work email address")
	briefCmd.Flags().StringVar(&briefName, "name", "", "full name (requires --company)")
	briefCmd.Flags().StringVar(&briefCompany, "company", "", "company name or domain")
	briefCmd.Flags().StringVar(&briefSocial, "social", "", "social profile URL or @handle")
	briefCmd.Flags().BoolVar(&briefTrace, "trace", false, "print run id, adapter stats and guard trace with the brief")
	rootCmd.AddCommand(briefCmd)
}

// writeBrief prints the brief, or the whole result when trace is set.
func writeBrief(w io.Writer, res *pipeline.Result, trace bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var v any = res.Brief
	if trace {
		v = res
	}
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "write brief")
	}
	return nil
}

// briefError adds the retry hint to quota errors.
func briefError(err error) error {
	if qe, ok := generate.AsQuotaExceeded(err); ok {
		return fmt.Errorf("generation quota exceeded, retry in %ds: %w", qe.RetryAfterSeconds(), err)
	}
	return err
}

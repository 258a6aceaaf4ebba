package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/monitoring"
	"github.com/sells-group/meetingintel/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run log",
}

var (
	runsLimit   int
	runsOutcome string
	runsMode    string
	runsSince   time.Duration
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent brief runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter, err := runsFilterFromFlags(time.Now())
		if err != nil {
			return err
		}

		if err := cfg.Validate("runs"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsWindowHours int

var runsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check fallback rate and adapter failures over a window",
	Long:  "Aggregates the run log over --window hours and evaluates the monitoring thresholds. Exits non-zero when any alert fires; alerts are also posted to monitoring.webhook_url when set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mc := cfg.Monitoring
		if runsWindowHours > 0 {
			mc.LookbackWindowHours = runsWindowHours
		}

		snap, alerts, err := newChecker(st, mc).Check(ctx)
		if err != nil {
			return err
		}
		formatHealth(cmd.OutOrStdout(), snap, alerts)
		if len(alerts) > 0 {
			return eris.Errorf("%d alert(s) fired", len(alerts))
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", store.DefaultListLimit, "max runs to show")
	runsListCmd.Flags().StringVar(&runsOutcome, "outcome", "", "filter by outcome (success, fallback)")
	runsListCmd.Flags().StringVar(&runsMode, "mode", "", "filter by input mode (email, name_company, social)")
	runsListCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs newer than this, e.g. 24h")

	runsHealthCmd.Flags().IntVar(&runsWindowHours, "window", 0, "lookback window in hours (default from config)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsHealthCmd)
	rootCmd.AddCommand(runsCmd)
}

// runsFilterFromFlags validates the list flags.
func runsFilterFromFlags(now time.Time) (store.RunFilter, error) {
	f := store.RunFilter{Limit: runsLimit}

	switch o := model.Outcome(runsOutcome); o {
	case "", model.OutcomeSuccess, model.OutcomeFallback:
		f.Outcome = o
	default:
		return f, eris.Errorf("invalid --outcome %q (want success or fallback)", runsOutcome)
	}

	switch m := model.InputMode(runsMode); m {
	case "", model.InputModeEmail, model.InputModeNameCompany, model.InputModeSocial:
		f.Mode = m
	default:
		return f, eris.Errorf("invalid --mode %q", runsMode)
	}

	if runsSince > 0 {
		f.Since = now.Add(-runsSince)
	}
	return f, nil
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMODE\tOUTCOME\tLABEL\tEVIDENCE\tREPAIRS\tADAPTERS FAILED\tCACHE\tCREATED\tDURATION")
	for _, r := range runs {
		cacheCol := "miss"
		if r.CacheHit {
			cacheCol = "hit"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Mode,
			r.Outcome,
			r.Label,
			r.EvidenceCount,
			r.RepairAttempts,
			r.AdaptersFailed,
			cacheCol,
			r.CreatedAt.Format("2006-01-02 15:04"),
			(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Millisecond),
		)
	}
	_ = w.Flush()
}

// formatHealth writes a snapshot and its alerts to w.
func formatHealth(out io.Writer, s *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Fallbacks:\t%d (%.1f%%)\n", s.Fallbacks, s.FallbackRate*100)
	_, _ = fmt.Fprintf(w, "Cache hits:\t%d\n", s.CacheHits)
	_, _ = fmt.Fprintf(w, "Adapter failures:\t%d (%.2f per run)\n", s.AdapterFailures, s.FailuresPerRun)
	_, _ = fmt.Fprintf(w, "Avg evidence:\t%.1f\n", s.AvgEvidence)
	_ = w.Flush()

	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "OK")
		return
	}
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

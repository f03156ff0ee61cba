package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gwpop/gwbsim/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List the runs stored in a results database, newest first, with their
last completed pass and population counters.

Example:
  gwbsim runs --db results.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// runListEntry is the JSON payload of one stored run.
type runListEntry struct {
	ID            string `json:"id"`
	CreatedAt     string `json:"created_at"`
	CompletedPass string `json:"completed_pass,omitempty"`
	RowsTotal     int    `json:"rows_total"`
	RowsUsed      int    `json:"rows_used"`
}

func listRuns(opts *RunsOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	infos, err := st.Runs(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		entries := make([]runListEntry, 0, len(infos))
		for _, info := range infos {
			e := runListEntry{
				ID:        info.ID,
				CreatedAt: info.CreatedAt,
				RowsTotal: info.RowsTotal,
				RowsUsed:  info.RowsTotal - info.RowsRejected - info.RowsUnobservable,
			}
			if info.HasCompleted {
				e.CompletedPass = info.CompletedPass.String()
			}
			entries = append(entries, e)
		}
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return f.Success(entries)
	}

	pr := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		pr.Fprintln(w, "No runs stored.")
		return nil
	}
	for _, info := range infos {
		pass := "none"
		if info.HasCompleted {
			pass = info.CompletedPass.String()
		}
		pr.Fprintf(w, "%s  %s  last pass: %-6s  rows: %d\n",
			info.ID, info.CreatedAt, pass, info.RowsTotal)
	}
	return nil
}

package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/engine"
	"github.com/gwpop/gwbsim/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database  string
	RunID     string
	Pass      string
	Breakdown bool
	Output    string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored spectrum or breakdown as CSV",
		Long: `Export the spectrum of a stored run pass, or with --breakdown the
per-slice diagnostic matrix, as CSV. The integration grid of the breakdown
is rebuilt from the configuration snapshot stored with the run.

Example:
  gwbsim export --db results.db --run 2f1c... -o spectrum.csv
  gwbsim export --db results.db --run 2f1c... --pass bulk --breakdown -o bulk_cells.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to export (required)")
	cmd.Flags().StringVar(&opts.Pass, "pass", engine.PassMerger.String(), "pass to export (bulk|birth|merger)")
	cmd.Flags().BoolVar(&opts.Breakdown, "breakdown", false, "export the per-slice breakdown instead of the spectrum")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output path (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func export(opts *ExportOptions) error {
	setupLogging(opts.Verbose)

	pass, err := engine.ParsePass(opts.Pass)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pass", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()

	f, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}

	if !opts.Breakdown {
		sp, err := st.Spectrum(ctx, opts.RunID, pass)
		if err != nil {
			f.Close()
			return WrapExitError(ExitCommandError, "failed to load spectrum", err)
		}
		if err := store.WriteSpectrumCSV(f, sp); err != nil {
			f.Close()
			return WrapExitError(ExitCommandError, "failed to write spectrum", err)
		}
		return f.Close()
	}

	// The breakdown dimensions and slice redshifts come from the stored
	// configuration snapshot.
	info, err := st.Run(ctx, opts.RunID)
	if err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}
	cfg, err := config.Load(strings.NewReader(info.Config))
	if err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "stored config snapshot invalid", err)
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to rebuild grids", err)
	}

	bd, err := st.Breakdown(ctx, opts.RunID, pass, p.igrid.Len(), p.fgrid.Len())
	if err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to load breakdown", err)
	}
	zs := make([]float64, p.igrid.Len())
	for i, s := range p.igrid.Slices {
		zs[i] = s.Z
	}
	if err := store.WriteBreakdownCSV(f, zs, bd); err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to write breakdown", err)
	}
	return f.Close()
}


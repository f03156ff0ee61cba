package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gwpop/gwbsim/internal/population"
)

// PreprocessOptions holds flags for the preprocess command.
type PreprocessOptions struct {
	*RootOptions
	Output string
}

// NewPreprocessCommand creates the preprocess command.
func NewPreprocessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreprocessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preprocess <raw-table>",
		Short: "Derive the extended population table from raw synthesis output",
		Long: `Read a raw population-synthesis table (t0, a, m1, m2) and write the
extended table with the derived evolution columns (nu0, M_ch, K, nu_max,
Dt_max) that the run command consumes.

Example:
  gwbsim preprocess raw_population.csv -o population.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return preprocess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "path for the extended table (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func preprocess(opts *PreprocessOptions, rawPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	f, err := os.Open(rawPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open raw table", err)
	}
	raws, err := population.LoadRaw(f)
	f.Close()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read raw table", err)
	}

	kept := make([]population.Raw, 0, len(raws))
	records := make([]population.Record, 0, len(raws))
	rejected := 0
	for i, raw := range raws {
		rec, err := population.Derive(raw)
		if err != nil {
			rejected++
			slog.Warn("raw row rejected", "row", i+1, "error", err)
			continue
		}
		kept = append(kept, raw)
		records = append(records, rec)
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	if err := population.WriteDerived(out, kept, records); err != nil {
		out.Close()
		return WrapExitError(ExitCommandError, "failed to write extended table", err)
	}
	if err := out.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write extended table", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Derived %d of %d rows (%d rejected) into %s.\n",
		len(records), len(raws), rejected, opts.Output)
	return nil
}

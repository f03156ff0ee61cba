package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/engine"
	"github.com/gwpop/gwbsim/internal/population"
	"github.com/gwpop/gwbsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Resume   string
	Output   string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the three-pass background estimation",
		Long: `Run the Bulk, Birth, and Merger passes over the configured population
and accumulate the background spectrum.

With --db, every completed pass is persisted, and --resume <run-id> restarts
an interrupted run at its first missing pass.

Example:
  gwbsim run --config run.yaml --out spectrum.csv
  gwbsim run --config run.yaml --db results.db --resume 2f1c...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML run configuration (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "run ID to resume (requires --db)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "path for the final spectrum CSV")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runEstimation(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	if opts.Resume != "" && opts.Database == "" {
		return NewExitError(ExitCommandError, "--resume requires --db")
	}

	cfg, err := config.LoadFile(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("assembling pipeline", "mode", cfg.Mode,
		"frequency_bins", cfg.FrequencyBins, "integration_bins", cfg.IntegrationBins)
	p, err := buildPipeline(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to assemble pipeline", err)
	}

	load, filtered, err := loadPopulation(p)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load population", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	engOpts := []engine.Option{
		engine.WithPopulationStats(load.Total, load.Rejected, filtered.Unobservable),
	}

	var (
		st    *store.Store
		runID string
	)
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		runID = opts.Resume
		if runID == "" {
			snapshot, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to snapshot config", err)
			}
			runID, err = st.BeginRun(ctx, string(snapshot))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to begin run", err)
			}
		}
		slog.Info("run registered", "run_id", runID)
		engOpts = append(engOpts, engine.WithSink(st.Writer(runID)))
	}

	eng := engine.New(cfg, p.fgrid, p.igrid, p.rep, filtered.Records, engOpts...)

	var sum *engine.Summary
	if opts.Resume != "" {
		sum, err = resumeRun(ctx, st, eng, runID)
	} else {
		sum, err = eng.Run(ctx)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "estimation failed", err)
	}

	if st != nil {
		if err := st.FinishRun(ctx, runID, sum); err != nil {
			return WrapExitError(ExitFailure, "failed to record summary", err)
		}
	}

	if opts.Output != "" {
		if err := writeSpectrum(opts.Output, eng.Spectrum(engine.PassMerger)); err != nil {
			return WrapExitError(ExitCommandError, "failed to write spectrum", err)
		}
		slog.Info("spectrum written", "path", opts.Output)
	}

	return printSummary(opts, cmd, runID, sum)
}

// resumeRun restarts an interrupted pipeline at its first missing pass.
func resumeRun(ctx context.Context, st *store.Store, eng *engine.Engine, runID string) (*engine.Summary, error) {
	info, err := st.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !info.HasCompleted {
		slog.Info("no completed pass stored, starting from scratch", "run_id", runID)
		return eng.Run(ctx)
	}
	if info.CompletedPass == engine.PassMerger {
		return nil, fmt.Errorf("run %s already completed all passes", runID)
	}

	prior, err := st.Spectrum(ctx, runID, info.CompletedPass)
	if err != nil {
		return nil, err
	}
	start := info.CompletedPass + 1
	slog.Info("resuming run", "run_id", runID, "start_pass", start.String())
	return eng.RunFrom(ctx, start, prior)
}

// loadPopulation reads the derived table and applies the observability
// pre-filter: binaries that can never drift into the observed window within
// the age of the universe are dropped up front.
func loadPopulation(p *pipeline) (*population.LoadResult, population.FilterResult, error) {
	f, err := os.Open(p.cfg.PopulationTable)
	if err != nil {
		return nil, population.FilterResult{}, fmt.Errorf("open population table: %w", err)
	}
	defer f.Close()

	load, err := population.LoadDerived(f)
	if err != nil {
		return nil, population.FilterResult{}, err
	}
	for _, rowErr := range load.Errors {
		slog.Warn("population row rejected", "error", rowErr)
	}

	filtered := population.FilterObservable(load.Records, p.fgrid.LowestEdge(), p.model.Age(1e-5))
	slog.Info("population loaded",
		"total", load.Total,
		"rejected", load.Rejected,
		"unobservable", filtered.Unobservable,
		"used", len(filtered.Records),
	)
	return load, filtered, nil
}

func writeSpectrum(path string, sp *engine.Spectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteSpectrumCSV(f, sp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// signalContext derives a context cancelled by SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// runSummaryData is the JSON payload of a completed run.
type runSummaryData struct {
	RunID            string           `json:"run_id,omitempty"`
	RowsTotal        int              `json:"rows_total"`
	RowsRejected     int              `json:"rows_rejected"`
	RowsUnobservable int              `json:"rows_unobservable"`
	RowsUsed         int              `json:"rows_used"`
	OverMaxZ         int64            `json:"over_max_z"`
	Passes           []runSummaryPass `json:"passes"`
}

type runSummaryPass struct {
	Pass            string `json:"pass"`
	NumericalErrors int64  `json:"numerical_errors"`
	Contributions   int64  `json:"contributions"`
	ElapsedMs       int64  `json:"elapsed_ms"`
}

// printSummary renders the run summary: locale-aware grouped counts in text
// mode, the structured payload in JSON mode.
func printSummary(opts *RunOptions, cmd *cobra.Command, runID string, sum *engine.Summary) error {
	if opts.Format == "json" {
		data := runSummaryData{
			RunID:            runID,
			RowsTotal:        sum.RowsTotal,
			RowsRejected:     sum.RowsRejected,
			RowsUnobservable: sum.RowsUnobservable,
			RowsUsed:         sum.RowsUsed,
			OverMaxZ:         sum.OverMaxZ,
		}
		for _, st := range sum.Passes {
			data.Passes = append(data.Passes, runSummaryPass{
				Pass:            st.Pass.String(),
				NumericalErrors: st.NumericalErrors,
				Contributions:   st.Contributions,
				ElapsedMs:       st.Elapsed.Milliseconds(),
			})
		}
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return f.Success(data)
	}

	pr := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	if runID != "" {
		pr.Fprintf(w, "Run %s complete.\n", runID)
	} else {
		pr.Fprintf(w, "Run complete.\n")
	}
	pr.Fprintf(w, "Population: %d rows, %d rejected, %d unobservable, %d used.\n",
		sum.RowsTotal, sum.RowsRejected, sum.RowsUnobservable, sum.RowsUsed)
	if sum.OverMaxZ > 0 {
		pr.Fprintf(w, "Formation epochs beyond max_z: %d lookups.\n", sum.OverMaxZ)
	}
	for _, st := range sum.Passes {
		pr.Fprintf(w, "  %-6s  %d contributions, %d numerical errors, %v\n",
			st.Pass, st.Contributions, st.NumericalErrors, st.Elapsed)
	}
	return nil
}

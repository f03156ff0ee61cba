package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/grid"
	"github.com/gwpop/gwbsim/internal/population"
	"github.com/gwpop/gwbsim/internal/sfh"
)

// Pass identifies one stage of the contribution pipeline.
type Pass int

const (
	PassBulk Pass = iota
	PassBirth
	PassMerger
)

func (p Pass) String() string {
	switch p {
	case PassBulk:
		return "bulk"
	case PassBirth:
		return "birth"
	case PassMerger:
		return "merger"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

// Passes lists the pipeline stages in execution order.
var Passes = []Pass{PassBulk, PassBirth, PassMerger}

// ParsePass maps a pass name to its Pass value.
func ParsePass(name string) (Pass, error) {
	for _, p := range Passes {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("engine: unknown pass %q", name)
}

// PassStats are the per-pass counters of a run.
type PassStats struct {
	Pass            Pass
	NumericalErrors int64
	Contributions   int64 // accumulated (binary, slice) or (slice, bin) cells
	Elapsed         time.Duration
}

// Summary is the user-visible outcome of a run.
type Summary struct {
	RowsTotal        int // population rows read
	RowsRejected     int // rows dropped with a DataError
	RowsUnobservable int // rows dropped by the observability pre-filter
	RowsUsed         int // rows entering the passes
	OverMaxZ         int64
	Passes           []PassStats
}

// PassSink receives the spectrum and breakdown after each completed pass.
// Implemented by the results store; a nil sink disables persistence.
type PassSink interface {
	SavePass(ctx context.Context, pass Pass, spectrum *Spectrum, breakdown *Breakdown) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the per-pass parallelism. Values below 1 fall back to
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithSink registers a per-pass persistence sink.
func WithSink(s PassSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithPopulationStats records the load/filter counters for the run summary.
func WithPopulationStats(total, rejected, unobservable int) Option {
	return func(e *Engine) {
		e.rowsTotal = total
		e.rowsRejected = rejected
		e.rowsUnobservable = unobservable
	}
}

// Engine owns the shared Omega accumulator and runs the three contribution
// passes over an immutable population.
//
// Thread-safety model: Run must be called from one goroutine; the engine
// spawns and joins its own workers per pass. The configuration, grids,
// star-formation model, and population are read-only for the lifetime of
// the engine.
type Engine struct {
	cfg     config.Run
	fgrid   *grid.FrequencyGrid
	igrid   *grid.IntegrationGrid
	rep     *sfh.Representative
	records []population.Record

	workers          int
	sink             PassSink
	rowsTotal        int
	rowsRejected     int
	rowsUnobservable int

	spectra    map[Pass]*Spectrum
	breakdowns map[Pass]*Breakdown
	stats      map[Pass]*PassStats
}

// New assembles an engine. The records slice must already be filtered for
// observability; the engine never mutates it.
func New(cfg config.Run, fg *grid.FrequencyGrid, ig *grid.IntegrationGrid, rep *sfh.Representative, records []population.Record, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		fgrid:      fg,
		igrid:      ig,
		rep:        rep,
		records:    records,
		workers:    cfg.Workers,
		spectra:    make(map[Pass]*Spectrum),
		breakdowns: make(map[Pass]*Breakdown),
		stats:      make(map[Pass]*PassStats),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Spectrum returns the accumulated spectrum after the given pass, or nil if
// the pass has not run.
func (e *Engine) Spectrum(p Pass) *Spectrum { return e.spectra[p] }

// Breakdown returns the diagnostic matrix of the given pass, or nil.
func (e *Engine) Breakdown(p Pass) *Breakdown { return e.breakdowns[p] }

// Run executes Bulk, Birth, and Merger in order and returns the run summary.
// The final spectrum is Spectrum(PassMerger).
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	return e.RunFrom(ctx, PassBulk, nil)
}

// RunFrom resumes the pipeline at the given pass. For any pass after Bulk
// the caller must supply the completed spectrum of the preceding pass
// (typically loaded from the results store); a missing prior is a
// *PipelineError.
func (e *Engine) RunFrom(ctx context.Context, start Pass, prior *Spectrum) (*Summary, error) {
	if start > PassBulk {
		if prior == nil || prior.Len() != e.fgrid.Len() {
			return nil, &PipelineError{Pass: start, Requires: start - 1}
		}
		e.spectra[start-1] = prior
	}

	for _, p := range Passes {
		if p < start {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		begin := time.Now()
		var err error
		switch p {
		case PassBulk:
			err = e.runBulk(ctx)
		case PassBirth:
			err = e.runBirth(ctx)
		case PassMerger:
			err = e.runMerger(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("engine: %s pass: %w", p, err)
		}
		st := e.stats[p]
		st.Elapsed = time.Since(begin)
		slog.Info("pass complete",
			"pass", p.String(),
			"elapsed", st.Elapsed,
			"contributions", st.Contributions,
			"numerical_errors", st.NumericalErrors,
		)
		if e.sink != nil {
			if err := e.sink.SavePass(ctx, p, e.spectra[p], e.breakdowns[p]); err != nil {
				return nil, fmt.Errorf("engine: persist %s pass: %w", p, err)
			}
		}
	}
	return e.summary(), nil
}

func (e *Engine) summary() *Summary {
	s := &Summary{
		RowsTotal:        e.rowsTotal,
		RowsRejected:     e.rowsRejected,
		RowsUnobservable: e.rowsUnobservable,
		RowsUsed:         len(e.records),
		OverMaxZ:         e.rep.OverMaxZCount(),
	}
	for _, p := range Passes {
		if st, ok := e.stats[p]; ok {
			s.Passes = append(s.Passes, *st)
		}
	}
	return s
}

// priorSpectrum fetches the completed spectrum the given pass extends.
func (e *Engine) priorSpectrum(p Pass) (*Spectrum, error) {
	prev, ok := e.spectra[p-1]
	if !ok || prev == nil {
		return nil, &PipelineError{Pass: p, Requires: p - 1}
	}
	return prev, nil
}

// bulkWeight is the slice aggregation factor of the bulk pass: comoving
// shell width with redshift dilution in redshift mode, or the fixed light-
// travel slab in time mode.
func (e *Engine) bulkWeight(s grid.Slice) float64 {
	zp := 1 + s.Z
	if e.igrid.Mode == config.ModeRedshift {
		return math.Pow(zp, -4.0/3.0) * s.WidthMpc
	}
	return math.Pow(zp, -1.0/3.0) * sliceSlabMpc(e.igrid)
}

// birthMergerWeight is the analogous factor of the birth and merger passes.
// The common (1+z)^-1 emission dilution is part of the cell formula.
func (e *Engine) birthMergerWeight(s grid.Slice) float64 {
	if e.igrid.Mode == config.ModeRedshift {
		return s.WidthMpc / (1 + s.Z)
	}
	return sliceSlabMpc(e.igrid)
}

// volumeWeight converts a per-slice system count into the comoving shell
// volume, for the expected-system-count diagnostic.
func (e *Engine) volumeWeight(s grid.Slice) float64 {
	if e.igrid.Mode == config.ModeRedshift {
		return s.WidthMpc
	}
	return sliceSlabMpc(e.igrid) * (1 + s.Z)
}

// sliceSlabMpc is the comoving thickness a time slice sweeps at the speed of
// light.
func sliceSlabMpc(g *grid.IntegrationGrid) float64 {
	return cLightMpcMyr * g.DurationMyr
}

// cLightMpcMyr is the speed of light in Mpc/Myr.
const cLightMpcMyr = 0.30660139

// systemCountScale converts a rate-weighted residence time in Myr into an
// expected number of systems: psi is per year, residence times are in Myr.
const systemCountScale = 1e6

// fourPi is the full solid angle of the diagnostic shell volume.
var fourPi = 4 * math.Pi

package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/engine"
	"github.com/gwpop/gwbsim/internal/population"
	"github.com/gwpop/gwbsim/internal/testutil"
)

// testConfig is a small, fast configuration over one decade of frequency.
func testConfig() config.Run {
	cfg := config.Default()
	cfg.FrequencyBins = 10
	cfg.LogFLow = -5
	cfg.LogFHigh = -2
	cfg.IntegrationBins = 5
	cfg.MaxZ = 2
	cfg.SFH = config.SFH{Variant: "constant"}
	cfg.Workers = 1
	return cfg
}

// syntheticPopulation builds a deterministic mixed population: some binaries
// span the whole window, some are born inside it, some merge inside it.
func syntheticPopulation(t *testing.T) []population.Record {
	t.Helper()
	var recs []population.Record
	for i := 0; i < 12; i++ {
		fi := float64(i)
		nu0 := 1e-6 * math.Pow(10, fi/4)         // 1e-6 .. ~5.6e-4
		nuMax := nu0 * math.Pow(10, 2+fi/10)     // two+ decades above
		mch := 0.25 + 0.05*float64(i%5)          // 0.25 .. 0.45
		t0 := 40 * float64(i%4)                  // 0 .. 120 Myr
		recs = append(recs, testutil.Record(t, t0, nu0, nuMax, mch))
	}
	return recs
}

func newEngine(t *testing.T, cfg config.Run, recs []population.Record, opts ...engine.Option) *engine.Engine {
	t.Helper()
	p := testutil.NewPipeline(t, cfg)
	return engine.New(cfg, p.FGrid, p.IGrid, p.Rep, recs, opts...)
}

func TestRun_ExecutesAllPasses(t *testing.T) {
	cfg := testConfig()
	eng := newEngine(t, cfg, syntheticPopulation(t))

	sum, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Passes, 3)
	assert.Equal(t, engine.PassBulk, sum.Passes[0].Pass)
	assert.Equal(t, engine.PassBirth, sum.Passes[1].Pass)
	assert.Equal(t, engine.PassMerger, sum.Passes[2].Pass)

	for _, p := range engine.Passes {
		require.NotNil(t, eng.Spectrum(p), p.String())
		require.NotNil(t, eng.Breakdown(p), p.String())
	}

	// Each pass only ever adds energy.
	bulk := eng.Spectrum(engine.PassBulk)
	birth := eng.Spectrum(engine.PassBirth)
	merger := eng.Spectrum(engine.PassMerger)
	var total float64
	for i := range merger.Omega {
		assert.GreaterOrEqual(t, birth.Omega[i], bulk.Omega[i], "bin %d", i)
		assert.GreaterOrEqual(t, merger.Omega[i], birth.Omega[i], "bin %d", i)
		total += merger.Omega[i]
	}
	assert.Greater(t, total, 0.0)
}

func TestRun_DeterministicWithOneWorker(t *testing.T) {
	cfg := testConfig()
	recs := syntheticPopulation(t)

	e1 := newEngine(t, cfg, recs)
	_, err := e1.Run(context.Background())
	require.NoError(t, err)

	e2 := newEngine(t, cfg, recs)
	_, err = e2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, e1.Spectrum(engine.PassMerger).Omega, e2.Spectrum(engine.PassMerger).Omega)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	recs := syntheticPopulation(t)

	seqCfg := testConfig()
	seq := newEngine(t, seqCfg, recs)
	_, err := seq.Run(context.Background())
	require.NoError(t, err)

	parCfg := testConfig()
	parCfg.Workers = 8
	par := newEngine(t, parCfg, recs)
	_, err = par.Run(context.Background())
	require.NoError(t, err)

	// Different fold orders move only floating-point rounding.
	for _, p := range engine.Passes {
		want := seq.Spectrum(p).Omega
		got := par.Spectrum(p).Omega
		for i := range want {
			if want[i] == 0 {
				assert.Zero(t, got[i], "%s bin %d", p, i)
				continue
			}
			assert.InEpsilon(t, want[i], got[i], 1e-9, "%s bin %d", p, i)
		}
	}
}

func TestRunFrom_RequiresPriorSpectrum(t *testing.T) {
	cfg := testConfig()
	eng := newEngine(t, cfg, syntheticPopulation(t))

	_, err := eng.RunFrom(context.Background(), engine.PassBirth, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMissingPrior)

	var perr *engine.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, engine.PassBirth, perr.Pass)
	assert.Equal(t, engine.PassBulk, perr.Requires)

	// A prior with the wrong shape is also rejected.
	_, err = eng.RunFrom(context.Background(), engine.PassMerger, engine.NewSpectrum([]float64{1, 2}))
	assert.ErrorIs(t, err, engine.ErrMissingPrior)
}

func TestRunFrom_ResumesToSameResult(t *testing.T) {
	cfg := testConfig()
	recs := syntheticPopulation(t)

	full := newEngine(t, cfg, recs)
	_, err := full.Run(context.Background())
	require.NoError(t, err)

	resumed := newEngine(t, cfg, recs)
	_, err = resumed.RunFrom(context.Background(), engine.PassMerger, full.Spectrum(engine.PassBirth).Clone())
	require.NoError(t, err)

	assert.Equal(t, full.Spectrum(engine.PassMerger).Omega, resumed.Spectrum(engine.PassMerger).Omega)
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := testConfig()
	eng := newEngine(t, cfg, syntheticPopulation(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakdown_SumsToSpectrumDelta(t *testing.T) {
	cfg := testConfig()
	eng := newEngine(t, cfg, syntheticPopulation(t))
	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	prev := make([]float64, cfg.FrequencyBins)
	for _, p := range engine.Passes {
		sp := eng.Spectrum(p)
		bd := eng.Breakdown(p)
		for b := 0; b < cfg.FrequencyBins; b++ {
			var cellSum float64
			for s := 0; s < bd.NSlices; s++ {
				cellSum += bd.At(s, b).Omega
			}
			delta := sp.Omega[b] - prev[b]
			if delta == 0 {
				assert.Zero(t, cellSum, "%s bin %d", p, b)
			} else {
				assert.InEpsilon(t, delta, cellSum, 1e-9, "%s bin %d", p, b)
			}
		}
		copy(prev, sp.Omega)
	}
}

func TestSummary_PopulationCounters(t *testing.T) {
	cfg := testConfig()
	eng := newEngine(t, cfg, syntheticPopulation(t),
		engine.WithPopulationStats(20, 3, 5))

	sum, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, sum.RowsTotal)
	assert.Equal(t, 3, sum.RowsRejected)
	assert.Equal(t, 5, sum.RowsUnobservable)
	assert.Equal(t, 12, sum.RowsUsed)
}

// passRecorder captures SavePass calls.
type passRecorder struct {
	passes []engine.Pass
}

func (r *passRecorder) SavePass(_ context.Context, p engine.Pass, sp *engine.Spectrum, bd *engine.Breakdown) error {
	r.passes = append(r.passes, p)
	if sp == nil || bd == nil {
		panic("nil pass results")
	}
	return nil
}

func TestRun_SinkReceivesEveryPass(t *testing.T) {
	cfg := testConfig()
	rec := &passRecorder{}
	eng := newEngine(t, cfg, syntheticPopulation(t), engine.WithSink(rec))

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.Passes, rec.passes)
}

package store

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/gwpop/gwbsim/internal/engine"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteSpectrumCSV(t *testing.T) {
	sp := engine.NewSpectrum([]float64{1e-4, 1e-3})
	sp.Omega[0] = 1.2e-12
	sp.Omega[1] = 3.4e-13

	var buf bytes.Buffer
	if err := WriteSpectrumCSV(&buf, sp); err != nil {
		t.Fatalf("WriteSpectrumCSV() failed: %v", err)
	}
	golden(t).Assert(t, "spectrum", buf.Bytes())
}

func TestWriteBreakdownCSV(t *testing.T) {
	bd := engine.NewBreakdown(2, 2)
	bd.Add(0, 0, 1.5e-12, 2.5e3)
	bd.Add(1, 1, 4.0e-13, 1.2e2)

	var buf bytes.Buffer
	if err := WriteBreakdownCSV(&buf, []float64{0.25, 0.75}, bd); err != nil {
		t.Fatalf("WriteBreakdownCSV() failed: %v", err)
	}
	golden(t).Assert(t, "breakdown", buf.Bytes())
}

func TestWriteBreakdownCSV_SliceCountMismatch(t *testing.T) {
	bd := engine.NewBreakdown(2, 2)
	var buf bytes.Buffer
	if err := WriteBreakdownCSV(&buf, []float64{0.25}, bd); err == nil {
		t.Error("expected error for mismatched slice count, got nil")
	}
}

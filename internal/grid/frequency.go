// Package grid builds the two fixed axes of a run: the log-spaced observed
// frequency grid and the outer cosmological integration grid (redshift
// shells or cosmic-time slices).
package grid

import (
	"fmt"
	"math"

	"github.com/gwpop/gwbsim/internal/config"
)

// FrequencyBin is one bin of the observed-frequency axis.
type FrequencyBin struct {
	Index  int
	Low    float64 // lower edge, Hz
	High   float64 // upper edge, Hz
	Center float64 // log-spaced sample point between the edges, Hz
	Factor float64 // precomputed center*(High^(2/3)-Low^(2/3))/(High-Low)
}

// FrequencyGrid is the full observed-frequency axis. Edges and centers are
// both log-spaced sample points of the same refinement: centers interleave
// between edges rather than being arithmetic midpoints.
type FrequencyGrid struct {
	Edges   []float64 // len n+1
	Centers []float64 // len n
	Factors []float64 // len n
}

// NewFrequencyGrid builds n log-spaced bins between 10^logLow and
// 10^logHigh. The outermost edges are set to the exact bounds so that bin
// widths telescope to 10^logHigh - 10^logLow.
func NewFrequencyGrid(logLow, logHigh float64, n int) (*FrequencyGrid, error) {
	if n < 1 {
		return nil, &config.ConfigError{Field: "frequency_bins", Reason: fmt.Sprintf("must be >= 1, got %d", n)}
	}
	if logLow >= logHigh {
		return nil, &config.ConfigError{Field: "log_f_low", Reason: fmt.Sprintf("must be < log_f_high (%g >= %g)", logLow, logHigh)}
	}

	// 2n+1 log-spaced samples; even indices are edges, odd are centers.
	step := (logHigh - logLow) / float64(2*n)
	g := &FrequencyGrid{
		Edges:   make([]float64, n+1),
		Centers: make([]float64, n),
		Factors: make([]float64, n),
	}
	for i := 0; i <= n; i++ {
		g.Edges[i] = math.Pow(10, logLow+float64(2*i)*step)
	}
	g.Edges[0] = math.Pow(10, logLow)
	g.Edges[n] = math.Pow(10, logHigh)
	for i := 0; i < n; i++ {
		g.Centers[i] = math.Pow(10, logLow+float64(2*i+1)*step)
		lo, hi := g.Edges[i], g.Edges[i+1]
		g.Factors[i] = g.Centers[i] * (math.Pow(hi, 2.0/3.0) - math.Pow(lo, 2.0/3.0)) / (hi - lo)
	}
	return g, nil
}

// Len returns the number of bins.
func (g *FrequencyGrid) Len() int { return len(g.Centers) }

// Bin returns the i-th bin.
func (g *FrequencyGrid) Bin(i int) FrequencyBin {
	return FrequencyBin{
		Index:  i,
		Low:    g.Edges[i],
		High:   g.Edges[i+1],
		Center: g.Centers[i],
		Factor: g.Factors[i],
	}
}

// LowestEdge returns the lower bound of the observable window in Hz.
func (g *FrequencyGrid) LowestEdge() float64 { return g.Edges[0] }

// HighestEdge returns the upper bound of the observable window in Hz.
func (g *FrequencyGrid) HighestEdge() float64 { return g.Edges[len(g.Edges)-1] }

// FindBin returns the index of the bin containing frequency f, or false if f
// lies outside the observable window. The lower edge is inclusive, the upper
// edge belongs to the next bin; the final upper edge is inclusive.
func (g *FrequencyGrid) FindBin(f float64) (int, bool) {
	if f < g.Edges[0] || f > g.HighestEdge() {
		return 0, false
	}
	if f == g.HighestEdge() {
		return g.Len() - 1, true
	}
	// Binary search over edges.
	lo, hi := 0, len(g.Edges)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if g.Edges[mid] <= f {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, true
}

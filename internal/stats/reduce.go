// Package stats computes the named statistics of the validation pipeline
// over time-indexed spatial arrays. Every reduction is missing-value aware:
// NaN cells are skipped, and a cell with no valid samples stays NaN.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer collapses a sample series to one value, ignoring NaNs.
type Reducer func(vals []float64) float64

// reducers is the fixed lookup table behind configured reducer names. The
// table is consulted at configuration-load time so that a typo in a config
// file fails before any data is touched.
var reducers = map[string]Reducer{
	"mean":   nanMean,
	"sum":    nanSum,
	"max":    nanMax,
	"min":    nanMin,
	"median": nanMedian,
}

// LookupReducer resolves a configured reducer name. Unknown names are
// rejected so run-time dispatch never sees an unvalidated string.
func LookupReducer(name string) (Reducer, error) {
	r, ok := reducers[name]
	if !ok {
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
	return r, nil
}

// valid filters NaNs out of vals, reusing buf when it has capacity.
func valid(vals, buf []float64) []float64 {
	out := buf[:0]
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nanMean(vals []float64) float64 {
	v := valid(vals, nil)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

func nanSum(vals []float64) float64 {
	v := valid(vals, nil)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Sum(v)
}

func nanMax(vals []float64) float64 {
	v := valid(vals, nil)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

func nanMin(vals []float64) float64 {
	v := valid(vals, nil)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

func nanMedian(vals []float64) float64 {
	return nanQuantile(vals, 0.5)
}

// nanQuantile computes the q-quantile of the valid samples.
func nanQuantile(vals []float64, q float64) float64 {
	v := valid(vals, nil)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	return stat.Quantile(q, stat.Empirical, v, nil)
}

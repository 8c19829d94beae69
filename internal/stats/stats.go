package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"

	"go.climsuite.io/gridval/internal/domain"
)

// Config carries the per-statistic options from the run configuration,
// already validated: resampling spec, optional lower threshold applied
// before reduction, and the quantile for percentile statistics. Workers is
// set by the orchestrator, not the configuration file; reductions split the
// spatial plane into the array's chunk blocks and run them on that budget.
type Config struct {
	Resample  *Resample
	Threshold *float64
	Quantile  float64 // fraction in (0, 1), percentile statistic only
	Workers   int
}

// Func computes one named statistic over a time-indexed array, reducing the
// time axis to the statistic's cycle (a single step for plain reductions,
// one step per month/season/hour for cycles).
type Func func(a *domain.DataArray, cfg Config) (*domain.DataArray, error)

var statistics = map[string]Func{
	"mean":           Mean,
	"annual cycle":   AnnualCycle,
	"seasonal cycle": SeasonalCycle,
	"diurnal cycle":  DiurnalCycle,
	"percentile":     Percentile,
}

// LookupStatistic resolves a configured statistic name, rejecting unknown
// names at configuration-load time.
func LookupStatistic(name string) (Func, error) {
	f, ok := statistics[name]
	if !ok {
		return nil, fmt.Errorf("unknown statistic %q", name)
	}
	return f, nil
}

// Calc applies the optional threshold filter and then the named statistic.
func Calc(a *domain.DataArray, name string, cfg Config) (*domain.DataArray, error) {
	f, err := LookupStatistic(name)
	if err != nil {
		return nil, err
	}
	if cfg.Threshold != nil {
		a = applyThreshold(a, *cfg.Threshold)
	}
	return f(a, cfg)
}

// applyThreshold masks values below the threshold so they are excluded from
// the reduction, the usual treatment for wet-day precipitation statistics.
func applyThreshold(a *domain.DataArray, thr float64) *domain.DataArray {
	_, ny, nx := a.Dims()
	out := a.CopyMeta(ny, nx)
	for i, v := range a.Data.Elements {
		if v < thr {
			out.Data.Elements[i] = math.NaN()
		} else {
			out.Data.Elements[i] = v
		}
	}
	return out
}

// cellBlock derives the number of cells per reduction block from the
// array's chunk plan, falling back to the whole plane when unplanned.
func cellBlock(a *domain.DataArray, plane int) int {
	b := a.Chunks.Y * a.Chunks.X
	if b < 1 || b > plane {
		return plane
	}
	return b
}

// reduceTime collapses the whole time axis per cell with red, keeping a
// single output step stamped with the first input time. Cells are reduced in
// chunk-plan-sized blocks across the worker budget.
func reduceTime(a *domain.DataArray, red Reducer, workers int) (*domain.DataArray, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	nt, ny, nx := a.Dims()
	plane := ny * nx

	out := a.CopyMeta(ny, nx)
	out.Time = a.Time[:1]
	out.Data = sparse.ZerosDense(1, ny, nx)

	if workers < 1 {
		workers = 1
	}
	block := cellBlock(a, plane)
	var g errgroup.Group
	g.SetLimit(workers)
	for c0 := 0; c0 < plane; c0 += block {
		c0, c1 := c0, min(c0+block, plane)
		g.Go(func() error {
			vals := make([]float64, nt)
			for c := c0; c < c1; c++ {
				for t := 0; t < nt; t++ {
					vals[t] = a.Data.Elements[t*plane+c]
				}
				out.Data.Elements[c] = red(vals)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Mean is the time-mean per cell.
func Mean(a *domain.DataArray, cfg Config) (*domain.DataArray, error) {
	return reduceTime(a, nanMean, cfg.Workers)
}

// Percentile reduces the time axis to the configured quantile per cell.
func Percentile(a *domain.DataArray, cfg Config) (*domain.DataArray, error) {
	if cfg.Quantile <= 0 || cfg.Quantile >= 1 {
		return nil, fmt.Errorf("percentile of %s: quantile %v outside (0, 1)", a.Name, cfg.Quantile)
	}
	return reduceTime(a, func(vals []float64) float64 {
		return nanQuantile(vals, cfg.Quantile)
	}, cfg.Workers)
}

// cycle groups time steps by key, reduces each group per cell with the mean,
// and emits one output step per group present in the data, in ascending key
// order. label turns a group key into the representative output time. As in
// reduceTime, cells are processed in chunk-plan-sized blocks.
func cycle(a *domain.DataArray, nGroups int, key func(time.Time) int, label func(int) time.Time, workers int) (*domain.DataArray, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	nt, ny, nx := a.Dims()
	plane := ny * nx

	members := make([][]int, nGroups)
	for t := 0; t < nt; t++ {
		g := key(a.Time[t])
		members[g] = append(members[g], t)
	}
	var present []int
	for g := 0; g < nGroups; g++ {
		if len(members[g]) > 0 {
			present = append(present, g)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("cycle of %s: no time steps", a.Name)
	}

	out := a.CopyMeta(ny, nx)
	out.Time = make([]time.Time, len(present))
	out.Data = sparse.ZerosDense(len(present), ny, nx)
	for b, g := range present {
		out.Time[b] = label(g)
	}

	if workers < 1 {
		workers = 1
	}
	block := cellBlock(a, plane)
	var eg errgroup.Group
	eg.SetLimit(workers)
	for c0 := 0; c0 < plane; c0 += block {
		c0, c1 := c0, min(c0+block, plane)
		eg.Go(func() error {
			var vals []float64
			for c := c0; c < c1; c++ {
				for b, g := range present {
					vals = vals[:0]
					for _, t := range members[g] {
						vals = append(vals, a.Data.Elements[t*plane+c])
					}
					out.Data.Elements[b*plane+c] = nanMean(vals)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AnnualCycle is the per-calendar-month mean, one output step per month
// present in the data.
func AnnualCycle(a *domain.DataArray, cfg Config) (*domain.DataArray, error) {
	return cycle(a, 12,
		func(t time.Time) int { return int(t.Month()) - 1 },
		func(g int) time.Time { return time.Date(1, time.Month(g+1), 1, 0, 0, 0, 0, time.UTC) },
		cfg.Workers)
}

// Meteorological seasons in output order.
const (
	seasonDJF = iota
	seasonMAM
	seasonJJA
	seasonSON
)

func seasonOf(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return seasonDJF
	case time.March, time.April, time.May:
		return seasonMAM
	case time.June, time.July, time.August:
		return seasonJJA
	default:
		return seasonSON
	}
}

// SeasonLabel names a season index as written into output metadata.
func SeasonLabel(s int) string {
	return [...]string{"DJF", "MAM", "JJA", "SON"}[s]
}

// SeasonalCycle is the per-season mean. Output steps are stamped with the
// first month of each season.
func SeasonalCycle(a *domain.DataArray, cfg Config) (*domain.DataArray, error) {
	firstMonth := [...]time.Month{time.December, time.March, time.June, time.September}
	return cycle(a, 4,
		func(t time.Time) int { return seasonOf(t.Month()) },
		func(g int) time.Time { return time.Date(1, firstMonth[g], 1, 0, 0, 0, 0, time.UTC) },
		cfg.Workers)
}

// DiurnalCycle is the per-hour-of-day mean.
func DiurnalCycle(a *domain.DataArray, cfg Config) (*domain.DataArray, error) {
	return cycle(a, 24,
		func(t time.Time) int { return t.Hour() },
		func(g int) time.Time { return time.Date(1, 1, 1, g, 0, 0, 0, time.UTC) },
		cfg.Workers)
}

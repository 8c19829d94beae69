package usecase

import (
	"fmt"

	"go.climsuite.io/gridval/internal/chunk"
	"go.climsuite.io/gridval/internal/domain"
	"go.climsuite.io/gridval/internal/region"
	"go.climsuite.io/gridval/internal/stats"
)

// AggregateSpec is one statistic's run configuration, validated at load
// time: the statistic name, its options, whether region statistics pool the
// masked data before reduction, the chunking mode and the region names.
type AggregateSpec struct {
	Stat      string
	StatCfg   stats.Config
	Pool      bool
	ChunkMode chunk.Mode
	Regions   []string
}

// StatisticsResult is one statistic computed for every participant: the
// domain-wide result plus, when regions are configured, the per-region
// results keyed region name then participant name.
type StatisticsResult struct {
	Stat    string
	Domain  map[string]*domain.DataArray
	Regions map[string]map[string]*domain.DataArray
}

// Aggregate computes one statistic across all participants. Per participant:
// resample the time axis if the statistic asks for a coarser resolution than
// the data's native step, re-chunk per the spec's mode, compute the domain
// statistic, then the region statistics.
//
// Region statistics run in one of two modes. Pooled: each region-masked
// subset is treated as its own dataset and the statistic is computed on it
// independently, which statistics with per-region normalization need. Fast
// path: the domain result is computed once and masked per region afterwards,
// valid whenever masking commutes with the statistic. The two modes can
// legitimately disagree for non-linear statistics; both stay available.
//
// Participants without data are skipped and logged, never failed.
func Aggregate(c *ExecContext, dsets []*domain.Dataset, spec AggregateSpec, regions region.Provider) (*StatisticsResult, error) {
	res := &StatisticsResult{
		Stat:   spec.Stat,
		Domain: make(map[string]*domain.DataArray, len(dsets)),
	}
	if len(spec.Regions) > 0 {
		res.Regions = make(map[string]map[string]*domain.DataArray, len(spec.Regions))
		for _, r := range spec.Regions {
			res.Regions[r] = make(map[string]*domain.DataArray, len(dsets))
		}
	}

	c.StartStage("statistics: "+spec.Stat, len(dsets))
	for _, d := range dsets {
		if !d.Available() {
			c.Log.Printf("statistics %s: %s %s: %v", spec.Stat, d.Kind, d.Name, domain.ErrNoData)
			c.StepDone()
			continue
		}
		if err := aggregateOne(c, d, spec, regions, res); err != nil {
			return nil, fmt.Errorf("statistics %s for %s %s: %w", spec.Stat, d.Kind, d.Name, err)
		}
		c.StepDone()
	}
	return res, nil
}

func aggregateOne(c *ExecContext, d *domain.Dataset, spec AggregateSpec, regions region.Provider, res *StatisticsResult) error {
	data := d.Var
	if r := spec.StatCfg.Resample; r != nil && r.Needed(data) {
		c.Log.Printf("statistics %s: resampling %s to %s/%s", spec.Stat, d.Name, r.Freq, r.Reducer)
		var err error
		if data, err = r.Apply(data); err != nil {
			return err
		}
	}

	nt, ny, nx := data.Dims()
	data = chunk.Rechunk(data, chunk.Plan(nt, ny, nx, spec.ChunkMode, data.Chunks))

	statCfg := spec.StatCfg
	statCfg.Workers = c.Workers

	domainRes, err := stats.Calc(data, spec.Stat, statCfg)
	if err != nil {
		return err
	}
	res.Domain[d.Name] = domainRes

	for _, name := range spec.Regions {
		mask, err := region.Compute(d.Grid, name, regions)
		if err != nil {
			return err
		}
		var regRes *domain.DataArray
		if spec.Pool {
			// Pooled: mask first, reduce the subset as its own dataset.
			masked, err := mask.Apply(data)
			if err != nil {
				return err
			}
			if regRes, err = stats.Calc(masked, spec.Stat, statCfg); err != nil {
				return err
			}
		} else {
			// Fast path: mask the already-computed domain result.
			if regRes, err = mask.Apply(domainRes); err != nil {
				return err
			}
		}
		res.Regions[name][d.Name] = regRes
	}
	return nil
}

package usecase

import (
	"fmt"

	"github.com/ctessum/geom"

	"go.climsuite.io/gridval/internal/chunk"
	"go.climsuite.io/gridval/internal/domain"
	"go.climsuite.io/gridval/internal/regrid"
)

// DomainBuffer is the inset, in grid points, used when tracing a grid's
// footprint ring for overview maps.
const DomainBuffer = 15

// GridRecord labels the grid a participant's data ends up on after the
// remap step, plus the inset footprint ring of that grid when it is large
// enough to carry one.
type GridRecord struct {
	Label string
	Ring  []geom.Point
}

// Remap regrids the participants of one variable onto the common grid named
// by the target. The decision table:
//
//   - native target: nothing is regridded; each participant keeps its own
//     grid, recorded under the "native_grid" label.
//   - observation target: every model is regridded onto that observation's
//     grid, and so is every other observation, so all participants remain
//     mutually comparable. The target observation itself is untouched.
//   - model target: every other model and every observation is regridded
//     onto the target model's grid. The target model itself is untouched.
//
// Participants without data for the variable are skipped. Datasets are
// modified in place; the returned map records each participant's final grid.
func Remap(c *ExecContext, dsets []*domain.Dataset, target domain.RemapTarget, method regrid.Method) (map[string]GridRecord, error) {
	records := make(map[string]GridRecord, len(dsets))

	if target.IsNoRemap() {
		for _, d := range dsets {
			if !d.Available() {
				c.Log.Printf("remap: %s %s has no data, skipping", d.Kind, d.Name)
				continue
			}
			records[d.Name] = gridRecord(c, d.Grid, "native_grid")
		}
		return records, nil
	}

	tgt, err := findTarget(dsets, target)
	if err != nil {
		return nil, err
	}

	c.StartStage("remap", len(dsets))
	for _, d := range dsets {
		if !d.Available() {
			c.Log.Printf("remap: %s %s has no data, skipping", d.Kind, d.Name)
			c.StepDone()
			continue
		}
		if d == tgt || d.Grid.Equal(tgt.Grid) {
			// Already on the target grid.
			records[d.Name] = gridRecord(c, tgt.Grid, "grid_"+tgt.Name)
			c.StepDone()
			continue
		}

		nt, ny, nx := d.Var.Dims()
		chunk.Rechunk(d.Var, chunk.Plan(nt, ny, nx, chunk.Time, d.Var.Chunks))

		m, err := c.Matrix(d.Grid, tgt.Grid, method)
		if err != nil {
			return nil, fmt.Errorf("remap %s %s onto %s: %w", d.Kind, d.Name, tgt.Name, err)
		}
		out, err := m.Apply(d.Var, tgt.Grid, c.Workers)
		if err != nil {
			return nil, fmt.Errorf("remap %s %s onto %s: %w", d.Kind, d.Name, tgt.Name, err)
		}
		if n := m.NaNRows(); n > 0 {
			c.Log.Printf("remap: %s onto %s: %d target cells have no source coverage", d.Name, tgt.Name, n)
		}
		d.Var = out
		d.Grid = tgt.Grid
		records[d.Name] = gridRecord(c, tgt.Grid, "grid_"+tgt.Name)
		c.StepDone()
	}
	return records, nil
}

// findTarget locates the participant the target names and checks it can
// serve as a regridding target.
func findTarget(dsets []*domain.Dataset, target domain.RemapTarget) (*domain.Dataset, error) {
	name := ""
	kind := domain.Model
	if n, ok := target.Observation(); ok {
		name, kind = n, domain.Observation
	} else if n, ok := target.Model(); ok {
		name, kind = n, domain.Model
	}
	for _, d := range dsets {
		if d.Name == name && d.Kind == kind {
			if !d.Available() {
				return nil, fmt.Errorf("regrid target %s %s has no data for this variable", kind, name)
			}
			return d, nil
		}
	}
	return nil, fmt.Errorf("regrid target %s %s is not among the loaded participants", kind, name)
}

// gridRecord labels a grid and, when the grid has enough interior points,
// attaches its inset footprint ring.
func gridRecord(c *ExecContext, g *domain.Grid, label string) GridRecord {
	lon2, lat2 := g.Centers2D()
	ring, err := regrid.DomainRing(lon2, lat2, DomainBuffer)
	if err != nil {
		c.Log.Printf("remap: no footprint ring for %s: %v", label, err)
		return GridRecord{Label: label}
	}
	return GridRecord{Label: label, Ring: ring}
}

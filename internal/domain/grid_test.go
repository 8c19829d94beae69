package domain

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

func dense1D(vals ...float64) *sparse.DenseArray {
	a := sparse.ZerosDense(len(vals))
	copy(a.Elements, vals)
	return a
}

func dense(shape []int, vals []float64) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	copy(a.Elements, vals)
	return a
}

// TestGridValidate_Shapes checks the lon/lat shape invariants.
func TestGridValidate_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		grid    *Grid
		wantErr bool
	}{
		{
			name: "rectilinear",
			grid: &Grid{Name: "g", Lon: dense1D(0, 1, 2), Lat: dense1D(0, 1)},
		},
		{
			name: "curvilinear",
			grid: &Grid{
				Name: "g",
				Lon:  dense([]int{2, 2}, []float64{0, 1, 0, 1}),
				Lat:  dense([]int{2, 2}, []float64{0, 0, 1, 1}),
			},
		},
		{
			name: "mixed dimensionality",
			grid: &Grid{
				Name: "g",
				Lon:  dense1D(0, 1, 2),
				Lat:  dense([]int{2, 2}, []float64{0, 0, 1, 1}),
			},
			wantErr: true,
		},
		{
			name: "bad bounds shape",
			grid: &Grid{
				Name: "g",
				Lon:  dense1D(0, 1),
				Lat:  dense1D(0, 1),
				LonB: dense([]int{2, 2}, []float64{0, 1, 0, 1}),
				LatB: dense([]int{2, 2}, []float64{0, 0, 1, 1}),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		err := tt.grid.Validate()
		if tt.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
	}
}

// TestGridEqual verifies grid identity detection used by the remap planner.
func TestGridEqual(t *testing.T) {
	a := &Grid{Name: "a", Lon: dense1D(0, 1, 2), Lat: dense1D(0, 1)}
	b := &Grid{Name: "b", Lon: dense1D(0, 1, 2), Lat: dense1D(0, 1)}
	c := &Grid{Name: "c", Lon: dense1D(0, 1, 3), Lat: dense1D(0, 1)}

	if !a.Equal(b) {
		t.Errorf("grids with identical coordinates must compare equal")
	}
	if a.Equal(c) {
		t.Errorf("grids with different coordinates must not compare equal")
	}
}

// TestCenters2D expands rectilinear axes to full coordinate planes.
func TestCenters2D(t *testing.T) {
	g := &Grid{Name: "g", Lon: dense1D(10, 20, 30), Lat: dense1D(-5, 5)}
	lon2, lat2 := g.Centers2D()

	if lon2.Shape[0] != 2 || lon2.Shape[1] != 3 {
		t.Fatalf("expected shape [2 3], got %v", lon2.Shape)
	}
	if lon2.Get(1, 2) != 30 {
		t.Errorf("lon2[1,2]: expected 30, got %v", lon2.Get(1, 2))
	}
	if lat2.Get(1, 0) != 5 {
		t.Errorf("lat2[1,0]: expected 5, got %v", lat2.Get(1, 0))
	}
}

// TestEnsureAscending flips a descending latitude axis and its data rows.
func TestEnsureAscending(t *testing.T) {
	data := dense([]int{1, 2, 2}, []float64{
		1, 2, // lat 10 row
		3, 4, // lat 0 row
	})
	d := &Dataset{
		Name: "obs",
		Kind: Observation,
		Grid: &Grid{Name: "g", Lon: dense1D(0, 1), Lat: dense1D(10, 0)},
		Var: &DataArray{
			Name: "pr",
			Time: []time.Time{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
			Data: data,
		},
	}

	EnsureAscending(d)

	if d.Grid.Lat.Elements[0] != 0 || d.Grid.Lat.Elements[1] != 10 {
		t.Fatalf("latitude not ascending after reindex: %v", d.Grid.Lat.Elements)
	}
	want := []float64{3, 4, 1, 2}
	for i, w := range want {
		if d.Var.Data.Elements[i] != w {
			t.Errorf("data[%d]: expected %v, got %v", i, w, d.Var.Data.Elements[i])
		}
	}
}

// TestDeaccumulate verifies time differencing for accumulated variables.
func TestDeaccumulate(t *testing.T) {
	times := []time.Time{
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 2, 0, 0, 0, time.UTC),
	}
	a := &DataArray{
		Name: "pr",
		Time: times,
		Data: dense([]int{3, 1, 1}, []float64{1, 3, 6}),
	}

	out := a.Deaccumulate()

	if nt, _, _ := out.Dims(); nt != 2 {
		t.Fatalf("expected 2 time steps, got %d", nt)
	}
	if out.Data.Elements[0] != 2 || out.Data.Elements[1] != 3 {
		t.Errorf("expected diffs [2 3], got %v", out.Data.Elements)
	}
	if !out.Time[0].Equal(times[1]) {
		t.Errorf("expected time axis to start at second step")
	}
}

// TestResolveRemapTarget covers the three-way target classification.
func TestResolveRemapTarget(t *testing.T) {
	models := []string{"RCA4", "HCLIM"}
	obs := []string{"ERA5"}

	tgt, err := ResolveRemapTarget("", models, obs)
	if err != nil || !tgt.IsNoRemap() {
		t.Fatalf("empty name: expected native grids, got %v (%v)", tgt, err)
	}

	tgt, err = ResolveRemapTarget("ERA5", models, obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := tgt.Observation(); !ok || name != "ERA5" {
		t.Errorf("expected observation target ERA5, got %v", tgt)
	}

	tgt, err = ResolveRemapTarget("RCA4", models, obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := tgt.Model(); !ok || name != "RCA4" {
		t.Errorf("expected model target RCA4, got %v", tgt)
	}

	if _, err = ResolveRemapTarget("GFS", models, obs); err == nil {
		t.Errorf("unknown target: expected error")
	}
}

// TestChunkPlanCounts checks block-count arithmetic.
func TestChunkPlanCounts(t *testing.T) {
	p := ChunkPlan{Time: 10, Y: 50, X: 50}
	if n := p.TimeBlocks(95); n != 10 {
		t.Errorf("TimeBlocks(95): expected 10, got %d", n)
	}
	if n := p.SpaceBlocks(100, 100); n != 4 {
		t.Errorf("SpaceBlocks(100,100): expected 4, got %d", n)
	}
	if n := (ChunkPlan{}).TimeBlocks(100); n != 1 {
		t.Errorf("zero plan: expected one block, got %d", n)
	}
}

// TestIsMissing distinguishes NaN from zero: the two must never be conflated.
func TestIsMissing(t *testing.T) {
	if IsMissing(0) {
		t.Errorf("zero is a value, not missing data")
	}
	if !IsMissing(math.NaN()) {
		t.Errorf("NaN marks missing data")
	}
}

package regrid

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"

	"go.climsuite.io/gridval/internal/domain"
)

func rectGrid(name string, lons, lats []float64) *domain.Grid {
	lon := sparse.ZerosDense(len(lons))
	copy(lon.Elements, lons)
	lat := sparse.ZerosDense(len(lats))
	copy(lat.Elements, lats)
	return &domain.Grid{Name: name, Lon: lon, Lat: lat}
}

func series(vals []float64, ny, nx int) *domain.DataArray {
	nt := len(vals) / (ny * nx)
	d := sparse.ZerosDense(nt, ny, nx)
	copy(d.Elements, vals)
	times := make([]time.Time, nt)
	for i := range times {
		times[i] = time.Date(2000, 1, 1, i, 0, 0, 0, time.UTC)
	}
	return &domain.DataArray{Name: "tas", Units: "K", Time: times, Data: d}
}

// TestBilinear_Identity regrids a dataset onto its own grid; values must be
// reproduced exactly.
func TestBilinear_Identity(t *testing.T) {
	g := rectGrid("native", []float64{0, 1, 2, 3}, []float64{10, 11, 12})
	m, err := Build(g, g, Bilinear)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	in := series([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}, 3, 4)
	out, err := m.Apply(in, g, 2)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	for i, v := range in.Data.Elements {
		if out.Data.Elements[i] != v {
			t.Fatalf("identity regrid changed value at %d: %v -> %v", i, v, out.Data.Elements[i])
		}
	}
	if out.Name != "tas" || out.Units != "K" {
		t.Errorf("metadata not preserved: %q %q", out.Name, out.Units)
	}
}

// TestBilinear_Midpoint interpolates a plane field at cell midpoints.
func TestBilinear_Midpoint(t *testing.T) {
	src := rectGrid("src", []float64{0, 1}, []float64{0, 1})
	dst := rectGrid("dst", []float64{0.5}, []float64{0.5})

	m, err := Build(src, dst, Bilinear)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := m.Apply(series([]float64{1, 3, 5, 7}, 2, 2), dst, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := out.Data.Elements[0]; math.Abs(got-4.0) > 1e-12 {
		t.Errorf("midpoint: expected 4.0, got %v", got)
	}
}

// TestBilinear_OutsideSource yields NaN, not zero, for target cells with no
// surrounding source points.
func TestBilinear_OutsideSource(t *testing.T) {
	src := rectGrid("src", []float64{0, 1}, []float64{0, 1})
	dst := rectGrid("dst", []float64{0.5, 50}, []float64{0.5})

	m, err := Build(src, dst, Bilinear)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.NaNRows() != 1 {
		t.Fatalf("expected 1 NaN row, got %d", m.NaNRows())
	}
	out, err := m.Apply(series([]float64{1, 1, 1, 1}, 2, 2), dst, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !math.IsNaN(out.Data.Elements[1]) {
		t.Errorf("outside-source cell: expected NaN, got %v", out.Data.Elements[1])
	}
	if out.Data.Elements[0] != 1 {
		t.Errorf("inside cell: expected 1, got %v", out.Data.Elements[0])
	}
}

// TestBilinear_CurvilinearSourceRejected surfaces a clear diagnostic when
// the grid convention does not fit the method.
func TestBilinear_CurvilinearSourceRejected(t *testing.T) {
	lon, lat := centers2D(3, 3, 0.5, 0.5, 1.0)
	src := &domain.Grid{Name: "curv", Lon: lon, Lat: lat}
	dst := rectGrid("dst", []float64{1}, []float64{1})

	if _, err := Build(src, dst, Bilinear); err == nil {
		t.Fatalf("curvilinear bilinear source: expected error")
	}
}

// TestConservative_UniformField keeps a constant field constant wherever the
// target is fully covered, and weights must sum to one there.
func TestConservative_UniformField(t *testing.T) {
	src := rectGrid("src", []float64{0.5, 1.5, 2.5, 3.5}, []float64{0.5, 1.5, 2.5, 3.5})
	dst := rectGrid("dst", []float64{1.0, 2.0, 3.0}, []float64{1.0, 2.0, 3.0})

	m, err := Build(src, dst, Conservative)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = 7.5
	}
	out, err := m.Apply(series(vals, 4, 4), dst, 2)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for i, v := range out.Data.Elements {
		if math.Abs(v-7.5) > 1e-9 {
			t.Errorf("cell %d: expected 7.5, got %v", i, v)
		}
	}
}

// TestConservative_NoOverlapYieldsNaN checks the zero-weight row fix: cells
// without any source overlap must be NaN rather than silently zero. The
// target's first column sits fully inside the source extent, the last column
// far outside it.
func TestConservative_NoOverlapYieldsNaN(t *testing.T) {
	src := rectGrid("src", []float64{0.5, 1.5}, []float64{0.5, 1.5})
	dst := rectGrid("dst", []float64{0.8, 1.2, 500.0}, []float64{0.8, 1.2})

	m, err := Build(src, dst, Conservative)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.NaNRows() != 2 {
		t.Fatalf("expected 2 NaN rows for the uncovered column, got %d", m.NaNRows())
	}
	out, err := m.Apply(series([]float64{2, 2, 2, 2}, 2, 2), dst, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, i := range []int{0, 3} {
		if math.Abs(out.Data.Elements[i]-2) > 1e-9 {
			t.Errorf("covered cell %d: expected 2, got %v", i, out.Data.Elements[i])
		}
	}
	for _, i := range []int{2, 5} {
		if !math.IsNaN(out.Data.Elements[i]) {
			t.Errorf("uncovered cell %d: expected NaN, got %v", i, out.Data.Elements[i])
		}
	}
}

// TestNearest_PicksClosestCenter checks nearest-neighbor assignment on a
// rectilinear source.
func TestNearest_PicksClosestCenter(t *testing.T) {
	src := rectGrid("src", []float64{0, 10}, []float64{0, 10})
	dst := rectGrid("dst", []float64{1, 9}, []float64{2})

	m, err := Build(src, dst, NearestNeighbor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := m.Apply(series([]float64{
		1, 2,
		3, 4,
	}, 2, 2), dst, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Data.Elements[0] != 1 {
		t.Errorf("near (1,2): expected source value 1, got %v", out.Data.Elements[0])
	}
	if out.Data.Elements[1] != 2 {
		t.Errorf("near (9,2): expected source value 2, got %v", out.Data.Elements[1])
	}
}

// TestApply_HonorsTimeChunks: a chunk plan changes only the block grouping,
// never the values or their order.
func TestApply_HonorsTimeChunks(t *testing.T) {
	g := rectGrid("native", []float64{0, 1, 2}, []float64{0, 1})
	m, err := Build(g, g, Bilinear)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	vals := make([]float64, 5*2*3)
	for i := range vals {
		vals[i] = float64(i)
	}
	plain := series(vals, 2, 3)
	planned := series(vals, 2, 3)
	planned.Chunks = domain.ChunkPlan{Time: 2}

	want, err := m.Apply(plain, g, 2)
	if err != nil {
		t.Fatalf("apply unplanned: %v", err)
	}
	got, err := m.Apply(planned, g, 2)
	if err != nil {
		t.Fatalf("apply planned: %v", err)
	}
	for i := range want.Data.Elements {
		if got.Data.Elements[i] != want.Data.Elements[i] {
			t.Fatalf("blocked apply diverged at %d: %v vs %v",
				i, got.Data.Elements[i], want.Data.Elements[i])
		}
	}
}

// TestApply_ShapeMismatch rejects data planes that do not match the matrix.
func TestApply_ShapeMismatch(t *testing.T) {
	src := rectGrid("src", []float64{0, 1}, []float64{0, 1})
	m, err := Build(src, src, Bilinear)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := m.Apply(series(make([]float64, 9), 3, 3), src, 1); err == nil {
		t.Errorf("expected shape mismatch error")
	}
}

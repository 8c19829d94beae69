package regrid

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"go.climsuite.io/gridval/internal/domain"
)

// Build constructs the sparse regridding matrix for a source/target grid
// pair and method. The matrix is built once per (source, target, method)
// triple; callers cache it keyed on the grid names when grids repeat.
func Build(src, dst *domain.Grid, method Method) (*Matrix, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("build %s regridder: source: %w", method, err)
	}
	if err := dst.Validate(); err != nil {
		return nil, fmt.Errorf("build %s regridder: target: %w", method, err)
	}

	switch method {
	case Bilinear:
		return buildBilinear(src, dst)
	case Conservative:
		return buildConservative(src, dst)
	case NearestNeighbor:
		return buildNearest(src, dst)
	default:
		return nil, fmt.Errorf("build regridder %s -> %s: unsupported method %s", src.Name, dst.Name, method)
	}
}

// buildBilinear interpolates each target center from the four surrounding
// source centers. The source grid must be rectilinear; a curvilinear source
// has no axis-separable cell lookup and is rejected with a clear diagnostic.
func buildBilinear(src, dst *domain.Grid) (*Matrix, error) {
	if !src.Rectilinear() {
		return nil, fmt.Errorf(
			"build bilinear regridder %s -> %s: source grid is curvilinear (%v); bilinear needs 1D source axes, use conservative or nearest",
			src.Name, dst.Name, src.Lon.Shape)
	}
	xs := src.Lon.Elements
	ys := src.Lat.Elements
	sNy, sNx := src.Shape()
	dNy, dNx := dst.Shape()

	dLon2, dLat2 := dst.Centers2D()
	b := newMatrixBuilder(Bilinear, sNy, sNx, dNy, dNx)

	for r := 0; r < dNy*dNx; r++ {
		x := dLon2.Elements[r]
		y := dLat2.Elements[r]

		i, okX := cellIndex(xs, x)
		j, okY := cellIndex(ys, y)
		if !okX || !okY {
			// Target center outside the source grid: NaN row.
			b.addRow(nil, nil)
			continue
		}

		t := (x - xs[i]) / (xs[i+1] - xs[i])
		u := (y - ys[j]) / (ys[j+1] - ys[j])
		b.addRow(
			[]int{j*sNx + i, j*sNx + i + 1, (j+1)*sNx + i, (j+1)*sNx + i + 1},
			[]float64{(1 - t) * (1 - u), t * (1 - u), (1 - t) * u, t * u},
		)
	}
	return b.finish()
}

// cellIndex locates the interval [axis[i], axis[i+1]] containing v on an
// ascending 1D axis.
func cellIndex(axis []float64, v float64) (int, bool) {
	if len(axis) < 2 || v < axis[0] || v > axis[len(axis)-1] {
		return 0, false
	}
	i := sort.SearchFloat64s(axis, v)
	if i > 0 {
		i--
	}
	if i >= len(axis)-1 {
		i = len(axis) - 2
	}
	return i, true
}

// srcCell is a source grid cell stored in the spatial index for
// conservative weight building.
type srcCell struct {
	geom.Polygonal
	col  int
	area float64
}

// buildConservative distributes each target cell's value over the source
// cells it overlaps, weighted by fractional overlap area. Both grids need
// cell-boundary arrays; missing bounds are derived from the centers first.
func buildConservative(src, dst *domain.Grid) (*Matrix, error) {
	if err := EnsureBounds(src); err != nil {
		return nil, fmt.Errorf("build conservative regridder %s -> %s: %w", src.Name, dst.Name, err)
	}
	if err := EnsureBounds(dst); err != nil {
		return nil, fmt.Errorf("build conservative regridder %s -> %s: %w", src.Name, dst.Name, err)
	}

	sNy, sNx := src.Shape()
	dNy, dNx := dst.Shape()

	index := rtree.NewTree(25, 50)
	for j := 0; j < sNy; j++ {
		for i := 0; i < sNx; i++ {
			p := cellPolygon(src, j, i)
			index.Insert(&srcCell{Polygonal: p, col: j*sNx + i, area: p.Area()})
		}
	}

	b := newMatrixBuilder(Conservative, sNy, sNx, dNy, dNx)
	for j := 0; j < dNy; j++ {
		for i := 0; i < dNx; i++ {
			tp := cellPolygon(dst, j, i)
			tArea := tp.Area()
			if tArea == 0 {
				b.addRow(nil, nil)
				continue
			}
			var cols []int
			var weights []float64
			for _, cI := range index.SearchIntersect(tp.Bounds()) {
				c := cI.(*srcCell)
				isect := tp.Intersection(c.Polygonal)
				if isect == nil {
					continue
				}
				if a := isect.Area(); a > 0 {
					cols = append(cols, c.col)
					weights = append(weights, a/tArea)
				}
			}
			b.addRow(cols, weights)
		}
	}
	return b.finish()
}

// cellPolygon builds the boundary polygon of cell (j, i) from the grid's
// corner arrays.
func cellPolygon(g *domain.Grid, j, i int) geom.Polygon {
	return geom.Polygon{{
		{X: g.LonB.Get(j, i), Y: g.LatB.Get(j, i)},
		{X: g.LonB.Get(j, i+1), Y: g.LatB.Get(j, i+1)},
		{X: g.LonB.Get(j+1, i+1), Y: g.LatB.Get(j+1, i+1)},
		{X: g.LonB.Get(j+1, i), Y: g.LatB.Get(j+1, i)},
	}}
}

// buildNearest assigns each target cell the value of the closest source
// center. Rectilinear sources use per-axis bisection; curvilinear sources
// fall back to a scan over all source centers.
func buildNearest(src, dst *domain.Grid) (*Matrix, error) {
	sNy, sNx := src.Shape()
	dNy, dNx := dst.Shape()
	dLon2, dLat2 := dst.Centers2D()

	b := newMatrixBuilder(NearestNeighbor, sNy, sNx, dNy, dNx)
	if src.Rectilinear() {
		xs := src.Lon.Elements
		ys := src.Lat.Elements
		for r := 0; r < dNy*dNx; r++ {
			i := nearestOnAxis(xs, dLon2.Elements[r])
			j := nearestOnAxis(ys, dLat2.Elements[r])
			b.addRow([]int{j*sNx + i}, []float64{1})
		}
		return b.finish()
	}

	sLon2, sLat2 := src.Centers2D()
	for r := 0; r < dNy*dNx; r++ {
		x, y := dLon2.Elements[r], dLat2.Elements[r]
		best, bestD := 0, -1.0
		for c := 0; c < sNy*sNx; c++ {
			dx := sLon2.Elements[c] - x
			dy := sLat2.Elements[c] - y
			d := dx*dx + dy*dy
			if bestD < 0 || d < bestD {
				best, bestD = c, d
			}
		}
		b.addRow([]int{best}, []float64{1})
	}
	return b.finish()
}

// nearestOnAxis returns the index of the axis value closest to v.
func nearestOnAxis(axis []float64, v float64) int {
	i := sort.SearchFloat64s(axis, v)
	if i == 0 {
		return 0
	}
	if i >= len(axis) {
		return len(axis) - 1
	}
	if v-axis[i-1] <= axis[i]-v {
		return i - 1
	}
	return i
}

// Package domain defines the labeled gridded data structures shared by the
// validation pipeline: grids, time-indexed data arrays, participant datasets
// and the remapping target variant.
package domain

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Grid is a pair of longitude/latitude coordinate arrays, either 1D
// (rectilinear) or 2D (curvilinear), optionally carrying cell-boundary
// arrays with one extra vertex per spatial dimension.
//
// A Grid is derived once per dataset at load time and treated as read-only
// afterwards, except for EnsureAscending which reindexes descending axes.
type Grid struct {
	Name string // grid label used in output file names, e.g. "grid_ERA5"

	Lon *sparse.DenseArray // 1D (nx) or 2D (ny, nx)
	Lat *sparse.DenseArray // 1D (ny) or 2D (ny, nx)

	// Cell-boundary arrays for conservative regridding. When present they
	// have shape (ny+1, nx+1). Nil when the source data carries no bounds.
	LonB *sparse.DenseArray
	LatB *sparse.DenseArray
}

// Rectilinear reports whether the grid is described by 1D coordinate axes.
func (g *Grid) Rectilinear() bool {
	return len(g.Lon.Shape) == 1
}

// Shape returns the spatial dimensions (ny, nx) of the grid.
func (g *Grid) Shape() (ny, nx int) {
	if g.Rectilinear() {
		return g.Lat.Shape[0], g.Lon.Shape[0]
	}
	return g.Lon.Shape[0], g.Lon.Shape[1]
}

// HasBounds reports whether cell-boundary arrays are present.
func (g *Grid) HasBounds() bool {
	return g.LonB != nil && g.LatB != nil
}

// Validate checks the coordinate array invariants: matching lon/lat shapes
// and, when bounds are present, one extra vertex per spatial dimension.
func (g *Grid) Validate() error {
	if g.Lon == nil || g.Lat == nil {
		return fmt.Errorf("grid %s: missing coordinate arrays", g.Name)
	}
	switch len(g.Lon.Shape) {
	case 1:
		if len(g.Lat.Shape) != 1 {
			return fmt.Errorf("grid %s: lon is 1D but lat is %dD", g.Name, len(g.Lat.Shape))
		}
	case 2:
		if len(g.Lat.Shape) != 2 || g.Lat.Shape[0] != g.Lon.Shape[0] || g.Lat.Shape[1] != g.Lon.Shape[1] {
			return fmt.Errorf("grid %s: lon shape %v does not match lat shape %v",
				g.Name, g.Lon.Shape, g.Lat.Shape)
		}
	default:
		return fmt.Errorf("grid %s: coordinates must be 1D or 2D, got %dD", g.Name, len(g.Lon.Shape))
	}
	if g.HasBounds() {
		ny, nx := g.Shape()
		if len(g.LonB.Shape) != 2 || g.LonB.Shape[0] != ny+1 || g.LonB.Shape[1] != nx+1 {
			return fmt.Errorf("grid %s: boundary shape %v, want [%d %d]",
				g.Name, g.LonB.Shape, ny+1, nx+1)
		}
		if len(g.LatB.Shape) != 2 || g.LatB.Shape[0] != ny+1 || g.LatB.Shape[1] != nx+1 {
			return fmt.Errorf("grid %s: boundary shape %v, want [%d %d]",
				g.Name, g.LatB.Shape, ny+1, nx+1)
		}
	}
	return nil
}

// Equal reports whether two grids have identical coordinate arrays. Datasets
// on equal grids need no regridding between each other.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	return denseEqual(g.Lon, o.Lon) && denseEqual(g.Lat, o.Lat)
}

func denseEqual(a, b *sparse.DenseArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i, n := range a.Shape {
		if b.Shape[i] != n {
			return false
		}
	}
	for i, v := range a.Elements {
		if b.Elements[i] != v {
			return false
		}
	}
	return true
}

// Centers2D returns the cell-center coordinates expanded to 2D arrays of
// shape (ny, nx), regardless of whether the grid is rectilinear.
func (g *Grid) Centers2D() (lon2, lat2 *sparse.DenseArray) {
	if !g.Rectilinear() {
		return g.Lon, g.Lat
	}
	ny, nx := g.Shape()
	lon2 = sparse.ZerosDense(ny, nx)
	lat2 = sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lon2.Elements[j*nx+i] = g.Lon.Elements[i]
			lat2.Elements[j*nx+i] = g.Lat.Elements[j]
		}
	}
	return lon2, lat2
}

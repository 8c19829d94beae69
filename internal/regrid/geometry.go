// Package regrid builds sparse interpolation matrices between lon/lat grids
// and applies them blockwise to time-indexed data. It also provides the grid
// geometry helpers (cell corners, domain rings) that conservative remapping
// and overview maps need.
package regrid

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"

	"go.climsuite.io/gridval/internal/domain"
)

// CellCorners estimates cell-boundary vertices for a grid given its 2D
// cell-center coordinates of shape (ny, nx). The result has shape
// (ny+1, nx+1): interior corners are midpoints of the four surrounding
// centers, edge corners are linearly extrapolated since no center lies on
// the boundary.
//
// Degenerate input (duplicate or non-monotonic centers along the relevant
// axis) yields an error; producing silently corrupt geometry would poison
// every conservative weight downstream.
func CellCorners(lon, lat *sparse.DenseArray) (lonB, latB *sparse.DenseArray, err error) {
	if len(lon.Shape) != 2 || len(lat.Shape) != 2 {
		return nil, nil, fmt.Errorf("cell corners need 2D center arrays, got lon %v lat %v", lon.Shape, lat.Shape)
	}
	ny, nx := lon.Shape[0], lon.Shape[1]
	if ny < 2 || nx < 2 {
		return nil, nil, fmt.Errorf("cell corners need at least a 2x2 grid, got %dx%d", ny, nx)
	}
	if err := checkMonotonic(lon, lat); err != nil {
		return nil, nil, err
	}

	lonB, err = interpCorners(lon)
	if err != nil {
		return nil, nil, fmt.Errorf("longitude corners: %w", err)
	}
	latB, err = interpCorners(lat)
	if err != nil {
		return nil, nil, fmt.Errorf("latitude corners: %w", err)
	}
	return lonB, latB, nil
}

// interpCorners does the axis-wise midpoint interpolation with linear edge
// extrapolation, first along x then along y.
func interpCorners(c *sparse.DenseArray) (*sparse.DenseArray, error) {
	ny, nx := c.Shape[0], c.Shape[1]

	// Midpoints along x: (ny, nx+1).
	mx := sparse.ZerosDense(ny, nx+1)
	for j := 0; j < ny; j++ {
		row := c.Elements[j*nx : (j+1)*nx]
		out := mx.Elements[j*(nx+1) : (j+1)*(nx+1)]
		out[0] = row[0] - (row[1]-row[0])/2
		for i := 1; i < nx; i++ {
			out[i] = (row[i-1] + row[i]) / 2
		}
		out[nx] = row[nx-1] + (row[nx-1]-row[nx-2])/2
	}

	// Midpoints along y: (ny+1, nx+1).
	out := sparse.ZerosDense(ny+1, nx+1)
	for i := 0; i <= nx; i++ {
		out.Elements[i] = mx.Elements[i] - (mx.Elements[(nx+1)+i]-mx.Elements[i])/2
		for j := 1; j < ny; j++ {
			out.Elements[j*(nx+1)+i] = (mx.Elements[(j-1)*(nx+1)+i] + mx.Elements[j*(nx+1)+i]) / 2
		}
		out.Elements[ny*(nx+1)+i] = mx.Elements[(ny-1)*(nx+1)+i] +
			(mx.Elements[(ny-1)*(nx+1)+i]-mx.Elements[(ny-2)*(nx+1)+i])/2
	}
	return out, nil
}

// checkMonotonic requires longitude to move strictly in one direction along
// x within each row, and latitude along y within each column.
func checkMonotonic(lon, lat *sparse.DenseArray) error {
	ny, nx := lon.Shape[0], lon.Shape[1]
	for j := 0; j < ny; j++ {
		sign := 0.0
		for i := 1; i < nx; i++ {
			d := lon.Get(j, i) - lon.Get(j, i-1)
			if d == 0 {
				return fmt.Errorf("degenerate grid: duplicate longitude at row %d col %d", j, i)
			}
			if sign == 0 {
				sign = d
			} else if sign*d < 0 {
				return fmt.Errorf("degenerate grid: non-monotonic longitude at row %d col %d", j, i)
			}
		}
	}
	for i := 0; i < nx; i++ {
		sign := 0.0
		for j := 1; j < ny; j++ {
			d := lat.Get(j, i) - lat.Get(j-1, i)
			if d == 0 {
				return fmt.Errorf("degenerate grid: duplicate latitude at row %d col %d", j, i)
			}
			if sign == 0 {
				sign = d
			} else if sign*d < 0 {
				return fmt.Errorf("degenerate grid: non-monotonic latitude at row %d col %d", j, i)
			}
		}
	}
	return nil
}

// EnsureBounds fills in the grid's cell-boundary arrays from its centers if
// they are absent. Conservative regridding requires bounds on both grids.
func EnsureBounds(g *domain.Grid) error {
	if g.HasBounds() {
		return nil
	}
	lon2, lat2 := g.Centers2D()
	lonB, latB, err := CellCorners(lon2, lat2)
	if err != nil {
		return fmt.Errorf("grid %s: %w", g.Name, err)
	}
	g.LonB, g.LatB = lonB, latB
	return nil
}

// DomainRing traces the ordered boundary of the grid rectangle inset by
// margin grid points from each edge, returning (lon, lat) vertices. Used for
// overview-map footprints, not for remapping weights.
func DomainRing(lon, lat *sparse.DenseArray, margin int) ([]geom.Point, error) {
	if len(lon.Shape) != 2 {
		return nil, fmt.Errorf("domain ring needs 2D center arrays, got %v", lon.Shape)
	}
	ny, nx := lon.Shape[0], lon.Shape[1]
	if margin < 0 || 2*margin >= ny || 2*margin >= nx {
		return nil, fmt.Errorf("margin %d leaves no interior for a %dx%d grid", margin, ny, nx)
	}

	m := margin
	var ring []geom.Point
	// Southern edge, west to east.
	for i := m; i < nx-m; i++ {
		ring = append(ring, geom.Point{X: lon.Get(m, i), Y: lat.Get(m, i)})
	}
	// Eastern edge, skipping the shared corner.
	for j := m + 1; j < ny-m; j++ {
		ring = append(ring, geom.Point{X: lon.Get(j, nx-1-m), Y: lat.Get(j, nx-1-m)})
	}
	// Northern edge, east to west.
	for i := nx - m - 2; i >= m; i-- {
		ring = append(ring, geom.Point{X: lon.Get(ny-1-m, i), Y: lat.Get(ny-1-m, i)})
	}
	// Western edge, north to south.
	for j := ny - m - 2; j > m; j-- {
		ring = append(ring, geom.Point{X: lon.Get(j, m), Y: lat.Get(j, m)})
	}
	return ring, nil
}

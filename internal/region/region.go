// Package region rasterizes named region boundaries onto data grids and
// applies the resulting masks to time-indexed arrays.
package region

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"

	"go.climsuite.io/gridval/internal/domain"
)

// Provider resolves a region name to its boundary polygon. Implementations
// live with the adapters; the masker only owns the rasterization.
type Provider interface {
	Boundary(name string) (geom.Polygon, error)
}

// Mask is a boolean spatial mask over a grid, true where the region contains
// the cell center. It is derived per (grid, region) pair and recomputed
// whenever the grid changes.
type Mask struct {
	Region string
	Ny, Nx int
	Inside []bool // flattened (ny, nx)
}

// Compute rasterizes the named region onto the grid by point-in-polygon
// tests against each cell center. Cells on the boundary count as inside.
func Compute(g *domain.Grid, name string, p Provider) (*Mask, error) {
	poly, err := p.Boundary(name)
	if err != nil {
		return nil, fmt.Errorf("mask region %q on grid %s: %w", name, g.Name, err)
	}
	ny, nx := g.Shape()
	lon2, lat2 := g.Centers2D()

	m := &Mask{Region: name, Ny: ny, Nx: nx, Inside: make([]bool, ny*nx)}
	for r := range m.Inside {
		pt := geom.Point{X: lon2.Elements[r], Y: lat2.Elements[r]}
		if w := pt.Within(poly); w == geom.Inside || w == geom.OnEdge {
			m.Inside[r] = true
		}
	}
	return m, nil
}

// Count returns the number of cells inside the region.
func (m *Mask) Count() int {
	n := 0
	for _, in := range m.Inside {
		if in {
			n++
		}
	}
	return n
}

// Box returns the tight index bounding box [j0,j1]x[i0,i1] of the masked
// cells. ok is false when the mask is empty.
func (m *Mask) Box() (j0, j1, i0, i1 int, ok bool) {
	j0, i0 = m.Ny, m.Nx
	j1, i1 = -1, -1
	for j := 0; j < m.Ny; j++ {
		for i := 0; i < m.Nx; i++ {
			if !m.Inside[j*m.Nx+i] {
				continue
			}
			if j < j0 {
				j0 = j
			}
			if j > j1 {
				j1 = j
			}
			if i < i0 {
				i0 = i
			}
			if i > i1 {
				i1 = i
			}
		}
	}
	return j0, j1, i0, i1, j1 >= 0
}

// Apply returns a copy of the array with cells outside the region set to
// NaN. The full-grid shape is kept so that coordinate labeling survives; the
// single mask plane is broadcast across every time step rather than
// replicated.
func (m *Mask) Apply(a *domain.DataArray) (*domain.DataArray, error) {
	nt, ny, nx := a.Dims()
	if ny != m.Ny || nx != m.Nx {
		return nil, fmt.Errorf("mask %s: data plane %dx%d does not match mask %dx%d",
			m.Region, ny, nx, m.Ny, m.Nx)
	}
	out := a.CopyMeta(ny, nx)
	plane := ny * nx
	nan := math.NaN()
	for t := 0; t < nt; t++ {
		src := a.Data.Elements[t*plane : (t+1)*plane]
		dst := out.Data.Elements[t*plane : (t+1)*plane]
		for r, in := range m.Inside {
			if in {
				dst[r] = src[r]
			} else {
				dst[r] = nan
			}
		}
	}
	return out, nil
}

// Crop applies the mask and trims the array and grid to the bounding box of
// the region. Cells inside the box but outside the polygon stay NaN.
func (m *Mask) Crop(a *domain.DataArray, g *domain.Grid) (*domain.DataArray, *domain.Grid, error) {
	masked, err := m.Apply(a)
	if err != nil {
		return nil, nil, err
	}
	j0, j1, i0, i1, ok := m.Box()
	if !ok {
		return nil, nil, fmt.Errorf("mask %s: region covers no cell on grid %s", m.Region, g.Name)
	}
	nt, _, nx := a.Dims()
	cNy, cNx := j1-j0+1, i1-i0+1

	out := a.CopyMeta(cNy, cNx)
	for t := 0; t < nt; t++ {
		for j := 0; j < cNy; j++ {
			srcOff := t*m.Ny*m.Nx + (j0+j)*nx + i0
			dstOff := t*cNy*cNx + j*cNx
			copy(out.Data.Elements[dstOff:dstOff+cNx], masked.Data.Elements[srcOff:srcOff+cNx])
		}
	}
	cg, err := cropGrid(g, j0, j1, i0, i1)
	if err != nil {
		return nil, nil, fmt.Errorf("mask %s: %w", m.Region, err)
	}
	return out, cg, nil
}

func cropGrid(g *domain.Grid, j0, j1, i0, i1 int) (*domain.Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := &domain.Grid{Name: g.Name}
	if g.Rectilinear() {
		out.Lon = slice1D(g.Lon, i0, i1)
		out.Lat = slice1D(g.Lat, j0, j1)
		return out, nil
	}
	out.Lon = slice2D(g.Lon, j0, j1, i0, i1)
	out.Lat = slice2D(g.Lat, j0, j1, i0, i1)
	return out, nil
}

func slice1D(a *sparse.DenseArray, lo, hi int) *sparse.DenseArray {
	out := sparse.ZerosDense(hi - lo + 1)
	copy(out.Elements, a.Elements[lo:hi+1])
	return out
}

func slice2D(a *sparse.DenseArray, j0, j1, i0, i1 int) *sparse.DenseArray {
	ny, nx := j1-j0+1, i1-i0+1
	out := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		copy(out.Elements[j*nx:(j+1)*nx], a.Elements[(j0+j)*a.Shape[1]+i0:(j0+j)*a.Shape[1]+i1+1])
	}
	return out
}

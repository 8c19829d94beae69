package regrid

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"go.climsuite.io/gridval/internal/domain"
)

// Method selects the interpolation scheme for a regridding matrix.
type Method int

const (
	Bilinear Method = iota
	Conservative
	NearestNeighbor
)

func (m Method) String() string {
	switch m {
	case Bilinear:
		return "bilinear"
	case Conservative:
		return "conservative"
	case NearestNeighbor:
		return "nearest"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a configured method name to a Method. Unknown names are
// rejected at configuration-load time.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "bilinear":
		return Bilinear, nil
	case "conservative":
		return Conservative, nil
	case "nearest", "nearest_s2d":
		return NearestNeighbor, nil
	default:
		return 0, fmt.Errorf("unknown regrid method %q", s)
	}
}

// Matrix is a sparse linear operator in compressed-row form, mapping
// flattened source-grid cells to flattened target-grid cells. Rows without
// entries mark target cells with no valid overlapping source; applying the
// matrix yields NaN there, never a silent zero.
type Matrix struct {
	method   Method
	srcShape [2]int // (ny, nx) of the source grid
	dstShape [2]int // (ny, nx) of the target grid

	rowPtr []int
	colIdx []int
	weight []float64
}

// SrcShape returns the source grid shape (ny, nx).
func (m *Matrix) SrcShape() (int, int) { return m.srcShape[0], m.srcShape[1] }

// DstShape returns the target grid shape (ny, nx).
func (m *Matrix) DstShape() (int, int) { return m.dstShape[0], m.dstShape[1] }

// Method returns the interpolation scheme the matrix was built with.
func (m *Matrix) Method() Method { return m.method }

// NaNRows counts target cells that will produce NaN because no source cell
// contributes to them.
func (m *Matrix) NaNRows() int {
	n := 0
	for r := 0; r < len(m.rowPtr)-1; r++ {
		if m.rowPtr[r] == m.rowPtr[r+1] {
			n++
		}
	}
	return n
}

// matrixBuilder accumulates rows in target-cell order.
type matrixBuilder struct {
	m *Matrix
}

func newMatrixBuilder(method Method, srcNy, srcNx, dstNy, dstNx int) *matrixBuilder {
	return &matrixBuilder{m: &Matrix{
		method:   method,
		srcShape: [2]int{srcNy, srcNx},
		dstShape: [2]int{dstNy, dstNx},
		rowPtr:   make([]int, 1, dstNy*dstNx+1),
	}}
}

// addRow appends the next target row. Zero-total-weight rows are stored
// empty so that Apply emits NaN for them.
func (b *matrixBuilder) addRow(cols []int, weights []float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total != 0 {
		for i, c := range cols {
			if weights[i] != 0 {
				b.m.colIdx = append(b.m.colIdx, c)
				b.m.weight = append(b.m.weight, weights[i])
			}
		}
	}
	b.m.rowPtr = append(b.m.rowPtr, len(b.m.colIdx))
}

func (b *matrixBuilder) finish() (*Matrix, error) {
	wantRows := b.m.dstShape[0] * b.m.dstShape[1]
	if len(b.m.rowPtr)-1 != wantRows {
		return nil, fmt.Errorf("internal: built %d rows, target grid has %d cells",
			len(b.m.rowPtr)-1, wantRows)
	}
	return b.m, nil
}

// mulRow applies one matrix row to a flattened source plane.
func (m *Matrix) mulRow(r int, src []float64) float64 {
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	if lo == hi {
		return math.NaN()
	}
	sum := 0.0
	for k := lo; k < hi; k++ {
		sum += m.weight[k] * src[m.colIdx[k]]
	}
	return sum
}

// Apply regrids a time-major data array onto the target grid. Each time step
// is an independent sparse matrix-vector product over the flattened spatial
// plane. Steps are dispatched to a bounded worker group in blocks of the
// array's time chunk plan (the whole axis when unplanned) and written
// straight into their slot of the output array, so reassembly preserves the
// original time order regardless of completion order.
//
// The result carries the target grid's coordinate layout and the input's
// name, units, attributes and time axis.
func (m *Matrix) Apply(a *domain.DataArray, target *domain.Grid, workers int) (*domain.DataArray, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	nt, ny, nx := a.Dims()
	if ny != m.srcShape[0] || nx != m.srcShape[1] {
		return nil, fmt.Errorf("regrid %s: data plane %dx%d does not match matrix source %dx%d",
			a.Name, ny, nx, m.srcShape[0], m.srcShape[1])
	}
	tNy, tNx := target.Shape()
	if tNy != m.dstShape[0] || tNx != m.dstShape[1] {
		return nil, fmt.Errorf("regrid %s: target grid %s is %dx%d but matrix maps to %dx%d",
			a.Name, target.Name, tNy, tNx, m.dstShape[0], m.dstShape[1])
	}

	out := a.CopyMeta(tNy, tNx)
	srcPlane := ny * nx
	dstPlane := tNy * tNx

	if workers < 1 {
		workers = 1
	}
	block := a.Chunks.Time
	if block < 1 || block > nt {
		block = nt
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for t0 := 0; t0 < nt; t0 += block {
		t0, t1 := t0, min(t0+block, nt)
		g.Go(func() error {
			for t := t0; t < t1; t++ {
				src := a.Data.Elements[t*srcPlane : (t+1)*srcPlane]
				dst := out.Data.Elements[t*dstPlane : (t+1)*dstPlane]
				for r := 0; r < dstPlane; r++ {
					dst[r] = m.mulRow(r, src)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

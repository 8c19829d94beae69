package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
)

// ChunkPlan maps each dimension of a time-indexed spatial array to a block
// size. Blocks are the unit of parallel processing; a plan never changes the
// stored values, only their grouping.
type ChunkPlan struct {
	Time int // block length along time; 0 means one block
	Y    int // block edge along y; 0 means one block
	X    int // block edge along x; 0 means one block
}

// TimeBlocks returns the number of time blocks the plan implies for nt steps.
func (p ChunkPlan) TimeBlocks(nt int) int {
	if p.Time <= 0 || p.Time >= nt {
		return 1
	}
	return (nt + p.Time - 1) / p.Time
}

// SpaceBlocks returns the number of spatial blocks implied for an ny×nx grid.
func (p ChunkPlan) SpaceBlocks(ny, nx int) int {
	by, bx := 1, 1
	if p.Y > 0 && p.Y < ny {
		by = (ny + p.Y - 1) / p.Y
	}
	if p.X > 0 && p.X < nx {
		bx = (nx + p.X - 1) / p.X
	}
	return by * bx
}

// DataArray is a time-indexed spatial array of one physical variable. The
// time dimension is always the leading dimension; the two spatial dimensions
// follow ("y" then "x").
type DataArray struct {
	Name  string
	Units string
	Attrs map[string]string

	Time []time.Time
	Data *sparse.DenseArray // shape (nt, ny, nx)

	Chunks ChunkPlan
}

// Dims returns (nt, ny, nx).
func (a *DataArray) Dims() (nt, ny, nx int) {
	return a.Data.Shape[0], a.Data.Shape[1], a.Data.Shape[2]
}

// Validate checks the leading-time invariant and coordinate consistency.
func (a *DataArray) Validate() error {
	if a.Data == nil {
		return fmt.Errorf("data array %s: no data", a.Name)
	}
	if len(a.Data.Shape) != 3 {
		return fmt.Errorf("data array %s: want 3 dims (time, y, x), got %d", a.Name, len(a.Data.Shape))
	}
	if len(a.Time) != a.Data.Shape[0] {
		return fmt.Errorf("data array %s: %d time steps but leading dim is %d",
			a.Name, len(a.Time), a.Data.Shape[0])
	}
	return nil
}

// CopyMeta returns an empty DataArray carrying over name, units, attributes
// and time axis, with freshly allocated data of the given spatial shape.
func (a *DataArray) CopyMeta(ny, nx int) *DataArray {
	attrs := make(map[string]string, len(a.Attrs))
	for k, v := range a.Attrs {
		attrs[k] = v
	}
	t := make([]time.Time, len(a.Time))
	copy(t, a.Time)
	return &DataArray{
		Name:   a.Name,
		Units:  a.Units,
		Attrs:  attrs,
		Time:   t,
		Data:   sparse.ZerosDense(len(a.Time), ny, nx),
		Chunks: a.Chunks,
	}
}

// Scale multiplies every value in place by the calibration factor. Applied
// once at load time, before any concurrent consumption.
func (a *DataArray) Scale(factor float64) {
	for i, v := range a.Data.Elements {
		a.Data.Elements[i] = v * factor
	}
}

// Deaccumulate replaces the series with consecutive time differences,
// dropping the first step. Used for accumulated variables such as
// precipitation sums.
func (a *DataArray) Deaccumulate() *DataArray {
	nt, ny, nx := a.Dims()
	if nt < 2 {
		return a
	}
	out := a.CopyMeta(ny, nx)
	out.Time = out.Time[1:]
	out.Data = sparse.ZerosDense(nt-1, ny, nx)
	plane := ny * nx
	for t := 1; t < nt; t++ {
		for i := 0; i < plane; i++ {
			out.Data.Elements[(t-1)*plane+i] = a.Data.Elements[t*plane+i] - a.Data.Elements[(t-1)*plane+i]
		}
	}
	return out
}

// DropLastTime trims the trailing time step, the counterpart of
// Deaccumulate for instantaneous variables so that all participants cover
// the same steps.
func (a *DataArray) DropLastTime() *DataArray {
	nt, ny, nx := a.Dims()
	if nt < 2 {
		return a
	}
	out := a.CopyMeta(ny, nx)
	out.Time = out.Time[:nt-1]
	out.Data = sparse.ZerosDense(nt-1, ny, nx)
	copy(out.Data.Elements, a.Data.Elements[:(nt-1)*ny*nx])
	return out
}

// IsMissing reports whether a value marks a missing cell.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

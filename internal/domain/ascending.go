package domain

import "github.com/ctessum/sparse"

// EnsureAscending reindexes a dataset so that both coordinate axes run in
// ascending order, flipping the data rows/columns to match. Regridding and
// masking assume ascending axes; observational products frequently store
// latitude north-to-south.
func EnsureAscending(d *Dataset) {
	if d == nil || d.Grid == nil {
		return
	}
	flipX, flipY := false, false
	if d.Grid.Rectilinear() {
		if n := d.Grid.Lon.Shape[0]; n > 1 && d.Grid.Lon.Elements[1] < d.Grid.Lon.Elements[0] {
			flipX = true
		}
		if n := d.Grid.Lat.Shape[0]; n > 1 && d.Grid.Lat.Elements[1] < d.Grid.Lat.Elements[0] {
			flipY = true
		}
	} else {
		ny, nx := d.Grid.Shape()
		if nx > 1 && d.Grid.Lon.Get(0, 1) < d.Grid.Lon.Get(0, 0) {
			flipX = true
		}
		if ny > 1 && d.Grid.Lat.Get(1, 0) < d.Grid.Lat.Get(0, 0) {
			flipY = true
		}
	}
	if !flipX && !flipY {
		return
	}

	if d.Grid.Rectilinear() {
		if flipX {
			reverse1D(d.Grid.Lon)
		}
		if flipY {
			reverse1D(d.Grid.Lat)
		}
	} else {
		if flipX {
			flipCols2D(d.Grid.Lon)
			flipCols2D(d.Grid.Lat)
		}
		if flipY {
			flipRows2D(d.Grid.Lon)
			flipRows2D(d.Grid.Lat)
		}
	}
	if d.Available() {
		flipData(d.Var.Data, flipY, flipX)
	}
}

func reverse1D(a *sparse.DenseArray) {
	for i, j := 0, len(a.Elements)-1; i < j; i, j = i+1, j-1 {
		a.Elements[i], a.Elements[j] = a.Elements[j], a.Elements[i]
	}
}

func flipRows2D(a *sparse.DenseArray) {
	ny, nx := a.Shape[0], a.Shape[1]
	for j := 0; j < ny/2; j++ {
		top := a.Elements[j*nx : (j+1)*nx]
		bot := a.Elements[(ny-1-j)*nx : (ny-j)*nx]
		for i := range top {
			top[i], bot[i] = bot[i], top[i]
		}
	}
}

func flipCols2D(a *sparse.DenseArray) {
	ny, nx := a.Shape[0], a.Shape[1]
	for j := 0; j < ny; j++ {
		row := a.Elements[j*nx : (j+1)*nx]
		for i, k := 0, nx-1; i < k; i, k = i+1, k-1 {
			row[i], row[k] = row[k], row[i]
		}
	}
}

func flipData(a *sparse.DenseArray, flipY, flipX bool) {
	nt, ny, nx := a.Shape[0], a.Shape[1], a.Shape[2]
	plane := ny * nx
	for t := 0; t < nt; t++ {
		sl := a.Elements[t*plane : (t+1)*plane]
		if flipY {
			for j := 0; j < ny/2; j++ {
				top := sl[j*nx : (j+1)*nx]
				bot := sl[(ny-1-j)*nx : (ny-j)*nx]
				for i := range top {
					top[i], bot[i] = bot[i], top[i]
				}
			}
		}
		if flipX {
			for j := 0; j < ny; j++ {
				row := sl[j*nx : (j+1)*nx]
				for i, k := 0, nx-1; i < k; i, k = i+1, k-1 {
					row[i], row[k] = row[k], row[i]
				}
			}
		}
	}
}

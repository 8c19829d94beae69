// Package netcdf loads participant data from NetCDF files and writes
// statistics results back out. Axis names are canonicalized here, at the
// ingestion boundary, so the rest of the pipeline only ever sees "lon" and
// "lat".
package netcdf

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"go.climsuite.io/gridval/internal/domain"
)

// Axis aliases seen across model and observation products. Canonicalization
// happens once at load time.
var (
	lonNames = []string{"lon", "longitude", "x", "X", "rlon"}
	latNames = []string{"lat", "latitude", "y", "Y", "rlat"}
)

// Request describes one participant/variable load.
type Request struct {
	Participant string
	Kind        domain.Kind
	Dir         string
	Variable    string

	ScaleFactor float64 // 0 or 1 means no scaling
	Accumulated bool    // de-accumulate instead of trimming the last step

	// Observation period filter; zero values disable it.
	StartYear int
	EndYear   int
	Months    []int
}

// Loader reads gridded time series from NetCDF files.
type Loader struct {
	Log *log.Logger
}

func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{Log: logger}
}

// Load reads all files for one participant/variable, concatenated along
// time, and returns the prepared dataset. A missing variable yields
// domain.ErrNoData; callers treat that as an expected skip.
func (l *Loader) Load(req Request) (*domain.Dataset, error) {
	files, err := filepath.Glob(filepath.Join(req.Dir, req.Variable+"_*.nc"))
	if err != nil {
		return nil, fmt.Errorf("load %s for %s: %w", req.Variable, req.Participant, err)
	}
	if extra, _ := filepath.Glob(filepath.Join(req.Dir, req.Variable+".nc")); len(extra) > 0 {
		files = append(files, extra...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("load %s for %s in %s: %w",
			req.Variable, req.Participant, req.Dir, domain.ErrNoData)
	}
	sort.Strings(files)
	l.Log.Printf("load: %s %s: %d file(s) for %s", req.Kind, req.Participant, len(files), req.Variable)

	var (
		grid  *domain.Grid
		units string
		times []time.Time
		vals  []float64
		ny    int
		nx    int
	)
	for _, f := range files {
		fv, err := l.loadFile(f, req.Variable)
		if err != nil {
			return nil, fmt.Errorf("load %s for %s: %w", req.Variable, req.Participant, err)
		}
		if grid == nil {
			grid = fv.grid
			grid.Name = "grid_" + req.Participant
			units = fv.units
			ny, nx = grid.Shape()
		} else if !grid.Equal(fv.grid) {
			return nil, fmt.Errorf("load %s for %s: %s is on a different grid than earlier files",
				req.Variable, req.Participant, f)
		}
		times = append(times, fv.times...)
		vals = append(vals, fv.vals...)
	}

	data := sparse.ZerosDense(len(times), ny, nx)
	copy(data.Elements, vals)
	arr := &domain.DataArray{
		Name:  req.Variable,
		Units: units,
		Attrs: map[string]string{},
		Time:  times,
		Data:  data,
		// Files store one record per step; downstream chunk plans cap the
		// resulting block count before blockwise processing.
		Chunks: domain.ChunkPlan{Time: 1},
	}

	arr = filterPeriod(arr, req.StartYear, req.EndYear, req.Months)
	if len(arr.Time) == 0 {
		return nil, fmt.Errorf("load %s for %s: no time steps left after period filter: %w",
			req.Variable, req.Participant, domain.ErrNoData)
	}
	if req.ScaleFactor != 0 && req.ScaleFactor != 1 {
		arr.Scale(req.ScaleFactor)
	}
	if req.Accumulated {
		arr = arr.Deaccumulate()
	} else {
		arr = arr.DropLastTime()
	}

	ds := &domain.Dataset{Name: req.Participant, Kind: req.Kind, Var: arr, Grid: grid}
	domain.EnsureAscending(ds)
	return ds, nil
}

// ReadGrid reads only the coordinate arrays of a file, for grid inspection
// without loading any data variable.
func ReadGrid(path string) (*domain.Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lon, err := readCoord(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lat, err := readCoord(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &domain.Grid{Name: filepath.Base(path), Lon: lon, Lat: lat}, nil
}

type fileVar struct {
	grid  *domain.Grid
	units string
	times []time.Time
	vals  []float64
}

func (l *Loader) loadFile(path, variable string) (*fileVar, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lon, err := readCoord(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lat, err := readCoord(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	times, err := readTimeAxis(nc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	v, err := nc.Var(variable)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %q: %w: %v", path, variable, domain.ErrNoData, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("%s: variable %q has %d dims, want (time, y, x)", path, variable, len(dims))
	}
	total := 1
	for _, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		total *= int(n)
	}
	vals, err := readFloats(v, total)
	if err != nil {
		return nil, fmt.Errorf("%s: read %q: %w", path, variable, err)
	}
	if fv, ok := fillValue(v); ok {
		for i, x := range vals {
			if x == fv {
				vals[i] = math.NaN()
			}
		}
	}

	return &fileVar{
		grid:  &domain.Grid{Lon: lon, Lat: lat},
		units: attrString(v, "units"),
		times: times,
		vals:  vals,
	}, nil
}

// readCoord finds a coordinate variable under any of its alias names and
// returns it as a 1D or 2D dense array.
func readCoord(nc netcdf.Dataset, names []string) (*sparse.DenseArray, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, err
		}
		shape := make([]int, len(dims))
		total := 1
		for i, d := range dims {
			n, err := d.Len()
			if err != nil {
				return nil, err
			}
			shape[i] = int(n)
			total *= int(n)
		}
		if len(shape) != 1 && len(shape) != 2 {
			return nil, fmt.Errorf("coordinate %q must be 1D or 2D, got %dD", name, len(shape))
		}
		vals, err := readFloats(v, total)
		if err != nil {
			return nil, err
		}
		out := sparse.ZerosDense(shape...)
		copy(out.Elements, vals)
		return out, nil
	}
	return nil, fmt.Errorf("no coordinate variable found (tried %v)", names)
}

// readTimeAxis decodes the CF "units since reference" time axis.
func readTimeAxis(nc netcdf.Dataset) ([]time.Time, error) {
	v, err := nc.Var("time")
	if err != nil {
		return nil, fmt.Errorf("no time variable: %w", err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("time variable must be 1D, got %dD", len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	offsets, err := readFloats(v, int(n))
	if err != nil {
		return nil, err
	}
	step, ref, err := ParseCFTimeUnits(attrString(v, "units"))
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(offsets))
	for i, o := range offsets {
		out[i] = ref.Add(time.Duration(o * float64(step)))
	}
	return out, nil
}

// ParseCFTimeUnits parses a CF time-units string such as
// "hours since 1949-12-01 00:00:00" into a step duration and reference time.
func ParseCFTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("bad time units %q", units)
	}
	var step time.Duration
	switch strings.TrimSpace(parts[0]) {
	case "seconds":
		step = time.Second
	case "minutes":
		step = time.Minute
	case "hours":
		step = time.Hour
	case "days":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}
	refStr := strings.TrimSpace(parts[1])
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if ref, err := time.Parse(layout, refStr); err == nil {
			return step, ref.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("bad time reference %q", refStr)
}

// filterPeriod restricts the time axis to the configured years and months.
func filterPeriod(a *domain.DataArray, startYear, endYear int, months []int) *domain.DataArray {
	if startYear == 0 && endYear == 0 && len(months) == 0 {
		return a
	}
	monthSet := make(map[time.Month]bool, len(months))
	for _, m := range months {
		monthSet[time.Month(m)] = true
	}
	keep := func(t time.Time) bool {
		if startYear != 0 && t.Year() < startYear {
			return false
		}
		if endYear != 0 && t.Year() > endYear {
			return false
		}
		if len(monthSet) > 0 && !monthSet[t.Month()] {
			return false
		}
		return true
	}

	_, ny, nx := a.Dims()
	plane := ny * nx
	var times []time.Time
	var idx []int
	for t, tv := range a.Time {
		if keep(tv) {
			times = append(times, tv)
			idx = append(idx, t)
		}
	}
	out := a.CopyMeta(ny, nx)
	out.Time = times
	out.Data = sparse.ZerosDense(len(times), ny, nx)
	for i, t := range idx {
		copy(out.Data.Elements[i*plane:(i+1)*plane], a.Data.Elements[t*plane:(t+1)*plane])
	}
	return out
}

// readFloats reads a variable of any numeric NetCDF type into float64s.
func readFloats(v netcdf.Var, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		out := make([]float64, total)
		if err := v.ReadFloat64s(out); err != nil {
			return nil, err
		}
		return out, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

// fillValue returns the variable's fill or missing value, if declared.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err == nil && n > 0 {
			buf64 := make([]float64, 1)
			if err := a.ReadFloat64s(buf64); err == nil {
				return buf64[0], true
			}
			buf32 := make([]float32, 1)
			if err := a.ReadFloat32s(buf32); err == nil {
				return float64(buf32[0]), true
			}
		}
	}
	return 0, false
}

// attrString reads a character attribute, empty when absent.
func attrString(v netcdf.Var, name string) string {
	a := v.Attr(name)
	if a == (netcdf.Attr{}) {
		return ""
	}
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

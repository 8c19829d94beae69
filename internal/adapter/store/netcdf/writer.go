package netcdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.climsuite.io/gridval/internal/domain"
)

// Writer stores statistics results as NetCDF files under
// <outdir>/stats/<stat_name>/, one file per participant (and per region).
type Writer struct {
	OutDir string
}

func NewWriter(outDir string) *Writer {
	return &Writer{OutDir: outDir}
}

// FileMeta carries the naming components of one output file.
type FileMeta struct {
	Participant string
	Stat        string
	Variable    string
	TimeRes     string
	TimeStat    string // within-group time statistic for cycle outputs, e.g. "daily max"
	GridLabel   string
	StartYear   int
	EndYear     int
	Months      []int
	Region      string // empty for the domain result
	Threshold   string // e.g. "thr1mm", empty when unused
}

// MonthString compresses an analysed-months list into the filename suffix:
// all twelve months become "ANN", the winter months are reordered to the
// conventional "DJF", and anything else concatenates month initials.
func MonthString(months []int) string {
	if len(months) == 12 {
		return "ANN"
	}
	initials := [...]string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"}
	if len(months) == 3 && months[0] == 1 && months[1] == 2 && months[2] == 12 {
		months = []int{12, 1, 2}
	}
	var b strings.Builder
	for _, m := range months {
		if m < 1 || m > 12 {
			continue
		}
		b.WriteString(initials[m-1])
	}
	return b.String()
}

// FileName renders the output file name for the meta.
func (m FileMeta) FileName() string {
	statName := strings.ReplaceAll(m.Stat, " ", "_")
	parts := []string{m.Participant, statName, m.Variable}
	if m.Threshold != "" || m.TimeRes != "" {
		parts = append(parts, m.Threshold+m.TimeRes)
	}
	if m.TimeStat != "" {
		parts = append(parts, strings.ReplaceAll(m.TimeStat, " ", "_"))
	}
	if m.Region != "" {
		parts = append(parts, strings.ReplaceAll(m.Region, " ", "_"))
	}
	parts = append(parts,
		m.GridLabel,
		fmt.Sprintf("%d-%d", m.StartYear, m.EndYear),
		MonthString(m.Months),
	)
	return strings.Join(parts, "_") + ".nc"
}

// Write stores one result array with its grid coordinates. The file carries
// an "Analysed time" attribute recording the period and months.
func (w *Writer) Write(a *domain.DataArray, g *domain.Grid, meta FileMeta) (string, error) {
	statDir := filepath.Join(w.OutDir, "stats", strings.ReplaceAll(meta.Stat, " ", "_"))
	if err := os.MkdirAll(statDir, 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", meta.Stat, err)
	}
	path := filepath.Join(statDir, meta.FileName())

	if err := writeFile(path, a, g, meta); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func writeFile(path string, a *domain.DataArray, g *domain.Grid, meta FileMeta) error {
	nt, ny, nx := a.Dims()

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	timeDim, err := ds.AddDim("time", uint64(nt))
	if err != nil {
		return err
	}
	yDim, err := ds.AddDim("y", uint64(ny))
	if err != nil {
		return err
	}
	xDim, err := ds.AddDim("x", uint64(nx))
	if err != nil {
		return err
	}

	timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	if err := timeVar.Attr("units").WriteBytes([]byte(cfEpochUnits)); err != nil {
		return err
	}

	var lonVar, latVar netcdf.Var
	if g.Rectilinear() {
		if lonVar, err = ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{xDim}); err != nil {
			return err
		}
		if latVar, err = ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{yDim}); err != nil {
			return err
		}
	} else {
		if lonVar, err = ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim}); err != nil {
			return err
		}
		if latVar, err = ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim}); err != nil {
			return err
		}
	}

	dataVar, err := ds.AddVar(a.Name, netcdf.DOUBLE, []netcdf.Dim{timeDim, yDim, xDim})
	if err != nil {
		return err
	}
	if a.Units != "" {
		if err := dataVar.Attr("units").WriteBytes([]byte(a.Units)); err != nil {
			return err
		}
	}

	analysed := fmt.Sprintf("%d-%d | %s", meta.StartYear, meta.EndYear, MonthString(meta.Months))
	if err := ds.Attr("Analysed time").WriteBytes([]byte(analysed)); err != nil {
		return err
	}

	if err := timeVar.WriteFloat64s(encodeTimes(a.Time)); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(g.Lon.Elements); err != nil {
		return err
	}
	if err := latVar.WriteFloat64s(g.Lat.Elements); err != nil {
		return err
	}
	return dataVar.WriteFloat64s(a.Data.Elements)
}

const cfEpochUnits = "hours since 1970-01-01 00:00:00"

func encodeTimes(times []time.Time) []float64 {
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = t.Sub(epoch).Hours()
	}
	return out
}

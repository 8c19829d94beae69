package stats

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ctessum/sparse"

	"go.climsuite.io/gridval/internal/domain"
)

// Resample is a validated time-axis resampling operation: a bucketing
// frequency plus a reducer applied within each bucket.
type Resample struct {
	Freq    string
	Reducer string

	seconds float64
	bucket  func(time.Time) time.Time
	reduce  Reducer
}

// ParseResample validates a configured frequency/reducer pair. Supported
// frequencies are hour multiples ("H", "3H", ...), days ("D"), months ("M")
// and years ("Y").
func ParseResample(freq, reducer string) (*Resample, error) {
	red, err := LookupReducer(reducer)
	if err != nil {
		return nil, fmt.Errorf("resample %q: %w", freq, err)
	}

	n, unit, err := splitFreq(freq)
	if err != nil {
		return nil, err
	}
	r := &Resample{Freq: freq, Reducer: reducer, reduce: red}
	switch unit {
	case "H":
		r.seconds = float64(n) * 3600
		r.bucket = func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), (t.Hour()/n)*n, 0, 0, 0, t.Location())
		}
	case "D":
		r.seconds = float64(n) * 86400
		ref := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		r.bucket = func(t time.Time) time.Time {
			days := int(t.Sub(ref).Hours() / 24)
			return ref.AddDate(0, 0, (days/n)*n)
		}
	case "M":
		r.seconds = float64(n) * 30 * 86400
		r.bucket = func(t time.Time) time.Time {
			m := (int(t.Month()) - 1) / n * n
			return time.Date(t.Year(), time.Month(m+1), 1, 0, 0, 0, 0, t.Location())
		}
	case "Y":
		r.seconds = float64(n) * 365 * 86400
		r.bucket = func(t time.Time) time.Time {
			return time.Date((t.Year()/n)*n, 1, 1, 0, 0, 0, 0, t.Location())
		}
	default:
		return nil, fmt.Errorf("unknown resample frequency %q", freq)
	}
	return r, nil
}

func splitFreq(freq string) (int, string, error) {
	i := 0
	for i < len(freq) && freq[i] >= '0' && freq[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		var err error
		if n, err = strconv.Atoi(freq[:i]); err != nil || n < 1 {
			return 0, "", fmt.Errorf("bad resample frequency %q", freq)
		}
	}
	if i == len(freq) {
		return 0, "", fmt.Errorf("bad resample frequency %q", freq)
	}
	return n, freq[i:], nil
}

// Seconds returns the nominal bucket length, for comparison against the
// data's native time step. Month and year buckets use nominal lengths; the
// comparison only decides whether resampling is needed at all.
func (r *Resample) Seconds() float64 { return r.seconds }

// Needed reports whether the array's native time step differs from the
// resampling frequency.
func (r *Resample) Needed(a *domain.DataArray) bool {
	if len(a.Time) < 2 {
		return false
	}
	return a.Time[1].Sub(a.Time[0]).Seconds() != r.seconds
}

// Apply resamples the time axis, reducing each bucket per cell. Bucket
// boundaries follow the ascending time axis; output steps carry the bucket
// start time. Buckets whose every sample is missing stay NaN and are kept.
func (r *Resample) Apply(a *domain.DataArray) (*domain.DataArray, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	nt, ny, nx := a.Dims()
	plane := ny * nx

	// Contiguous runs of steps sharing a bucket key.
	type run struct {
		start time.Time
		lo    int
		hi    int
	}
	var runs []run
	for t := 0; t < nt; t++ {
		key := r.bucket(a.Time[t])
		if len(runs) > 0 && runs[len(runs)-1].start.Equal(key) {
			runs[len(runs)-1].hi = t + 1
			continue
		}
		runs = append(runs, run{start: key, lo: t, hi: t + 1})
	}

	out := a.CopyMeta(ny, nx)
	out.Time = make([]time.Time, len(runs))
	out.Data = sparse.ZerosDense(len(runs), ny, nx)
	vals := make([]float64, 0, nt)
	for b, ru := range runs {
		out.Time[b] = ru.start
		for c := 0; c < plane; c++ {
			vals = vals[:0]
			for t := ru.lo; t < ru.hi; t++ {
				vals = append(vals, a.Data.Elements[t*plane+c])
			}
			out.Data.Elements[b*plane+c] = r.reduce(vals)
		}
	}
	return out, nil
}

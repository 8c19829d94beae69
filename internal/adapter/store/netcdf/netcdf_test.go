package netcdf

import (
	"testing"
	"time"

	"github.com/ctessum/sparse"

	"go.climsuite.io/gridval/internal/domain"
)

func TestMonthString(t *testing.T) {
	cases := []struct {
		months []int
		want   string
	}{
		{[]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, "ANN"},
		{[]int{6, 7, 8}, "JJA"},
		{[]int{1, 2, 12}, "DJF"}, // winter months reordered
		{[]int{12, 1, 2}, "DJF"},
		{[]int{6, 7, 8, 9}, "JJAS"},
		{[]int{5}, "M"},
	}
	for _, c := range cases {
		if got := MonthString(c.months); got != c.want {
			t.Errorf("MonthString(%v): got %q, want %q", c.months, got, c.want)
		}
	}
}

func TestFileName(t *testing.T) {
	m := FileMeta{
		Participant: "RCA4",
		Stat:        "annual cycle",
		Variable:    "pr",
		TimeRes:     "3H",
		GridLabel:   "grid_ERA5",
		StartYear:   1998,
		EndYear:     2000,
		Months:      []int{6, 7, 8},
	}
	want := "RCA4_annual_cycle_pr_3H_grid_ERA5_1998-2000_JJA.nc"
	if got := m.FileName(); got != want {
		t.Errorf("file name: got %q, want %q", got, want)
	}

	m.Region = "Black Sea"
	m.Threshold = "thr1mm"
	want = "RCA4_annual_cycle_pr_thr1mm3H_Black_Sea_grid_ERA5_1998-2000_JJA.nc"
	if got := m.FileName(); got != want {
		t.Errorf("region file name: got %q, want %q", got, want)
	}

	m.TimeStat = "daily max"
	want = "RCA4_annual_cycle_pr_thr1mm3H_daily_max_Black_Sea_grid_ERA5_1998-2000_JJA.nc"
	if got := m.FileName(); got != want {
		t.Errorf("cycle file name: got %q, want %q", got, want)
	}
}

func TestParseCFTimeUnits(t *testing.T) {
	step, ref, err := ParseCFTimeUnits("hours since 1949-12-01 00:00:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if step != time.Hour {
		t.Errorf("step: %v", step)
	}
	if ref.Year() != 1949 || ref.Month() != 12 {
		t.Errorf("reference: %v", ref)
	}

	if _, _, err := ParseCFTimeUnits("fortnights since 1949-12-01"); err == nil {
		t.Errorf("expected error for unsupported unit")
	}
	if _, _, err := ParseCFTimeUnits("hours"); err == nil {
		t.Errorf("expected error without reference")
	}

	step, ref, err = ParseCFTimeUnits("days since 2000-01-01")
	if err != nil {
		t.Fatalf("parse date-only reference: %v", err)
	}
	if step != 24*time.Hour || ref.Day() != 1 {
		t.Errorf("date-only: %v %v", step, ref)
	}
}

func TestFilterPeriod(t *testing.T) {
	times := []time.Time{
		time.Date(1997, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1998, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1998, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1999, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	d := sparse.ZerosDense(5, 1, 1)
	for i := range d.Elements {
		d.Elements[i] = float64(i)
	}
	a := &domain.DataArray{Name: "tas", Time: times, Data: d}

	out := filterPeriod(a, 1998, 2000, []int{6, 7, 8})
	if len(out.Time) != 2 {
		t.Fatalf("kept %d steps, want 2", len(out.Time))
	}
	if out.Data.Elements[0] != 1 || out.Data.Elements[1] != 3 {
		t.Errorf("kept values %v, want [1 3]", out.Data.Elements)
	}

	// No filter configured: untouched.
	if got := filterPeriod(a, 0, 0, nil); got != a {
		t.Errorf("unfiltered load must pass through")
	}
}

func TestEncodeTimes(t *testing.T) {
	times := []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 2, 6, 0, 0, 0, time.UTC),
	}
	out := encodeTimes(times)
	if out[0] != 0 || out[1] != 30 {
		t.Errorf("encoded hours: %v, want [0 30]", out)
	}
}

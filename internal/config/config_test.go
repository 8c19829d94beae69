package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
output_dir: /tmp/out
workers: 4
models:
  RCA4:
    path: /data/rca4
    start_year: 1998
    end_year: 2000
    months: [1, 2, 3]
observations:
  ERA5:
    path: /data/era5
    start_year: 1998
    end_year: 2000
variables:
  pr:
    freq: 3H
    units: mm
    scale_factor: 1
    obs_scale_factor: 3600
    accumulated: true
    regrid_to: ERA5
    regrid_method: conservative
statistics:
  annual cycle:
    vars: [pr]
    pool_data: false
    chunk_dimension: space
    resample_resolution: [D, sum]
regions:
  - Scandinavia
monitor:
  enabled: true
  addr: ":8600"
`

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	c, err := Load(write(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.OutDir != "/tmp/out" || c.Workers != 4 {
		t.Errorf("settings: %q %d", c.OutDir, c.Workers)
	}
	v, ok := c.Variables["pr"]
	if !ok {
		t.Fatalf("variable pr missing")
	}
	if !v.Accumulated || v.RegridTo != "ERA5" {
		t.Errorf("variable pr: %+v", v)
	}

	target, err := c.RemapTarget(v)
	if err != nil {
		t.Fatalf("remap target: %v", err)
	}
	if name, ok := target.Observation(); !ok || name != "ERA5" {
		t.Errorf("target: %v", target)
	}

	s := c.Statistics["annual cycle"]
	cfg, err := s.StatConfig()
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if cfg.Resample == nil || cfg.Resample.Freq != "D" {
		t.Errorf("resample spec not assembled: %+v", cfg.Resample)
	}
	if got := c.StatVariables(s); len(got) != 1 || got[0] != "pr" {
		t.Errorf("stat variables: %v", got)
	}
}

// TestValidate_Rejections: every dispatch name is checked at load time.
func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			"unknown statistic",
			func(s string) string { return strings.Replace(s, "annual cycle:", "weekly whimsy:", 1) },
			"unknown statistic",
		},
		{
			"unknown reducer",
			func(s string) string { return strings.Replace(s, "[D, sum]", "[D, average]", 1) },
			"unknown reducer",
		},
		{
			"unknown chunk dimension",
			func(s string) string { return strings.Replace(s, "chunk_dimension: space", "chunk_dimension: spacetime", 1) },
			"unknown chunk dimension",
		},
		{
			"unknown regrid method",
			func(s string) string { return strings.Replace(s, "regrid_method: conservative", "regrid_method: psychic", 1) },
			"unknown regrid method",
		},
		{
			"unknown regrid target",
			func(s string) string { return strings.Replace(s, "regrid_to: ERA5", "regrid_to: GHOST", 1) },
			"neither a configured model nor observation",
		},
		{
			"unknown stat variable",
			func(s string) string { return strings.Replace(s, "vars: [pr]", "vars: [tas]", 1) },
			"unknown variable",
		},
		{
			"missing outdir",
			func(s string) string { return strings.Replace(s, "output_dir: /tmp/out", "output_dir: \"\"", 1) },
			"output_dir",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(write(t, c.mangle(validYAML)))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error %q does not mention %q", err, c.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

// Package config loads and validates the run configuration. All dispatch
// names (statistics, reducers, regrid methods, chunk dimensions) are checked
// here, before any data is loaded, so misconfigured runs fail immediately.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go.climsuite.io/gridval/internal/chunk"
	"go.climsuite.io/gridval/internal/domain"
	"go.climsuite.io/gridval/internal/regrid"
	"go.climsuite.io/gridval/internal/stats"
)

// Config is the full run configuration.
type Config struct {
	OutDir  string `yaml:"output_dir"`
	Workers int    `yaml:"workers"`

	Models       map[string]Source `yaml:"models"`
	Observations map[string]Source `yaml:"observations"`

	Variables  map[string]Variable  `yaml:"variables"`
	Statistics map[string]Statistic `yaml:"statistics"`
	Regions    []string             `yaml:"regions"`

	Monitor Monitor `yaml:"monitor"`
}

// Source describes where one participant's files live and which period to
// analyse.
type Source struct {
	Path      string `yaml:"path"`
	StartYear int    `yaml:"start_year"`
	EndYear   int    `yaml:"end_year"`
	Months    []int  `yaml:"months"`
}

// Variable configures one physical variable across all participants.
type Variable struct {
	Freq           string  `yaml:"freq"`
	Units          string  `yaml:"units"`
	ScaleFactor    float64 `yaml:"scale_factor"`
	ObsScaleFactor float64 `yaml:"obs_scale_factor"`
	Accumulated    bool    `yaml:"accumulated"`
	RegridTo       string  `yaml:"regrid_to"`
	RegridMethod   string  `yaml:"regrid_method"`
}

// Statistic configures one requested statistic.
type Statistic struct {
	Vars           []string `yaml:"vars"` // empty means all configured variables
	PoolData       bool     `yaml:"pool_data"`
	ChunkDimension string   `yaml:"chunk_dimension"`
	// Resample is a [frequency, reducer] pair, e.g. ["D", "sum"].
	Resample  []string `yaml:"resample_resolution"`
	Threshold *float64 `yaml:"threshold"`
	Quantile  float64  `yaml:"quantile"`
	// TimeStat labels the within-group time statistic in cycle output file
	// names, e.g. "daily max".
	TimeStat string `yaml:"time_stat"`
}

// Monitor configures the optional run-monitoring endpoint.
type Monitor struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the configuration against the fixed dispatch tables.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if len(c.Variables) == 0 {
		return fmt.Errorf("at least one variable is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	models := make([]string, 0, len(c.Models))
	for m := range c.Models {
		models = append(models, m)
	}
	observations := make([]string, 0, len(c.Observations))
	for o := range c.Observations {
		observations = append(observations, o)
	}

	for name, v := range c.Variables {
		if v.Freq == "" {
			return fmt.Errorf("variable %s: freq is required", name)
		}
		if _, err := domain.ResolveRemapTarget(v.RegridTo, models, observations); err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		if v.RegridTo != "" {
			if _, err := regrid.ParseMethod(v.RegridMethod); err != nil {
				return fmt.Errorf("variable %s: %w", name, err)
			}
		}
	}

	for name, s := range c.Statistics {
		if _, err := stats.LookupStatistic(name); err != nil {
			return err
		}
		if _, err := chunk.ParseMode(s.ChunkDimension); err != nil {
			return fmt.Errorf("statistic %q: %w", name, err)
		}
		if len(s.Resample) > 0 {
			if len(s.Resample) != 2 {
				return fmt.Errorf("statistic %q: resample_resolution wants [frequency, reducer]", name)
			}
			if _, err := stats.ParseResample(s.Resample[0], s.Resample[1]); err != nil {
				return fmt.Errorf("statistic %q: %w", name, err)
			}
		}
		if name == "percentile" && (s.Quantile <= 0 || s.Quantile >= 1) {
			return fmt.Errorf("statistic %q: quantile %v outside (0, 1)", name, s.Quantile)
		}
		for _, v := range s.Vars {
			if _, ok := c.Variables[v]; !ok {
				return fmt.Errorf("statistic %q: unknown variable %q", name, v)
			}
		}
	}

	for i, r := range c.Regions {
		if r == "" {
			return fmt.Errorf("regions[%d]: empty region name", i)
		}
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("monitor: addr is required when enabled")
	}
	return nil
}

// RemapTarget resolves a variable's regrid target against the configured
// participants.
func (c *Config) RemapTarget(v Variable) (domain.RemapTarget, error) {
	models := make([]string, 0, len(c.Models))
	for m := range c.Models {
		models = append(models, m)
	}
	observations := make([]string, 0, len(c.Observations))
	for o := range c.Observations {
		observations = append(observations, o)
	}
	return domain.ResolveRemapTarget(v.RegridTo, models, observations)
}

// StatConfig assembles the validated statistic options for one statistic.
func (s Statistic) StatConfig() (stats.Config, error) {
	cfg := stats.Config{Threshold: s.Threshold, Quantile: s.Quantile}
	if len(s.Resample) == 2 {
		r, err := stats.ParseResample(s.Resample[0], s.Resample[1])
		if err != nil {
			return stats.Config{}, err
		}
		cfg.Resample = r
	}
	return cfg, nil
}

// StatVariables returns the variables a statistic applies to, defaulting to
// every configured variable.
func (c *Config) StatVariables(s Statistic) []string {
	if len(s.Vars) > 0 {
		return s.Vars
	}
	out := make([]string, 0, len(c.Variables))
	for v := range c.Variables {
		out = append(out, v)
	}
	return out
}

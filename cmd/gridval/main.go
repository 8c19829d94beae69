// Package main provides the gridval validation pipeline driver.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.climsuite.io/gridval/internal/adapter/regions"
	"go.climsuite.io/gridval/internal/adapter/store/netcdf"
	"go.climsuite.io/gridval/internal/chunk"
	"go.climsuite.io/gridval/internal/config"
	"go.climsuite.io/gridval/internal/domain"
	httpHandler "go.climsuite.io/gridval/internal/http"
	"go.climsuite.io/gridval/internal/regrid"
	"go.climsuite.io/gridval/internal/usecase"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to the run configuration file (required)")
	regionsPath := flag.String("regions", "", "Optional YAML file with extra region polygons")
	workers := flag.Int("workers", 0, "Override the configured worker count")
	overwrite := flag.Bool("overwrite", false, "Allow writing into an output directory with existing results")
	dryRun := flag.Bool("dry-run", false, "Validate the configuration and print the run plan, then exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridval version %s\n", version)
		return
	}
	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	provider := regions.Builtin()
	if *regionsPath != "" {
		if err := provider.LoadFile(*regionsPath); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if *dryRun {
		printPlan(cfg)
		return
	}

	if err := checkOutDir(cfg.OutDir, *overwrite); err != nil {
		log.Fatalf("%v", err)
	}

	if err := run(cfg, provider); err != nil {
		log.Fatalf("%v", err)
	}
}

// checkOutDir refuses to clobber results from an earlier run unless the
// -overwrite flag was given.
func checkOutDir(outDir string, overwrite bool) error {
	statsDir := filepath.Join(outDir, "stats")
	if _, err := os.Stat(statsDir); err == nil {
		if !overwrite {
			return fmt.Errorf("output directory %s already holds results, rerun with -overwrite to replace them", outDir)
		}
		log.Printf("Overwriting existing results in %s", statsDir)
	}
	return nil
}

func run(cfg *config.Config, provider *regions.Provider) error {
	ec, err := usecase.NewExecContext(cfg.Workers, log.Default())
	if err != nil {
		return err
	}
	defer ec.Close()

	if cfg.Monitor.Enabled {
		router := httpHandler.SetupRouter(ec)
		go func() {
			log.Printf("Run monitor listening on %s", cfg.Monitor.Addr)
			if err := router.Run(cfg.Monitor.Addr); err != nil {
				log.Printf("Run monitor stopped: %v", err)
			}
		}()
	}

	loader := netcdf.NewLoader(log.Default())
	writer := netcdf.NewWriter(cfg.OutDir)

	for varName, varCfg := range cfg.Variables {
		log.Printf("Processing variable %s", varName)

		dsets, err := loadParticipants(loader, cfg, varName, varCfg)
		if err != nil {
			return err
		}

		target, err := cfg.RemapTarget(varCfg)
		if err != nil {
			return err
		}
		method := regrid.Bilinear
		if varCfg.RegridTo != "" {
			if method, err = regrid.ParseMethod(varCfg.RegridMethod); err != nil {
				return err
			}
		}
		records, err := usecase.Remap(ec, dsets, target, method)
		if err != nil {
			return fmt.Errorf("variable %s: %w", varName, err)
		}

		for statName, statCfg := range cfg.Statistics {
			if !statUsesVariable(cfg, statCfg, varName) {
				continue
			}
			spec, err := buildSpec(cfg, statName, statCfg)
			if err != nil {
				return err
			}
			res, err := usecase.Aggregate(ec, dsets, spec, provider)
			if err != nil {
				return fmt.Errorf("variable %s: %w", varName, err)
			}
			if err := writeResults(writer, cfg, dsets, records, res, varName, varCfg, statCfg); err != nil {
				return err
			}
		}
	}
	log.Printf("Run complete, results in %s", cfg.OutDir)
	return nil
}

// loadParticipants loads every model and observation for one variable.
// Participants without the variable stay in the run as data-less entries so
// the skip accounting stays visible in the logs.
func loadParticipants(loader *netcdf.Loader, cfg *config.Config, varName string, varCfg config.Variable) ([]*domain.Dataset, error) {
	var dsets []*domain.Dataset
	load := func(name string, kind domain.Kind, src config.Source, scale float64) error {
		ds, err := loader.Load(netcdf.Request{
			Participant: name,
			Kind:        kind,
			Dir:         src.Path,
			Variable:    varName,
			ScaleFactor: scale,
			Accumulated: varCfg.Accumulated,
			StartYear:   src.StartYear,
			EndYear:     src.EndYear,
			Months:      src.Months,
		})
		if err != nil {
			if errors.Is(err, domain.ErrNoData) {
				log.Printf("load: %s %s: %s not available, skipping", kind, name, varName)
				dsets = append(dsets, &domain.Dataset{Name: name, Kind: kind})
				return nil
			}
			return err
		}
		dsets = append(dsets, ds)
		return nil
	}

	for name, src := range cfg.Models {
		if err := load(name, domain.Model, src, varCfg.ScaleFactor); err != nil {
			return nil, err
		}
	}
	for name, src := range cfg.Observations {
		if err := load(name, domain.Observation, src, varCfg.ObsScaleFactor); err != nil {
			return nil, err
		}
	}
	return dsets, nil
}

func statUsesVariable(cfg *config.Config, s config.Statistic, varName string) bool {
	for _, v := range cfg.StatVariables(s) {
		if v == varName {
			return true
		}
	}
	return false
}

func buildSpec(cfg *config.Config, statName string, s config.Statistic) (usecase.AggregateSpec, error) {
	statCfg, err := s.StatConfig()
	if err != nil {
		return usecase.AggregateSpec{}, fmt.Errorf("statistic %q: %w", statName, err)
	}
	mode, err := chunk.ParseMode(s.ChunkDimension)
	if err != nil {
		return usecase.AggregateSpec{}, fmt.Errorf("statistic %q: %w", statName, err)
	}
	return usecase.AggregateSpec{
		Stat:      statName,
		StatCfg:   statCfg,
		Pool:      s.PoolData,
		ChunkMode: mode,
		Regions:   cfg.Regions,
	}, nil
}

func writeResults(writer *netcdf.Writer, cfg *config.Config, dsets []*domain.Dataset,
	records map[string]usecase.GridRecord, res *usecase.StatisticsResult,
	varName string, varCfg config.Variable, statCfg config.Statistic) error {

	// Cycle outputs carry the within-group time statistic in their name.
	timeStat := ""
	switch res.Stat {
	case "annual cycle", "seasonal cycle", "diurnal cycle":
		timeStat = statCfg.TimeStat
	}

	for _, d := range dsets {
		domRes, ok := res.Domain[d.Name]
		if !ok {
			continue
		}
		src := cfg.Models[d.Name]
		if d.Kind == domain.Observation {
			src = cfg.Observations[d.Name]
		}
		meta := netcdf.FileMeta{
			Participant: d.Name,
			Stat:        res.Stat,
			Variable:    varName,
			TimeRes:     varCfg.Freq,
			TimeStat:    timeStat,
			GridLabel:   records[d.Name].Label,
			StartYear:   src.StartYear,
			EndYear:     src.EndYear,
			Months:      src.Months,
		}
		path, err := writer.Write(domRes, d.Grid, meta)
		if err != nil {
			return err
		}
		log.Printf("Wrote %s", path)

		for region, perPart := range res.Regions {
			regRes, ok := perPart[d.Name]
			if !ok {
				continue
			}
			rmeta := meta
			rmeta.Region = region
			if path, err = writer.Write(regRes, d.Grid, rmeta); err != nil {
				return err
			}
			log.Printf("Wrote %s", path)
		}
	}
	return nil
}

func printPlan(cfg *config.Config) {
	fmt.Printf("gridval run plan\n\n")
	fmt.Printf("Output directory: %s\n", cfg.OutDir)
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("Models:\n")
	for name, src := range cfg.Models {
		fmt.Printf("  %s: %s (%d-%d)\n", name, src.Path, src.StartYear, src.EndYear)
	}
	fmt.Printf("Observations:\n")
	for name, src := range cfg.Observations {
		fmt.Printf("  %s: %s (%d-%d)\n", name, src.Path, src.StartYear, src.EndYear)
	}
	fmt.Printf("Variables:\n")
	for name, v := range cfg.Variables {
		target := v.RegridTo
		if target == "" {
			target = "native grids"
		}
		fmt.Printf("  %s: freq %s, regrid to %s (%s)\n", name, v.Freq, target, v.RegridMethod)
	}
	fmt.Printf("Statistics:\n")
	for name, s := range cfg.Statistics {
		fmt.Printf("  %s: vars %v, pool %v, chunk %s\n", name, cfg.StatVariables(s), s.PoolData, s.ChunkDimension)
	}
	if len(cfg.Regions) > 0 {
		fmt.Printf("Regions: %v\n", cfg.Regions)
	}
}

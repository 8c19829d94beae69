// Package usecase orchestrates validation runs: remap decisions, chunking,
// statistics and progress tracking.
package usecase

import (
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"go.climsuite.io/gridval/internal/domain"
	"go.climsuite.io/gridval/internal/regrid"
)

// ExecContext carries the run-wide execution resources: the worker budget
// for blockwise operations, the regridding-matrix cache and progress
// counters. It is created at pipeline start and released at pipeline end;
// nothing in it is process-global.
type ExecContext struct {
	Workers int
	Log     *log.Logger

	matrices *lru.Cache[string, cachedMatrix]

	mu    sync.Mutex
	stage string
	done  int
	total int
}

// matrixCacheSize bounds how many regridding matrices stay resident. One
// matrix per (source grid, target grid, method) triple; variables sharing
// grids reuse the cached operator.
const matrixCacheSize = 16

// cachedMatrix pairs a matrix with the grids it was built from. Grid names
// are labels, not identities, so cache hits are verified against the stored
// grids before reuse.
type cachedMatrix struct {
	src, dst *domain.Grid
	matrix   *regrid.Matrix
}

// NewExecContext builds the execution context for one pipeline run.
func NewExecContext(workers int, logger *log.Logger) (*ExecContext, error) {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	cache, err := lru.New[string, cachedMatrix](matrixCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create matrix cache: %w", err)
	}
	return &ExecContext{Workers: workers, Log: logger, matrices: cache}, nil
}

// Close releases the context's resources.
func (c *ExecContext) Close() {
	c.matrices.Purge()
}

// Matrix returns the regridding matrix for the grid pair and method, building
// and caching it on first use. A key hit with non-matching coordinates, as
// happens when two distinct grids share a name, rebuilds rather than reusing
// the wrong weights.
func (c *ExecContext) Matrix(src, dst *domain.Grid, method regrid.Method) (*regrid.Matrix, error) {
	key := src.Name + "|" + dst.Name + "|" + method.String()
	if e, ok := c.matrices.Get(key); ok && e.src.Equal(src) && e.dst.Equal(dst) {
		return e.matrix, nil
	}
	m, err := regrid.Build(src, dst, method)
	if err != nil {
		return nil, err
	}
	c.matrices.Add(key, cachedMatrix{src: src, dst: dst, matrix: m})
	return m, nil
}

// Progress is a snapshot of the run state for the monitoring endpoint.
type Progress struct {
	Stage string `json:"stage"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// StartStage resets the progress counters for a new pipeline stage.
func (c *ExecContext) StartStage(name string, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = name
	c.done = 0
	c.total = total
}

// StepDone advances the current stage by one unit of work.
func (c *ExecContext) StepDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
}

// Progress returns the current stage snapshot.
func (c *ExecContext) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{Stage: c.stage, Done: c.done, Total: c.total}
}

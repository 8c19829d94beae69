// Package chunk decides how time-indexed spatial arrays are split into
// blocks for parallel processing. Too many small blocks cost scheduling
// overhead, too few blow up per-worker memory; plans bound the block count
// in either regime.
package chunk

import (
	"fmt"
	"math"

	"go.climsuite.io/gridval/internal/domain"
)

// MaxChunks bounds the number of blocks a plan may imply along the chunked
// dimensions. This is the pipeline's static backpressure mechanism.
const MaxChunks = 500

// Mode selects which dimensions a plan splits.
type Mode int

const (
	// Space chunks both spatial dimensions to a uniform edge length and
	// keeps the whole time axis in one block.
	Space Mode = iota
	// Time re-chunks the time axis into near-equal blocks when the current
	// grouping exceeds MaxChunks blocks; otherwise it leaves the plan alone.
	Time
)

func (m Mode) String() string {
	if m == Time {
		return "time"
	}
	return "space"
}

// ParseMode maps a configured chunk-dimension name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "space":
		return Space, nil
	case "time":
		return Time, nil
	default:
		return 0, fmt.Errorf("unknown chunk dimension %q", s)
	}
}

// Plan derives the block sizes for an array of shape (nt, ny, nx). For
// Space mode the uniform spatial edge is
//
//	c = round(max(nx, ny) / sqrt((nx*ny)/MaxChunks))
//
// which keeps the implied spatial block count at or under MaxChunks. For
// Time mode the existing time grouping in current is inspected; only when
// it implies more than MaxChunks blocks is the axis re-chunked to
// round(nt/MaxChunks)-sized blocks.
func Plan(nt, ny, nx int, mode Mode, current domain.ChunkPlan) domain.ChunkPlan {
	switch mode {
	case Space:
		n := math.Sqrt(float64(nx*ny) / float64(MaxChunks))
		c := int(math.Round(float64(max(nx, ny)) / n))
		if c < 1 {
			c = 1
		}
		return domain.ChunkPlan{Time: nt, Y: c, X: c}
	case Time:
		if current.TimeBlocks(nt) <= MaxChunks {
			return current
		}
		size := int(math.Round(float64(nt) / float64(MaxChunks)))
		if size < 1 {
			size = 1
		}
		return domain.ChunkPlan{Time: size, Y: current.Y, X: current.X}
	default:
		return current
	}
}

// Rechunk applies a plan to the array. Only the grouping changes; values
// and their ordering are untouched.
func Rechunk(a *domain.DataArray, p domain.ChunkPlan) *domain.DataArray {
	a.Chunks = p
	return a
}

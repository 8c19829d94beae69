package domain

import "errors"

// ErrNoData marks a participant/variable combination with no available data.
// Absence is an expected state: a model may simply not provide a requested
// variable, and callers skip it rather than fail the run.
var ErrNoData = errors.New("no data available")

// Kind distinguishes model participants from observational references.
type Kind int

const (
	Model Kind = iota
	Observation
)

func (k Kind) String() string {
	if k == Observation {
		return "observation"
	}
	return "model"
}

// Dataset couples one participant's data for one variable with its grid.
type Dataset struct {
	Name string // participant label, e.g. "RCA4" or "ERA5"
	Kind Kind

	Var  *DataArray // nil when the participant lacks this variable
	Grid *Grid
}

// Available reports whether the participant has data for this variable.
func (d *Dataset) Available() bool {
	return d != nil && d.Var != nil
}

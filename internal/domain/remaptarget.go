package domain

import "fmt"

type targetKind int

const (
	noRemap targetKind = iota
	observationTarget
	modelTarget
)

// RemapTarget identifies which participant, if any, provides the common grid
// for a variable. It is resolved once per variable from the configured target
// name and then matched exhaustively, replacing string-membership dispatch.
type RemapTarget struct {
	kind targetKind
	name string
}

// NoRemap keeps every participant on its native grid.
func NoRemap() RemapTarget { return RemapTarget{kind: noRemap} }

// ObservationTarget regrids all models (and any additional observations)
// onto the named observation's grid.
func ObservationTarget(name string) RemapTarget {
	return RemapTarget{kind: observationTarget, name: name}
}

// ModelTarget regrids all other models and all observations onto the named
// model's grid.
func ModelTarget(name string) RemapTarget {
	return RemapTarget{kind: modelTarget, name: name}
}

// IsNoRemap reports whether native grids are kept.
func (t RemapTarget) IsNoRemap() bool { return t.kind == noRemap }

// Observation returns the target observation name, if the target is one.
func (t RemapTarget) Observation() (string, bool) {
	return t.name, t.kind == observationTarget
}

// Model returns the target model name, if the target is one.
func (t RemapTarget) Model() (string, bool) {
	return t.name, t.kind == modelTarget
}

func (t RemapTarget) String() string {
	switch t.kind {
	case observationTarget:
		return "observation:" + t.name
	case modelTarget:
		return "model:" + t.name
	default:
		return "native"
	}
}

// ResolveRemapTarget classifies a configured target name against the run's
// model and observation participant lists. An empty name means no remapping.
func ResolveRemapTarget(name string, models, observations []string) (RemapTarget, error) {
	if name == "" {
		return NoRemap(), nil
	}
	for _, o := range observations {
		if o == name {
			return ObservationTarget(name), nil
		}
	}
	for _, m := range models {
		if m == name {
			return ModelTarget(name), nil
		}
	}
	return RemapTarget{}, fmt.Errorf("regrid target %q is neither a configured model nor observation", name)
}

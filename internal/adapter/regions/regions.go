// Package regions resolves region names to boundary polygons. A handful of
// European analysis regions ship built in; additional regions load from a
// YAML file of lon/lat vertex lists.
package regions

import (
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/geom"
	"gopkg.in/yaml.v3"
)

// Provider maps region names to boundary polygons.
type Provider struct {
	polys map[string]geom.Polygon
}

// Builtin returns a provider with the built-in region set.
func Builtin() *Provider {
	p := &Provider{polys: make(map[string]geom.Polygon)}
	for name, ring := range builtin {
		p.polys[name] = geom.Polygon{ring}
	}
	return p
}

// LoadFile merges user-defined regions from a YAML file. The file maps each
// region name to a list of [lon, lat] vertices; user entries shadow built-in
// regions of the same name.
func (p *Provider) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	var parsed map[string][][2]float64
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse regions %s: %w", path, err)
	}
	for name, verts := range parsed {
		if len(verts) < 3 {
			return fmt.Errorf("region %q in %s: polygon needs at least 3 vertices", name, path)
		}
		ring := make([]geom.Point, len(verts))
		for i, v := range verts {
			ring[i] = geom.Point{X: v[0], Y: v[1]}
		}
		p.polys[name] = geom.Polygon{ring}
	}
	return nil
}

// Boundary returns the polygon for a named region.
func (p *Provider) Boundary(name string) (geom.Polygon, error) {
	poly, ok := p.polys[name]
	if !ok {
		return nil, fmt.Errorf("region %q is not defined (known: %v)", name, p.Names())
	}
	return poly, nil
}

// Names lists the known regions in sorted order.
func (p *Provider) Names() []string {
	out := make([]string, 0, len(p.polys))
	for name := range p.polys {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Coarse outlines of common evaluation regions, counterclockwise lon/lat.
var builtin = map[string][]geom.Point{
	"Scandinavia": {
		{X: 4.0, Y: 55.0}, {X: 32.0, Y: 55.0}, {X: 32.0, Y: 71.5}, {X: 4.0, Y: 71.5},
	},
	"British Isles": {
		{X: -11.0, Y: 49.5}, {X: 2.0, Y: 49.5}, {X: 2.0, Y: 61.0}, {X: -11.0, Y: 61.0},
	},
	"Iberian Peninsula": {
		{X: -10.0, Y: 36.0}, {X: 3.5, Y: 36.0}, {X: 3.5, Y: 44.0}, {X: -10.0, Y: 44.0},
	},
	"Alps": {
		{X: 5.0, Y: 43.5}, {X: 16.5, Y: 43.5}, {X: 16.5, Y: 48.5}, {X: 5.0, Y: 48.5},
	},
	"Central Europe": {
		{X: 2.0, Y: 46.0}, {X: 24.0, Y: 46.0}, {X: 24.0, Y: 55.0}, {X: 2.0, Y: 55.0},
	},
	"Mediterranean": {
		{X: -6.0, Y: 30.0}, {X: 37.0, Y: 30.0}, {X: 37.0, Y: 46.0}, {X: -6.0, Y: 46.0},
	},
	"Baltic Sea": {
		{X: 13.0, Y: 53.5}, {X: 30.5, Y: 53.5}, {X: 30.5, Y: 66.0}, {X: 13.0, Y: 66.0},
	},
}

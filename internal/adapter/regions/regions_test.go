package regions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin(t *testing.T) {
	p := Builtin()
	poly, err := p.Boundary("Scandinavia")
	if err != nil {
		t.Fatalf("builtin region: %v", err)
	}
	if len(poly) != 1 || len(poly[0]) < 3 {
		t.Errorf("degenerate polygon: %v", poly)
	}
	if _, err := p.Boundary("Narnia"); err == nil {
		t.Errorf("expected error for undefined region")
	}
}

func TestLoadFile(t *testing.T) {
	body := `
Test Box:
  - [0.0, 0.0]
  - [10.0, 0.0]
  - [10.0, 10.0]
  - [0.0, 10.0]
`
	path := filepath.Join(t.TempDir(), "regions.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := Builtin()
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	poly, err := p.Boundary("Test Box")
	if err != nil {
		t.Fatalf("boundary: %v", err)
	}
	if len(poly[0]) != 4 {
		t.Errorf("vertices: got %d, want 4", len(poly[0]))
	}
	// Built-ins survive the merge.
	if _, err := p.Boundary("Alps"); err != nil {
		t.Errorf("builtin lost after merge: %v", err)
	}
}

func TestLoadFile_Degenerate(t *testing.T) {
	body := `
Bad:
  - [0.0, 0.0]
  - [1.0, 1.0]
`
	path := filepath.Join(t.TempDir(), "regions.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Builtin().LoadFile(path); err == nil {
		t.Errorf("expected error for 2-vertex polygon")
	}
}

// Package ingest feeds the multilateration core: it loads the fixed
// station registry and parses observation streams into epochs. Malformed
// records are counted and logged, never fatal — the stream continues.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
)

// RegistryStation is one fixed ground station: its id, surveyed position,
// and an optional static delay metric carried into every epoch.
type RegistryStation struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Delay float64 `json:"delay,omitempty"`
}

// Registry maps station ids to their fixed coordinates.
type Registry struct {
	stations map[string]RegistryStation
	order    []string
}

// LoadRegistry reads a station registry JSON file of the form
// {"stations": [{"id": "gs-1", "x": ..., "y": ..., "z": ...}, ...]}.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a Registry from raw registry JSON.
func ParseRegistry(data []byte) (*Registry, error) {
	var file struct {
		Stations []RegistryStation `json:"stations"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse station registry: %w", err)
	}
	if len(file.Stations) == 0 {
		return nil, fmt.Errorf("station registry holds no stations")
	}

	reg := &Registry{stations: make(map[string]RegistryStation, len(file.Stations))}
	for _, st := range file.Stations {
		if st.ID == "" {
			return nil, fmt.Errorf("station registry entry with empty id")
		}
		if _, dup := reg.stations[st.ID]; dup {
			return nil, fmt.Errorf("station registry duplicates id %q", st.ID)
		}
		reg.stations[st.ID] = st
		reg.order = append(reg.order, st.ID)
	}
	return reg, nil
}

// Lookup returns a station's registry entry.
func (r *Registry) Lookup(id string) (RegistryStation, bool) {
	st, ok := r.stations[id]
	return st, ok
}

// Position returns a station's fixed position.
func (r *Registry) Position(id string) (geom.Point, bool) {
	st, ok := r.stations[id]
	return geom.Point{X: st.X, Y: st.Y, Z: st.Z}, ok
}

// Len returns the number of registered stations.
func (r *Registry) Len() int {
	return len(r.stations)
}

// IDs returns station ids in registry order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

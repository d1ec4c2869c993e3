// Package identity maps opaque analytics ids to player display names.
//
// A Map is built once at startup and never mutated afterwards, so it is safe
// to share between goroutines without locking.
package identity

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// fileKey is the top-level key holding the id -> name table in identity files.
const fileKey = "identities"

// Map is a read-only id -> display name lookup.
type Map struct {
	names map[string]string
}

// New copies names into a new Map. Empty ids and names are ignored.
func New(names map[string]string) *Map {
	m := &Map{names: make(map[string]string, len(names))}
	for id, name := range names {
		if id == "" || name == "" {
			continue
		}
		m.names[id] = name
	}
	return m
}

// Load reads an identity file. YAML and JSON are both accepted:
//
//	identities:
//	  24fe09008d0b1af05fc581fb7c0bc202: Tnnr
func Load(path string) (*Map, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load identity file %s: %w", path, err)
	}
	if !k.Exists(fileKey) {
		return New(nil), nil
	}
	var names map[string]string
	if err := k.Unmarshal(fileKey, &names); err != nil {
		return nil, fmt.Errorf("decode identity file %s: %w", path, err)
	}
	return New(names), nil
}

// Merge returns a new Map holding base overlaid with other. Either may be nil.
func Merge(base, other *Map) *Map {
	out := &Map{names: make(map[string]string, base.Len()+other.Len())}
	for _, m := range []*Map{base, other} {
		if m == nil {
			continue
		}
		for id, name := range m.names {
			out.names[id] = name
		}
	}
	return out
}

// Lookup returns the display name for id.
func (m *Map) Lookup(id string) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.names[id]
	return name, ok
}

// Resolve returns the display name for id, or id itself when unmapped.
func (m *Map) Resolve(id string) string {
	if name, ok := m.Lookup(id); ok {
		return name
	}
	return id
}

// Len returns the number of mapped ids.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// Normalize returns a copy of events with actor and target ids resolved
// through m. Server and item ids are left untouched.
func Normalize(events []model.InteractionEvent, m *Map) []model.InteractionEvent {
	out := make([]model.InteractionEvent, len(events))
	for i, e := range events {
		e.ActorID = m.Resolve(e.ActorID)
		e.TargetID = m.Resolve(e.TargetID)
		out[i] = e
	}
	return out
}

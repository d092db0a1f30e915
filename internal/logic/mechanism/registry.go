package mechanism

import (
	"fmt"
	"sort"
)

// Registry is the process-wide set of mechanisms, built once at startup and
// read afterwards. At most one mechanism exists per Type.
type Registry struct {
	byType map[Type]Mechanism
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[Type]Mechanism)}
}

// Add registers m under its type.
func (r *Registry) Add(m Mechanism) error {
	if m == nil {
		return fmt.Errorf("nil mechanism")
	}
	if m.GetType() == Unknown {
		return fmt.Errorf("mechanism %q has no type", m.GetNetworkTableName())
	}
	if _, dup := r.byType[m.GetType()]; dup {
		return fmt.Errorf("mechanism %s already registered", m.GetType())
	}
	r.byType[m.GetType()] = m
	return nil
}

// Get returns the mechanism of type t.
func (r *Registry) Get(t Type) (Mechanism, bool) {
	m, ok := r.byType[t]
	return m, ok
}

// Single returns the mechanism of type t if it is a SingleActuator.
func (r *Registry) Single(t Type) (SingleActuator, bool) {
	m, ok := r.byType[t].(SingleActuator)
	return m, ok
}

// Dual returns the mechanism of type t if it is a DualActuator.
func (r *Registry) Dual(t Type) (DualActuator, bool) {
	m, ok := r.byType[t].(DualActuator)
	return m, ok
}

// Positional returns the mechanism of type t if it is a SinglePositional.
func (r *Registry) Positional(t Type) (SinglePositional, bool) {
	m, ok := r.byType[t].(SinglePositional)
	return m, ok
}

// All returns every mechanism ordered by type.
func (r *Registry) All() []Mechanism {
	out := make([]Mechanism, 0, len(r.byType))
	for _, m := range r.byType {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetType() < out[j].GetType() })
	return out
}

// Len returns the number of registered mechanisms.
func (r *Registry) Len() int { return len(r.byType) }

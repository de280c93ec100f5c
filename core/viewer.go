package core

import (
	"maps"
	"slices"
)

// Viewer is the transient scratch space shared by all agents of a
// conversation. It is reset at the start of every user turn. Tools reach it
// through ToolContext.GetState / SetState; instruction templates render
// against its Snapshot.
//
// Viewer is not safe for concurrent use; the conversation loop is its only
// writer.
type Viewer struct {
	state map[string]any
}

// NewViewer creates an empty viewer.
func NewViewer() *Viewer { return &Viewer{state: map[string]any{}} }

// Get returns the value stored under k.
func (v *Viewer) Get(k string) (any, bool) {
	val, ok := v.state[k]
	return val, ok
}

// Set stores val under k.
func (v *Viewer) Set(k string, val any) {
	if v.state == nil {
		v.state = map[string]any{}
	}
	v.state[k] = val
}

// Delete removes k.
func (v *Viewer) Delete(k string) { delete(v.state, k) }

// Keys returns the stored keys in sorted order.
func (v *Viewer) Keys() []string {
	return slices.Sorted(maps.Keys(v.state))
}

// Len returns the number of stored keys.
func (v *Viewer) Len() int { return len(v.state) }

// Snapshot returns a shallow copy of the current state.
func (v *Viewer) Snapshot() map[string]any {
	return maps.Clone(v.state)
}

// Reset discards all state.
func (v *Viewer) Reset() { v.state = map[string]any{} }

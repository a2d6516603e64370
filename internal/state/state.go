// Package state defines the shared workflow state exchanged between the
// caller, the handlers, and the decision engine. A state is a map of named
// slices; each slice holds an arbitrary nested value built from nil, bool,
// number, string, map and list nodes (the shapes produced by JSON or YAML
// decoding).
package state

import "strings"

// Slice names the engine always knows about.
const (
	SliceRequest  = "request"
	SliceResponse = "response"
	SliceInternal = "_internal"
)

// Well-known keys inside the base slices.
const (
	KeyAction        = "action"
	KeyMessage       = "message"
	KeyCategory      = "category"
	KeyResponseType  = "response_type"
	KeyDecision      = "decision"
	KeyQuestionOwner = "question_owner"
)

// State is one session's workflow state: slice name -> nested value. The
// calling session owns it exclusively for the duration of a turn; the engine
// never retains a reference across calls.
type State map[string]any

// New returns a state seeded with the three base slices.
func New() State {
	return State{
		SliceRequest:  map[string]any{},
		SliceResponse: map[string]any{},
		SliceInternal: map[string]any{},
	}
}

// Slice returns the named slice as a map, or nil if it is absent or not a
// map-shaped value.
func (s State) Slice(name string) map[string]any {
	if s == nil {
		return nil
	}
	m, _ := s[name].(map[string]any)
	return m
}

// Resolve descends a dotted path ("slice.field.nested") through nested maps.
// The second return value reports whether the path resolved; an unresolved
// path yields (nil, false).
func (s State) Resolve(path string) (any, bool) {
	if s == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	value, ok := s[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		m, isMap := value.(map[string]any)
		if !isMap {
			return nil, false
		}
		value, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// Apply merges a partial state update (slice name -> replacement or merge
// payload) into the state. Map payloads are merged key-by-key into the
// existing slice; any other payload replaces the slice wholesale.
func (s State) Apply(update map[string]any) {
	for name, payload := range update {
		incoming, isMap := payload.(map[string]any)
		if !isMap {
			s[name] = payload
			continue
		}
		existing, ok := s[name].(map[string]any)
		if !ok {
			existing = map[string]any{}
		}
		for k, v := range incoming {
			existing[k] = v
		}
		s[name] = existing
	}
}

// Truthy reports Python-style truthiness for a state value: nil, false, zero
// numbers, empty strings, and empty containers are all false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// Equal compares two state values. Numbers compare by value regardless of
// concrete type, since the same state may carry int literals from Go code and
// float64 values from decoded JSON. Maps and lists compare elementwise; they
// must not reach the == operator, which panics on uncomparable types.
func Equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	switch at := a.(type) {
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, present := bt[k]
			if !present || !Equal(av, bv) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// Int reads a state value as an int, tolerating the numeric types a decoded
// config or JSON payload may carry. Non-numeric values yield zero.
func Int(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

// String reads a state value as a string; non-strings yield "".
func String(v any) string {
	s, _ := v.(string)
	return s
}

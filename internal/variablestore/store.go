// Package variablestore implements the typed, path-addressable key-value
// context used for template substitution in step inputs and condition
// evaluation at branch nodes (spec.md §4.3). Values are restricted to plain
// JSON-shaped data — nil, bool, float64, string, map[string]interface{},
// []interface{} — so the store can never hold a cycle.
package variablestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Store holds a flow execution's variable bindings. It is scoped to a
// single flow run and is not safe to share across concurrent runs; per
// spec.md §5 it requires no internal locking because it is purely
// synchronous and never shared.
type Store struct {
	root map[string]interface{}
}

// New constructs a Store seeded with a deep copy of initial, so later
// mutation of the caller's map cannot alias the store's bindings.
func New(initial map[string]interface{}) *Store {
	s := &Store{root: make(map[string]interface{})}
	for k, v := range initial {
		s.root[k] = deepCopy(v)
	}
	return s
}

// All returns the flattened top-level bindings. The returned map is a deep
// copy; mutating it does not affect the store.
func (s *Store) All() map[string]interface{} {
	out := make(map[string]interface{}, len(s.root))
	for k, v := range s.root {
		out[k] = deepCopy(v)
	}
	return out
}

// splitPath tokenizes a dotted path into segments, e.g. "user.profile.name"
// -> ["user", "profile", "name"].
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get resolves a path against the store. JSONPath paths (leading "$.") are
// read-only and are dispatched to ExtractJSONPath over the flattened root;
// everything else is a simple or dotted key path, with numeric segments
// indexing into arrays when the preceding value is a slice.
func (s *Store) Get(path string) (interface{}, bool) {
	if strings.HasPrefix(path, "$.") || path == "$" {
		v, err := ExtractJSONPath(s.All(), path)
		return v, err == nil && v != nil
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur interface{} = s.root
	for _, seg := range segs {
		next, ok := index(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return deepCopy(cur), true
}

func index(cur interface{}, seg string) (interface{}, bool) {
	switch c := cur.(type) {
	case map[string]interface{}:
		v, ok := c[seg]
		return v, ok
	case []interface{}:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	default:
		return nil, false
	}
}

// Set binds v at path, creating intermediate maps as needed. A numeric
// segment indexes an existing array; against anything else it is treated
// as a plain string key (spec.md §4.3 "Addressing").
func (s *Store) Set(path string, v interface{}) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		s.root[segs[0]] = deepCopy(v)
		return
	}

	var parent interface{} = s.root
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]
		switch p := parent.(type) {
		case map[string]interface{}:
			child, ok := p[seg]
			if !ok {
				child = make(map[string]interface{})
				p[seg] = child
			}
			parent = child
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(p) {
				// Out of range or non-numeric segment against an array:
				// nothing sane to create in place, stop the walk.
				return
			}
			if p[idx] == nil {
				p[idx] = make(map[string]interface{})
			}
			parent = p[idx]
		default:
			return
		}
	}

	last := segs[len(segs)-1]
	switch p := parent.(type) {
	case map[string]interface{}:
		p[last] = deepCopy(v)
	case []interface{}:
		if idx, err := strconv.Atoi(last); err == nil && idx >= 0 && idx < len(p) {
			p[idx] = deepCopy(v)
		}
	}
}

// Snapshot produces a deep copy of all bindings, independent of later
// mutations.
func (s *Store) Snapshot() map[string]interface{} {
	return s.All()
}

// Restore clears the store and rebinds it from a snapshot produced by
// Snapshot.
func (s *Store) Restore(snap map[string]interface{}) {
	s.root = make(map[string]interface{}, len(snap))
	for k, v := range snap {
		s.root[k] = deepCopy(v)
	}
}

func deepCopy(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// toJSONString renders a value the way interpolation and driver-safe
// coercion require: composite values become canonical JSON, scalars become
// their natural string form.
func toJSONString(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(vv)
		if err != nil {
			return fmt.Sprintf("%v", vv)
		}
		return string(b)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

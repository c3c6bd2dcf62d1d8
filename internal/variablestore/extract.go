package variablestore

import (
	"github.com/PaesslerAG/jsonpath"
)

// ExtractJSONPath returns the value(s) at path within data: a single match,
// a slice of matches for wildcard paths, or nil if path does not resolve or
// is syntactically invalid. This is the "subset needed for extraction"
// spec.md's Non-goals call out — not a full JSONPath implementation,
// delegated instead to PaesslerAG/jsonpath/gval.
func ExtractJSONPath(data interface{}, path string) (interface{}, error) {
	v, err := jsonpath.Get(path, data)
	if err != nil {
		return nil, nil //nolint:nilerr // unresolvable/invalid path yields nil per spec, not an error
	}
	return v, nil
}

// ExtractAndStore resolves path against data and binds the result (or
// defaultValue, or nil) under name in the store.
func (s *Store) ExtractAndStore(name string, data interface{}, path string, defaultValue interface{}) error {
	v, _ := ExtractJSONPath(data, path)
	if v == nil {
		v = defaultValue
	}
	s.Set(name, v)
	return nil
}

package storage

import "encoding/json"

// jsonUnmarshalOK unmarshals raw into out, reporting success rather than
// an error — used where a malformed stored JSON blob should be treated as
// "nothing to report" instead of failing the whole read.
func jsonUnmarshalOK(raw string, out interface{}) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

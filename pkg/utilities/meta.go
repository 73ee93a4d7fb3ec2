package utilities

import (
	"bytes"
	"encoding/json"
)

var emptyObject = json.RawMessage("{}")

// NormalizeMeta validates an opaque JSON metadata blob. The value must be a
// JSON object that survives a serialization round trip; anything else is
// silently coerced to an empty object so bad metadata never rejects the
// entity carrying it.
func NormalizeMeta(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyObject
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return emptyObject
	}
	out, err := json.Marshal(m)
	if err != nil {
		return emptyObject
	}
	return out
}

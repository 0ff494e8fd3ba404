// Package jsonx converts loosely typed bus payloads into structs.
package jsonx

import "encoding/json"

// Decode fills dst from src, which may be raw JSON ([]byte or string) or
// any JSON-marshalable value such as a map decoded from JSON or YAML.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

package audit

import (
	"reflect"
	"strings"
)

// Marker replaces sensitive values. Redaction is irreversible: the original
// value is never persisted anywhere.
const Marker = "[REDACTED]"

var defaultSensitive = []string{"password", "token", "secret"}

// Redactor strips sensitive values from audit detail maps. Matching is
// case-insensitive on key substrings, so "Password", "api_token" and
// "clientSecret" are all caught by the defaults.
type Redactor struct {
	keys []string
}

// NewRedactor builds a redactor for the default sensitive field names plus
// any extras.
func NewRedactor(extra ...string) *Redactor {
	keys := make([]string, 0, len(defaultSensitive)+len(extra))
	for _, k := range defaultSensitive {
		keys = append(keys, strings.ToLower(k))
	}
	for _, k := range extra {
		if k = strings.TrimSpace(strings.ToLower(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return &Redactor{keys: keys}
}

// Redact returns a deep copy of detail with every sensitive value replaced by
// Marker, recursing into nested maps and slices. The input is never mutated.
func (r *Redactor) Redact(detail map[string]any) map[string]any {
	if detail == nil {
		return nil
	}

	out := make(map[string]any, len(detail))
	for k, v := range detail {
		if r.sensitive(k) {
			out[k] = Marker
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

// redactValue recurses into string-keyed maps of any value type and into
// slices. Other shapes (structs, non-string map keys) pass through unchanged;
// callers putting sensitive data in Detail must use maps or slices.
func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.Redact(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.redactValue(item)
		}
		return out
	case []byte, string, nil:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if r.sensitive(k) {
				out[k] = Marker
			} else {
				out[k] = r.redactValue(iter.Value().Interface())
			}
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = r.redactValue(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

func (r *Redactor) sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

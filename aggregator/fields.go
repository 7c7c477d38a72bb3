package aggregator

// fieldString reads a string-valued key from a decoded JSON object (a
// map[string]any, as produced by the producer adapters for tool_use input).
// Non-object inputs and missing/non-string keys report ok=false.
func fieldString(v any, key string) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// fieldStringList reads a []string-ish key (a []any of strings, or a single
// string treated as a one-element list).
func fieldStringList(v any, key string) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m[key]
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}

// fieldList reads a []any-valued key, one entry per list item (used for
// todos/plan steps).
func fieldList(v any, key string) []any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	return list
}

// fieldFloat reads a numeric key, accepting both float64 (standard
// encoding/json decoding) and int.
func fieldFloat(v any, key string) (float64, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

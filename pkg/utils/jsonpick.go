package utils

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// PickString walks a decoded JSON value depth first and returns the first
// non-empty string (or number) found under any of keys. Keys listed first win
// at each level. Gateways move the same field around between versions, so
// callers pass every alias they know.
func PickString(node any, keys ...string) string {
	switch v := node.(type) {
	case map[string]any:
		for _, k := range keys {
			if raw, ok := v[k]; ok {
				if s := scalarString(raw); s != "" {
					return s
				}
			}
		}
		for _, k := range sortedKeys(v) {
			if s := PickString(v[k], keys...); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range v {
			if s := PickString(item, keys...); s != "" {
				return s
			}
		}
	}
	return ""
}

// DecodeAny decodes raw JSON into a generic tree; invalid input yields nil.
func DecodeAny(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var out any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

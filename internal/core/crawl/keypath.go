package crawl

import (
	"fmt"
	"strings"
)

// KeyMatch is one occurrence of a key somewhere in a decoded JSON tree.
type KeyMatch struct {
	Path  []string
	Value interface{}
}

// FindKeyPaths walks a decoded JSON value (maps, slices, scalars) depth-first
// and returns every occurrence of key together with its path. The traversal
// is generic; callers apply their own rule for picking among matches.
func FindKeyPaths(data interface{}, key string) []KeyMatch {
	return findKeyPaths(data, key, nil)
}

func findKeyPaths(data interface{}, key string, path []string) []KeyMatch {
	var results []KeyMatch
	switch v := data.(type) {
	case map[string]interface{}:
		for k, child := range v {
			childPath := append(append([]string{}, path...), k)
			if k == key {
				results = append(results, KeyMatch{Path: childPath, Value: child})
			}
			results = append(results, findKeyPaths(child, key, childPath)...)
		}
	case []interface{}:
		for idx, child := range v {
			childPath := append(append([]string{}, path...), fmt.Sprintf("[%d]", idx))
			results = append(results, findKeyPaths(child, key, childPath)...)
		}
	}
	return results
}

// PickByKey returns the first non-empty value for key anywhere in the tree,
// with its dotted path. When every occurrence is empty, the first occurrence
// is returned; when the key is absent, ok is false.
func PickByKey(data interface{}, key string) (value interface{}, path string, ok bool) {
	matches := FindKeyPaths(data, key)
	if len(matches) == 0 {
		return nil, "", false
	}
	for _, m := range matches {
		if !emptyValue(m.Value) {
			return m.Value, strings.Join(m.Path, "."), true
		}
	}
	first := matches[0]
	return first.Value, strings.Join(first.Path, "."), true
}

func emptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	default:
		return false
	}
}

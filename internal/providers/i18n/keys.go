package i18n

import (
	"fmt"
	"sort"
	"strings"
)

// splitKey turns "a.b.c" into its segments, rejecting empty ones.
func splitKey(key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid key %q: empty segment", key)
		}
	}
	return parts, nil
}

func lookup(tree map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = tree
	for _, seg := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign sets path to value, creating intermediate objects. It refuses to
// replace a string with an object.
func assign(tree map[string]interface{}, path []string, value interface{}) error {
	cur := tree
	for i, seg := range path[:len(path)-1] {
		next, ok := cur[seg]
		if !ok {
			child := make(map[string]interface{})
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s is a value, not an object", strings.Join(path[:i+1], "."))
		}
		cur = child
	}
	cur[path[len(path)-1]] = value
	return nil
}

// remove deletes path and prunes parents left empty. It reports whether
// anything was removed.
func remove(tree map[string]interface{}, path []string) bool {
	if len(path) == 1 {
		if _, ok := tree[path[0]]; !ok {
			return false
		}
		delete(tree, path[0])
		return true
	}
	child, ok := tree[path[0]].(map[string]interface{})
	if !ok {
		return false
	}
	if !remove(child, path[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(tree, path[0])
	}
	return true
}

// leafKeys lists the dotted paths of every non-object value, sorted.
func leafKeys(tree map[string]interface{}, prefix string) []string {
	var keys []string
	var walk func(m map[string]interface{}, prefix string)
	walk = func(m map[string]interface{}, prefix string) {
		for k, v := range m {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			if child, ok := v.(map[string]interface{}); ok {
				walk(child, full)
				continue
			}
			keys = append(keys, full)
		}
	}
	walk(tree, prefix)
	sort.Strings(keys)
	return keys
}

package casegen

import (
	"sort"

	"github.com/mjuvonen/truthseeker/internal/random"
)

// BuildContext resolves a story's variable pools into one concrete context.
// Array-valued pools pick one variant from the stream, object-valued pools
// recurse, scalars carry over unchanged.
//
// The original asset relies on object insertion order for its draws; Go maps
// have none, so pools are walked in sorted key order. That keeps the draw
// sequence fixed for any given asset, which is what seed reproducibility
// requires.
func BuildContext(variables map[string]any, stream *random.Stream) Context {
	return Context(buildObject(variables, stream))
}

func buildObject(variables map[string]any, stream *random.Stream) map[string]any {
	resolved := make(map[string]any, len(variables))
	for _, key := range sortedKeys(variables) {
		switch value := variables[key].(type) {
		case []any:
			resolved[key] = pickVariant(value, stream)
		case map[string]any:
			resolved[key] = buildObject(value, stream)
		default:
			resolved[key] = value
		}
	}
	return resolved
}

// pickVariant chooses one element uniformly. Object variants are shallow-
// copied so later writes to the context never reach the shared story asset.
func pickVariant(pool []any, stream *random.Stream) any {
	if len(pool) == 0 {
		return nil
	}
	variant := pool[stream.IntN(len(pool))]
	if object, ok := variant.(map[string]any); ok {
		clone := make(map[string]any, len(object))
		for k, v := range object {
			clone[k] = v
		}
		return clone
	}
	return variant
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

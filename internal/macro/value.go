package macro

import "fmt"

// ResolveValue implements spec §4.3 "Table traversal": value may be a
// string, a map[string]any, a []any, or anything else. Maps and slices are
// deep-copied before expansion and walked recursively; every string leaf is
// replaced in place; non-string leaves are returned unchanged. Cycles in the
// input (possible only via shared pointers to the same map/slice) are
// tolerated via a visited-by-identity guard.
func ResolveValue(value any, ctx *Context, table Table, k func(any, error)) {
	resolveValueVisited(value, ctx, table, make(map[any]bool), k)
}

func resolveValueVisited(value any, ctx *Context, table Table, visited map[any]bool, k func(any, error)) {
	switch v := value.(type) {
	case string:
		Resolve(v, ctx, table, func(s string, err error) { k(s, err) })
	case map[string]any:
		if visited[mapKey(v)] {
			k(v, nil)
			return
		}
		visited[mapKey(v)] = true
		out := make(map[string]any, len(v))
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		resolveMapKeys(keys, v, out, ctx, table, visited, k)
	case []any:
		if visited[sliceKey(v)] {
			k(v, nil)
			return
		}
		visited[sliceKey(v)] = true
		out := make([]any, len(v))
		resolveSliceItems(v, out, 0, ctx, table, visited, k)
	default:
		k(value, nil)
	}
}

func resolveMapKeys(keys []string, src, dst map[string]any, ctx *Context, table Table, visited map[any]bool, k func(any, error)) {
	if len(keys) == 0 {
		k(dst, nil)
		return
	}
	key := keys[0]
	resolveValueVisited(src[key], ctx, table, visited, func(v any, err error) {
		if err != nil {
			k(nil, err)
			return
		}
		dst[key] = v
		resolveMapKeys(keys[1:], src, dst, ctx, table, visited, k)
	})
}

func resolveSliceItems(src, dst []any, idx int, ctx *Context, table Table, visited map[any]bool, k func(any, error)) {
	if idx >= len(src) {
		k(dst, nil)
		return
	}
	resolveValueVisited(src[idx], ctx, table, visited, func(v any, err error) {
		if err != nil {
			k(nil, err)
			return
		}
		dst[idx] = v
		resolveSliceItems(src, dst, idx+1, ctx, table, visited, k)
	})
}

// mapKey/sliceKey use the underlying data pointer as an identity key for the
// visited-set guard, without requiring the element type to be comparable.
func mapKey(m map[string]any) any {
	return fmt.Sprintf("%p", m)
}

func sliceKey(s []any) any {
	return fmt.Sprintf("%p", s)
}

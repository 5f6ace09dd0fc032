package runtime

// WalkValue returns a structurally identical copy of v in which every scalar
// leaf has been replaced by fn's output. Containers (map[string]any, []any)
// are traversed recursively and their shape preserved; v itself is never
// mutated, so the same template can be resolved repeatedly against changing
// state and still compared against the unmodified original.
func WalkValue(v any, fn func(any) (any, error)) (any, error) {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, elem := range tv {
			w, err := WalkValue(elem, fn)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	case []any:
		out := make([]any, len(tv))
		for i, elem := range tv {
			w, err := WalkValue(elem, fn)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	default:
		return fn(v)
	}
}

package runtime

import (
	"fmt"
	"strconv"
)

// ToStringValueMap coerces scalar values into the string form query params
// and headers travel as. Container values are rejected: a !jq query that
// fans out into several values, or resolves to none at all, cannot fill a
// single request field.
func ToStringValueMap(m map[string]any) (map[string]string, error) {
	result := make(map[string]string, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			result[key] = v
		case int:
			result[key] = strconv.Itoa(v)
		case int64:
			result[key] = strconv.FormatInt(v, 10)
		case float64:
			result[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			result[key] = strconv.FormatBool(v)
		case nil:
			result[key] = ""
		case map[string]any, []any:
			return nil, &ExpressionError{
				Query: key,
				Err:   fmt.Errorf("resolved to non-scalar %T, a single value is required", v),
			}
		default:
			result[key] = fmt.Sprintf("%v", v)
		}
	}
	return result, nil
}

// asInt coerces the numeric representations the decoders and gojq produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

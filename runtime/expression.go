package runtime

import (
	"strings"

	"github.com/itchyny/gojq"
)

// MagicJq marks a string leaf as a jq query evaluated against the data
// store, e.g. "!jq .login.token".
const MagicJq = "!jq"

// ExpressionEvaluator resolves !jq leaves against a DataStore snapshot.
// Unlike secret resolution, this runs immediately before every network
// attempt, including every pagination iteration, because the store (and so
// the available inputs) can change between iterations.
type ExpressionEvaluator struct {
	store *DataStore
}

func NewExpressionEvaluator(store *DataStore) *ExpressionEvaluator {
	return &ExpressionEvaluator{store: store}
}

// Resolve returns a copy of template with every !jq leaf replaced by its
// query result. A query yielding exactly one value unwraps to that value;
// zero or several values stay a sequence, preserving absent-value and
// fan-out semantics. Leaves without the marker pass through unchanged.
func (e *ExpressionEvaluator) Resolve(template any) (any, error) {
	snapshot := e.store.Snapshot()
	return WalkValue(template, func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, MagicJq) {
			return v, nil
		}
		query := strings.TrimSpace(strings.TrimPrefix(s, MagicJq))
		return runQuery(query, snapshot)
	})
}

func runQuery(query string, snapshot map[string]any) (any, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, &ExpressionError{Query: query, Err: err}
	}

	results := []any{}
	iter := parsed.Run(snapshot)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if qerr, failed := v.(error); failed {
			return nil, &ExpressionError{Query: query, Err: qerr}
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/Jeffail/gabs/v2"
)

// DataStore maps action ids to their most recent JSON result for the
// lifetime of one run. Execution is strictly sequential, so the store has a
// single writer at any instant (the currently executing action) and is read
// synchronously by the expression evaluator; no locking is needed.
type DataStore struct {
	container *gabs.Container
}

func NewDataStore() *DataStore {
	return &DataStore{container: gabs.New()}
}

// Set commits an action's result. The value is normalized through a JSON
// round-trip so queries always see plain JSON types regardless of whether
// the value came from a TOML decode, a cache restore, or a response parse.
func (d *DataStore) Set(actionID string, v any) error {
	normalized, err := normalizeJSON(v)
	if err != nil {
		return fmt.Errorf("error storing result for action %s: %w", actionID, err)
	}
	if _, err := d.container.Set(normalized, actionID); err != nil {
		return fmt.Errorf("error storing result for action %s: %w", actionID, err)
	}
	return nil
}

// Get returns the committed value for an action id.
func (d *DataStore) Get(actionID string) (any, bool) {
	if !d.container.Exists(actionID) {
		return nil, false
	}
	return d.container.S(actionID).Data(), true
}

// Snapshot exposes the store as one JSON document keyed by action id, the
// input every !jq query runs against.
func (d *DataStore) Snapshot() map[string]any {
	if m, ok := d.container.Data().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

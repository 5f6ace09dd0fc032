package runtime

import (
	"reflect"
	"testing"
)

func TestDataStore_SetNormalizesToJSONTypes(t *testing.T) {
	store := NewDataStore()

	// TOML decoding hands back int64, cache restore float64; queries must
	// see one consistent shape.
	if err := store.Set("a", map[string]any{"n": int64(3), "s": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := store.Get("a")
	if !ok {
		t.Fatal("a not found")
	}
	want := map[string]any{"n": float64(3), "s": "x"}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("got %#v, want %#v", v, want)
	}
}

func TestDataStore_GetMissing(t *testing.T) {
	store := NewDataStore()
	if _, ok := store.Get("nope"); ok {
		t.Error("Get(nope) reported a value")
	}
}

func TestDataStore_SnapshotKeyedByActionID(t *testing.T) {
	store := NewDataStore()
	if err := store.Set("first", []any{1.0}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("second", "scalar"); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d keys, want 2", len(snap))
	}
	if snap["second"] != "scalar" {
		t.Errorf("second = %v, want scalar", snap["second"])
	}
}

func TestDataStore_OverwriteKeepsLatest(t *testing.T) {
	store := NewDataStore()
	if err := store.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("a", 2); err != nil {
		t.Fatal(err)
	}
	v, _ := store.Get("a")
	if v != float64(2) {
		t.Errorf("a = %v, want 2", v)
	}
}

package runtime

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestCacheManager_AgeMissingEntry(t *testing.T) {
	cache := NewCacheManager(t.TempDir())
	if _, ok := cache.Age("weather", "current"); ok {
		t.Error("Age reported an entry for an empty cache")
	}
}

func TestCacheManager_SaveRestoreRoundTrip(t *testing.T) {
	cache := NewCacheManager(t.TempDir())
	value := map[string]any{"items": []any{1.0, 2.0}, "total": 2.0}

	if err := cache.Save("weather", "current", value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := cache.Restore("weather", "current")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(restored, value) {
		t.Errorf("restored = %#v, want %#v", restored, value)
	}
}

func TestCacheManager_StableFormatting(t *testing.T) {
	dir := t.TempDir()
	cache := NewCacheManager(dir)

	if err := cache.Save("weather", "current", map[string]any{"b": 1, "a": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "weather", "current.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "{\n    \"a\": 2,\n    \"b\": 1\n}"
	if string(raw) != want {
		t.Errorf("file content = %q, want %q", raw, want)
	}
}

func TestCacheManager_AgeTracksModTime(t *testing.T) {
	dir := t.TempDir()
	cache := NewCacheManager(dir)

	if err := cache.Save("weather", "current", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stamp := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "weather", "current.json"), stamp, stamp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	age, ok := cache.Age("weather", "current")
	if !ok {
		t.Fatal("entry not found")
	}
	if age < 2*time.Hour-time.Minute || age > 2*time.Hour+time.Minute {
		t.Errorf("age = %v, want about 2h", age)
	}
}

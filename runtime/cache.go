package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CacheManager persists one JSON document per (unit, action) pair under
// <dir>/<unit>/<action>.json. A file's modification time is the sole
// freshness signal; there is no companion metadata file and no checksum, so
// truncating or touching a file directly affects cache behavior.
type CacheManager struct {
	dir string
}

func NewCacheManager(dir string) *CacheManager {
	return &CacheManager{dir: dir}
}

func (c *CacheManager) path(unit, actionID string) string {
	return filepath.Join(c.dir, unit, actionID+".json")
}

// Age returns how long ago the entry was written. ok is false when no entry
// exists.
func (c *CacheManager) Age(unit, actionID string) (age time.Duration, ok bool) {
	info, err := os.Stat(c.path(unit, actionID))
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Restore loads the cached value without touching the network.
func (c *CacheManager) Restore(unit, actionID string) (any, error) {
	raw, err := os.ReadFile(c.path(unit, actionID))
	if err != nil {
		return nil, fmt.Errorf("error reading cache entry %s/%s: %w", unit, actionID, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("error decoding cache entry %s/%s: %w", unit, actionID, err)
	}
	return v, nil
}

// Save writes the value with sorted keys and stable indentation so cache
// files stay human-diffable, creating intermediate directories as needed.
func (c *CacheManager) Save(unit, actionID string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("error encoding cache entry %s/%s: %w", unit, actionID, err)
	}
	if err := os.MkdirAll(filepath.Join(c.dir, unit), 0o755); err != nil {
		return fmt.Errorf("error creating cache directory for %s: %w", unit, err)
	}
	if err := os.WriteFile(c.path(unit, actionID), raw, 0o644); err != nil {
		return fmt.Errorf("error writing cache entry %s/%s: %w", unit, actionID, err)
	}
	return nil
}

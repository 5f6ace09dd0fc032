package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Jeffail/gabs/v2"
	"github.com/pelletier/go-toml/v2"
)

// SecretsFile is the one file in the config directory that is not a unit.
const SecretsFile = ".secrets.toml"

// App holds every configured unit with secrets already revealed, ordered by
// unit name so runs are deterministic.
type App struct {
	Units []*Unit
}

// NewApp loads the secret store and every unit file in configDir. Any
// decode, validation, or secret-lookup failure aborts loading entirely.
func NewApp(configDir string) (*App, error) {
	secrets, err := loadSecrets(configDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("error reading config directory: %w", err)
	}

	app := &App{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == SecretsFile {
			continue
		}
		switch filepath.Ext(name) {
		case ".toml", ".yaml", ".yml":
		default:
			continue
		}

		unit, err := LoadUnit(filepath.Join(configDir, name))
		if err != nil {
			return nil, err
		}
		revealed, err := RevealSecrets(unit, secrets)
		if err != nil {
			return nil, err
		}
		app.Units = append(app.Units, revealed)
	}

	sort.Slice(app.Units, func(i, j int) bool { return app.Units[i].Name < app.Units[j].Name })
	return app, nil
}

// Unit returns the named unit, or nil when it is not configured.
func (a *App) Unit(name string) *Unit {
	for _, u := range a.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Select returns the units to run: all of them when names is empty,
// otherwise exactly the named ones in the given order.
func (a *App) Select(names []string) ([]*Unit, error) {
	if len(names) == 0 {
		return a.Units, nil
	}
	units := make([]*Unit, 0, len(names))
	for _, name := range names {
		unit := a.Unit(name)
		if unit == nil {
			return nil, &ConfigError{Unit: name, Detail: "unit not configured"}
		}
		units = append(units, unit)
	}
	return units, nil
}

// loadSecrets reads the optional secret store. A missing file yields an
// empty store, same as a config tree that uses no secrets.
func loadSecrets(configDir string) (*gabs.Container, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, SecretsFile))
	if os.IsNotExist(err) {
		return gabs.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading secrets file: %w", err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("error decoding secrets file: %w", err)
	}
	return gabs.Wrap(tree), nil
}

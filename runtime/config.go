package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Api describes the remote endpoint a unit talks to, the defaults every
// action inherits, and the order its actions run in.
type Api struct {
	Base    string         `toml:"base" yaml:"base" validate:"required,url"`
	Params  map[string]any `toml:"params" yaml:"params"`
	Headers map[string]any `toml:"headers" yaml:"headers"`
	Flow    []string       `toml:"flow" yaml:"flow" validate:"required,min=1"`
}

// PaginationSpec declares multi-page retrieval for an action. Increment is
// an explicit field so its default is fixed once at load time instead of
// being inferred at use time. Max may itself be a template (for example a
// !jq query against a total count discovered on page 0), so it stays
// untyped until each iteration resolves it.
type PaginationSpec struct {
	Param     string `toml:"param" yaml:"param" validate:"required"`
	Merge     string `toml:"merge" yaml:"merge" validate:"required"`
	Increment int    `toml:"increment" yaml:"increment" default:"1" validate:"gte=1"`
	Max       any    `toml:"max" yaml:"max" validate:"required"`
}

// Action is one HTTP call specification within a unit. Params and Headers
// are merged over the Api-level defaults, with the action winning on key
// conflicts. JSON is the request body template for post actions and may
// carry !secret and !jq markers anywhere in its nested structure.
type Action struct {
	Method   string          `toml:"method" yaml:"method" validate:"required,oneof=get post"`
	Endpoint string          `toml:"endpoint" yaml:"endpoint" validate:"required"`
	Params   map[string]any  `toml:"params" yaml:"params"`
	Headers  map[string]any  `toml:"headers" yaml:"headers"`
	JSON     any             `toml:"json" yaml:"json"`
	MaxAge   int             `toml:"maxage" yaml:"maxage" default:"86400"`
	Paginate *PaginationSpec `toml:"paginate" yaml:"paginate"`
}

// Unit is a named, independently runnable configuration bundling an Api
// descriptor and its actions. The name is the config file stem. A unit is
// read-only after loading; resolvers always produce copies.
type Unit struct {
	Name    string             `toml:"-" yaml:"-"`
	Api     Api                `toml:"api" yaml:"api"`
	Actions map[string]*Action `toml:"action" yaml:"action" validate:"required,dive,required"`
}

// LoadUnit reads, decodes, defaults, and validates a single unit file.
func LoadUnit(path string) (*Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading unit file: %w", err)
	}

	var unit Unit
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		err = toml.Unmarshal(raw, &unit)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &unit)
	default:
		err = fmt.Errorf("unsupported unit format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding unit file %s: %w", path, err)
	}

	unit.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := prepareUnit(&unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// prepareUnit applies defaults, fills the header fallback, validates, and
// checks the flow's referential integrity.
func prepareUnit(unit *Unit) error {
	for id, action := range unit.Actions {
		if err := defaults.Set(action); err != nil {
			return fmt.Errorf("error applying defaults to action %s/%s: %w", unit.Name, id, err)
		}
	}

	if unit.Api.Headers == nil {
		unit.Api.Headers = map[string]any{"content-type": "application/json"}
	}

	if err := validate.Struct(unit); err != nil {
		return &ConfigError{Unit: unit.Name, Detail: err.Error()}
	}

	for _, id := range unit.Api.Flow {
		if _, ok := unit.Actions[id]; !ok {
			return &ConfigError{Unit: unit.Name, Detail: fmt.Sprintf("flow references unknown action %q", id)}
		}
	}

	for id, action := range unit.Actions {
		if action.Method == "post" && action.JSON == nil {
			return &ConfigError{Unit: unit.Name, Detail: fmt.Sprintf("action %q is post but has no json body", id)}
		}
	}
	return nil
}

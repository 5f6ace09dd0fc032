package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeUnitFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing unit file: %v", err)
	}
	return path
}

const minimalUnit = `
[api]
base = "https://api.example.com/v1/"
flow = ["current"]

[action.current]
method = "get"
endpoint = "current"
`

func TestLoadUnit_DefaultsAndName(t *testing.T) {
	unit, err := LoadUnit(writeUnitFile(t, "weather.toml", minimalUnit))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if unit.Name != "weather" {
		t.Errorf("name = %q, want weather", unit.Name)
	}
	if unit.Actions["current"].MaxAge != 86400 {
		t.Errorf("maxage = %d, want 86400", unit.Actions["current"].MaxAge)
	}
	if ct := unit.Api.Headers["content-type"]; ct != "application/json" {
		t.Errorf("default header = %v, want application/json", ct)
	}
}

func TestLoadUnit_PaginationDefaults(t *testing.T) {
	unit, err := LoadUnit(writeUnitFile(t, "list.toml", `
[api]
base = "https://api.example.com/"
flow = ["list"]

[action.list]
method = "get"
endpoint = "list"

[action.list.paginate]
param = "page"
merge = "items"
max = 5
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := unit.Actions["list"].Paginate
	if spec == nil {
		t.Fatal("paginate spec not decoded")
	}
	if spec.Increment != 1 {
		t.Errorf("increment = %d, want default 1", spec.Increment)
	}
	if n, ok := asInt(spec.Max); !ok || n != 5 {
		t.Errorf("max = %v, want 5", spec.Max)
	}
}

func TestLoadUnit_ExplicitHeadersKept(t *testing.T) {
	unit, err := LoadUnit(writeUnitFile(t, "u.toml", `
[api]
base = "https://api.example.com/"
flow = ["a"]

[api.headers]
accept = "text/plain"

[action.a]
method = "get"
endpoint = "a"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.Api.Headers["accept"] != "text/plain" {
		t.Errorf("headers = %v, want explicit accept header", unit.Api.Headers)
	}
	if _, ok := unit.Api.Headers["content-type"]; ok {
		t.Error("default content-type injected despite explicit headers")
	}
}

func TestLoadUnit_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "flow references unknown action",
			content: `
[api]
base = "https://api.example.com/"
flow = ["missing"]

[action.current]
method = "get"
endpoint = "current"
`,
		},
		{
			name: "invalid method",
			content: `
[api]
base = "https://api.example.com/"
flow = ["a"]

[action.a]
method = "delete"
endpoint = "a"
`,
		},
		{
			name: "post without body",
			content: `
[api]
base = "https://api.example.com/"
flow = ["a"]

[action.a]
method = "post"
endpoint = "a"
`,
		},
		{
			name: "paginate missing merge",
			content: `
[api]
base = "https://api.example.com/"
flow = ["a"]

[action.a]
method = "get"
endpoint = "a"

[action.a.paginate]
param = "page"
max = 2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadUnit(writeUnitFile(t, "bad.toml", tt.content))
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("err = %v, want ConfigError", err)
			}
		})
	}
}

func TestLoadUnit_YAMLUnit(t *testing.T) {
	unit, err := LoadUnit(writeUnitFile(t, "billing.yaml", `
api:
  base: https://billing.example.com/
  flow: [invoices]
action:
  invoices:
    method: get
    endpoint: invoices
    maxage: 600
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.Name != "billing" {
		t.Errorf("name = %q, want billing", unit.Name)
	}
	if unit.Actions["invoices"].MaxAge != 600 {
		t.Errorf("maxage = %d, want 600", unit.Actions["invoices"].MaxAge)
	}
}

func TestNewApp_LoadsUnitsAndSecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SecretsFile), []byte("[weather]\nkey = \"sekrit\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "weather.toml"), []byte(`
[api]
base = "https://api.example.com/"
flow = ["current"]

[api.params]
key = "!secret weather.key"

[action.current]
method = "get"
endpoint = "current"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(app.Units) != 1 {
		t.Fatalf("loaded %d units, want 1", len(app.Units))
	}
	if app.Units[0].Api.Params["key"] != "sekrit" {
		t.Errorf("secret not revealed: %v", app.Units[0].Api.Params)
	}
}

func TestAppSelect(t *testing.T) {
	app := &App{Units: []*Unit{{Name: "a"}, {Name: "b"}}}

	all, err := app.Select(nil)
	if err != nil || len(all) != 2 {
		t.Errorf("Select(nil) = %v, %v; want both units", all, err)
	}

	some, err := app.Select([]string{"b"})
	if err != nil || len(some) != 1 || some[0].Name != "b" {
		t.Errorf("Select(b) = %v, %v; want unit b", some, err)
	}

	_, err = app.Select([]string{"nope"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("err = %v, want ConfigError", err)
	}
}

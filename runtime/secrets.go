package runtime

import (
	"fmt"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// MagicSecret marks a string leaf as a dot-separated lookup into the secret
// store, e.g. "!secret weather.key".
const MagicSecret = "!secret"

// RevealSecrets returns a copy of unit with every !secret leaf replaced by
// the value at its dotted path in the store. It runs exactly once per unit,
// at load time, before any request is built. A missing path aborts the load
// with SecretNotFoundError; there is no partial substitution.
func RevealSecrets(unit *Unit, secrets *gabs.Container) (*Unit, error) {
	reveal := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || !strings.Contains(s, MagicSecret) {
			return v, nil
		}
		path := strings.TrimSpace(strings.ReplaceAll(s, MagicSecret, ""))
		if !secrets.ExistsP(path) {
			return nil, &SecretNotFoundError{Path: path}
		}
		return secrets.Path(path).Data(), nil
	}

	revealString := func(s, field string) (string, error) {
		v, err := reveal(s)
		if err != nil {
			return "", err
		}
		out, ok := v.(string)
		if !ok {
			return "", &ConfigError{Unit: unit.Name, Detail: fmt.Sprintf("%s must resolve to a string, got %T", field, v)}
		}
		return out, nil
	}

	out := &Unit{
		Name:    unit.Name,
		Api:     unit.Api,
		Actions: make(map[string]*Action, len(unit.Actions)),
	}

	var err error
	if out.Api.Base, err = revealString(unit.Api.Base, "api.base"); err != nil {
		return nil, err
	}
	if out.Api.Params, err = revealMap(unit.Api.Params, reveal); err != nil {
		return nil, err
	}
	if out.Api.Headers, err = revealMap(unit.Api.Headers, reveal); err != nil {
		return nil, err
	}
	out.Api.Flow = append([]string(nil), unit.Api.Flow...)

	for id, action := range unit.Actions {
		a := *action
		if a.Endpoint, err = revealString(action.Endpoint, fmt.Sprintf("action %q endpoint", id)); err != nil {
			return nil, err
		}
		if a.Params, err = revealMap(action.Params, reveal); err != nil {
			return nil, err
		}
		if a.Headers, err = revealMap(action.Headers, reveal); err != nil {
			return nil, err
		}
		if action.JSON != nil {
			if a.JSON, err = WalkValue(action.JSON, reveal); err != nil {
				return nil, err
			}
		}
		if action.Paginate != nil {
			spec := *action.Paginate
			a.Paginate = &spec
		}
		out.Actions[id] = &a
	}
	return out, nil
}

func revealMap(m map[string]any, fn func(any) (any, error)) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	v, err := WalkValue(m, fn)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Executor runs units strictly in order, and within a unit runs actions in
// flow order, committing each result to the data store so later actions'
// templates can reference it. That ordering is a correctness requirement,
// not an optimization.
type Executor struct {
	l      *slog.Logger
	client *resty.Client
	cache  *CacheManager
	store  *DataStore
	eval   *ExpressionEvaluator
}

func NewExecutor(l *slog.Logger, client *resty.Client, cache *CacheManager, store *DataStore) *Executor {
	return &Executor{
		l:      l,
		client: client,
		cache:  cache,
		store:  store,
		eval:   NewExpressionEvaluator(store),
	}
}

// Run executes the given units. Any failure aborts the whole run; cache
// files already written by earlier actions stay in place.
func (e *Executor) Run(ctx context.Context, units []*Unit) error {
	runID := uuid.New().String()
	e.l.Info("Starting run", "run_id", runID, "units", len(units))

	for _, unit := range units {
		for _, actionID := range unit.Api.Flow {
			action, ok := unit.Actions[actionID]
			if !ok {
				return &ConfigError{Unit: unit.Name, Detail: fmt.Sprintf("flow references unknown action %q", actionID)}
			}
			if err := e.ExecuteAction(ctx, unit, actionID, action); err != nil {
				return fmt.Errorf("error executing action %s/%s: %w", unit.Name, actionID, err)
			}
		}
	}
	return nil
}

// ExecuteAction drives one action through its cache/fetch state machine:
// a cache entry no older than the action's max-age is restored as-is,
// anything else is fetched, persisted, and committed to the data store.
func (e *Executor) ExecuteAction(ctx context.Context, unit *Unit, actionID string, action *Action) error {
	threshold := time.Duration(action.MaxAge) * time.Second

	age, exists := e.cache.Age(unit.Name, actionID)
	if exists && age <= threshold {
		e.l.Info("Restoring from cache", "unit", unit.Name, "action", actionID, "age", age.Round(time.Second))
		v, err := e.cache.Restore(unit.Name, actionID)
		if err != nil {
			return err
		}
		return e.store.Set(actionID, v)
	}
	if exists {
		e.l.Info("Cache entry outdated", "unit", unit.Name, "action", actionID, "age", age.Round(time.Second), "maxage", threshold)
	}

	e.l.Info("Fetching", "unit", unit.Name, "action", actionID)
	result, err := e.fetch(ctx, unit, actionID, action)
	if err != nil {
		return err
	}
	if err := e.cache.Save(unit.Name, actionID, result); err != nil {
		return err
	}
	e.l.Info("Cached result", "unit", unit.Name, "action", actionID)
	return e.store.Set(actionID, result)
}

// fetch builds the request template by merging api defaults with action
// overrides and drives the pagination loop. Expressions are re-resolved
// from the untouched templates on every iteration because earlier pages'
// results may feed later pages' parameters and even the bound itself.
func (e *Executor) fetch(ctx context.Context, unit *Unit, actionID string, action *Action) (any, error) {
	target, err := joinURL(unit.Api.Base, action.Endpoint)
	if err != nil {
		return nil, &ConfigError{Unit: unit.Name, Detail: fmt.Sprintf("action %q: %v", actionID, err)}
	}

	params := mergeMaps(unit.Api.Params, action.Params)
	headers := mergeMaps(unit.Api.Headers, action.Headers)

	var accumulated any
	pageIndex := 0
	for {
		page, err := e.fetchPage(ctx, action, target, params, headers, pageIndex)
		if err != nil {
			return nil, err
		}

		if pageIndex == 0 {
			accumulated = page
		} else {
			accumulated, err = mergePages(unit.Name, actionID, action.Paginate.Merge, accumulated, page)
			if err != nil {
				return nil, err
			}
		}
		// Commit the provisional value so the next iteration's expressions
		// can reference this action's own partial result.
		if err := e.store.Set(actionID, accumulated); err != nil {
			return nil, err
		}

		spec := action.Paginate
		if spec == nil {
			return accumulated, nil
		}

		max, err := e.resolveMax(unit.Name, actionID, spec)
		if err != nil {
			return nil, err
		}
		pageIndex += spec.Increment
		if pageIndex >= max {
			return accumulated, nil
		}
	}
}

// fetchPage resolves the request templates against the current data store,
// issues one request, and parses the response body as JSON.
func (e *Executor) fetchPage(ctx context.Context, action *Action, target string, params, headers map[string]any, pageIndex int) (any, error) {
	resolvedParams, err := e.resolveMap(params)
	if err != nil {
		return nil, err
	}
	resolvedHeaders, err := e.resolveMap(headers)
	if err != nil {
		return nil, err
	}
	if action.Paginate != nil && pageIndex > 0 {
		resolvedParams[action.Paginate.Param] = pageIndex
	}

	queryParams, err := ToStringValueMap(resolvedParams)
	if err != nil {
		return nil, err
	}
	headerMap, err := ToStringValueMap(resolvedHeaders)
	if err != nil {
		return nil, err
	}

	req := e.client.R().
		SetContext(ctx).
		SetHeaders(headerMap).
		SetQueryParams(queryParams)

	if action.Method == "post" {
		body, err := e.eval.Resolve(action.JSON)
		if err != nil {
			return nil, err
		}
		req.SetBody(body)
	}

	resp, err := req.Execute(strings.ToUpper(action.Method), target)
	if err != nil {
		return nil, fmt.Errorf("transport error requesting %s: %w", target, err)
	}
	if resp.IsError() {
		return nil, &HTTPStatusError{URL: target, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	var page any
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("error decoding response from %s: %w", target, err)
	}
	return page, nil
}

func (e *Executor) resolveMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	v, err := e.eval.Resolve(m)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// resolveMax evaluates the pagination bound, which may itself be templated
// (a total count discovered on page 0, for example).
func (e *Executor) resolveMax(unitName, actionID string, spec *PaginationSpec) (int, error) {
	v, err := e.eval.Resolve(spec.Max)
	if err != nil {
		return 0, err
	}
	max, ok := asInt(v)
	if !ok {
		return 0, &ConfigError{Unit: unitName, Detail: fmt.Sprintf("action %q: pagination max resolved to %T, want a number", actionID, v)}
	}
	return max, nil
}

// mergePages folds a later page into the accumulated result: the merge
// field's lists are concatenated previous-then-new with no deduplication,
// and every other field of the new page shallowly overwrites the
// accumulated object, so later pages' non-list fields win.
func mergePages(unitName, actionID, mergeKey string, accumulated, page any) (any, error) {
	accObj, ok := accumulated.(map[string]any)
	if !ok {
		return nil, &ConfigError{Unit: unitName, Detail: fmt.Sprintf("action %q: accumulated result is %T, pagination requires an object", actionID, accumulated)}
	}
	pageObj, ok := page.(map[string]any)
	if !ok {
		return nil, &ConfigError{Unit: unitName, Detail: fmt.Sprintf("action %q: page result is %T, pagination requires an object", actionID, page)}
	}
	accList, ok := accObj[mergeKey].([]any)
	if !ok {
		return nil, &ConfigError{Unit: unitName, Detail: fmt.Sprintf("action %q: merge field %q is missing or not a list in the accumulated result", actionID, mergeKey)}
	}
	pageList, ok := pageObj[mergeKey].([]any)
	if !ok {
		return nil, &ConfigError{Unit: unitName, Detail: fmt.Sprintf("action %q: merge field %q is missing or not a list in the new page", actionID, mergeKey)}
	}

	merged := make(map[string]any, len(accObj)+len(pageObj))
	for k, v := range accObj {
		merged[k] = v
	}
	for k, v := range pageObj {
		merged[k] = v
	}
	combined := make([]any, 0, len(accList)+len(pageList))
	combined = append(combined, accList...)
	combined = append(combined, pageList...)
	merged[mergeKey] = combined
	return merged, nil
}

// mergeMaps overlays action-level values on api-level defaults; the action
// wins on key conflict. Inputs are untouched.
func mergeMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// joinURL resolves endpoint against base with RFC 3986 reference
// resolution, so trailing slashes on the base behave like a browser would
// treat them.
func joinURL(base, endpoint string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return b.ResolveReference(ref).String(), nil
}

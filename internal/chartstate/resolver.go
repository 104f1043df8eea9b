// Package chartstate turns raw chart query parameters into one canonical,
// constraint-satisfying configuration.
//
// Resolution seeds field defaults, overlays the selected view's defaults,
// applies the caller's decoded parameters, then runs the active constraints
// in priority order until a pass changes nothing. Identical inputs always
// produce an identical State, which is what makes the State usable as a
// cache key.
package chartstate

import (
	"context"
	"net/url"
	"slices"
	"sort"

	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

// MaxPasses bounds the constraint loop so that conflicting constraints cannot
// hang a request.
const MaxPasses = 10

// Overrides is the set of fields the caller supplied explicitly.
type Overrides map[Field]struct{}

func (o Overrides) Has(f Field) bool {
	_, ok := o[f]
	return ok
}

// Fields returns the overridden field names in sorted order.
func (o Overrides) Fields() []Field {
	out := make([]Field, 0, len(o))
	for f := range o {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// ChangeLogEntry records one constraint-driven change.
type ChangeLogEntry struct {
	Field    Field    `json:"field"`
	Before   any      `json:"before"`
	After    any      `json:"after"`
	Reason   string   `json:"reason"`
	Priority Priority `json:"priority"`
}

type Result struct {
	State     State
	View      ViewType
	Overrides Overrides
	Log       []ChangeLogEntry
	Passes    int
	Converged bool
}

type Resolver struct {
	reg *Registry
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{reg: reg}
}

func (r *Resolver) Registry() *Registry { return r.reg }

// DetermineView picks the view from the reserved parameters: an explicit,
// known view id wins, then the boolean shorthands in registry order, then the
// default view.
func (r *Resolver) DetermineView(raw url.Values) ViewType {
	if id := ViewType(raw.Get(ParamView)); id != "" {
		if _, ok := r.reg.views[id]; ok {
			return id
		}
	}
	for _, id := range r.reg.flagOrder {
		if raw.Get(r.reg.views[id].URLParam) == "1" {
			return id
		}
	}
	return r.reg.defaultView
}

// Resolve determines the view from raw and resolves against it.
func (r *Resolver) Resolve(ctx context.Context, raw url.Values) Result {
	return r.ResolveView(ctx, raw, r.DetermineView(raw))
}

// ResolveView resolves raw against a specific view. Unknown parameters are
// ignored and malformed values leave the default in place. It always returns;
// failing to converge is logged and the last computed state is returned.
func (r *Resolver) ResolveView(ctx context.Context, raw url.Values, view ViewType) Result {
	vc, ok := r.reg.views[view]
	if !ok {
		view = r.reg.defaultView
		vc = r.reg.views[view]
	}

	values := make(map[Field]any, len(r.reg.fields))
	for _, f := range r.reg.fields {
		values[f.Name] = cloneValue(f.Default)
	}
	values[FieldView] = string(view)
	for _, a := range vc.Defaults {
		values[a.Field] = cloneValue(a.Value)
	}

	overrides := make(Overrides)
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec, ok := r.reg.byKey[k]
		if !ok {
			continue
		}
		v, ok := spec.Decode(raw[k])
		if !ok {
			continue
		}
		values[spec.Name] = v
		overrides[spec.Name] = struct{}{}
	}

	active := make([]Constraint, 0, len(r.reg.global)+len(vc.Constraints))
	active = append(active, r.reg.global...)
	active = append(active, vc.Constraints...)
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	state := State{values: values}
	var changes []ChangeLogEntry
	passes := 0
	converged := false
	for passes < MaxPasses {
		passes++
		changed := false
		for _, c := range active {
			if !c.Predicate(state) {
				continue
			}
			for _, a := range c.Patch {
				if c.Priority.yields(overrides.Has(a.Field)) {
					continue
				}
				before := values[a.Field]
				if valuesEqual(before, a.Value) {
					continue
				}
				values[a.Field] = cloneValue(a.Value)
				changes = append(changes, ChangeLogEntry{
					Field:    a.Field,
					Before:   before,
					After:    a.Value,
					Reason:   c.Reason,
					Priority: c.Priority,
				})
				changed = true
			}
		}
		if !changed {
			converged = true
			break
		}
	}

	if !converged {
		logger.FromContext(ctx).Error("constraint resolution did not converge",
			"view", view,
			"passes", passes,
			"changes", len(changes))
	}

	return Result{
		State:     state.clone(),
		View:      view,
		Overrides: overrides,
		Log:       changes,
		Passes:    passes,
		Converged: converged,
	}
}

func cloneValue(v any) any {
	if l, ok := v.([]string); ok {
		return slices.Clone(l)
	}
	return v
}

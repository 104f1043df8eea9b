package chartstate

import (
	"fmt"
	"net/url"
)

// Registry is the static field and view table. It is built once at startup
// and only read afterwards.
type Registry struct {
	fields      []FieldSpec
	byName      map[Field]FieldSpec
	byKey       map[string]FieldSpec
	views       map[ViewType]ViewConfig
	flagOrder   []ViewType
	global      []Constraint
	defaultView ViewType
}

// NewRegistry validates and indexes a field/view table. flagOrder is the
// precedence of the boolean view shorthands, highest first.
func NewRegistry(fields []FieldSpec, views []ViewConfig, global []Constraint, defaultView ViewType, flagOrder []ViewType) (*Registry, error) {
	r := &Registry{
		fields:      fields,
		byName:      make(map[Field]FieldSpec, len(fields)),
		byKey:       make(map[string]FieldSpec, len(fields)),
		views:       make(map[ViewType]ViewConfig, len(views)),
		flagOrder:   flagOrder,
		global:      global,
		defaultView: defaultView,
	}

	for _, f := range fields {
		if _, dup := r.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if !f.accepts(f.Default) {
			return nil, fmt.Errorf("field %q: default %v is not a valid %s", f.Name, f.Default, f.Kind)
		}
		r.byName[f.Name] = f
		if f.URLKey == "" {
			continue
		}
		if f.URLKey == ParamView || f.URLKey == ParamExcess || f.URLKey == ParamZScore {
			return nil, fmt.Errorf("field %q uses reserved url key %q", f.Name, f.URLKey)
		}
		if _, dup := r.byKey[f.URLKey]; dup {
			return nil, fmt.Errorf("duplicate url key %q", f.URLKey)
		}
		r.byKey[f.URLKey] = f
	}
	if _, ok := r.byName[FieldView]; !ok {
		return nil, fmt.Errorf("registry must declare the %q field", FieldView)
	}

	if err := r.validateConstraints("global", global); err != nil {
		return nil, err
	}
	for _, v := range views {
		if _, dup := r.views[v.ID]; dup {
			return nil, fmt.Errorf("duplicate view %q", v.ID)
		}
		if err := r.validatePatch(fmt.Sprintf("view %q defaults", v.ID), v.Defaults); err != nil {
			return nil, err
		}
		if err := r.validateConstraints(fmt.Sprintf("view %q", v.ID), v.Constraints); err != nil {
			return nil, err
		}
		r.views[v.ID] = v
	}
	if _, ok := r.views[defaultView]; !ok {
		return nil, fmt.Errorf("default view %q is not registered", defaultView)
	}
	for _, id := range flagOrder {
		v, ok := r.views[id]
		if !ok || v.URLParam == "" {
			return nil, fmt.Errorf("view %q in flag order has no url flag", id)
		}
	}
	return r, nil
}

func (r *Registry) validateConstraints(scope string, cs []Constraint) error {
	for i, c := range cs {
		if !c.Priority.valid() {
			return fmt.Errorf("%s constraint %d (%q): invalid priority %s", scope, i, c.Reason, c.Priority)
		}
		if c.Predicate == nil {
			return fmt.Errorf("%s constraint %d (%q): missing predicate", scope, i, c.Reason)
		}
		if err := r.validatePatch(fmt.Sprintf("%s constraint %q", scope, c.Reason), c.Patch); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) validatePatch(scope string, p Patch) error {
	for _, a := range p {
		spec, ok := r.byName[a.Field]
		if !ok {
			return fmt.Errorf("%s: unknown field %q", scope, a.Field)
		}
		if !spec.accepts(a.Value) {
			return fmt.Errorf("%s: %v is not a valid %s for %q", scope, a.Value, spec.Kind, a.Field)
		}
	}
	return nil
}

// Field returns the spec for a field name.
func (r *Registry) Field(name Field) (FieldSpec, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// FieldByKey returns the spec for a query parameter key.
func (r *Registry) FieldByKey(key string) (FieldSpec, bool) {
	f, ok := r.byKey[key]
	return f, ok
}

// View returns the configuration for a view id.
func (r *Registry) View(id ViewType) (ViewConfig, bool) {
	v, ok := r.views[id]
	return v, ok
}

func (r *Registry) DefaultView() ViewType { return r.defaultView }

// Encode renders s as query parameters that resolve back to s. String fields
// carry their own escaping, as chart URLs do.
func (r *Registry) Encode(s State) url.Values {
	return r.values(s, FieldSpec.Encode)
}

// Params renders s with plain values, for services that read the state
// rather than resolve it again.
func (r *Registry) Params(s State) url.Values {
	return r.values(s, FieldSpec.plain)
}

func (r *Registry) values(s State, encode func(FieldSpec, any) []string) url.Values {
	out := url.Values{}
	out.Set(ParamView, string(s.View()))
	for _, f := range r.fields {
		if f.URLKey == "" {
			continue
		}
		v, ok := s.values[f.Name]
		if !ok {
			continue
		}
		if enc := encode(f, v); len(enc) > 0 {
			out[f.URLKey] = enc
		}
	}
	return out
}

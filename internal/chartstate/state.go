package chartstate

import "slices"

// State is a fully resolved chart configuration. A State returned by the
// resolver is never modified; callers get copies of list values.
type State struct {
	values map[Field]any
}

func (s State) Get(f Field) (any, bool) {
	v, ok := s.values[f]
	if l, isList := v.([]string); isList {
		return slices.Clone(l), ok
	}
	return v, ok
}

func (s State) Bool(f Field) bool {
	b, _ := s.values[f].(bool)
	return b
}

func (s State) String(f Field) string {
	str, _ := s.values[f].(string)
	return str
}

func (s State) List(f Field) []string {
	l, _ := s.values[f].([]string)
	return slices.Clone(l)
}

func (s State) View() ViewType {
	return ViewType(s.String(FieldView))
}

// Map returns a copy of the state keyed by field name, suitable for hashing
// and JSON output.
func (s State) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for f, v := range s.values {
		if l, ok := v.([]string); ok {
			v = slices.Clone(l)
		}
		out[string(f)] = v
	}
	return out
}

// Equal reports whether both states hold the same fields and values.
func (s State) Equal(o State) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for f, v := range s.values {
		ov, ok := o.values[f]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	values := make(map[Field]any, len(s.values))
	for f, v := range s.values {
		if l, ok := v.([]string); ok {
			v = slices.Clone(l)
		}
		values[f] = v
	}
	return State{values: values}
}

func valuesEqual(a, b any) bool {
	la, aList := a.([]string)
	lb, bList := b.([]string)
	if aList || bList {
		return aList && bList && slices.Equal(la, lb)
	}
	return a == b
}

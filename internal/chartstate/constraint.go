package chartstate

import "fmt"

// Priority orders constraints and decides whether explicit user input can
// shield a field from them.
type Priority uint8

const (
	// Soft constraints supply a value only for fields the caller did not set.
	Soft Priority = iota
	// Normal constraints enforce derived invariants and ignore user input.
	Normal
	// Hard constraints always apply, even over explicit user input.
	Hard
)

func (p Priority) String() string {
	switch p {
	case Soft:
		return "soft"
	case Normal:
		return "normal"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

func (p Priority) valid() bool {
	switch p {
	case Soft, Normal, Hard:
		return true
	default:
		return false
	}
}

// yields reports whether a constraint of this priority must leave a field
// alone because the caller supplied it.
func (p Priority) yields(overridden bool) bool {
	switch p {
	case Soft:
		return overridden
	case Normal, Hard:
		return false
	default:
		// rejected by NewRegistry
		return false
	}
}

// Assign sets one field to a value.
type Assign struct {
	Field Field
	Value any
}

// Patch is an ordered list of assignments; order fixes change-log order.
type Patch []Assign

// Constraint rewrites fields whenever its predicate holds. Constraints hold no
// per-request state and are shared across requests.
type Constraint struct {
	Reason    string
	Priority  Priority
	Predicate func(State) bool
	Patch     Patch
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

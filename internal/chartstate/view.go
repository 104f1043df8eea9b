package chartstate

import "slices"

// ViewType names a bundle of defaults and constraints.
type ViewType string

const (
	ViewMortality ViewType = "mortality"
	ViewExcess    ViewType = "excess"
	ViewZScore    ViewType = "zscore"
)

// Reserved query parameters that select the view rather than set a field.
const (
	ParamView   = "view"
	ParamExcess = "e"
	ParamZScore = "zs"
)

// ViewConfig selects defaults and extra constraints for one view. URLParam is
// the boolean shorthand flag that selects the view, if any.
type ViewConfig struct {
	ID                ViewType
	URLParam          string
	Defaults          Patch
	Constraints       []Constraint
	CompatibleMetrics []string
}

// Compatible reports whether metric can be shown in this view. An empty list
// allows every metric.
func (v ViewConfig) Compatible(metric string) bool {
	return len(v.CompatibleMetrics) == 0 || slices.Contains(v.CompatibleMetrics, metric)
}

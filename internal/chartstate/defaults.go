package chartstate

import "slices"

// Metric types.
const (
	TypeCMR        = "cmr"
	TypeASMR       = "asmr"
	TypeDeaths     = "deaths"
	TypePopulation = "population"
	TypeLE         = "le"
)

// Chart styles.
const (
	StyleLine   = "line"
	StyleBar    = "bar"
	StyleMatrix = "matrix"
)

var fields = []FieldSpec{
	{Name: FieldView, Kind: KindEnum, Allowed: []string{string(ViewMortality), string(ViewExcess), string(ViewZScore)}, Default: string(ViewMortality)},
	{Name: FieldIsExcess, Kind: KindBool, Default: false},
	{Name: FieldIsZScore, Kind: KindBool, Default: false},

	{Name: FieldCountries, URLKey: "c", Kind: KindList, Default: []string{"USA"}},
	{Name: FieldType, URLKey: "t", Kind: KindEnum, Allowed: []string{TypeCMR, TypeASMR, TypeDeaths, TypePopulation, TypeLE}, Default: TypeCMR},
	{Name: FieldChartType, URLKey: "ct", Kind: KindEnum, Allowed: []string{"yearly", "midyear", "fluseason", "quarterly", "monthly", "weekly"}, Default: "yearly"},
	{Name: FieldChartStyle, URLKey: "cs", Kind: KindEnum, Allowed: []string{StyleLine, StyleBar, StyleMatrix}, Default: StyleLine},
	{Name: FieldAgeGroups, URLKey: "ag", Kind: KindList, Default: []string{"all"}},
	{Name: FieldStandardPopulation, URLKey: "sp", Kind: KindEnum, Allowed: []string{"who", "esp", "usa", "country"}, Default: "who"},
	{Name: FieldBaselineMethod, URLKey: "bm", Kind: KindEnum, Allowed: []string{"naive", "mean", "median", "lin_reg", "exp"}, Default: "lin_reg"},
	{Name: FieldBaselineDateFrom, URLKey: "bf", Kind: KindString, Default: ""},
	{Name: FieldBaselineDateTo, URLKey: "bt", Kind: KindString, Default: ""},
	{Name: FieldDateFrom, URLKey: "df", Kind: KindString, Default: ""},
	{Name: FieldDateTo, URLKey: "dt", Kind: KindString, Default: ""},

	{Name: FieldShowBaseline, URLKey: "sb", Kind: KindBool, Default: true},
	{Name: FieldShowPredictionInterval, URLKey: "pi", Kind: KindBool, Default: true},
	{Name: FieldShowPercentage, URLKey: "p", Kind: KindBool, Default: false},
	{Name: FieldCumulative, URLKey: "ce", Kind: KindBool, Default: false},
	{Name: FieldShowTotal, URLKey: "st", Kind: KindBool, Default: false},
	{Name: FieldMaximize, URLKey: "m", Kind: KindBool, Default: false},
	{Name: FieldShowLabels, URLKey: "sl", Kind: KindBool, Default: true},
	{Name: FieldShowLogarithmic, URLKey: "lg", Kind: KindBool, Default: false},
	{Name: FieldDarkMode, URLKey: "dm", Kind: KindBool, Default: false},
}

func isType(types ...string) func(State) bool {
	return func(s State) bool { return slices.Contains(types, s.String(FieldType)) }
}

func not(pred func(State) bool) func(State) bool {
	return func(s State) bool { return !pred(s) }
}

func flag(f Field) func(State) bool {
	return func(s State) bool { return s.Bool(f) }
}

func style(styles ...string) func(State) bool {
	return func(s State) bool { return slices.Contains(styles, s.String(FieldChartStyle)) }
}

// Global constraints apply in every view. Within a priority they run in
// declaration order.
var globalConstraints = []Constraint{
	{
		Reason:    "population is a raw count without baseline or excess",
		Priority:  Hard,
		Predicate: isType(TypePopulation),
		Patch: Patch{
			{FieldIsExcess, false},
			{FieldIsZScore, false},
			{FieldShowBaseline, false},
			{FieldShowPredictionInterval, false},
		},
	},
	{
		Reason:    "standard population only applies to age-standardized rates",
		Priority:  Normal,
		Predicate: not(isType(TypeASMR)),
		Patch:     Patch{{FieldStandardPopulation, "who"}},
	},
	{
		Reason:    "cumulative and percentage values only exist for excess",
		Priority:  Normal,
		Predicate: not(flag(FieldIsExcess)),
		Patch:     Patch{{FieldCumulative, false}, {FieldShowPercentage, false}},
	},
	{
		Reason:    "totals require cumulative values",
		Priority:  Normal,
		Predicate: not(flag(FieldCumulative)),
		Patch:     Patch{{FieldShowTotal, false}},
	},
	{
		Reason:    "prediction interval requires a baseline",
		Priority:  Normal,
		Predicate: not(flag(FieldShowBaseline)),
		Patch:     Patch{{FieldShowPredictionInterval, false}},
	},
	{
		Reason:    "matrix style has no interval band or log axis",
		Priority:  Normal,
		Predicate: style(StyleMatrix),
		Patch:     Patch{{FieldShowPredictionInterval, false}, {FieldShowLogarithmic, false}},
	},
	{
		Reason:   "prediction intervals are hidden on excess bars unless requested",
		Priority: Soft,
		Predicate: func(s State) bool {
			return s.Bool(FieldIsExcess) && s.String(FieldChartStyle) == StyleBar
		},
		Patch: Patch{{FieldShowPredictionInterval, false}},
	},
	{
		Reason:   "dense period axes hide point labels unless requested",
		Priority: Soft,
		Predicate: func(s State) bool {
			ct := s.String(FieldChartType)
			return ct == "weekly" || ct == "monthly"
		},
		Patch: Patch{{FieldShowLabels, false}},
	},
}

// incompatibleMetric falls back to the mortality view when the view cannot
// show the selected metric.
func incompatibleMetric(id ViewType, metrics []string) Constraint {
	return Constraint{
		Reason:   "metric is not available in the " + string(id) + " view",
		Priority: Hard,
		Predicate: func(s State) bool {
			return s.View() == id && !slices.Contains(metrics, s.String(FieldType))
		},
		Patch: Patch{
			{FieldView, string(ViewMortality)},
			{FieldIsExcess, false},
			{FieldIsZScore, false},
		},
	}
}

var excessMetrics = []string{TypeCMR, TypeASMR, TypeDeaths, TypeLE}

var zscoreMetrics = []string{TypeCMR, TypeASMR, TypeDeaths, TypeLE}

var views = []ViewConfig{
	{
		ID: ViewMortality,
		Defaults: Patch{
			{FieldView, string(ViewMortality)},
			{FieldIsExcess, false},
			{FieldIsZScore, false},
		},
	},
	{
		ID:       ViewExcess,
		URLParam: ParamExcess,
		Defaults: Patch{
			{FieldView, string(ViewExcess)},
			{FieldIsExcess, true},
			{FieldIsZScore, false},
			{FieldChartStyle, StyleBar},
			{FieldShowPercentage, true},
		},
		Constraints: []Constraint{
			incompatibleMetric(ViewExcess, excessMetrics),
			{
				Reason:    "excess is measured against a baseline",
				Priority:  Hard,
				Predicate: flag(FieldIsExcess),
				Patch:     Patch{{FieldShowBaseline, true}},
			},
			{
				Reason:    "excess and z-score are exclusive",
				Priority:  Normal,
				Predicate: flag(FieldIsExcess),
				Patch:     Patch{{FieldIsZScore, false}},
			},
		},
		CompatibleMetrics: excessMetrics,
	},
	{
		ID:       ViewZScore,
		URLParam: ParamZScore,
		Defaults: Patch{
			{FieldView, string(ViewZScore)},
			{FieldIsExcess, false},
			{FieldIsZScore, true},
			{FieldChartStyle, StyleLine},
		},
		Constraints: []Constraint{
			incompatibleMetric(ViewZScore, zscoreMetrics),
			{
				Reason:    "z-scores are computed from a baseline",
				Priority:  Hard,
				Predicate: flag(FieldIsZScore),
				Patch:     Patch{{FieldShowBaseline, true}, {FieldShowPercentage, false}, {FieldCumulative, false}},
			},
		},
		CompatibleMetrics: zscoreMetrics,
	},
}

// DefaultRegistry returns the built-in chart field and view table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(fields, views, globalConstraints, ViewMortality, []ViewType{ViewExcess, ViewZScore})
	if err != nil {
		panic("chartstate: invalid built-in registry: " + err.Error())
	}
	return r
}

package chartstate

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field names a configuration slot of a chart.
type Field string

const (
	FieldView                   Field = "view"
	FieldIsExcess               Field = "isExcess"
	FieldIsZScore               Field = "isZScore"
	FieldCountries              Field = "countries"
	FieldType                   Field = "type"
	FieldChartType              Field = "chartType"
	FieldChartStyle             Field = "chartStyle"
	FieldAgeGroups              Field = "ageGroups"
	FieldStandardPopulation     Field = "standardPopulation"
	FieldBaselineMethod         Field = "baselineMethod"
	FieldBaselineDateFrom       Field = "baselineDateFrom"
	FieldBaselineDateTo         Field = "baselineDateTo"
	FieldDateFrom               Field = "dateFrom"
	FieldDateTo                 Field = "dateTo"
	FieldShowBaseline           Field = "showBaseline"
	FieldShowPredictionInterval Field = "showPredictionInterval"
	FieldShowPercentage         Field = "showPercentage"
	FieldCumulative             Field = "cumulative"
	FieldShowTotal              Field = "showTotal"
	FieldMaximize               Field = "maximize"
	FieldShowLabels             Field = "showLabels"
	FieldShowLogarithmic        Field = "showLogarithmic"
	FieldDarkMode               Field = "darkMode"
)

// Kind is the semantic type of a field and selects its URL codec.
type Kind int

const (
	KindBool Kind = iota + 1
	KindEnum
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindList:
		return "string-list"
	default:
		return "unknown"
	}
}

const (
	maxListLen   = 32
	maxStringLen = 64
)

var listToken = regexp.MustCompile(`^[A-Za-z0-9_+\-]{1,32}$`)

// FieldSpec describes how a field is carried in a query string and what it
// defaults to. Fields with an empty URLKey are derived: only views and
// constraints set them.
type FieldSpec struct {
	Name    Field
	URLKey  string
	Kind    Kind
	Allowed []string
	Default any
}

// Decode parses the raw query values for the field. ok is false when the
// values are malformed; callers then keep the default.
func (f FieldSpec) Decode(values []string) (v any, ok bool) {
	if len(values) == 0 {
		return nil, false
	}
	switch f.Kind {
	case KindBool:
		switch values[len(values)-1] {
		case "1":
			return true, true
		case "0":
			return false, true
		}
		return nil, false
	case KindEnum:
		s := values[len(values)-1]
		if !slices.Contains(f.Allowed, s) {
			return nil, false
		}
		return s, true
	case KindString:
		s, err := url.QueryUnescape(values[len(values)-1])
		if err != nil || s == "" || len(s) > maxStringLen {
			return nil, false
		}
		return norm.NFC.String(s), true
	case KindList:
		var out []string
		for _, raw := range values {
			for _, tok := range strings.Split(raw, ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				if !listToken.MatchString(tok) {
					return nil, false
				}
				if !slices.Contains(out, tok) {
					out = append(out, tok)
				}
			}
		}
		if len(out) == 0 || len(out) > maxListLen {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// Encode renders v as query values that Decode maps back to v.
// Empty strings and empty lists encode to nothing.
func (f FieldSpec) Encode(v any) []string {
	switch f.Kind {
	case KindBool:
		if b, _ := v.(bool); b {
			return []string{"1"}
		}
		return []string{"0"}
	case KindEnum:
		s, _ := v.(string)
		return []string{s}
	case KindString:
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		return []string{url.QueryEscape(s)}
	case KindList:
		l, _ := v.([]string)
		if len(l) == 0 {
			return nil
		}
		return []string{strings.Join(l, ",")}
	}
	return nil
}

// plain is Encode without the extra escaping of string fields.
func (f FieldSpec) plain(v any) []string {
	if f.Kind == KindString {
		if s, _ := v.(string); s != "" {
			return []string{s}
		}
		return nil
	}
	return f.Encode(v)
}

// accepts reports whether v has the Go type (and, for enums, a value) the
// field can hold.
func (f FieldSpec) accepts(v any) bool {
	switch f.Kind {
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindEnum:
		s, ok := v.(string)
		return ok && slices.Contains(f.Allowed, s)
	case KindString:
		_, ok := v.(string)
		return ok
	case KindList:
		_, ok := v.([]string)
		return ok
	}
	return false
}

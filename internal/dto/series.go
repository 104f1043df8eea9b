package dto

// Series is one line (usually one country) of chart data as returned by the
// stats service. Optional slices are either empty or aligned with Values.
type Series struct {
	Name     string    `json:"name"`
	Values   []float64 `json:"values"`
	Baseline []float64 `json:"baseline,omitempty"`
	Lower    []float64 `json:"lower,omitempty"`
	Upper    []float64 `json:"upper,omitempty"`
}

// RawSeries is the chart data for one canonical state.
type RawSeries struct {
	Title  string   `json:"title"`
	Unit   string   `json:"unit"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

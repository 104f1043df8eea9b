// Package render draws resolved chart states as PNG images.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

const maxTicks = 12

var (
	ErrNoData      = errors.New("render: no data")
	ErrMisaligned  = errors.New("render: series not aligned with labels")
	errEmptySeries = errors.New("render: series has no values")
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

// Render draws data according to state at the size given by opts.
func (r *Renderer) Render(ctx context.Context, state chartstate.State, data dto.RawSeries, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(data); err != nil {
		return nil, err
	}

	opts = opts.Bounded()
	data = transform(ctx, state, data)
	th := themeFor(state.Bool(chartstate.FieldDarkMode))

	// bar charts carry a single series; anything else is drawn as lines
	if (state.String(chartstate.FieldChartStyle) == chartstate.StyleBar && len(data.Series) == 1) || len(data.Labels) == 1 {
		return renderBars(state, data, opts, th)
	}
	return renderLines(state, data, opts, th)
}

func validate(data dto.RawSeries) error {
	n := len(data.Labels)
	if n == 0 || len(data.Series) == 0 {
		return ErrNoData
	}
	for _, s := range data.Series {
		if len(s.Values) == 0 {
			return fmt.Errorf("%w: %q", errEmptySeries, s.Name)
		}
		for _, vs := range [][]float64{s.Values, s.Baseline, s.Lower, s.Upper} {
			if len(vs) != 0 && len(vs) != n {
				return fmt.Errorf("%w: %q has %d values for %d labels", ErrMisaligned, s.Name, len(vs), n)
			}
		}
	}
	return nil
}

// transform applies the value-level options (cumulative, logarithmic) to a copy of data.
func transform(ctx context.Context, state chartstate.State, data dto.RawSeries) dto.RawSeries {
	out := data
	out.Series = make([]dto.Series, len(data.Series))
	logScale := state.Bool(chartstate.FieldShowLogarithmic)
	if logScale && !allPositive(data) {
		logger.FromContext(ctx).Debug("logarithmic scale skipped for non-positive values")
		logScale = false
	}

	for i, s := range data.Series {
		c := dto.Series{Name: s.Name}
		c.Values = apply(s.Values, state.Bool(chartstate.FieldCumulative), logScale)
		c.Baseline = apply(s.Baseline, state.Bool(chartstate.FieldCumulative), logScale)
		c.Lower = apply(s.Lower, false, logScale)
		c.Upper = apply(s.Upper, false, logScale)
		out.Series[i] = c
	}
	if logScale {
		out.Unit = "log10 " + out.Unit
	}
	return out
}

func apply(vs []float64, cumulative, logScale bool) []float64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float64, len(vs))
	sum := 0.0
	for i, v := range vs {
		if cumulative {
			sum += v
			v = sum
		}
		if logScale {
			v = math.Log10(v)
		}
		out[i] = v
	}
	return out
}

func allPositive(data dto.RawSeries) bool {
	for _, s := range data.Series {
		for _, vs := range [][]float64{s.Values, s.Baseline, s.Lower, s.Upper} {
			for _, v := range vs {
				if v <= 0 {
					return false
				}
			}
		}
	}
	return true
}

func renderLines(state chartstate.State, data dto.RawSeries, opts Options, th theme) ([]byte, error) {
	n := len(data.Labels)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	showBaseline := state.Bool(chartstate.FieldShowBaseline)
	showPI := state.Bool(chartstate.FieldShowPredictionInterval)
	matrix := state.String(chartstate.FieldChartStyle) == chartstate.StyleMatrix

	var series []chart.Series
	for i, s := range data.Series {
		col := th.color(i)
		if showPI && len(s.Lower) == n && len(s.Upper) == n {
			band := chart.Style{StrokeColor: th.interval, StrokeWidth: 1}
			series = append(series,
				chart.ContinuousSeries{Name: s.Name + " PI lower", XValues: xs, YValues: s.Lower, Style: band},
				chart.ContinuousSeries{Name: s.Name + " PI upper", XValues: xs, YValues: s.Upper, Style: band},
			)
		}
		if showBaseline && len(s.Baseline) == n {
			series = append(series, chart.ContinuousSeries{
				Name:    s.Name + " baseline",
				XValues: xs,
				YValues: s.Baseline,
				Style:   chart.Style{StrokeColor: th.baseline, StrokeWidth: 1.5, StrokeDashArray: []float64{5, 5}},
			})
		}

		st := chart.Style{StrokeColor: col, StrokeWidth: 2}
		if matrix {
			st = chart.Style{StrokeColor: col, StrokeWidth: 0.5, DotColor: col, DotWidth: 3}
		}
		main := chart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: s.Values, Style: st}
		series = append(series, main)
		if state.Bool(chartstate.FieldShowLabels) {
			series = append(series, chart.LastValueAnnotationSeries(main, valueFormatter(state)))
		}
	}

	w, h := opts.Pixels()
	ch := chart.Chart{
		Title:      title(state, data),
		TitleStyle: th.textStyle(),
		Width:      w,
		Height:     h,
		DPI:        chart.DefaultDPI * float64(opts.DevicePixelRatio) * opts.Zoom,
		Background: chart.Style{FillColor: th.background, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     chart.Style{FillColor: th.background},
		XAxis: chart.XAxis{
			Style: th.textStyle(),
			Ticks: ticks(data.Labels),
			Range: &chart.ContinuousRange{Min: 0, Max: float64(n - 1)},
		},
		YAxis: chart.YAxis{
			Name:           data.Unit,
			NameStyle:      th.textStyle(),
			Style:          th.textStyle(),
			ValueFormatter: valueFormatter(state),
			Range:          yRange(state, data),
			GridMajorStyle: chart.Style{StrokeColor: th.grid, StrokeWidth: 1},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch, chart.Style{FillColor: th.background, FontColor: th.text, StrokeColor: th.grid})}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render line chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderBars(state chartstate.State, data dto.RawSeries, opts Options, th theme) ([]byte, error) {
	s := data.Series[0]
	n := len(data.Labels)
	step := tickStep(n)
	col := th.color(0)

	bars := make([]chart.Value, n)
	for i, v := range s.Values {
		label := ""
		if i%step == 0 {
			label = data.Labels[i]
		}
		bars[i] = chart.Value{Label: label, Value: v, Style: chart.Style{FillColor: col, StrokeColor: col}}
	}

	w, h := opts.Pixels()
	barWidth := max(1, (w-160)/(2*n))
	bc := chart.BarChart{
		Title:        title(state, data),
		TitleStyle:   th.textStyle(),
		Width:        w,
		Height:       h,
		DPI:          chart.DefaultDPI * float64(opts.DevicePixelRatio) * opts.Zoom,
		Background:   chart.Style{FillColor: th.background, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Canvas:       chart.Style{FillColor: th.background},
		BarWidth:     barWidth,
		BarSpacing:   barWidth,
		UseBaseValue: true,
		BaseValue:    0,
		XAxis:        th.textStyle(),
		YAxis: chart.YAxis{
			Style:          th.textStyle(),
			ValueFormatter: valueFormatter(state),
			Range:          yRange(state, data),
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

func title(state chartstate.State, data dto.RawSeries) string {
	if data.Title != "" {
		return data.Title
	}
	return fmt.Sprintf("%s, %s", strings.ToUpper(state.String(chartstate.FieldType)), strings.Join(state.List(chartstate.FieldCountries), ", "))
}

func tickStep(n int) int {
	return max(1, int(math.Ceil(float64(n)/maxTicks)))
}

func ticks(labels []string) []chart.Tick {
	step := tickStep(len(labels))
	out := make([]chart.Tick, 0, maxTicks+1)
	for i := 0; i < len(labels); i += step {
		out = append(out, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	return out
}

// yRange pins the axis at zero unless the chart is maximized or has negative values.
func yRange(state chartstate.State, data dto.RawSeries) chart.Range {
	if state.Bool(chartstate.FieldMaximize) {
		return nil
	}
	hi := 0.0
	for _, s := range data.Series {
		for _, vs := range [][]float64{s.Values, s.Baseline, s.Lower, s.Upper} {
			for _, v := range vs {
				if v < 0 {
					return nil
				}
				hi = math.Max(hi, v)
			}
		}
	}
	if hi == 0 {
		hi = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: hi * 1.05}
}

func valueFormatter(state chartstate.State) chart.ValueFormatter {
	pct := state.Bool(chartstate.FieldShowPercentage) && state.Bool(chartstate.FieldIsExcess)
	return func(v any) string {
		f, ok := v.(float64)
		if !ok {
			return fmt.Sprint(v)
		}
		if pct {
			return fmt.Sprintf("%.1f%%", f)
		}
		return fmt.Sprintf("%.1f", f)
	}
}

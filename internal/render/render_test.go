package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/pkg/helpers"
)

func resolve(t *testing.T, query string) chartstate.State {
	t.Helper()
	q, err := url.ParseQuery(query)
	require.NoError(t, err)
	return chartstate.NewResolver(chartstate.DefaultRegistry()).Resolve(helpers.TestCtx(), q).State
}

func sampleData() dto.RawSeries {
	return dto.RawSeries{
		Title:  "Crude mortality rate",
		Unit:   "deaths/100k",
		Labels: []string{"2017", "2018", "2019", "2020", "2021", "2022"},
		Series: []dto.Series{{
			Name:     "USA",
			Values:   []float64{860, 870, 865, 1030, 1050, 980},
			Baseline: []float64{855, 862, 869, 876, 883, 890},
			Lower:    []float64{830, 837, 844, 851, 858, 865},
			Upper:    []float64{880, 887, 894, 901, 908, 915},
		}},
	}
}

func decodeSize(t *testing.T, b []byte) image.Config {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	return cfg
}

func TestRender_Styles(t *testing.T) {
	opts := Options{Width: 400, Height: 250, DevicePixelRatio: 1, Zoom: 1}
	tests := []struct {
		name  string
		query string
	}{
		{"line", ""},
		{"line_dark_cumulative", "dm=1&e=1&cs=line&ce=1"},
		{"bar_excess", "e=1"},
		{"matrix", "cs=matrix"},
		{"log_maximized", "lg=1&m=1"},
	}
	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Render(context.Background(), resolve(t, tt.query), sampleData(), opts)
			require.NoError(t, err)
			cfg := decodeSize(t, b)
			assert.Equal(t, 400, cfg.Width)
			assert.Equal(t, 250, cfg.Height)
		})
	}
}

func TestRender_ScalesByDevicePixelRatio(t *testing.T) {
	b, err := New().Render(context.Background(), resolve(t, ""), sampleData(), Options{Width: 300, Height: 200, DevicePixelRatio: 2, Zoom: 1})
	require.NoError(t, err)
	cfg := decodeSize(t, b)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestRender_RejectsBadData(t *testing.T) {
	r := New()
	state := resolve(t, "")
	opts := Options{Width: 200, Height: 200, DevicePixelRatio: 1, Zoom: 1}

	_, err := r.Render(context.Background(), state, dto.RawSeries{}, opts)
	assert.ErrorIs(t, err, ErrNoData)

	bad := sampleData()
	bad.Series[0].Baseline = []float64{1}
	_, err = r.Render(context.Background(), state, bad, opts)
	assert.ErrorIs(t, err, ErrMisaligned)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, state, sampleData(), opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransform_CumulativeDoesNotMutateInput(t *testing.T) {
	data := sampleData()
	out := transform(helpers.TestCtx(), resolve(t, "e=1&ce=1"), data)
	assert.Equal(t, 860.0, data.Series[0].Values[0])
	assert.Equal(t, 860.0+870.0, out.Series[0].Values[1])
	assert.Equal(t, data.Series[0].Lower, out.Series[0].Lower)
}

func TestPlaceholder_StaysWithinPixelBudget(t *testing.T) {
	b, err := Placeholder(Options{Width: 2400, Height: 2400, DevicePixelRatio: 4, Zoom: 3}, false, PlaceholderMessage)
	require.NoError(t, err)
	cfg := decodeSize(t, b)
	assert.LessOrEqual(t, cfg.Width*cfg.Height, MaxPixels)
	assert.Equal(t, 2400, cfg.Width)
}

func TestPlaceholder(t *testing.T) {
	b, err := Placeholder(Options{Width: 320, Height: 200, DevicePixelRatio: 2, Zoom: 1}, true, PlaceholderMessage)
	require.NoError(t, err)
	cfg := decodeSize(t, b)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 400, cfg.Height)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	r, g, bl, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{18 * 0x101, 18 * 0x101, 18 * 0x101}, []uint32{r, g, bl})
}

package render

import (
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type theme struct {
	background drawing.Color
	text       drawing.Color
	grid       drawing.Color
	primary    []drawing.Color
	baseline   drawing.Color
	interval   drawing.Color
}

var (
	lightTheme = theme{
		background: drawing.ColorWhite,
		text:       drawing.ColorFromHex("333333"),
		grid:       drawing.ColorFromHex("e5e5e5"),
		primary: []drawing.Color{
			chart.ColorBlue, chart.ColorRed, chart.ColorGreen, chart.ColorOrange, chart.ColorCyan,
		},
		baseline: drawing.ColorFromHex("7f7f7f"),
		interval: drawing.ColorFromHex("bdbdbd"),
	}
	darkTheme = theme{
		background: drawing.ColorFromHex("121212"),
		text:       drawing.ColorFromHex("e0e0e0"),
		grid:       drawing.ColorFromHex("2e2e2e"),
		primary: []drawing.Color{
			drawing.ColorFromHex("64b5f6"), drawing.ColorFromHex("ef9a9a"), drawing.ColorFromHex("a5d6a7"),
			drawing.ColorFromHex("ffcc80"), drawing.ColorFromHex("80deea"),
		},
		baseline: drawing.ColorFromHex("9e9e9e"),
		interval: drawing.ColorFromHex("616161"),
	}
)

func themeFor(dark bool) theme {
	if dark {
		return darkTheme
	}
	return lightTheme
}

func (t theme) color(i int) drawing.Color {
	return t.primary[i%len(t.primary)]
}

func (t theme) textStyle() chart.Style {
	return chart.Style{FontColor: t.text, StrokeColor: t.text}
}

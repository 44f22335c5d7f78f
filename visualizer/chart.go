// Package visualizer renders a merged table as stacked comparison charts.
package visualizer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sleepcompare/models"
)

const (
	headerHeight = 28
	footerHeight = 22
)

// Options controls the rendered image.
type Options struct {
	Title       string
	Width       int
	PanelHeight int
}

func DefaultOptions() Options {
	return Options{Title: "Garmin vs O2Ring Measurements", Width: 1500, PanelHeight: 400}
}

var (
	garminColor = chart.ColorBlue
	o2ringColor = chart.ColorRed
	motionColor = chart.ColorOrange

	// confidencePalette is sampled from viridis, lowest level first.
	confidencePalette = []drawing.Color{
		drawing.ColorFromHex("440154"),
		drawing.ColorFromHex("3b528b"),
		drawing.ColorFromHex("21918c"),
		drawing.ColorFromHex("5ec962"),
		drawing.ColorFromHex("fde725"),
	}
)

// pointStyle draws markers only.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col.WithAlpha(180),
		StrokeWidth: 1.5,
	}
}

type line struct {
	name  string
	col   models.Column
	style chart.Style
}

type panel struct {
	title string
	unit  string
	lines []line
	// extra series drawn after the lines
	extra []chart.TimeSeries
}

// Render draws SpO2, heart rate and motion panels stacked in one PNG.
func Render(w io.Writer, table *models.MergedTable, opts Options) error {
	if table.Len() == 0 {
		return fmt.Errorf("%w: merged table has no rows", models.ErrEmptyInput)
	}
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.PanelHeight <= 0 {
		opts.PanelHeight = def.PanelHeight
	}

	panels := []panel{
		{
			title: "SpO2 Measurements Comparison",
			unit:  "SpO2 (%)",
			lines: []line{
				{"Garmin SpO2", models.ColGarminSpO2, lineStyle(garminColor)},
				{"O2Ring SpO2", models.ColO2RingSpO2, lineStyle(o2ringColor)},
			},
			extra: confidenceSeries(table),
		},
		{
			title: "Heart Rate Measurements Comparison",
			unit:  "Heart Rate (bpm)",
			lines: []line{
				{"Garmin HR", models.ColGarminHeartRate, lineStyle(garminColor)},
				{"O2Ring HR", models.ColO2RingPulse, lineStyle(o2ringColor)},
			},
		},
		{
			title: "O2Ring Motion",
			unit:  "Motion",
			lines: []line{
				{"O2Ring Motion", models.ColO2RingMotion, chart.Style{
					StrokeColor: motionColor,
					StrokeWidth: 1,
					FillColor:   motionColor.WithAlpha(80),
				}},
			},
		},
	}

	height := headerHeight + len(panels)*opts.PanelHeight + footerHeight
	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(canvas, opts.Title, 16, headerHeight-9)

	xAxis := timeAxis(table)
	for i, p := range panels {
		img, err := renderPanel(table, p, xAxis, opts.Width, opts.PanelHeight)
		if err != nil {
			return fmt.Errorf("render %s: %w", p.title, err)
		}
		top := headerHeight + i*opts.PanelHeight
		draw.Draw(canvas, image.Rect(0, top, opts.Width, top+opts.PanelHeight), img, img.Bounds().Min, draw.Src)
	}

	if m := Summarize(table).Motion; m.Count > 0 {
		drawText(canvas, fmt.Sprintf("Motion Level (mean/max): %.2f/%.2f", m.Mean, m.Max), 16, height-7)
	}

	return png.Encode(w, canvas)
}

func renderPanel(table *models.MergedTable, p panel, xAxis chart.XAxis, width, height int) (image.Image, error) {
	var series []chart.Series
	var values []float64
	for _, l := range p.lines {
		ts, ok := columnSeries(table, l.col, l.name, l.style)
		if !ok {
			continue
		}
		series = append(series, ts)
		values = append(values, ts.YValues...)
	}
	for _, ts := range p.extra {
		series = append(series, ts)
		values = append(values, ts.YValues...)
	}

	yMin, yMax := paddedRange(values)
	ch := chart.Chart{
		Title:      p.title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis:      chart.YAxis{Name: p.unit, Range: &chart.ContinuousRange{Min: yMin, Max: yMax}},
	}
	if len(series) == 0 {
		// go-chart refuses a chart without series
		first, last := table.Range()
		series = append(series, chart.TimeSeries{
			XValues: []time.Time{first, last},
			YValues: []float64{yMin, yMin},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
		})
	} else {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	ch.Series = series

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// columnSeries collects the non-null cells of col; ok is false when there are none.
func columnSeries(table *models.MergedTable, col models.Column, name string, style chart.Style) (chart.TimeSeries, bool) {
	ts := chart.TimeSeries{Name: name, Style: style}
	for _, row := range table.Rows {
		if v := row.Get(col); v.Valid {
			ts.XValues = append(ts.XValues, row.Timestamp)
			ts.YValues = append(ts.YValues, v.Value)
		}
	}
	return ts, len(ts.XValues) > 0
}

// confidenceSeries plots Garmin SpO2 as markers, one series per confidence level.
func confidenceSeries(table *models.MergedTable) []chart.TimeSeries {
	byLevel := map[int]*chart.TimeSeries{}
	for _, row := range table.Rows {
		c, v := row.Get(models.ColGarminConfidence), row.Get(models.ColGarminSpO2)
		if !c.Valid || !v.Valid {
			continue
		}
		level := int(c.Value)
		ts, ok := byLevel[level]
		if !ok {
			ts = &chart.TimeSeries{Name: fmt.Sprintf("Confidence Level %d", level)}
			byLevel[level] = ts
		}
		ts.XValues = append(ts.XValues, row.Timestamp)
		ts.YValues = append(ts.YValues, v.Value)
	}

	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	out := make([]chart.TimeSeries, 0, len(levels))
	sort.Ints(levels)
	for i, level := range levels {
		ts := byLevel[level]
		ts.Style = pointStyle(confidencePalette[i%len(confidencePalette)])
		out = append(out, *ts)
	}
	return out
}

// paddedRange returns a non-empty y range around values.
func paddedRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := math.Max((hi-lo)*0.05, 1)
	return lo - pad, hi + pad
}

// tickStep keeps the number of time labels readable for long nights.
func tickStep(span time.Duration) time.Duration {
	switch {
	case span <= 3*time.Hour:
		return 10 * time.Minute
	case span <= 8*time.Hour:
		return 30 * time.Minute
	default:
		return time.Hour
	}
}

// timeAxis labels the shared x axis as HH:MM on step boundaries in the
// table's own location.
func timeAxis(table *models.MergedTable) chart.XAxis {
	first, last := table.Range()
	if !last.After(first) {
		last = first.Add(time.Minute)
	}
	step := tickStep(last.Sub(first))

	var ticks []chart.Tick
	start := first.Truncate(step)
	for t := start; !t.After(last); t = t.Add(step) {
		if t.Before(first) {
			continue
		}
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(t), Label: t.Format("15:04")})
	}
	if len(ticks) < 2 {
		ticks = []chart.Tick{
			{Value: chart.TimeToFloat64(first), Label: first.Format("15:04")},
			{Value: chart.TimeToFloat64(last), Label: last.Format("15:04")},
		}
	}

	return chart.XAxis{
		Name:           "Time",
		ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		Ticks:          ticks,
		Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
	}
}

func drawText(dst draw.Image, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

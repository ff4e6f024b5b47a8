package trajectory

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/daniacca/cellchem/internal/achem"
)

// ErrNotEnoughData is returned when a chart would have fewer than two
// samples on its time axis.
var ErrNotEnoughData = errors.New("at least two samples are needed to render a chart")

// Line is one named series of a chart.
type Line struct {
	Name   string
	Points []Point
}

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
	chart.ColorGreen,
	{R: 255, G: 165, B: 0, A: 255},
	chart.ColorBlack,
	{R: 128, G: 0, B: 128, A: 255},
}

// RenderPNG draws lines against simulated time and writes a PNG to w.
func RenderPNG(w io.Writer, title string, lines []Line) error {
	if len(lines) == 0 {
		return ErrNotEnoughData
	}

	minT, maxT, maxY := math.Inf(1), math.Inf(-1), 0.0
	series := make([]chart.Series, 0, len(lines))
	for i, l := range lines {
		if len(l.Points) < 2 {
			return fmt.Errorf("%s: %w", l.Name, ErrNotEnoughData)
		}
		xs := make([]float64, len(l.Points))
		ys := make([]float64, len(l.Points))
		for j, p := range l.Points {
			xs[j], ys[j] = p.Time, p.Value
			minT, maxT, maxY = min(minT, p.Time), max(maxT, p.Time), max(maxY, p.Value)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    l.Name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: palette[i%len(palette)], StrokeWidth: 2.0},
		})
	}
	if maxT <= minT {
		return ErrNotEnoughData
	}
	if maxY == 0 {
		maxY = 1
	}

	graph := chart.Chart{
		Title:  title,
		Width:  960,
		Height: 480,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "time",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: minT, Max: maxT},
		},
		YAxis: chart.YAxis{
			Name:  "molecules",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.05},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

// Chart renders the recorded counts of molecules for envID, summed over all
// cells or for one named cell. An empty molecules list charts every
// recorded molecule.
func (r *Recorder) Chart(w io.Writer, envID achem.EnvironmentID, cell string, molecules []string) error {
	if len(molecules) == 0 {
		all, err := r.Molecules(envID)
		if err != nil {
			return err
		}
		molecules = all
	}

	lines := make([]Line, 0, len(molecules))
	for _, m := range molecules {
		points, err := r.Series(envID, cell, m)
		if err != nil {
			return err
		}
		lines = append(lines, Line{Name: m, Points: points})
	}

	title := string(envID)
	if cell != "" {
		title += " / " + cell
	}
	return RenderPNG(w, title, lines)
}

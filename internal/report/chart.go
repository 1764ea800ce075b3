package report

import (
	"errors"
	"io"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// guideLine creates a horizontal line at a fixed y value spanning the
// given x range.
func guideLine(xvalues []float64, y float64, c drawing.Color) chart.ContinuousSeries {
	yvalues := make([]float64, len(xvalues))
	for i := range yvalues {
		yvalues[i] = y
	}
	return chart.ContinuousSeries{
		XValues: xvalues,
		YValues: yvalues,
		Style: chart.Style{
			StrokeColor:     c,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// ThresholdGraph plots the adaptive threshold computed for each student's
// sheet on one page, with a guide line at the global ceiling. Outliers
// stand out immediately: a sheet whose threshold sits at the ceiling was
// probably scanned too dark for the gap heuristic.
func ThresholdGraph(thresholds map[string]float64, title string, ceiling float64, w io.Writer) error {
	if len(thresholds) < 2 {
		return errors.New("not enough sheets to graph")
	}

	students := make([]string, 0, len(thresholds))
	for s := range thresholds {
		students = append(students, s)
	}
	sort.Strings(students)

	var xvalues, yvalues []float64
	var ticks []chart.Tick
	var annotations []chart.Value2
	for i, s := range students {
		x := float64(i + 1)
		y := thresholds[s]
		xvalues = append(xvalues, x)
		yvalues = append(yvalues, y)
		ticks = append(ticks, chart.Tick{Value: x, Label: s})
		annotations = append(annotations, chart.Value2{Label: s, XValue: x, YValue: y})
	}

	mainSeries := chart.ContinuousSeries{
		XValues: xvalues,
		YValues: yvalues,
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
		},
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1920,
		Height: 1080,
		XAxis: chart.XAxis{
			Name:  "Sheet",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Threshold",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: 255.0,
			},
		},
		Series: []chart.Series{
			mainSeries,
			guideLine(xvalues, ceiling, chart.ColorRed),
			chart.AnnotationSeries{Annotations: annotations},
		},
	}
	return graph.Render(chart.PNG, w)
}

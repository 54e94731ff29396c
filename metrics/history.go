package metrics

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

// SaveLossPlot renders a per-epoch metric history (as produced by the
// RecordEvaluation training callback) as a line chart and writes it to path.
// The output format follows the file extension (.png, .svg, .pdf).
func SaveLossPlot(history map[string][]float64, title, path string) error {
	if len(history) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "metrics.SaveLossPlot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "value"

	for name, values := range history {
		if len(values) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "plotting metric %q", name)
		}
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %q", path)
	}
	return nil
}

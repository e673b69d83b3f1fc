package sound

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotWave draws the waveform as a jpeg. Each mark in milliseconds is drawn
// as a red vertical line.
func (t *Track) PlotWave(name string, marks ...int64) ([]byte, error) {
	var window int64 = 50
	resampled := t.Resample(window)

	p := plot.New()
	p.Y.Min = -1
	p.Y.Max = 1
	p.Title.Text = fmt.Sprintf("%s %dms", name, t.DurationMs())
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "amplitude"

	// Two points per window, min and max
	step := float64(window) / 1000.0 / 2.0
	pts := make(plotter.XYs, len(resampled))
	for i, v := range resampled {
		pts[i].X = float64(i) * step
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create line plotter: %w", err)
	}
	l.LineStyle.Width = vg.Points(1)
	p.Add(l)

	for _, m := range marks {
		x := float64(m) / 1000.0
		seam, err := plotter.NewLine(plotter.XYs{{X: x, Y: -1}, {X: x, Y: 1}})
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't create mark plotter: %w", err)
		}
		seam.Color = color.RGBA{R: 255, A: 255}
		p.Add(seam)
	}

	c, err := p.WriterTo(6*vg.Inch, 3*vg.Inch, "jpeg")
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sound: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}

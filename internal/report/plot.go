package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
)

// ScatterPlot writes a PNG of an epoch's candidate cloud projected onto
// the X/Y plane, with the consensus position marked. Useful for eyeballing
// whether the cluster threshold matches the actual candidate geometry.
func ScatterPlot(result *multilat.EpochResult, path string) error {
	candidates := result.Candidates.All()
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Candidates %s @ %s", result.Estimate.EmitterID, result.Estimate.Timestamp)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, len(candidates))
	for i, c := range candidates {
		pts[i].X = c.Pos.X
		pts[i].Y = c.Pos.Y
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build candidate scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)
	p.Legend.Add("candidates", scatter)

	consensus := plotter.XYs{{X: result.Estimate.Position.X, Y: result.Estimate.Position.Y}}
	marker, err := plotter.NewScatter(consensus)
	if err != nil {
		return fmt.Errorf("build consensus marker: %w", err)
	}
	marker.GlyphStyle.Radius = vg.Points(4)
	marker.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	p.Add(marker)
	p.Legend.Add("consensus", marker)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save scatter plot: %w", err)
	}
	return nil
}

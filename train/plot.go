package train

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveLossCurves renders the train/test loss history to a PNG.
func SaveLossCurves(path string, trainLosses, testLosses []float64) error {
	p := plot.New()
	p.Title.Text = "Training vs Test Loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())

	err := plotutil.AddLinePoints(p,
		"Train", lossPoints(trainLosses),
		"Test", lossPoints(testLosses),
	)
	if err != nil {
		return fmt.Errorf("build loss plot: %w", err)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func lossPoints(losses []float64) plotter.XYs {
	pts := make(plotter.XYs, len(losses))
	for i, l := range losses {
		pts[i].X = float64(i + 1)
		pts[i].Y = l
	}
	return pts
}

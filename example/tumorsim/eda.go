package main

import (
	"os"
	"path/filepath"

	"github.com/sugarme/gotch/ts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeHistogram plots the volume's intensity distribution.
func writeHistogram(volume *ts.Tensor, filename string) error {
	vals := volume.Float64Values()

	// keep the histogram input manageable for large volumes
	stride := 1
	if len(vals) > 1<<16 {
		stride = len(vals) >> 16
	}

	var v plotter.Values
	for i := 0; i < len(vals); i += stride {
		v = append(v, vals[i])
	}

	p := plot.New()
	p.Title.Text = "Voxel Intensity Histogram"

	h, err := plotter.NewHist(v, 32)
	if err != nil {
		return err
	}
	p.Add(h)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}

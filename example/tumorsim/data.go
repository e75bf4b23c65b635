package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/go-gota/gota/dataframe"
	"github.com/nfnt/resize"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"
	"golang.org/x/image/draw"
)

// readImage reads one slice image from file.
func readImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported image format: %v", ext)
	}
}

// sliceFiles lists the slice images of dir in axial order.
func sliceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no slice images in %v", dir)
	}
	sort.Strings(files)

	return files, nil
}

// loadVolume reads an axial slice stack from dir into a cubic volume
// tensor of shape (1, 1, size, size, size) with intensities in [0, 1].
// Slices are grayscale-converted, rescaled in-plane and resampled
// along depth by nearest slice.
func loadVolume(dir string, size int64) (*ts.Tensor, error) {
	files, err := sliceFiles(dir)
	if err != nil {
		return nil, err
	}

	s := int(size)
	values := make([]float32, 0, s*s*s)
	for d := 0; d < s; d++ {
		idx := d * len(files) / s
		img, err := readImage(files[idx])
		if err != nil {
			return nil, err
		}

		gray := imaging.Grayscale(img)
		scaled := image.NewGray(image.Rect(0, 0, s, s))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Over, nil)

		for y := 0; y < s; y++ {
			for x := 0; x < s; x++ {
				values = append(values, float32(scaled.GrayAt(x, y).Y)/255.0)
			}
		}
	}

	vol := ts.MustOfSlice(values).MustView([]int64{1, 1, size, size, size}, true)

	return vol, nil
}

// readParams looks up one case's biophysical parameter vector in a CSV
// with a `case` column followed by one column per parameter dimension.
// An empty caseID selects the first row.
func readParams(filename, caseID string, paramDim int64) ([]float32, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, df.Err
	}

	ids := df.Col("case").Records()
	row := 0
	if caseID != "" {
		row = -1
		for i, id := range ids {
			if id == caseID {
				row = i
				break
			}
		}
		if row < 0 {
			return nil, fmt.Errorf("case %q not found in %v", caseID, filename)
		}
	}

	var params []float32
	for _, name := range df.Names() {
		if name == "case" {
			continue
		}
		params = append(params, float32(df.Col(name).Elem(row).Float()))
	}
	if int64(len(params)) != paramDim {
		return nil, fmt.Errorf("params CSV has %d parameter columns, network expects %d", len(params), paramDim)
	}

	return params, nil
}

// writePreview renders the mid-axial slice of the predicted label map
// as a small grayscale PNG.
func writePreview(pred *ts.Tensor, numClasses int64, filename string) error {
	labels := pred.MustArgmax([]int64{1}, false, false)
	size := labels.MustSize() // (batch, D, H, W)
	mid := size[1] / 2
	slice := labels.MustNarrow(1, mid, 1, true)
	vals := slice.MustTotype(gotch.Int64, true)
	flat := vals.Int64Values()
	vals.MustDrop()

	h, w := int(size[2]), int(size[3])
	img := image.NewGray(image.Rect(0, 0, w, h))
	scale := 255.0
	if numClasses > 1 {
		scale = 255.0 / float64(numClasses-1)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(float64(flat[y*w+x]) * scale)})
		}
	}

	thumb := resize.Resize(256, 256, img, resize.NearestNeighbor)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, thumb)
}

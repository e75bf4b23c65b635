package metric

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"
	"gonum.org/v1/gonum/stat"
)

const smooth = 1e-3

// DiceCoeff computes the Dice coefficient between two binary volumes
// of the same shape. Inputs are thresholded at 0.5, so probability
// maps work as well as hard masks.
func DiceCoeff(pred, target *ts.Tensor) float64 {
	pflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := pflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]

	return (2 * overlap) / (union + smooth)
}

// IoU computes intersection over union between two binary volumes.
func IoU(pred, target *ts.Tensor) float64 {
	pflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := pflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	ptMul := p.MustMul(t, false)
	inter := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0] - inter

	return inter / (union + smooth)
}

// JaccardIndex computes the mean per-class Jaccard index between two
// label volumes with values in [0, numClasses).
func JaccardIndex(pred, target *ts.Tensor, numClasses int64) float64 {
	scores := make([]float64, 0, numClasses)
	for c := int64(0); c < numClasses; c++ {
		p := classMask(pred, c)
		t := classMask(target, c)
		scores = append(scores, IoU(p, t))
		p.MustDrop()
		t.MustDrop()
	}

	return stat.Mean(scores, nil)
}

// MeanDice computes the mean per-class Dice coefficient between two
// label volumes with values in [0, numClasses).
func MeanDice(pred, target *ts.Tensor, numClasses int64) float64 {
	scores := make([]float64, 0, numClasses)
	for c := int64(0); c < numClasses; c++ {
		p := classMask(pred, c)
		t := classMask(target, c)
		scores = append(scores, DiceCoeff(p, t))
		p.MustDrop()
		t.MustDrop()
	}

	return stat.Mean(scores, nil)
}

// classMask extracts the binary mask of one class from a label volume.
func classMask(labels *ts.Tensor, class int64) *ts.Tensor {
	return labels.MustEq(ts.IntScalar(class), false).MustTotype(gotch.Float, true)
}

package unet

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/encoder"
)

// DecoderStage owns one resolution level: a transposed conv that
// inverts the mirrored encoder stride, a conv stack over the
// concatenated skip, and a pointwise segmentation head.
type DecoderStage struct {
	Transp  *nn.ConvTranspose3D
	Convs   *base.StackedConvBlocks
	SegHead *nn.Conv3D
}

// Decoder restores spatial resolution from the fused skip list and
// emits a class-score map per stage. It holds a read-only reference to
// the encoder for shape and config lookups.
type Decoder struct {
	encoder    encoder.Encoder
	stages     []*DecoderStage
	numClasses int64
	paramDim   int64
}

// NewDecoder creates a decoder with one stage per encoder resolution
// level below the first. nConvPerStage must have nStagesEncoder-1
// entries. The first (deepest) stage's transposed conv accounts for
// the paramDim channels fused into the bottleneck. When ops is nil,
// the encoder's block configuration is reused.
func NewDecoder(p *nn.Path, enc encoder.Encoder, numClasses int64, nConvPerStage []int64, paramDim int64, ops *base.OpsConfig) (*Decoder, error) {
	outChannels := enc.OutputChannels()
	nStages := len(outChannels)
	if len(nConvPerStage) != nStages-1 {
		return nil, fmt.Errorf("n_conv_per_stage_decoder must have one entry per resolution stage below the first: got %d, want %d", len(nConvPerStage), nStages-1)
	}

	if ops == nil {
		ops = enc.Ops()
	}

	strides := enc.Strides()
	kernels := enc.KernelSizes()

	stages := make([]*DecoderStage, 0, nStages-1)
	for s := 1; s < nStages; s++ {
		cBelow := outChannels[nStages-s]
		if s == 1 {
			cBelow += paramDim
		}
		cSkip := outChannels[nStages-1-s]
		stride := strides[nStages-s]

		sp := p.Sub(fmt.Sprintf("stage%d", s-1))
		stages = append(stages, &DecoderStage{
			Transp:  base.ConvTranspose3d(sp.Sub("transp"), cBelow, cSkip, stride, ops.ConvBias),
			Convs:   base.NewStackedConvBlocks(sp.Sub("convs"), int(nConvPerStage[s-1]), 2*cSkip, cSkip, kernels[nStages-1-s], 1, ops),
			SegHead: base.NewSegmentationHead(sp.Sub("seg"), cSkip, numClasses),
		})
	}

	return &Decoder{
		encoder:    enc,
		stages:     stages,
		numClasses: numClasses,
		paramDim:   paramDim,
	}, nil
}

// NumStages returns the decoder's resolution stage count.
func (d *Decoder) NumStages() int { return len(d.stages) }

// Forward consumes the fused skip list bottleneck-first and returns
// every stage's class-score map, ordered finest to coarsest. The
// caller owns the returned tensors; skips stay untouched.
func (d *Decoder) Forward(skips []*ts.Tensor, train bool) []*ts.Tensor {
	n := len(skips)
	lres := skips[n-1]
	segOutputs := make([]*ts.Tensor, 0, len(d.stages))

	for s, stage := range d.stages {
		up := stage.Transp.ForwardT(lres, train)
		if s > 0 {
			lres.MustDrop()
		}
		cat := ts.MustCat([]*ts.Tensor{up, skips[n-2-s]}, 1)
		up.MustDrop()
		x := stage.Convs.ForwardT(cat, train)
		cat.MustDrop()
		segOutputs = append(segOutputs, stage.SegHead.ForwardT(x, train))
		lres = x
	}
	lres.MustDrop()

	for i, j := 0, len(segOutputs)-1; i < j; i, j = i+1, j-1 {
		segOutputs[i], segOutputs[j] = segOutputs[j], segOutputs[i]
	}

	return segOutputs
}

// FeatureMapSize estimates the total activation element count across
// all decoder stages for a network input of the given spatial size,
// mirroring the per-stage spatial derivation used at construction.
func (d *Decoder) FeatureMapSize(spatial []int64) int64 {
	strides := d.encoder.Strides()
	outChannels := d.encoder.OutputChannels()

	skipSizes := make([][]int64, 0, len(strides)-1)
	size := append([]int64{}, spatial...)
	for s := 0; s < len(strides)-1; s++ {
		size = base.DivSpatial(size, strides[s])
		skipSizes = append(skipSizes, size)
	}

	var total int64
	for s, stage := range d.stages {
		sz := skipSizes[len(skipSizes)-1-s]
		total += stage.Convs.FeatureMapSize(sz)
		// transposed conv output
		total += outChannels[len(outChannels)-2-s] * base.ProdSpatial(sz)
		// segmentation head, computed at every stage
		total += d.numClasses * base.ProdSpatial(sz)
	}

	return total
}

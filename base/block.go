package base

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// ConvBlock is a single conv -> dropout -> norm -> nonlin unit.
// When OpsConfig.NonlinFirst is set, nonlin and norm are swapped.
type ConvBlock struct {
	seq    *nn.SequentialT
	cOut   int64
	stride int64
}

// NewConvBlock creates a ConvBlock mapping cIn to cOut channels with
// the given cubic kernel size and stride. Padding keeps the spatial
// extent at input/stride.
func NewConvBlock(p *nn.Path, cIn, cOut, ksize, stride int64, cfg *OpsConfig) *ConvBlock {
	seq := nn.SeqT()
	seq.Add(Conv3d(p.Sub("conv"), cIn, cOut, ksize, (ksize-1)/2, stride, cfg.ConvBias))

	if cfg.Dropout == Dropout3d && cfg.DropoutP > 0 {
		prob := cfg.DropoutP
		seq.AddFnT(nn.NewFuncT(func(xs *ts.Tensor, train bool) *ts.Tensor {
			return xs.MustDropout(prob, train, false)
		}))
	}

	if cfg.NonlinFirst {
		addNonlin(seq, cfg.Nonlin)
		seq.Add(buildNorm(p.Sub("norm"), cfg, cOut))
	} else {
		seq.Add(buildNorm(p.Sub("norm"), cfg, cOut))
		addNonlin(seq, cfg.Nonlin)
	}

	return &ConvBlock{seq: seq, cOut: cOut, stride: stride}
}

// ForwardT implements ts.ModuleT for ConvBlock.
func (b *ConvBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return b.seq.ForwardT(x, train)
}

// StackedConvBlocks chains n ConvBlocks. The first block maps cIn to
// cOut and applies the stride; the remaining blocks keep cOut at
// stride 1.
type StackedConvBlocks struct {
	blocks        []*ConvBlock
	cOut          int64
	initialStride int64
}

// NewStackedConvBlocks creates a stack of n conv blocks.
func NewStackedConvBlocks(p *nn.Path, n int, cIn, cOut, ksize, stride int64, cfg *OpsConfig) *StackedConvBlocks {
	blocks := make([]*ConvBlock, 0, n)
	blocks = append(blocks, NewConvBlock(p.Sub("block0"), cIn, cOut, ksize, stride, cfg))
	for i := 1; i < n; i++ {
		blocks = append(blocks, NewConvBlock(p.Sub(fmt.Sprintf("block%d", i)), cOut, cOut, ksize, 1, cfg))
	}

	return &StackedConvBlocks{
		blocks:        blocks,
		cOut:          cOut,
		initialStride: stride,
	}
}

// ForwardT implements ts.ModuleT for StackedConvBlocks.
func (s *StackedConvBlocks) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	out := s.blocks[0].ForwardT(x, train)
	for _, b := range s.blocks[1:] {
		next := b.ForwardT(out, train)
		out.MustDrop()
		out = next
	}

	return out
}

// OutChannels returns the stack's output channel count.
func (s *StackedConvBlocks) OutChannels() int64 {
	return s.cOut
}

// FeatureMapSize estimates the total activation element count the
// stack produces for an input of the given spatial size. Every block
// emits cOut channels at the post-stride extent.
func (s *StackedConvBlocks) FeatureMapSize(spatial []int64) int64 {
	out := DivSpatial(spatial, s.initialStride)

	return int64(len(s.blocks)) * s.cOut * ProdSpatial(out)
}

// DivSpatial floor-divides every spatial extent by stride.
func DivSpatial(spatial []int64, stride int64) []int64 {
	out := make([]int64, len(spatial))
	for i, v := range spatial {
		out[i] = v / stride
	}

	return out
}

// ProdSpatial multiplies spatial extents into an element count.
func ProdSpatial(spatial []int64) int64 {
	var prod int64 = 1
	for _, v := range spatial {
		prod *= v
	}

	return prod
}

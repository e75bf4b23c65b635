package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
)

func TestConvBlockShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	block := base.NewConvBlock(vs.Root(), 2, 4, 3, 2, base.DefaultOpsConfig())

	x := ts.MustRand([]int64{1, 2, 8, 8, 8}, gotch.Float, gotch.CPU)
	out := block.ForwardT(x, false)
	assert.Equal(t, []int64{1, 4, 4, 4, 4}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestStackedConvBlocksShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	stack := base.NewStackedConvBlocks(vs.Root(), 2, 2, 4, 3, 2, base.DefaultOpsConfig())
	assert.Equal(t, int64(4), stack.OutChannels())

	x := ts.MustRand([]int64{1, 2, 8, 8, 8}, gotch.Float, gotch.CPU)
	out := stack.ForwardT(x, false)
	assert.Equal(t, []int64{1, 4, 4, 4, 4}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestStackedConvBlocksFeatureMapSize(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	stack := base.NewStackedConvBlocks(vs.Root(), 2, 2, 4, 3, 2, base.DefaultOpsConfig())

	// 2 blocks * 4 channels * 4^3 voxels after the stride
	assert.Equal(t, int64(2*4*64), stack.FeatureMapSize([]int64{8, 8, 8}))
}

func TestSegmentationHeadShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	head := base.NewSegmentationHead(vs.Root(), 4, 3)

	x := ts.MustRand([]int64{1, 4, 8, 8, 8}, gotch.Float, gotch.CPU)
	out := head.ForwardT(x, false)
	assert.Equal(t, []int64{1, 3, 8, 8, 8}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestNonlinFirstOrdering(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cfg := base.DefaultOpsConfig()
	cfg.NonlinFirst = true
	block := base.NewConvBlock(vs.Root(), 1, 2, 3, 1, cfg)

	x := ts.MustRand([]int64{1, 1, 4, 4, 4}, gotch.Float, gotch.CPU)
	out := block.ForwardT(x, false)
	assert.Equal(t, []int64{1, 2, 4, 4, 4}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

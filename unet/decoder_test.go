package unet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/encoder"
	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/unet"
)

func testEncoder(t *testing.T, p *nn.Path) *encoder.PlainConvEncoder {
	t.Helper()

	enc, err := encoder.NewPlainConvEncoder(p, &encoder.Config{
		InChannels:       1,
		NStages:          4,
		FeaturesPerStage: []int64{4, 8, 16, 32},
		KernelSizes:      []int64{3, 3, 3, 3},
		Strides:          []int64{1, 2, 2, 2},
		NConvPerStage:    []int64{1, 1, 1, 1},
	})
	require.NoError(t, err)

	return enc
}

func TestDecoderStageCount(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := testEncoder(t, vs.Root().Sub("encoder"))

	dec, err := unet.NewDecoder(vs.Root().Sub("decoder"), enc, 3, []int64{1, 1, 1}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, dec.NumStages())
}

func TestDecoderConvPerStageLength(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := testEncoder(t, vs.Root().Sub("encoder"))

	_, err := unet.NewDecoder(vs.Root().Sub("decoder"), enc, 3, []int64{1, 1}, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n_conv_per_stage_decoder")
}

func TestDecoderFeatureMapSize(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := testEncoder(t, vs.Root().Sub("encoder"))

	dec, err := unet.NewDecoder(vs.Root().Sub("decoder"), enc, 2, []int64{1, 1, 1}, 5, nil)
	require.NoError(t, err)

	// input 16^3, strides 1,2,2,2: skip extents 16, 8, 4 (bottleneck 2
	// excluded). Per stage: convs (n*cOut*ext^3) + transpconv output
	// (cSkip*ext^3) + seg head (2*ext^3), deepest first.
	var want int64
	for _, s := range []struct {
		ext, cSkip int64
	}{
		{4, 16},
		{8, 8},
		{16, 4},
	} {
		vox := s.ext * s.ext * s.ext
		want += s.cSkip*vox + s.cSkip*vox + 2*vox
	}

	assert.Equal(t, want, dec.FeatureMapSize([]int64{16, 16, 16}))
}

package unet_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/unet"
)

func testPlans() *unet.Plans {
	return &unet.Plans{
		Architecture:         "TumorNet",
		NStages:              3,
		FeaturesPerStage:     []int64{4, 8, 16},
		ConvOp:               "conv3d",
		KernelSizes:          []int64{3},
		Strides:              []int64{1, 2, 2},
		NConvPerStage:        []int64{1},
		NConvPerStageDecoder: []int64{1},
		NormOp:               "instancenorm3d",
		DropoutOp:            "none",
		Nonlin:               "leakyrelu",
		ParamDim:             5,
	}
}

func TestBuildNetwork(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := unet.BuildNetwork(vs, testPlans(), 1, 2, []int64{16, 16, 16}, nil, true)
	require.NoError(t, err)

	assert.Equal(t, int64(5), net.ParamDim())
	assert.False(t, net.DeepSupervision())
	assert.Equal(t, 2, net.Decoder().NumStages())
}

func TestBuildNetworkDeepSupervisionOverride(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	override := true
	net, err := unet.BuildNetwork(vs, testPlans(), 1, 2, []int64{16, 16, 16}, &override, false)
	require.NoError(t, err)
	assert.True(t, net.DeepSupervision())
}

func TestBuildNetworkUnknownArchitecture(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	plans := testPlans()
	plans.Architecture = "ResidualUNet"
	_, err := unet.BuildNetwork(vs, plans, 1, 2, []int64{16, 16, 16}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown architecture")
}

func TestBuildNetworkUnknownOps(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	plans := testPlans()
	plans.NormOp = "groupnorm"
	_, err := unet.BuildNetwork(vs, plans, 1, 2, []int64{16, 16, 16}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown norm op")

	plans = testPlans()
	plans.ConvOp = "conv2d"
	_, err = unet.BuildNetwork(vs, plans, 1, 2, []int64{16, 16, 16}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conv op")

	plans = testPlans()
	plans.Nonlin = "gelu"
	_, err = unet.BuildNetwork(vs, plans, 1, 2, []int64{16, 16, 16}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown nonlinearity")
}

func TestBuildNetworkBadStageList(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	plans := testPlans()
	plans.NConvPerStageDecoder = []int64{1, 1, 1}
	_, err := unet.BuildNetwork(vs, plans, 1, 2, []int64{16, 16, 16}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n_conv_per_stage_decoder")
}

func TestLoadPlans(t *testing.T) {
	data := []byte(`{
		"arch_class_name": "TumorNet",
		"n_stages": 3,
		"features_per_stage": [4, 8, 16],
		"conv_op": "conv3d",
		"kernel_sizes": [3],
		"strides": [1, 2, 2],
		"n_conv_per_stage": [1],
		"n_conv_per_stage_decoder": [1],
		"norm_op": "instancenorm3d",
		"nonlin": "leakyrelu",
		"deep_supervision": true,
		"param_dim": 5
	}`)

	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	plans, err := unet.LoadPlans(path)
	require.NoError(t, err)
	assert.Equal(t, "TumorNet", plans.Architecture)
	assert.Equal(t, 3, plans.NStages)
	assert.True(t, plans.DeepSupervision)

	_, err = unet.LoadPlans(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
)

func TestParseNormOp(t *testing.T) {
	op, err := base.ParseNormOp("instancenorm3d")
	require.NoError(t, err)
	assert.Equal(t, base.NormInstance, op)

	op, err = base.ParseNormOp("batchnorm3d")
	require.NoError(t, err)
	assert.Equal(t, base.NormBatch, op)

	op, err = base.ParseNormOp("")
	require.NoError(t, err)
	assert.Equal(t, base.NormNone, op)

	_, err = base.ParseNormOp("groupnorm")
	require.Error(t, err)
}

func TestParseConvOp(t *testing.T) {
	op, err := base.ParseConvOp("conv3d")
	require.NoError(t, err)
	assert.Equal(t, base.Conv3dOp, op)

	_, err = base.ParseConvOp("conv2d")
	require.Error(t, err)
}

func TestParseDropoutOp(t *testing.T) {
	op, err := base.ParseDropoutOp("dropout3d")
	require.NoError(t, err)
	assert.Equal(t, base.Dropout3d, op)

	_, err = base.ParseDropoutOp("alphadropout")
	require.Error(t, err)
}

func TestParseNonlinOp(t *testing.T) {
	op, err := base.ParseNonlinOp("relu")
	require.NoError(t, err)
	assert.Equal(t, base.NonlinReLU, op)

	op, err = base.ParseNonlinOp("")
	require.NoError(t, err)
	assert.Equal(t, base.NonlinLeakyReLU, op)

	_, err = base.ParseNonlinOp("gelu")
	require.Error(t, err)
}

func TestDefaultOpsConfig(t *testing.T) {
	cfg := base.DefaultOpsConfig()
	assert.Equal(t, base.NormInstance, cfg.Norm)
	assert.Equal(t, base.DropoutNone, cfg.Dropout)
	assert.Equal(t, base.NonlinLeakyReLU, cfg.Nonlin)
	assert.False(t, cfg.ConvBias)
	assert.False(t, cfg.NonlinFirst)
}

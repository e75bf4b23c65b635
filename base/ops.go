package base

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// ConvOp selects the convolution operator. Only 3D convolution is
// supported; the parameter projector assumes volumetric features.
type ConvOp int

const (
	Conv3dOp ConvOp = iota
)

// NormOp selects the normalization operator applied inside conv blocks.
type NormOp int

const (
	NormNone NormOp = iota
	NormInstance
	NormBatch
)

// DropoutOp selects the dropout operator applied inside conv blocks.
type DropoutOp int

const (
	DropoutNone DropoutOp = iota
	Dropout3d
)

// NonlinOp selects the nonlinearity applied inside conv blocks.
type NonlinOp int

const (
	NonlinLeakyReLU NonlinOp = iota
	NonlinReLU
	NonlinNone
)

// ParseConvOp resolves a plans key to a convolution operator.
// Unknown keys are configuration errors.
func ParseConvOp(s string) (ConvOp, error) {
	switch s {
	case "conv3d", "":
		return Conv3dOp, nil
	default:
		return 0, fmt.Errorf("unknown conv op %q", s)
	}
}

// ParseNormOp resolves a plans key to a normalization operator.
func ParseNormOp(s string) (NormOp, error) {
	switch s {
	case "none", "":
		return NormNone, nil
	case "instancenorm3d":
		return NormInstance, nil
	case "batchnorm3d":
		return NormBatch, nil
	default:
		return 0, fmt.Errorf("unknown norm op %q", s)
	}
}

// ParseDropoutOp resolves a plans key to a dropout operator.
func ParseDropoutOp(s string) (DropoutOp, error) {
	switch s {
	case "none", "":
		return DropoutNone, nil
	case "dropout3d":
		return Dropout3d, nil
	default:
		return 0, fmt.Errorf("unknown dropout op %q", s)
	}
}

// ParseNonlinOp resolves a plans key to a nonlinearity.
func ParseNonlinOp(s string) (NonlinOp, error) {
	switch s {
	case "leakyrelu", "":
		return NonlinLeakyReLU, nil
	case "relu":
		return NonlinReLU, nil
	case "none":
		return NonlinNone, nil
	default:
		return 0, fmt.Errorf("unknown nonlinearity %q", s)
	}
}

// OpsConfig bundles the per-block operator choices shared by encoder
// and decoder stages.
type OpsConfig struct {
	ConvBias     bool
	Norm         NormOp
	NormEps      float64
	NormMomentum float64
	Dropout      DropoutOp
	DropoutP     float64
	Nonlin       NonlinOp
	// NonlinFirst applies the nonlinearity before normalization.
	NonlinFirst bool
}

// DefaultOpsConfig returns the usual medical-segmentation block setup:
// bias-free convs, instance norm, no dropout, leaky ReLU.
func DefaultOpsConfig() *OpsConfig {
	return &OpsConfig{
		ConvBias:     false,
		Norm:         NormInstance,
		NormEps:      1e-5,
		NormMomentum: 0.1,
		Dropout:      DropoutNone,
		DropoutP:     0.0,
		Nonlin:       NonlinLeakyReLU,
		NonlinFirst:  false,
	}
}

// Identity is a ModuleT placeholder that forwards its input as such.
type Identity struct{}

// Forward implements ts.Module for Identity.
func (i *Identity) Forward(x *ts.Tensor) *ts.Tensor {
	return x.MustDetach(false)
}

// ForwardT implements ts.ModuleT for Identity.
func (i *Identity) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return x.MustDetach(false)
}

// NewIdentity creates a new Identity.
func NewIdentity() *Identity {
	return &Identity{}
}

// InstanceNorm3d normalizes each channel of each sample over its
// spatial extent, with a learnable affine transform.
type InstanceNorm3d struct {
	Ws       *ts.Tensor
	Bs       *ts.Tensor
	Eps      float64
	Momentum float64
}

// NewInstanceNorm3d creates an InstanceNorm3d over outDim channels.
func NewInstanceNorm3d(p *nn.Path, outDim int64, eps, momentum float64) *InstanceNorm3d {
	return &InstanceNorm3d{
		Ws:       p.MustOnes("weight", []int64{outDim}),
		Bs:       p.MustZeros("bias", []int64{outDim}),
		Eps:      eps,
		Momentum: momentum,
	}
}

// ForwardT implements ts.ModuleT for InstanceNorm3d.
func (m *InstanceNorm3d) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	// no running stats; per-sample statistics are always used
	return x.MustInstanceNorm(m.Ws, m.Bs, ts.NewTensor(), ts.NewTensor(), true, m.Momentum, m.Eps, false, false)
}

// buildNorm creates the configured normalization module for cOut
// channels, or Identity when normalization is disabled.
func buildNorm(p *nn.Path, cfg *OpsConfig, cOut int64) ts.ModuleT {
	switch cfg.Norm {
	case NormInstance:
		return NewInstanceNorm3d(p, cOut, cfg.NormEps, cfg.NormMomentum)
	case NormBatch:
		bnConfig := nn.DefaultBatchNormConfig()
		bnConfig.Eps = cfg.NormEps
		bnConfig.Momentum = cfg.NormMomentum
		return nn.BatchNorm3D(p, cOut, bnConfig)
	default:
		return NewIdentity()
	}
}

// addNonlin appends the configured nonlinearity to seq.
func addNonlin(seq *nn.SequentialT, op NonlinOp) {
	switch op {
	case NonlinLeakyReLU:
		seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
			return xs.MustLeakyRelu(false)
		}))
	case NonlinReLU:
		seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
			return xs.MustRelu(false)
		}))
	}
}

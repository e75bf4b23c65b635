package unet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sugarme/gotch/nn"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
)

// Plans is the JSON-facing architecture configuration. Operator fields
// hold string keys resolved through the base package registries at
// build time; unknown keys are hard errors. Per-stage numeric fields
// accept either a single entry (broadcast to every stage) or one entry
// per stage.
type Plans struct {
	Architecture         string    `json:"arch_class_name"`
	NStages              int       `json:"n_stages"`
	FeaturesPerStage     []int64   `json:"features_per_stage"`
	ConvOp               string    `json:"conv_op"`
	KernelSizes          []int64   `json:"kernel_sizes"`
	Strides              []int64   `json:"strides"`
	NConvPerStage        []int64   `json:"n_conv_per_stage"`
	NConvPerStageDecoder []int64   `json:"n_conv_per_stage_decoder"`
	ConvBias             bool      `json:"conv_bias"`
	NormOp               string    `json:"norm_op"`
	NormEps              float64   `json:"norm_eps"`
	DropoutOp            string    `json:"dropout_op"`
	DropoutP             float64   `json:"dropout_p"`
	Nonlin               string    `json:"nonlin"`
	NonlinFirst          bool      `json:"nonlin_first"`
	DeepSupervision      bool      `json:"deep_supervision"`
	ParamDim             int64     `json:"param_dim"`
}

// LoadPlans reads a plans JSON file.
func LoadPlans(path string) (*Plans, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plans Plans
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parsing plans %v: %w", path, err)
	}

	return &plans, nil
}

type buildFunc func(p *nn.Path, cfg *Config) (*TumorNet, error)

// architectures is the fixed registry of constructible network names.
var architectures = map[string]buildFunc{
	"TumorNet": NewTumorNet,
}

// expandPerStage broadcasts a single entry to n stages, or validates
// an explicit per-stage list.
func expandPerStage(name string, vals []int64, n int) ([]int64, error) {
	switch len(vals) {
	case n:
		return vals, nil
	case 1:
		out := make([]int64, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%v must have 1 or %d entries, got %d", name, n, len(vals))
	}
}

// resolveOps turns the plans' operator keys into an OpsConfig,
// rejecting unknown keys.
func resolveOps(plans *Plans) (*base.OpsConfig, error) {
	if _, err := base.ParseConvOp(plans.ConvOp); err != nil {
		return nil, err
	}
	norm, err := base.ParseNormOp(plans.NormOp)
	if err != nil {
		return nil, err
	}
	dropout, err := base.ParseDropoutOp(plans.DropoutOp)
	if err != nil {
		return nil, err
	}
	nonlin, err := base.ParseNonlinOp(plans.Nonlin)
	if err != nil {
		return nil, err
	}

	ops := base.DefaultOpsConfig()
	ops.ConvBias = plans.ConvBias
	ops.Norm = norm
	if plans.NormEps > 0 {
		ops.NormEps = plans.NormEps
	}
	ops.Dropout = dropout
	ops.DropoutP = plans.DropoutP
	ops.Nonlin = nonlin
	ops.NonlinFirst = plans.NonlinFirst

	return ops, nil
}

// BuildNetwork constructs a ready-to-use network from plans on the var
// store. inputShape is the expected spatial input extent.
// overrideDeepSupervision, when non-nil, replaces the plans' flag.
// When allowInit is set, the He initialization policy is applied to
// the finished network. Unknown architecture names and unresolvable
// operator keys are construction-time errors.
func BuildNetwork(vs *nn.VarStore, plans *Plans, inChannels, numClasses int64, inputShape []int64, overrideDeepSupervision *bool, allowInit bool) (*TumorNet, error) {
	build, ok := architectures[plans.Architecture]
	if !ok {
		return nil, fmt.Errorf("unknown architecture %q", plans.Architecture)
	}

	ops, err := resolveOps(plans)
	if err != nil {
		return nil, err
	}

	features, err := expandPerStage("features_per_stage", plans.FeaturesPerStage, plans.NStages)
	if err != nil {
		return nil, err
	}
	kernels, err := expandPerStage("kernel_sizes", plans.KernelSizes, plans.NStages)
	if err != nil {
		return nil, err
	}
	strides, err := expandPerStage("strides", plans.Strides, plans.NStages)
	if err != nil {
		return nil, err
	}
	nConv, err := expandPerStage("n_conv_per_stage", plans.NConvPerStage, plans.NStages)
	if err != nil {
		return nil, err
	}
	nConvDec, err := expandPerStage("n_conv_per_stage_decoder", plans.NConvPerStageDecoder, plans.NStages-1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InChannels:           inChannels,
		NStages:              plans.NStages,
		FeaturesPerStage:     features,
		KernelSizes:          kernels,
		Strides:              strides,
		NConvPerStage:        nConv,
		NConvPerStageDecoder: nConvDec,
		NumClasses:           numClasses,
		Ops:                  ops,
		DeepSupervision:      plans.DeepSupervision,
		ParamDim:             plans.ParamDim,
		InputShape:           inputShape,
	}
	if overrideDeepSupervision != nil {
		cfg.DeepSupervision = *overrideDeepSupervision
	}

	network, err := build(vs.Root(), cfg)
	if err != nil {
		return nil, err
	}

	if allowInit {
		Initialize(vs)
	}

	return network, nil
}

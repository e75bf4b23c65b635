package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
)

// Config describes a PlainConvEncoder. All per-stage slices must have
// exactly NStages entries.
type Config struct {
	InChannels       int64
	NStages          int
	FeaturesPerStage []int64
	KernelSizes      []int64
	Strides          []int64
	NConvPerStage    []int64
	Ops              *base.OpsConfig
}

// PlainConvEncoder is a stack of strided conv blocks. Each stage
// downsamples by its stride (applied by the stage's first conv) and
// its output doubles as the skip tensor for the mirrored decoder
// stage.
type PlainConvEncoder struct {
	stages         []*base.StackedConvBlocks
	outputChannels []int64
	strides        []int64
	kernelSizes    []int64
	ops            *base.OpsConfig
}

// NewPlainConvEncoder creates a PlainConvEncoder from cfg.
func NewPlainConvEncoder(p *nn.Path, cfg *Config) (*PlainConvEncoder, error) {
	if cfg.NStages < 2 {
		return nil, fmt.Errorf("encoder needs at least 2 stages, got %d", cfg.NStages)
	}
	for name, l := range map[string]int{
		"features_per_stage": len(cfg.FeaturesPerStage),
		"kernel_sizes":       len(cfg.KernelSizes),
		"strides":            len(cfg.Strides),
		"n_conv_per_stage":   len(cfg.NConvPerStage),
	} {
		if l != cfg.NStages {
			return nil, fmt.Errorf("%v must have one entry per stage: got %d, want %d", name, l, cfg.NStages)
		}
	}

	ops := cfg.Ops
	if ops == nil {
		ops = base.DefaultOpsConfig()
	}

	stages := make([]*base.StackedConvBlocks, 0, cfg.NStages)
	cIn := cfg.InChannels
	for s := 0; s < cfg.NStages; s++ {
		stage := base.NewStackedConvBlocks(
			p.Sub(fmt.Sprintf("stage%d", s)),
			int(cfg.NConvPerStage[s]),
			cIn,
			cfg.FeaturesPerStage[s],
			cfg.KernelSizes[s],
			cfg.Strides[s],
			ops,
		)
		stages = append(stages, stage)
		cIn = cfg.FeaturesPerStage[s]
	}

	return &PlainConvEncoder{
		stages:         stages,
		outputChannels: append([]int64{}, cfg.FeaturesPerStage...),
		strides:        append([]int64{}, cfg.Strides...),
		kernelSizes:    append([]int64{}, cfg.KernelSizes...),
		ops:            ops,
	}, nil
}

// ForwardAll implements Encoder. The caller owns the returned skips
// and must drop every entry.
func (e *PlainConvEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	skips := make([]*ts.Tensor, 0, len(e.stages))
	out := x
	for _, stage := range e.stages {
		out = stage.ForwardT(out, train)
		skips = append(skips, out)
	}

	return skips
}

// OutputChannels implements Encoder.
func (e *PlainConvEncoder) OutputChannels() []int64 { return e.outputChannels }

// Strides implements Encoder.
func (e *PlainConvEncoder) Strides() []int64 { return e.strides }

// KernelSizes implements Encoder.
func (e *PlainConvEncoder) KernelSizes() []int64 { return e.kernelSizes }

// Ops implements Encoder.
func (e *PlainConvEncoder) Ops() *base.OpsConfig { return e.ops }

// FeatureMapSize estimates the total activation element count across
// all stages for an input of the given spatial size.
func (e *PlainConvEncoder) FeatureMapSize(spatial []int64) int64 {
	size := append([]int64{}, spatial...)
	var total int64
	for s, stage := range e.stages {
		total += stage.FeatureMapSize(size)
		size = base.DivSpatial(size, e.strides[s])
	}

	return total
}

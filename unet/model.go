package unet

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/encoder"
)

// DefaultParamDim is the biophysical parameter vector length used when
// Config.ParamDim is zero.
const DefaultParamDim int64 = 5

// Config describes a TumorNet. Per-stage slices must have NStages
// entries (NStages-1 for NConvPerStageDecoder). InputShape is the
// expected spatial input extent, required to size the parameter
// projector; it must be cubic.
type Config struct {
	InChannels           int64
	NStages              int
	FeaturesPerStage     []int64
	KernelSizes          []int64
	Strides              []int64
	NConvPerStage        []int64
	NConvPerStageDecoder []int64
	NumClasses           int64
	Ops                  *base.OpsConfig
	DeepSupervision      bool
	ParamDim             int64
	InputShape           []int64
}

// TumorNet is a plain-conv 3D U-Net that fuses a biophysical parameter
// vector into its bottleneck before decoding. It exclusively owns its
// encoder, projector and decoder.
type TumorNet struct {
	encoder         *encoder.PlainConvEncoder
	projector       *ParamProjector
	decoder         *Decoder
	deepSupervision bool
	paramDim        int64
}

// latentExtent propagates a cubic spatial shape through the stage
// strides and returns the bottleneck extent.
func latentExtent(shape []int64, strides []int64) (int64, error) {
	if len(shape) != 3 {
		return 0, fmt.Errorf("input shape must have 3 spatial dims, got %d", len(shape))
	}
	if shape[0] != shape[1] || shape[1] != shape[2] {
		return 0, fmt.Errorf("input shape must be cubic, got %v", shape)
	}

	extent := shape[0]
	for _, s := range strides {
		extent /= s
	}
	if extent < 1 {
		return 0, fmt.Errorf("strides %v collapse input shape %v below one voxel", strides, shape)
	}

	return extent, nil
}

// NewTumorNet creates a TumorNet from cfg. Configuration errors
// (mismatched per-stage list lengths, non-cubic input shape) are
// reported before any tensor is allocated for the failing part.
func NewTumorNet(p *nn.Path, cfg *Config) (*TumorNet, error) {
	paramDim := cfg.ParamDim
	if paramDim == 0 {
		paramDim = DefaultParamDim
	}

	if len(cfg.NConvPerStage) != cfg.NStages {
		return nil, fmt.Errorf("n_conv_per_stage must have one entry per stage: got %d, want %d", len(cfg.NConvPerStage), cfg.NStages)
	}
	if len(cfg.NConvPerStageDecoder) != cfg.NStages-1 {
		return nil, fmt.Errorf("n_conv_per_stage_decoder must have one entry per resolution stage below the first: got %d, want %d", len(cfg.NConvPerStageDecoder), cfg.NStages-1)
	}

	latent, err := latentExtent(cfg.InputShape, cfg.Strides)
	if err != nil {
		return nil, err
	}

	enc, err := encoder.NewPlainConvEncoder(p.Sub("encoder"), &encoder.Config{
		InChannels:       cfg.InChannels,
		NStages:          cfg.NStages,
		FeaturesPerStage: cfg.FeaturesPerStage,
		KernelSizes:      cfg.KernelSizes,
		Strides:          cfg.Strides,
		NConvPerStage:    cfg.NConvPerStage,
		Ops:              cfg.Ops,
	})
	if err != nil {
		return nil, err
	}

	projector := NewParamProjector(p.Sub("projector"), paramDim, latent)

	dec, err := NewDecoder(p.Sub("decoder"), enc, cfg.NumClasses, cfg.NConvPerStageDecoder, paramDim, nil)
	if err != nil {
		return nil, err
	}

	return &TumorNet{
		encoder:         enc,
		projector:       projector,
		decoder:         dec,
		deepSupervision: cfg.DeepSupervision,
		paramDim:        paramDim,
	}, nil
}

// Encoder exposes the network's encoder for shape lookups.
func (n *TumorNet) Encoder() encoder.Encoder { return n.encoder }

// Decoder exposes the network's decoder.
func (n *TumorNet) Decoder() *Decoder { return n.decoder }

// ParamDim returns the parameter vector length the network fuses.
func (n *TumorNet) ParamDim() int64 { return n.paramDim }

// DeepSupervision reports whether Forward returns every stage's map.
func (n *TumorNet) DeepSupervision() bool { return n.deepSupervision }

// FuseParams returns a new skip list whose deepest entry is the
// channel-wise concatenation of the bottleneck and the projected
// parameter tensor. The other entries alias the input unchanged; the
// input slice itself is not mutated. The caller owns the new deepest
// tensor.
func FuseParams(skips []*ts.Tensor, projected *ts.Tensor) []*ts.Tensor {
	fused := make([]*ts.Tensor, len(skips))
	copy(fused, skips)
	fused[len(fused)-1] = ts.MustCat([]*ts.Tensor{skips[len(skips)-1], projected}, 1)

	return fused
}

// Forward runs volume x (batch, channels, D, H, W) and parameter
// vector params (batch, paramDim) through encoder, fusion and decoder.
// It returns class-score maps ordered finest to coarsest: one per
// decoder stage under deep supervision, a single full-resolution map
// otherwise. The caller owns the returned tensors.
func (n *TumorNet) Forward(x, params *ts.Tensor, train bool) []*ts.Tensor {
	skips := n.encoder.ForwardAll(x, train)
	bottleneck := skips[len(skips)-1]

	// The runtime bottleneck extent is authoritative for the reshape
	// target, not the construction-time estimate.
	bSize := bottleneck.MustSize()
	latent := bSize[len(bSize)-1]

	pOnDevice := params.MustTo(bottleneck.MustDevice(), false)
	projected := n.projector.Forward(pOnDevice, latent)
	pOnDevice.MustDrop()

	fused := FuseParams(skips, projected)
	projected.MustDrop()

	outs := n.decoder.Forward(fused, train)

	fused[len(fused)-1].MustDrop()
	for _, s := range skips {
		s.MustDrop()
	}

	if n.deepSupervision {
		return outs
	}
	for _, o := range outs[1:] {
		o.MustDrop()
	}

	return outs[:1]
}

// ForwardT returns only the full-resolution class-score map.
func (n *TumorNet) ForwardT(x, params *ts.Tensor, train bool) *ts.Tensor {
	outs := n.Forward(x, params, train)
	for _, o := range outs[1:] {
		o.MustDrop()
	}

	return outs[0]
}

// FeatureMapSize estimates the total intermediate activation element
// count of a forward pass for the given spatial input size. It is a
// memory-budgeting utility, not part of the forward contract.
func (n *TumorNet) FeatureMapSize(spatial []int64) (int64, error) {
	if len(spatial) != 3 {
		return 0, fmt.Errorf("spatial size must have 3 dims, got %d", len(spatial))
	}

	return n.encoder.FeatureMapSize(spatial) + n.decoder.FeatureMapSize(spatial), nil
}

// Initialize applies the He weight policy uniformly to every module in
// the store. Re-applying it only rewrites weight values.
func Initialize(vs *nn.VarStore) {
	base.InitWeightsHe(vs)
}

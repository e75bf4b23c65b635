package unet

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// ParamProjector expands a biophysical parameter vector of shape
// (batch, paramDim) into a dense cubic tensor (batch, paramDim, D, D,
// D) matching the bottleneck's spatial extent, via a learned affine
// map.
type ParamProjector struct {
	fc         *nn.Linear
	paramDim   int64
	latentSize int64
	device     gotch.Device
}

// NewParamProjector creates a projector sized for a bottleneck of
// cubic extent latentSize. The affine map's output width is
// latentSize³ × paramDim.
func NewParamProjector(p *nn.Path, paramDim, latentSize int64) *ParamProjector {
	width := latentSize * latentSize * latentSize * paramDim
	fc := nn.NewLinear(p.Sub("param_fc"), paramDim, width, nn.DefaultLinearConfig())

	return &ParamProjector{
		fc:         fc,
		paramDim:   paramDim,
		latentSize: latentSize,
		device:     p.Device(),
	}
}

// LatentSize returns the bottleneck extent the projector was built
// for. The runtime extent passed to Forward is authoritative; the two
// only diverge on misconfigured input shapes.
func (pp *ParamProjector) LatentSize() int64 { return pp.latentSize }

// ensureDevice migrates the affine map's weights to device on first
// use with data from a new device. Not safe for concurrent forward
// calls; callers must synchronize externally.
func (pp *ParamProjector) ensureDevice(device gotch.Device) {
	if pp.device == device {
		return
	}

	pp.fc.Ws = pp.fc.Ws.MustTo(device, true)
	if pp.fc.Bs != nil {
		pp.fc.Bs = pp.fc.Bs.MustTo(device, true)
	}
	pp.device = device
}

// Forward projects params (batch, paramDim) to (batch, paramDim,
// latentSize, latentSize, latentSize). A latentSize other than the one
// the projector was built for panics in the view below with a shape
// mismatch; that signals a configuration error upstream and is not
// caught here.
func (pp *ParamProjector) Forward(params *ts.Tensor, latentSize int64) *ts.Tensor {
	pp.ensureDevice(params.MustDevice())

	batchSize := params.MustSize()[0]
	flat := pp.fc.Forward(params)

	return flat.MustView([]int64{batchSize, pp.paramDim, latentSize, latentSize, latentSize}, true)
}

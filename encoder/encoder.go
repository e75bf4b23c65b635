package encoder

import (
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/base"
)

// Encoder produces one feature map per resolution stage, finest first,
// bottleneck last. The decoder consults the remaining accessors for
// channel, stride and operator bookkeeping; it never mutates the
// encoder.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor

	// OutputChannels returns the channel count per stage.
	OutputChannels() []int64
	// Strides returns the downsampling stride per stage.
	Strides() []int64
	// KernelSizes returns the cubic kernel size per stage.
	KernelSizes() []int64
	// Ops returns the block operator configuration the stages use.
	Ops() *base.OpsConfig
}

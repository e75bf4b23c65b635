package base

import (
	"github.com/sugarme/gotch/nn"
)

// Conv3d creates a Conv3D module with cubic kernel, stride and padding.
func Conv3d(p *nn.Path, cIn, cOut, ksize, padding, stride int64, bias bool) *nn.Conv3D {
	config := nn.DefaultConv3DConfig()
	config.Bias = bias
	config.Stride = []int64{stride, stride, stride}
	config.Padding = []int64{padding, padding, padding}

	return nn.NewConv3D(p, cIn, cOut, ksize, config)
}

// ConvTranspose3d creates a ConvTranspose3D module whose kernel size
// equals its stride, so it exactly inverts a matching strided conv.
func ConvTranspose3d(p *nn.Path, cIn, cOut, stride int64, bias bool) *nn.ConvTranspose3D {
	config := nn.DefaultConvTranspose3DConfig()
	config.Bias = bias
	config.Stride = []int64{stride, stride, stride}

	return nn.NewConvTranspose3D(p, cIn, cOut, stride, config)
}

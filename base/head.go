package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates the pointwise conv mapping decoder
// features to per-voxel class scores. Bias is always on here, even
// when the surrounding blocks run bias-free convs.
func NewSegmentationHead(p *nn.Path, cIn, numClasses int64) *nn.Conv3D {
	return Conv3d(p, cIn, numClasses, 1, 0, 1, true)
}

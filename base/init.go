package base

import (
	"strings"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// InitWeightsHe re-initializes every learnable tensor in the var
// store: He (Kaiming) uniform for weights, zeros for biases. Calling
// it on an already-initialized store only rewrites values; module
// structure and shapes are untouched.
func InitWeightsHe(vs *nn.VarStore) {
	ts.NoGrad(func() {
		for name, v := range vs.Variables() {
			if strings.HasSuffix(name, "bias") {
				nn.NewConstInit(0.0).Set(&v)
			} else {
				nn.NewKaimingUniformInit().Set(&v)
			}
		}
	})
}

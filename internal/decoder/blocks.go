package decoder

import (
	"github.com/vk/segnetgo/internal/tensor"
)

// conv3x3Block builds the normalization-aware conv fragment: a 3x3 same
// convolution, the configured normalization on the channel axis, optional
// dropout, then ReLU. The convolution carries a bias only when no
// normalization follows it. Sub-node names derive from the block name.
func conv3x3Block(g *tensor.Graph, x *tensor.Tensor, filters int, norm Norm, dropRate float64, name string) (*tensor.Tensor, error) {
	useBias := norm.Mode == NormNone
	x, err := g.Conv2D(name+"_conv", x, filters, 3, 1, useBias, "he_uniform", "")
	if err != nil {
		return nil, err
	}

	switch norm.Mode {
	case NormBatch:
		if x, err = g.BatchNorm(name+"_bn", x); err != nil {
			return nil, err
		}
	case NormGroup:
		if x, err = g.GroupNorm(name+"_gn", x, norm.Groups); err != nil {
			return nil, err
		}
	}

	if dropRate > 0 {
		if x, err = g.Dropout(name+"_dropout", x, dropRate); err != nil {
			return nil, err
		}
	}

	return g.Activation(name+"_relu", x, "relu")
}

package backbone

import (
	"context"
	"fmt"

	"github.com/vk/segnetgo/internal/tensor"
)

var resnetChannels = [4]int{64, 128, 256, 512}

func buildResNet18(ctx context.Context, name string, opts BuildOptions) (*Backbone, error) {
	return buildResNet(name, opts, [4]int{2, 2, 2, 2})
}

func buildResNet34(ctx context.Context, name string, opts BuildOptions) (*Backbone, error) {
	return buildResNet(name, opts, [4]int{3, 4, 6, 3})
}

// buildResNet assembles a pre-activation residual encoder. The terminal layer
// is an activation, so ResNet backbones never get a center block. The stage
// and unit layer names follow the classification-models convention that the
// default skip lists refer to.
func buildResNet(name string, opts BuildOptions, unitsPerStage [4]int) (*Backbone, error) {
	act := opts.EncoderActivation
	if act == "" {
		act = "relu"
	}

	g := tensor.NewGraph(opts.Format)
	input, err := g.Input("input", inputShape(opts.InputH, opts.InputW, opts.InputC, opts.Format))
	if err != nil {
		return nil, err
	}

	s := &buildState{g: g, x: input}
	conv := func(n string, filters, kernel, stride int) {
		s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
			return g.Conv2D(n, x, filters, kernel, stride, false, "he_uniform", "")
		})
	}
	bn := func(n string) {
		s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
			return g.BatchNorm(n, x)
		})
	}
	activation := func(n string) {
		s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
			return g.Activation(n, x, act)
		})
	}

	// Stem.
	conv("conv0", 64, 7, 2)
	bn("bn0")
	activation("relu0")
	s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
		return g.MaxPool2D("pooling0", x, 2)
	})

	for stage := 1; stage <= 4; stage++ {
		filters := resnetChannels[stage-1]
		for unit := 1; unit <= unitsPerStage[stage-1]; unit++ {
			prefix := fmt.Sprintf("stage%d_unit%d_", stage, unit)
			stride := 1
			if unit == 1 && stage > 1 {
				stride = 2
			}

			residualFrom := s.x
			bn(prefix + "bn1")
			activation(prefix + "relu1")
			preact := s.x
			if s.err != nil {
				break
			}

			conv(prefix+"conv1", filters, 3, stride)
			bn(prefix + "bn2")
			activation(prefix + "relu2")
			conv(prefix+"conv2", filters, 3, 1)

			// Shortcut: identity when shape is preserved, otherwise a 1x1
			// projection taken from the pre-activation tensor.
			shortcut := residualFrom
			if stride != 1 || residualFrom.Shape().Channels(g.Format()) != filters {
				var scErr error
				shortcut, scErr = g.Conv2D(prefix+"sc", preact, filters, 1, stride, false, "he_uniform", "")
				if scErr != nil && s.err == nil {
					s.err = scErr
				}
			}
			sc := shortcut
			s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
				return g.Add(prefix+"add", x, sc)
			})
		}
		if s.err != nil {
			break
		}
	}

	// Post-network normalization and activation.
	bn("bn1")
	activation("relu1")

	return s.finish(name, input)
}

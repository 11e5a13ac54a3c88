package backbone

import (
	"context"
	"fmt"

	"github.com/vk/segnetgo/internal/tensor"
)

// vggChannels holds the per-block channel widths shared by both VGG depths.
var vggChannels = [5]int{64, 128, 256, 512, 512}

func buildVGG16(ctx context.Context, name string, opts BuildOptions) (*Backbone, error) {
	return buildVGG(name, opts, [5]int{2, 2, 3, 3, 3})
}

func buildVGG19(ctx context.Context, name string, opts BuildOptions) (*Backbone, error) {
	return buildVGG(name, opts, [5]int{2, 2, 4, 4, 4})
}

// buildVGG assembles a headless VGG encoder. With the classifier stripped the
// terminal layer is block5_pool, so VGG backbones always trigger the center
// block downstream.
func buildVGG(name string, opts BuildOptions, convsPerBlock [5]int) (*Backbone, error) {
	g := tensor.NewGraph(opts.Format)
	input, err := g.Input("input", inputShape(opts.InputH, opts.InputW, opts.InputC, opts.Format))
	if err != nil {
		return nil, err
	}

	s := &buildState{g: g, x: input}
	for block := 1; block <= 5; block++ {
		channels := vggChannels[block-1]
		for conv := 1; conv <= convsPerBlock[block-1]; conv++ {
			convName := fmt.Sprintf("block%d_conv%d", block, conv)
			s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
				return g.Conv2D(convName, x, channels, 3, 1, true, "glorot_uniform", "relu")
			})
		}
		poolName := fmt.Sprintf("block%d_pool", block)
		s.apply(func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
			return g.MaxPool2D(poolName, x, 2)
		})
	}
	return s.finish(name, input)
}

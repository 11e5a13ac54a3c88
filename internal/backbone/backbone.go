// Package backbone holds the encoder side of a segmentation model: a catalog
// of feature-extracting networks built symbolically on the tensor package,
// plus the registry that resolves them by name.
package backbone

import (
	"fmt"

	"github.com/vk/segnetgo/internal/tensor"
)

// Backbone is a fully constructed feature extractor. Decoders only ever read
// it: the input node, the deepest output, and named intermediate layers used
// as skip connections.
type Backbone struct {
	name   string
	graph  *tensor.Graph
	input  *tensor.Tensor
	output *tensor.Tensor
	layers []*tensor.Layer

	// PretrainedWeights is the resolved weights identifier ("imagenet", ...)
	// or empty when the entry disables pretrained loading.
	PretrainedWeights string
}

// New wraps an already-built encoder graph. The layer sequence is taken in
// graph creation order.
func New(name string, g *tensor.Graph, input, output *tensor.Tensor) *Backbone {
	return &Backbone{
		name:   name,
		graph:  g,
		input:  input,
		output: output,
		layers: append([]*tensor.Layer(nil), g.Layers()...),
	}
}

// Name returns the registry name the backbone was resolved under.
func (b *Backbone) Name() string { return b.name }

// Graph returns the graph the backbone was built in. Decoder construction
// continues on the same graph so skip tensors stay connected.
func (b *Backbone) Graph() *tensor.Graph { return b.graph }

// Input returns the backbone's single input tensor.
func (b *Backbone) Input() *tensor.Tensor { return b.input }

// Output returns the deepest feature map.
func (b *Backbone) Output() *tensor.Tensor { return b.output }

// Layers returns the backbone's layers in creation order.
func (b *Backbone) Layers() []*tensor.Layer { return b.layers }

// LayerByName looks a layer up by its node name.
func (b *Backbone) LayerByName(name string) (*tensor.Layer, bool) {
	l, ok := b.graph.Layer(name)
	return l, ok
}

// LayerByIndex looks a layer up by position. A negative index counts from
// the end of the layer sequence, Python-style, so -1 is the terminal layer.
func (b *Backbone) LayerByIndex(i int) (*tensor.Layer, bool) {
	if i < 0 {
		i += len(b.layers)
	}
	if i < 0 || i >= len(b.layers) {
		return nil, false
	}
	return b.layers[i], true
}

// EndsWithPooling reports whether the terminal layer is a spatial pooling
// op. Backbones like VGG end on a pool when their dense head is stripped,
// which is the structural signal for inserting a center block.
func (b *Backbone) EndsWithPooling() bool {
	if len(b.layers) == 0 {
		return false
	}
	return b.layers[len(b.layers)-1].Op == tensor.OpMaxPool2D
}

// inputShape converts a semantic (H, W, C) triple into the layout order of
// the target data format.
func inputShape(h, w, c int, f tensor.DataFormat) tensor.Shape {
	if f == tensor.ChannelsFirst {
		return tensor.Shape{c, h, w}
	}
	return tensor.Shape{h, w, c}
}

// buildState threads the running tensor through a builder so the individual
// op helpers stay short. The first error wins and later calls are no-ops,
// which keeps the builders linear instead of error-checking every line.
type buildState struct {
	g   *tensor.Graph
	x   *tensor.Tensor
	err error
}

func (s *buildState) apply(f func(g *tensor.Graph, x *tensor.Tensor) (*tensor.Tensor, error)) {
	if s.err != nil {
		return
	}
	s.x, s.err = f(s.g, s.x)
}

func (s *buildState) finish(name string, input *tensor.Tensor) (*Backbone, error) {
	if s.err != nil {
		return nil, fmt.Errorf("building backbone %q: %w", name, s.err)
	}
	return New(name, s.g, input, s.x), nil
}

package tensor

import (
	"errors"
	"fmt"
)

// ErrDuplicateLayer is returned when an op reuses a layer name already
// present in the graph.
var ErrDuplicateLayer = errors.New("duplicate layer name")

// ErrShapeMismatch is returned when the inputs of an op disagree on an axis
// that must match.
var ErrShapeMismatch = errors.New("shape mismatch")

// Graph is an append-only builder for a symbolic computation graph. It is not
// safe for concurrent use; independent builds each get their own Graph.
type Graph struct {
	format DataFormat
	layers []*Layer
	byName map[string]*Layer
}

// NewGraph creates an empty graph using the given data format.
func NewGraph(format DataFormat) *Graph {
	return &Graph{
		format: format,
		byName: make(map[string]*Layer),
	}
}

// Format returns the graph's data format.
func (g *Graph) Format() DataFormat { return g.format }

// ChannelAxis returns the channel axis index for shapes in this graph.
func (g *Graph) ChannelAxis() int { return g.format.ChannelAxis() }

// Layers returns every layer added so far, in creation order.
func (g *Graph) Layers() []*Layer { return g.layers }

// Layer looks a layer up by name.
func (g *Graph) Layer(name string) (*Layer, bool) {
	l, ok := g.byName[name]
	return l, ok
}

// add registers the layer and wires its output tensor. All ops funnel
// through here so the uniqueness rule holds everywhere.
func (g *Graph) add(l *Layer, outShape Shape) (*Tensor, error) {
	if l.Name == "" {
		return nil, fmt.Errorf("layer of op %s has empty name", l.Op)
	}
	if _, ok := g.byName[l.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateLayer, l.Name)
	}
	out := &Tensor{graph: g, layer: l, shape: outShape}
	l.Output = out
	g.byName[l.Name] = l
	g.layers = append(g.layers, l)
	return out, nil
}

func (g *Graph) checkSameGraph(xs ...*Tensor) error {
	for _, x := range xs {
		if x == nil {
			return fmt.Errorf("nil input tensor")
		}
		if x.graph != g {
			return fmt.Errorf("input tensor %q belongs to a different graph", x.layer.Name)
		}
	}
	return nil
}

// spatialShape rebuilds a shape from per-axis spatial values and a channel
// count, respecting the graph's data format.
func (g *Graph) spatialShape(s Shape, fn func(int) int, channels int) Shape {
	ca := g.ChannelAxis()
	var out Shape
	for i := range s {
		if i == ca {
			out[i] = channels
		} else {
			out[i] = fn(s[i])
		}
	}
	return out
}

// Input creates the graph's entry tensor.
func (g *Graph) Input(name string, shape Shape) (*Tensor, error) {
	return g.add(&Layer{Name: name, Op: OpInput}, shape)
}

// Conv2D applies a square same-padding convolution. The activation, if any,
// is fused into the layer the way Keras-style conv layers do it.
func (g *Graph) Conv2D(name string, x *Tensor, filters, kernel, stride int, useBias bool, initializer, activation string) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	inC := x.shape.Channels(g.format)
	if inC <= 0 {
		return nil, fmt.Errorf("conv2d %q: input channel count unknown", name)
	}
	if filters <= 0 {
		return nil, fmt.Errorf("conv2d %q: filters must be positive, got %d", name, filters)
	}
	l := &Layer{
		Name:       name,
		Op:         OpConv2D,
		Inputs:     []*Tensor{x},
		Trainable:  true,
		KernelSize: kernel,
		Stride:     stride,
		Filters:    filters,
		UseBias:    useBias,
		Activation: activation,
	}
	l.Params = []*Param{
		{Name: name + "/kernel", Shape: []int{kernel, kernel, inC, filters}, Initializer: initializer},
	}
	if useBias {
		l.Params = append(l.Params, &Param{Name: name + "/bias", Shape: []int{filters}, Initializer: "zeros"})
	}
	out := g.spatialShape(x.shape, func(d int) int { return scaleDim(d, stride) }, filters)
	return g.add(l, out)
}

// Conv2DTranspose applies a square stride-s learned upsampling convolution
// with same padding, so spatial dimensions grow by the stride factor.
func (g *Graph) Conv2DTranspose(name string, x *Tensor, filters, kernel, stride int, useBias bool, initializer string) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	inC := x.shape.Channels(g.format)
	if inC <= 0 {
		return nil, fmt.Errorf("conv2d_transpose %q: input channel count unknown", name)
	}
	l := &Layer{
		Name:       name,
		Op:         OpConv2DTranspose,
		Inputs:     []*Tensor{x},
		Trainable:  true,
		KernelSize: kernel,
		Stride:     stride,
		Filters:    filters,
		UseBias:    useBias,
	}
	l.Params = []*Param{
		{Name: name + "/kernel", Shape: []int{kernel, kernel, filters, inC}, Initializer: initializer},
	}
	if useBias {
		l.Params = append(l.Params, &Param{Name: name + "/bias", Shape: []int{filters}, Initializer: "zeros"})
	}
	out := g.spatialShape(x.shape, func(d int) int { return upDim(d, stride) }, filters)
	return g.add(l, out)
}

// MaxPool2D applies square max pooling with stride equal to the pool size.
func (g *Graph) MaxPool2D(name string, x *Tensor, pool int) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	l := &Layer{Name: name, Op: OpMaxPool2D, Inputs: []*Tensor{x}, PoolSize: pool}
	out := g.spatialShape(x.shape, func(d int) int { return scaleDim(d, pool) }, x.shape.Channels(g.format))
	return g.add(l, out)
}

// UpSampling2D repeats rows and columns by the given factor. Parameter-free.
func (g *Graph) UpSampling2D(name string, x *Tensor, factor int) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	l := &Layer{Name: name, Op: OpUpSampling2D, Inputs: []*Tensor{x}, Factor: factor}
	out := g.spatialShape(x.shape, func(d int) int { return upDim(d, factor) }, x.shape.Channels(g.format))
	return g.add(l, out)
}

// Concat joins tensors along the channel axis. Every other axis must agree,
// where an unknown dimension is compatible with any concrete one.
func (g *Graph) Concat(name string, xs ...*Tensor) (*Tensor, error) {
	if err := g.checkSameGraph(xs...); err != nil {
		return nil, err
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("concat %q: need at least two inputs, got %d", name, len(xs))
	}
	ca := g.ChannelAxis()
	out := xs[0].shape
	channels := 0
	for i, x := range xs {
		c := x.shape.Channels(g.format)
		if c <= 0 {
			return nil, fmt.Errorf("concat %q: input %d has unknown channel count", name, i)
		}
		channels += c
		for axis := range out {
			if axis == ca {
				continue
			}
			if !dimsCompatible(out[axis], x.shape[axis]) {
				return nil, fmt.Errorf("%w: concat %q: input %d has shape %s, expected non-channel axes of %s",
					ErrShapeMismatch, name, i, x.shape, xs[0].shape)
			}
			if out[axis] == 0 {
				out[axis] = x.shape[axis]
			}
		}
	}
	out[ca] = channels
	l := &Layer{Name: name, Op: OpConcat, Inputs: append([]*Tensor(nil), xs...)}
	return g.add(l, out)
}

// BatchNorm normalizes along the channel axis using batch statistics.
func (g *Graph) BatchNorm(name string, x *Tensor) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	c := x.shape.Channels(g.format)
	if c <= 0 {
		return nil, fmt.Errorf("batchnorm %q: input channel count unknown", name)
	}
	l := &Layer{Name: name, Op: OpBatchNorm, Inputs: []*Tensor{x}, Trainable: true}
	l.Params = []*Param{
		{Name: name + "/gamma", Shape: []int{c}, Initializer: "ones"},
		{Name: name + "/beta", Shape: []int{c}, Initializer: "zeros"},
		{Name: name + "/moving_mean", Shape: []int{c}, Initializer: "zeros"},
		{Name: name + "/moving_variance", Shape: []int{c}, Initializer: "ones"},
	}
	return g.add(l, x.shape)
}

// GroupNorm normalizes groups of channels. The group count must be positive
// and divide the channel count evenly; this is where that rule is enforced.
func (g *Graph) GroupNorm(name string, x *Tensor, groups int) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	c := x.shape.Channels(g.format)
	if c <= 0 {
		return nil, fmt.Errorf("groupnorm %q: input channel count unknown", name)
	}
	if groups <= 0 {
		return nil, fmt.Errorf("groupnorm %q: group count must be positive, got %d", name, groups)
	}
	if c%groups != 0 {
		return nil, fmt.Errorf("groupnorm %q: %d channels not divisible by %d groups", name, c, groups)
	}
	l := &Layer{Name: name, Op: OpGroupNorm, Inputs: []*Tensor{x}, Trainable: true, Groups: groups}
	l.Params = []*Param{
		{Name: name + "/gamma", Shape: []int{c}, Initializer: "ones"},
		{Name: name + "/beta", Shape: []int{c}, Initializer: "zeros"},
	}
	return g.add(l, x.shape)
}

// Dropout inserts a dropout node. Purely structural here; rate is metadata.
func (g *Graph) Dropout(name string, x *Tensor, rate float64) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout %q: rate must be in [0, 1), got %v", name, rate)
	}
	l := &Layer{Name: name, Op: OpDropout, Inputs: []*Tensor{x}, Rate: rate}
	return g.add(l, x.shape)
}

// Activation applies a standalone activation function.
func (g *Graph) Activation(name string, x *Tensor, fn string) (*Tensor, error) {
	if err := g.checkSameGraph(x); err != nil {
		return nil, err
	}
	l := &Layer{Name: name, Op: OpActivation, Inputs: []*Tensor{x}, Activation: fn}
	return g.add(l, x.shape)
}

// Add sums two tensors element-wise. Shapes must be compatible on every axis.
func (g *Graph) Add(name string, a, b *Tensor) (*Tensor, error) {
	if err := g.checkSameGraph(a, b); err != nil {
		return nil, err
	}
	out := a.shape
	for axis := range out {
		if !dimsCompatible(a.shape[axis], b.shape[axis]) {
			return nil, fmt.Errorf("%w: add %q: %s vs %s", ErrShapeMismatch, name, a.shape, b.shape)
		}
		if out[axis] == 0 {
			out[axis] = b.shape[axis]
		}
	}
	l := &Layer{Name: name, Op: OpAdd, Inputs: []*Tensor{a, b}}
	return g.add(l, out)
}

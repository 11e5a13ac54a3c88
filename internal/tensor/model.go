package tensor

import (
	"fmt"
	"strings"
)

// Model is an immutable packaged sub-graph: everything reachable from the
// output tensor, ordered the way it was created.
type Model struct {
	input  *Tensor
	output *Tensor
	layers []*Layer
	byName map[string]*Layer
}

// NewModel packages the graph between input and output. It walks the graph
// backwards from the output and fails if the input layer is not part of the
// reachable set, which would mean the two tensors are disconnected.
func NewModel(input, output *Tensor) (*Model, error) {
	if input == nil || output == nil {
		return nil, fmt.Errorf("model requires both an input and an output tensor")
	}
	if input.graph != output.graph {
		return nil, fmt.Errorf("input and output tensors belong to different graphs")
	}

	// Depth-first walk over layer inputs, collecting the reachable set.
	reachable := make(map[*Layer]bool)
	var visit func(l *Layer)
	visit = func(l *Layer) {
		if reachable[l] {
			return
		}
		reachable[l] = true
		for _, in := range l.Inputs {
			visit(in.layer)
		}
	}
	visit(output.layer)

	if !reachable[input.layer] {
		return nil, fmt.Errorf("output %q is not reachable from input %q", output.layer.Name, input.layer.Name)
	}

	m := &Model{
		input:  input,
		output: output,
		byName: make(map[string]*Layer, len(reachable)),
	}
	// The graph's append order is already a valid topological order.
	for _, l := range input.graph.layers {
		if reachable[l] {
			m.layers = append(m.layers, l)
			m.byName[l.Name] = l
		}
	}
	return m, nil
}

// Input returns the model's input tensor.
func (m *Model) Input() *Tensor { return m.input }

// Output returns the model's output tensor.
func (m *Model) Output() *Tensor { return m.output }

// Layers returns the model's layers in creation order.
func (m *Model) Layers() []*Layer { return m.layers }

// Layer looks a layer up by name.
func (m *Model) Layer(name string) (*Layer, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// LayerNames returns the names of all layers in creation order.
func (m *Model) LayerNames() []string {
	names := make([]string, len(m.layers))
	for i, l := range m.layers {
		names[i] = l.Name
	}
	return names
}

// Parameters returns every learnable parameter, in layer creation order.
func (m *Model) Parameters() []*Param {
	var params []*Param
	for _, l := range m.layers {
		params = append(params, l.Params...)
	}
	return params
}

// Summary renders a human-readable table of the model's layers.
func (m *Model) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-16s %-18s %s\n", "Layer", "Op", "Output Shape", "Params")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 84))
	total := 0
	for _, l := range m.layers {
		n := 0
		for _, p := range l.Params {
			n += p.Elements()
		}
		total += n
		fmt.Fprintf(&b, "%-38s %-16s %-18s %d\n", l.Name, l.Op, l.Output.shape, n)
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 84))
	fmt.Fprintf(&b, "Total params: %d\n", total)
	return b.String()
}

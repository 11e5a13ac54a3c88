// Package testutil provides small fixtures shared by the package tests,
// mainly synthetic encoders that are cheap to build and easy to reason
// about.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/segnetgo/internal/backbone"
	"github.com/vk/segnetgo/internal/tensor"
)

// TinyBackboneOptions controls the synthetic encoder fixture.
type TinyBackboneOptions struct {
	// InputH/InputW are the spatial input dimensions (0 = variable).
	InputH, InputW int
	// Depth is the number of downsampling levels. Each level is a conv
	// named "featN" followed by a pool named "poolN".
	Depth int
	// EndWithPool leaves the trailing pool as the terminal layer, which
	// makes the fixture trigger a center block downstream. When false, a
	// final conv named "bottleneck" follows the last pool.
	EndWithPool bool
	// Format defaults to channels-last.
	Format tensor.DataFormat
}

// TinyBackbone builds a minimal synthetic encoder. Skip-connection layers
// are named "feat<depth>" down to "feat1", deepest first, matching the order
// decoder stages consume them.
func TinyBackbone(t *testing.T, opts TinyBackboneOptions) *backbone.Backbone {
	t.Helper()
	if opts.Depth == 0 {
		opts.Depth = 3
	}

	g := tensor.NewGraph(opts.Format)
	shape := tensor.Shape{opts.InputH, opts.InputW, 3}
	if opts.Format == tensor.ChannelsFirst {
		shape = tensor.Shape{3, opts.InputH, opts.InputW}
	}
	input, err := g.Input("input", shape)
	require.NoError(t, err)

	x := input
	filters := 16
	for level := 1; level <= opts.Depth; level++ {
		x, err = g.Conv2D(fmt.Sprintf("feat%d", level), x, filters, 3, 1, true, "he_uniform", "relu")
		require.NoError(t, err)
		x, err = g.MaxPool2D(fmt.Sprintf("pool%d", level), x, 2)
		require.NoError(t, err)
		filters *= 2
	}

	if !opts.EndWithPool {
		x, err = g.Conv2D("bottleneck", x, filters, 3, 1, true, "he_uniform", "relu")
		require.NoError(t, err)
	}

	return backbone.New("tiny", g, input, x)
}

// TinySkips returns the fixture's default skip layer names for n decoder
// stages, deepest first.
func TinySkips(depth, n int) []string {
	var names []string
	for level := depth; level >= 1 && len(names) < n; level-- {
		names = append(names, fmt.Sprintf("feat%d", level))
	}
	return names
}

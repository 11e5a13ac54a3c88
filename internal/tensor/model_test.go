package tensor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain creates input -> conv -> pool -> conv and returns the graph
// ends. The side branch is never connected to the main chain.
func buildChain(t *testing.T) (*Graph, *Tensor, *Tensor) {
	t.Helper()
	g := NewGraph(ChannelsLast)
	in := mustInput(t, g, "in", Shape{32, 32, 3})
	x, err := g.Conv2D("c1", in, 8, 3, 1, true, "he_uniform", "relu")
	require.NoError(t, err)
	x, err = g.MaxPool2D("p1", x, 2)
	require.NoError(t, err)
	x, err = g.Conv2D("c2", x, 16, 3, 1, true, "he_uniform", "relu")
	require.NoError(t, err)
	return g, in, x
}

func TestNewModel_CollectsReachableLayersInOrder(t *testing.T) {
	g, in, out := buildChain(t)

	// A dangling layer must not end up in the model.
	_, err := g.Conv2D("dangling", in, 4, 3, 1, true, "he_uniform", "")
	require.NoError(t, err)

	m, err := NewModel(in, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "c1", "p1", "c2"}, m.LayerNames())

	_, ok := m.Layer("dangling")
	assert.False(t, ok)
}

func TestNewModel_DisconnectedFails(t *testing.T) {
	g, _, out := buildChain(t)

	other := mustInput(t, g, "other", Shape{32, 32, 3})
	_, err := NewModel(other, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestNewModel_DifferentGraphsFail(t *testing.T) {
	_, in, _ := buildChain(t)
	_, _, out := buildChain(t)

	_, err := NewModel(in, out)
	require.Error(t, err)
}

func TestModel_Parameters(t *testing.T) {
	_, in, out := buildChain(t)
	m, err := NewModel(in, out)
	require.NoError(t, err)

	params := m.Parameters()
	require.Len(t, params, 4) // two convs, kernel+bias each
	assert.Equal(t, "c1/kernel", params[0].Name)
	assert.Equal(t, 3*3*3*8, params[0].Elements())

	// Construction is symbolic; no data materialized.
	for _, p := range params {
		assert.Nil(t, p.Data)
	}
}

func TestModel_Summary(t *testing.T) {
	_, in, out := buildChain(t)
	m, err := NewModel(in, out)
	require.NoError(t, err)

	s := m.Summary()
	assert.Contains(t, s, "c1")
	assert.Contains(t, s, "Conv2D")
	assert.Contains(t, s, "Total params:")
	// header + rule, one line per layer, rule + total.
	assert.Equal(t, 2+4+2, strings.Count(s, "\n"))
}

package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/segnetgo/internal/tensor"
)

func blockInput(t *testing.T) (*tensor.Graph, *tensor.Tensor) {
	t.Helper()
	g := tensor.NewGraph(tensor.ChannelsLast)
	x, err := g.Input("in", tensor.Shape{16, 16, 32})
	require.NoError(t, err)
	return g, x
}

func layerNames(g *tensor.Graph) []string {
	var names []string
	for _, l := range g.Layers() {
		names = append(names, l.Name)
	}
	return names
}

func TestConv3x3Block_BatchNorm(t *testing.T) {
	g, x := blockInput(t)

	out, err := conv3x3Block(g, x, 64, Norm{Mode: NormBatch}, 0, "blk")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{16, 16, 64}, out.Shape())
	assert.Equal(t, []string{"in", "blk_conv", "blk_bn", "blk_relu"}, layerNames(g))

	// Bias is dropped when a normalization stage follows.
	conv, _ := g.Layer("blk_conv")
	assert.False(t, conv.UseBias)
	assert.Len(t, conv.Params, 1)
	assert.Equal(t, "he_uniform", conv.Params[0].Initializer)
}

func TestConv3x3Block_GroupNorm(t *testing.T) {
	g, x := blockInput(t)

	_, err := conv3x3Block(g, x, 64, Norm{Mode: NormGroup, Groups: 4}, 0, "blk")
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "blk_conv", "blk_gn", "blk_relu"}, layerNames(g))

	gn, ok := g.Layer("blk_gn")
	require.True(t, ok)
	assert.Equal(t, 4, gn.Groups)
}

func TestConv3x3Block_NoNorm(t *testing.T) {
	g, x := blockInput(t)

	_, err := conv3x3Block(g, x, 64, Norm{Mode: NormNone}, 0, "blk")
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "blk_conv", "blk_relu"}, layerNames(g))

	// Without normalization the convolution carries its own bias.
	conv, _ := g.Layer("blk_conv")
	assert.True(t, conv.UseBias)
}

func TestConv3x3Block_Dropout(t *testing.T) {
	g, x := blockInput(t)

	_, err := conv3x3Block(g, x, 64, Norm{Mode: NormBatch}, 0.3, "blk")
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "blk_conv", "blk_bn", "blk_dropout", "blk_relu"}, layerNames(g))

	drop, _ := g.Layer("blk_dropout")
	assert.Equal(t, 0.3, drop.Rate)
}

func TestConv3x3Block_GroupCountMustDivide(t *testing.T) {
	g, x := blockInput(t)

	// 64 output channels, 7 groups: rejected by the normalization primitive.
	_, err := conv3x3Block(g, x, 64, Norm{Mode: NormGroup, Groups: 7}, 0, "blk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not divisible")
}

package segnetgo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/segnetgo/internal/tensor"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InputHeight = 256
	cfg.InputWidth = 256
	return cfg
}

func TestUnet_DefaultVGG16(t *testing.T) {
	m, err := Unet(context.Background(), testConfig())
	require.NoError(t, err)

	// Per-pixel single-channel output at input resolution.
	assert.Equal(t, tensor.Shape{256, 256, 1}, m.Output().Shape())
	assert.Equal(t, tensor.Shape{256, 256, 3}, m.Input().Shape())

	// VGG ends in a pool, so the compensating center block is present.
	_, ok := m.Layer("center_block1_conv")
	assert.True(t, ok)

	// Five decoder stages, four of them fused with a skip.
	for _, name := range []string{
		"decoder_stage0_concat", "decoder_stage1_concat",
		"decoder_stage2_concat", "decoder_stage3_concat",
		"decoder_stage4a_conv", "final_conv", "sigmoid",
	} {
		_, ok := m.Layer(name)
		assert.True(t, ok, name)
	}
	_, ok = m.Layer("decoder_stage4_concat")
	assert.False(t, ok)
}

func TestUnet_ResNet18HasNoCenterBlock(t *testing.T) {
	cfg := testConfig()
	cfg.Backbone = "resnet18"

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{256, 256, 1}, m.Output().Shape())
	_, ok := m.Layer("center_block1_conv")
	assert.False(t, ok)
	_, ok = m.Layer("decoder_stage0_concat")
	assert.True(t, ok)
}

func TestUnet_Deterministic(t *testing.T) {
	build := func() []string {
		m, err := Unet(context.Background(), testConfig())
		require.NoError(t, err)
		return m.LayerNames()
	}

	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Fatalf("node names differ between identical builds:\n%s", diff)
	}
}

func TestUnet_TransposeVariantSameContract(t *testing.T) {
	cfg := testConfig()
	cfg.DecoderBlockType = "transpose"

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{256, 256, 1}, m.Output().Shape())
	_, ok := m.Layer("decoder_stage0a_transpose")
	assert.True(t, ok)
}

func TestUnet_MultiClassSoftmax(t *testing.T) {
	cfg := testConfig()
	cfg.Classes = 5
	cfg.Activation = "softmax"

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{256, 256, 5}, m.Output().Shape())
	_, ok := m.Layer("softmax")
	assert.True(t, ok)
}

func TestUnet_VariableInputSize(t *testing.T) {
	cfg := DefaultConfig()

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 0, 1}, m.Output().Shape())
}

func TestUnet_NormConflict(t *testing.T) {
	cfg := testConfig()
	cfg.DecoderUseBatchnorm = true
	cfg.DecoderUseGroupnorm = true

	_, err := Unet(context.Background(), cfg)
	require.ErrorIs(t, err, ErrNormConflict)
}

func TestUnet_GroupNorm(t *testing.T) {
	cfg := testConfig()
	cfg.DecoderUseBatchnorm = false
	cfg.DecoderUseGroupnorm = true
	cfg.DecoderGroupnormGroups = 4

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	gn, ok := m.Layer("decoder_stage0a_gn")
	require.True(t, ok)
	assert.Equal(t, 4, gn.Groups)
}

func TestUnet_UnknownBlockType(t *testing.T) {
	cfg := testConfig()
	cfg.DecoderBlockType = "bilinear"

	_, err := Unet(context.Background(), cfg)
	require.ErrorIs(t, err, ErrUnknownBlockType)
}

func TestUnet_UnknownBackbone(t *testing.T) {
	cfg := testConfig()
	cfg.Backbone = "mobilenetv2"

	_, err := Unet(context.Background(), cfg)
	require.ErrorIs(t, err, ErrUnknownBackbone)
}

func TestUnet_InputNotDivisibleBy32(t *testing.T) {
	cfg := testConfig()
	cfg.InputHeight = 250

	_, err := Unet(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "divisible by 32")
}

func TestUnet_CustomEncoderFeatures(t *testing.T) {
	cfg := testConfig()
	cfg.Backbone = "resnet18"
	cfg.EncoderFeatures = []FeatureRef{
		FeatureByName("stage4_unit1_relu1"),
		FeatureByName("stage3_unit1_relu1"),
	}

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := m.Layer("decoder_stage1_concat")
	assert.True(t, ok)
	_, ok = m.Layer("decoder_stage2_concat")
	assert.False(t, ok)
}

func TestUnet_UnresolvableEncoderFeature(t *testing.T) {
	cfg := testConfig()
	cfg.EncoderFeatures = []FeatureRef{FeatureByName("block9_conv9")}

	_, err := Unet(context.Background(), cfg)
	require.ErrorIs(t, err, ErrSkipResolution)
}

func TestUnet_EncoderFreeze(t *testing.T) {
	cfg := testConfig()
	cfg.EncoderFreeze = true

	m, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	enc, ok := m.Layer("block1_conv1")
	require.True(t, ok)
	assert.False(t, enc.Trainable)

	// The decoder stays trainable.
	dec, ok := m.Layer("decoder_stage0a_conv")
	require.True(t, ok)
	assert.True(t, dec.Trainable)
}

func TestUnet_WeightsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unet.msgpack")

	src, err := Unet(context.Background(), testConfig())
	require.NoError(t, err)
	require.NoError(t, SaveWeights(src, path))

	cfg := testConfig()
	cfg.Weights = path
	dst, err := Unet(context.Background(), cfg)
	require.NoError(t, err)

	for _, p := range dst.Parameters() {
		assert.Len(t, p.Data, p.Elements(), p.Name)
	}
}

func TestUnet_WeightsShapeMismatchFailsBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unet.msgpack")

	src, err := Unet(context.Background(), testConfig())
	require.NoError(t, err)
	require.NoError(t, SaveWeights(src, path))

	cfg := testConfig()
	cfg.Classes = 3
	cfg.Weights = path
	_, err = Unet(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading model weights")
}

func TestUnet_ZeroConfigGetsDefaults(t *testing.T) {
	// The zero Config resolves every non-boolean default; the literal false
	// normalization flags mean the decoder runs without normalization.
	m, err := Unet(context.Background(), Config{})
	require.NoError(t, err)

	conv, ok := m.Layer("decoder_stage0a_conv")
	require.True(t, ok)
	assert.True(t, conv.UseBias)
	_, ok = m.Layer("decoder_stage0a_bn")
	assert.False(t, ok)
}

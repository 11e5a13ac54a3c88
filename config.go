package segnetgo

import (
	"github.com/vk/segnetgo/internal/decoder"
	"github.com/vk/segnetgo/internal/tensor"
)

// DataFormat re-exports the tensor layout convention.
type DataFormat = tensor.DataFormat

const (
	ChannelsLast  = tensor.ChannelsLast
	ChannelsFirst = tensor.ChannelsFirst
)

// FeatureRef identifies an encoder layer to use as a skip connection.
type FeatureRef = decoder.SkipRef

// FeatureByName references a skip layer by its node name.
func FeatureByName(name string) FeatureRef { return decoder.SkipName(name) }

// FeatureByIndex references a skip layer by position in the encoder's layer
// sequence; negative indices count from the end.
func FeatureByIndex(i int) FeatureRef { return decoder.SkipIndex(i) }

// Config holds every recognized option of the Unet factory. The zero value
// is not the canonical default configuration; use DefaultConfig for that.
// Empty strings, nil slices, and zero sizes are replaced by defaults; the
// normalization booleans are taken literally (both false means no
// normalization).
type Config struct {
	// Backbone is the registry key of the encoder. Default "vgg16".
	Backbone string

	// InputHeight and InputWidth must either be 0 (variable-size input) or
	// concrete and divisible by 32. InputChannels defaults to 3.
	InputHeight   int
	InputWidth    int
	InputChannels int

	// Classes is the number of output channels. Default 1.
	Classes int

	// Activation is the final-layer activation identifier, e.g. "sigmoid",
	// "softmax" or "linear". Default "sigmoid".
	Activation string

	// Weights is an optional path to a serialized weights file loaded into
	// the finished graph.
	Weights string

	// EncoderWeights is a pretrained-weights identifier for the backbone
	// ("imagenet") or empty for random initialization.
	EncoderWeights string

	// EncoderFreeze marks all backbone parameters non-trainable.
	EncoderFreeze bool

	// EncoderFeatures selects the skip-connection layers, ordered from the
	// deepest decoder stage's skip to the shallowest. nil selects the
	// backbone's default list.
	EncoderFeatures []FeatureRef

	// EncoderActivation overrides the activation inside backbones that
	// support it. Empty keeps the backbone's default.
	EncoderActivation string

	// DecoderBlockType is "upsampling" or "transpose". Default "upsampling".
	DecoderBlockType string

	// DecoderFilters holds per-stage channel widths; its length is the
	// stage count. Default (256, 128, 64, 32, 16).
	DecoderFilters []int

	// DecoderUseBatchnorm and DecoderUseGroupnorm are mutually exclusive.
	DecoderUseBatchnorm    bool
	DecoderUseGroupnorm    bool
	DecoderGroupnormGroups int // default 2

	// DecoderDropRate adds dropout inside every decoder conv block when
	// positive. Must be below 1.
	DecoderDropRate float64

	// Format is the channel-axis convention. Default ChannelsLast.
	Format DataFormat
}

// DefaultConfig mirrors the canonical configuration: VGG16 encoder with
// ImageNet weights, five batch-normalized upsampling stages, and a
// single-class sigmoid head for variable-size input.
func DefaultConfig() Config {
	return Config{
		Backbone:               "vgg16",
		InputChannels:          3,
		Classes:                1,
		Activation:             "sigmoid",
		EncoderWeights:         "imagenet",
		DecoderBlockType:       "upsampling",
		DecoderFilters:         []int{256, 128, 64, 32, 16},
		DecoderUseBatchnorm:    true,
		DecoderGroupnormGroups: 2,
	}
}

// withDefaults fills non-boolean zero values. Booleans stay as given.
func (c Config) withDefaults() Config {
	if c.Backbone == "" {
		c.Backbone = "vgg16"
	}
	if c.InputChannels == 0 {
		c.InputChannels = 3
	}
	if c.Classes == 0 {
		c.Classes = 1
	}
	if c.Activation == "" {
		c.Activation = "sigmoid"
	}
	if c.DecoderBlockType == "" {
		c.DecoderBlockType = "upsampling"
	}
	if len(c.DecoderFilters) == 0 {
		c.DecoderFilters = []int{256, 128, 64, 32, 16}
	}
	if c.DecoderGroupnormGroups == 0 {
		c.DecoderGroupnormGroups = 2
	}
	return c
}

// Package config loads model definitions from HCL files and translates them
// into factory configurations. The file format mirrors the factory options
// one to one:
//
//	model "unet" {
//	  backbone              = "vgg16"
//	  input_shape           = [256, 256, 3]
//	  classes               = 1
//	  activation            = "sigmoid"
//	  encoder_weights       = "imagenet"
//	  encoder_freeze        = true
//	  encoder_features      = ["block5_conv3", "block4_conv3"]
//	  decoder_block_type    = "upsampling"
//	  decoder_filters       = [256, 128, 64, 32, 16]
//	  decoder_use_batchnorm = true
//	}
package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	segnetgo "github.com/vk/segnetgo"
	"github.com/vk/segnetgo/internal/ctxlog"
)

// modelFile is the top-level HCL schema.
type modelFile struct {
	Models []*modelBlock `hcl:"model,block"`
}

// modelBlock is one `model` block. Pointer fields distinguish "unset" from
// an explicit zero so unset options fall back to the canonical defaults.
type modelBlock struct {
	Kind string `hcl:"kind,label"`

	Backbone          *string `hcl:"backbone,optional"`
	InputShape        []int   `hcl:"input_shape,optional"`
	Classes           *int    `hcl:"classes,optional"`
	Activation        *string `hcl:"activation,optional"`
	Weights           *string `hcl:"weights,optional"`
	EncoderWeights    *string `hcl:"encoder_weights,optional"`
	EncoderFreeze     *bool   `hcl:"encoder_freeze,optional"`
	EncoderActivation *string `hcl:"encoder_activation,optional"`

	// encoder_features entries may be layer names (strings) or positional
	// indices (numbers), so the attribute stays an expression here.
	EncoderFeatures hcl.Expression `hcl:"encoder_features,optional"`

	DecoderBlockType       *string  `hcl:"decoder_block_type,optional"`
	DecoderFilters         []int    `hcl:"decoder_filters,optional"`
	DecoderUseBatchnorm    *bool    `hcl:"decoder_use_batchnorm,optional"`
	DecoderUseGroupnorm    *bool    `hcl:"decoder_use_groupnorm,optional"`
	DecoderGroupnormGroups *int     `hcl:"decoder_groupnorm_groups,optional"`
	DecoderDropRate        *float64 `hcl:"decoder_drop_rate,optional"`

	Format *string `hcl:"data_format,optional"`
}

// Load parses one HCL model file into a factory configuration. The file must
// contain exactly one `model "unet"` block.
func Load(ctx context.Context, path string) (segnetgo.Config, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return segnetgo.Config{}, fmt.Errorf("parsing %q: %w", path, diags)
	}

	var mf modelFile
	if diags := gohcl.DecodeBody(f.Body, nil, &mf); diags.HasErrors() {
		return segnetgo.Config{}, fmt.Errorf("decoding %q: %w", path, diags)
	}
	if len(mf.Models) != 1 {
		return segnetgo.Config{}, fmt.Errorf("%q must contain exactly one model block, found %d", path, len(mf.Models))
	}
	block := mf.Models[0]
	if block.Kind != "unet" {
		return segnetgo.Config{}, fmt.Errorf("unsupported model kind %q, only \"unet\" is available", block.Kind)
	}

	cfg, err := translate(block)
	if err != nil {
		return segnetgo.Config{}, err
	}
	logger.Debug("Config: model file loaded.", "path", path, "backbone", cfg.Backbone)
	return cfg, nil
}

// translate overlays the block's set attributes on the canonical defaults.
func translate(b *modelBlock) (segnetgo.Config, error) {
	cfg := segnetgo.DefaultConfig()

	setString(&cfg.Backbone, b.Backbone)
	setString(&cfg.Activation, b.Activation)
	setString(&cfg.Weights, b.Weights)
	setString(&cfg.EncoderWeights, b.EncoderWeights)
	setString(&cfg.EncoderActivation, b.EncoderActivation)
	setString(&cfg.DecoderBlockType, b.DecoderBlockType)
	setInt(&cfg.Classes, b.Classes)
	setInt(&cfg.DecoderGroupnormGroups, b.DecoderGroupnormGroups)
	setBool(&cfg.EncoderFreeze, b.EncoderFreeze)
	setBool(&cfg.DecoderUseBatchnorm, b.DecoderUseBatchnorm)
	setBool(&cfg.DecoderUseGroupnorm, b.DecoderUseGroupnorm)
	if b.DecoderDropRate != nil {
		cfg.DecoderDropRate = *b.DecoderDropRate
	}
	if b.DecoderFilters != nil {
		cfg.DecoderFilters = b.DecoderFilters
	}

	if b.InputShape != nil {
		if len(b.InputShape) != 3 {
			return cfg, fmt.Errorf("input_shape needs exactly 3 entries (H, W, C), got %d", len(b.InputShape))
		}
		cfg.InputHeight = b.InputShape[0]
		cfg.InputWidth = b.InputShape[1]
		cfg.InputChannels = b.InputShape[2]
	}

	if b.Format != nil {
		switch *b.Format {
		case "channels_last":
			cfg.Format = segnetgo.ChannelsLast
		case "channels_first":
			cfg.Format = segnetgo.ChannelsFirst
		default:
			return cfg, fmt.Errorf("data_format must be \"channels_last\" or \"channels_first\", got %q", *b.Format)
		}
	}

	features, err := translateFeatures(b.EncoderFeatures)
	if err != nil {
		return cfg, err
	}
	cfg.EncoderFeatures = features

	return cfg, nil
}

// translateFeatures evaluates the encoder_features expression into skip
// references. Strings become name lookups, numbers become indices.
func translateFeatures(expr hcl.Expression) ([]segnetgo.FeatureRef, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating encoder_features: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("encoder_features must be a list, got %s", val.Type().FriendlyName())
	}

	var refs []segnetgo.FeatureRef
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		switch elem.Type() {
		case cty.String:
			refs = append(refs, segnetgo.FeatureByName(elem.AsString()))
		case cty.Number:
			var idx int
			if err := convertInt(elem, &idx); err != nil {
				return nil, fmt.Errorf("encoder_features index: %w", err)
			}
			refs = append(refs, segnetgo.FeatureByIndex(idx))
		default:
			return nil, fmt.Errorf("encoder_features entries must be layer names or indices, got %s", elem.Type().FriendlyName())
		}
	}
	return refs, nil
}

func convertInt(v cty.Value, out *int) error {
	bf := v.AsBigFloat()
	i64, acc := bf.Int64()
	if acc != 0 {
		return fmt.Errorf("%s is not an integer", bf.String())
	}
	*out = int(i64)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

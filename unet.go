// Package segnetgo builds U-shaped dense-prediction model graphs: a
// pre-built convolutional encoder from the backbone catalog, a parametric
// decoder with skip connections, and a per-pixel classification head.
//
// Construction is symbolic: the result is a validated, deterministically
// named computation graph, not a trained network. The single entry point is
// Unet:
//
//	model, err := segnetgo.Unet(ctx, segnetgo.DefaultConfig())
//
// Every build is independent and side-effect-free, so concurrent calls with
// different configurations are safe.
package segnetgo

import (
	"context"
	"fmt"

	"github.com/vk/segnetgo/internal/backbone"
	"github.com/vk/segnetgo/internal/ctxlog"
	"github.com/vk/segnetgo/internal/decoder"
	"github.com/vk/segnetgo/internal/tensor"
	"github.com/vk/segnetgo/internal/weights"
)

// Model re-exports the packaged graph type returned by Unet.
type Model = tensor.Model

// Sentinel errors of the configuration taxonomy, re-exported so callers can
// match them with errors.Is.
var (
	ErrNormConflict     = decoder.ErrNormConflict
	ErrUnknownBlockType = decoder.ErrUnknownBlockType
	ErrUnknownBackbone  = backbone.ErrUnknownBackbone
	ErrSkipResolution   = decoder.ErrSkipResolution
	ErrShapeMismatch    = tensor.ErrShapeMismatch
)

// defaultFeatureCount is how many skip connections a default configuration
// requests from the backbone catalog.
const defaultFeatureCount = 4

// Unet validates the configuration, resolves the backbone and skip layers,
// assembles the decoder graph, and applies post-build options (encoder
// freezing, weight loading). Any configuration or shape error aborts the
// whole build; no partial graph is ever returned.
func Unet(ctx context.Context, cfg Config) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	cfg = cfg.withDefaults()

	// Fail fast on the mutually exclusive normalization flags, before any
	// backbone construction happens.
	norm, err := decoder.NormFromFlags(cfg.DecoderUseBatchnorm, cfg.DecoderUseGroupnorm, cfg.DecoderGroupnormGroups)
	if err != nil {
		return nil, err
	}

	blockType, err := decoder.ParseBlockType(cfg.DecoderBlockType)
	if err != nil {
		return nil, err
	}

	if err := validateInputShape(cfg.InputHeight, cfg.InputWidth, cfg.InputChannels); err != nil {
		return nil, err
	}
	if cfg.Classes < 1 {
		return nil, fmt.Errorf("classes must be a positive integer, got %d", cfg.Classes)
	}

	reg := backbone.Default()
	bb, err := reg.Resolve(ctx, cfg.Backbone, backbone.BuildOptions{
		InputH:            cfg.InputHeight,
		InputW:            cfg.InputWidth,
		InputC:            cfg.InputChannels,
		Format:            cfg.Format,
		Weights:           cfg.EncoderWeights,
		EncoderActivation: cfg.EncoderActivation,
	})
	if err != nil {
		return nil, err
	}

	skips := cfg.EncoderFeatures
	if skips == nil {
		names, err := reg.FeatureLayers(cfg.Backbone, defaultFeatureCount)
		if err != nil {
			return nil, err
		}
		skips = make([]FeatureRef, len(names))
		for i, n := range names {
			skips[i] = FeatureByName(n)
		}
	}

	model, err := decoder.Build(ctx, bb, decoder.Config{
		BlockType:  blockType,
		Filters:    cfg.DecoderFilters,
		Stages:     len(cfg.DecoderFilters),
		Classes:    cfg.Classes,
		Activation: cfg.Activation,
		Norm:       norm,
		DropRate:   cfg.DecoderDropRate,
	}, skips)
	if err != nil {
		return nil, err
	}

	// Post-build side effects on the finished graph; topology is fixed now.
	if cfg.EncoderFreeze {
		backbone.Freeze(bb)
		logger.Debug("Unet: encoder frozen.", "backbone", cfg.Backbone)
	}
	if cfg.Weights != "" {
		if err := weights.Load(model, cfg.Weights); err != nil {
			return nil, fmt.Errorf("loading model weights: %w", err)
		}
		logger.Debug("Unet: model weights loaded.", "path", cfg.Weights)
	}

	return model, nil
}

// LoadWeights loads a serialized weights file into a built model. Loading is
// all-or-nothing: a shape mismatch leaves the model untouched.
func LoadWeights(m *Model, path string) error {
	return weights.Load(m, path)
}

// SaveWeights writes the model's parameters to a weights file.
func SaveWeights(m *Model, path string) error {
	return weights.Save(m, path)
}

func validateInputShape(h, w, c int) error {
	if c < 1 {
		return fmt.Errorf("input channels must be a positive integer, got %d", c)
	}
	for _, d := range []struct {
		name string
		v    int
	}{{"height", h}, {"width", w}} {
		if d.v < 0 {
			return fmt.Errorf("input %s must not be negative, got %d", d.name, d.v)
		}
		if d.v != 0 && d.v%32 != 0 {
			return fmt.Errorf("input %s must be divisible by 32, got %d", d.name, d.v)
		}
	}
	return nil
}

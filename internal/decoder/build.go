package decoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/segnetgo/internal/ctxlog"
	"github.com/vk/segnetgo/internal/tensor"
)

// ErrSkipResolution is returned when a skip descriptor does not resolve to
// an encoder layer.
var ErrSkipResolution = errors.New("cannot resolve skip connection")

// Encoder is the read-only view of a backbone the assembler needs: entry and
// exit tensors, the graph to keep building in, and layer lookup for skip
// resolution. The layer sequence is consulted only to test whether the
// terminal layer is a pooling op.
type Encoder interface {
	Input() *tensor.Tensor
	Output() *tensor.Tensor
	Graph() *tensor.Graph
	Layers() []*tensor.Layer
	LayerByName(name string) (*tensor.Layer, bool)
	LayerByIndex(i int) (*tensor.Layer, bool)
}

// SkipRef identifies an encoder layer whose output becomes a skip
// connection, either by node name or by positional index (negative counts
// from the end of the layer sequence).
type SkipRef struct {
	name    string
	index   int
	byIndex bool
}

// SkipName references a skip layer by node name.
func SkipName(name string) SkipRef { return SkipRef{name: name} }

// SkipIndex references a skip layer by position in the encoder's layer
// sequence.
func SkipIndex(i int) SkipRef { return SkipRef{index: i, byIndex: true} }

func (r SkipRef) String() string {
	if r.byIndex {
		return fmt.Sprintf("index %d", r.index)
	}
	return fmt.Sprintf("layer %q", r.name)
}

// resolve returns the referenced layer's output tensor.
func (r SkipRef) resolve(enc Encoder) (*tensor.Tensor, error) {
	var (
		l  *tensor.Layer
		ok bool
	)
	if r.byIndex {
		l, ok = enc.LayerByIndex(r.index)
	} else {
		l, ok = enc.LayerByName(r.name)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkipResolution, r)
	}
	return l.Output, nil
}

// Config is the validated decoder configuration the assembler consumes.
type Config struct {
	BlockType BlockType
	// Filters holds per-stage channel widths; its length is the stage count
	// unless Stages overrides it.
	Filters []int
	// Stages is the number of decoder stages. 0 means len(Filters).
	Stages     int
	Classes    int
	Activation string
	Norm       Norm
	DropRate   float64
}

// centerFilters is the fixed width of the compensating center block.
const centerFilters = 512

// Build assembles the complete model graph on top of the encoder: skip
// resolution, conditional center block, the decoder stage loop, and the
// classification head. Any failure aborts with no partial graph returned.
func Build(ctx context.Context, enc Encoder, cfg Config, skips []SkipRef) (*tensor.Model, error) {
	logger := ctxlog.FromContext(ctx)

	stages := cfg.Stages
	if stages == 0 {
		stages = len(cfg.Filters)
	}
	if stages <= 0 {
		return nil, fmt.Errorf("decoder needs at least one stage")
	}
	if stages > len(cfg.Filters) {
		return nil, fmt.Errorf("%d decoder stages but only %d filter counts", stages, len(cfg.Filters))
	}
	for i, f := range cfg.Filters[:stages] {
		if f <= 0 {
			return nil, fmt.Errorf("decoder filters must be positive, got %d at stage %d", f, i)
		}
	}
	if len(skips) > stages {
		return nil, fmt.Errorf("%d skip connections for %d decoder stages", len(skips), stages)
	}
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("classes must be positive, got %d", cfg.Classes)
	}
	if cfg.Activation == "" {
		return nil, fmt.Errorf("final activation must be set")
	}

	// Phase 1: resolve every skip descriptor before touching the graph, so
	// a bad reference cannot leave stray nodes behind.
	skipTensors := make([]*tensor.Tensor, len(skips))
	for i, ref := range skips {
		t, err := ref.resolve(enc)
		if err != nil {
			return nil, err
		}
		skipTensors[i] = t
	}
	logger.Debug("Build: skip connections resolved.", "count", len(skipTensors))

	g := enc.Graph()
	x := enc.Output()

	// Phase 2: center block when the encoder ends in spatial pooling.
	if layers := enc.Layers(); len(layers) > 0 && layers[len(layers)-1].Op == tensor.OpMaxPool2D {
		var err error
		if x, err = conv3x3Block(g, x, centerFilters, cfg.Norm, cfg.DropRate, "center_block1"); err != nil {
			return nil, err
		}
		if x, err = conv3x3Block(g, x, centerFilters, cfg.Norm, cfg.DropRate, "center_block2"); err != nil {
			return nil, err
		}
		logger.Debug("Build: center block inserted.")
	}

	// Phase 3: decoder stages. Stage i fuses skip i when one is bound.
	stageBlock := cfg.BlockType.stage()
	for i := 0; i < stages; i++ {
		var skip *tensor.Tensor
		if i < len(skipTensors) {
			skip = skipTensors[i]
		}
		var err error
		if x, err = stageBlock(g, x, skip, cfg.Filters[i], i, cfg.Norm, cfg.DropRate); err != nil {
			return nil, fmt.Errorf("decoder stage %d: %w", i, err)
		}
	}
	logger.Debug("Build: decoder stages assembled.", "stages", stages, "block_type", cfg.BlockType.String())

	// Phase 4: classification head.
	x, err := g.Conv2D("final_conv", x, cfg.Classes, 3, 1, true, "glorot_uniform", "")
	if err != nil {
		return nil, err
	}
	if x, err = g.Activation(cfg.Activation, x, cfg.Activation); err != nil {
		return nil, err
	}

	model, err := tensor.NewModel(enc.Input(), x)
	if err != nil {
		return nil, fmt.Errorf("packaging model: %w", err)
	}
	logger.Info("Build: model graph construction successful.", "layers", len(model.Layers()))
	return model, nil
}

package decoder

import (
	"errors"
	"fmt"

	"github.com/vk/segnetgo/internal/tensor"
)

// ErrUnknownBlockType is returned for a decoder block type outside the
// closed {"upsampling", "transpose"} set.
var ErrUnknownBlockType = errors.New(`decoder block type should be in ("upsampling", "transpose")`)

// BlockType selects the decoder stage variant, applied uniformly to every
// stage of a model.
type BlockType int

const (
	// BlockUpsampling stages use a parameter-free x2 upsample followed by
	// two conv blocks.
	BlockUpsampling BlockType = iota
	// BlockTranspose stages fold the first convolution into a learned 4x4
	// stride-2 transposed convolution, followed by one conv block.
	BlockTranspose
)

func (b BlockType) String() string {
	switch b {
	case BlockUpsampling:
		return "upsampling"
	case BlockTranspose:
		return "transpose"
	default:
		return fmt.Sprintf("BlockType(%d)", int(b))
	}
}

// ParseBlockType resolves the configuration string form of a BlockType.
func ParseBlockType(s string) (BlockType, error) {
	switch s {
	case "upsampling":
		return BlockUpsampling, nil
	case "transpose":
		return BlockTranspose, nil
	default:
		return 0, fmt.Errorf("%w, got: %q", ErrUnknownBlockType, s)
	}
}

// stageFunc is the contract both stage variants satisfy: consume the running
// tensor plus an optional skip, return the stage output. Variants are
// drop-in interchangeable at the assembler level.
type stageFunc func(g *tensor.Graph, x, skip *tensor.Tensor, filters, stage int, norm Norm, dropRate float64) (*tensor.Tensor, error)

func (b BlockType) stage() stageFunc {
	if b == BlockTranspose {
		return transposeStage
	}
	return upsamplingStage
}

// upsamplingStage: x2 nearest upsample, optional skip concat, two conv blocks.
func upsamplingStage(g *tensor.Graph, x, skip *tensor.Tensor, filters, stage int, norm Norm, dropRate float64) (*tensor.Tensor, error) {
	x, err := g.UpSampling2D(fmt.Sprintf("decoder_stage%d_upsampling", stage), x, 2)
	if err != nil {
		return nil, err
	}

	if skip != nil {
		if x, err = g.Concat(fmt.Sprintf("decoder_stage%d_concat", stage), x, skip); err != nil {
			return nil, err
		}
	}

	if x, err = conv3x3Block(g, x, filters, norm, dropRate, fmt.Sprintf("decoder_stage%da", stage)); err != nil {
		return nil, err
	}
	return conv3x3Block(g, x, filters, norm, dropRate, fmt.Sprintf("decoder_stage%db", stage))
}

// transposeStage: learned 4x4 stride-2 upsample with its own norm+ReLU,
// optional skip concat, then a single conv block.
func transposeStage(g *tensor.Graph, x, skip *tensor.Tensor, filters, stage int, norm Norm, dropRate float64) (*tensor.Tensor, error) {
	useBias := norm.Mode == NormNone
	x, err := g.Conv2DTranspose(fmt.Sprintf("decoder_stage%da_transpose", stage), x, filters, 4, 2, useBias, "glorot_uniform")
	if err != nil {
		return nil, err
	}

	switch norm.Mode {
	case NormBatch:
		if x, err = g.BatchNorm(fmt.Sprintf("decoder_stage%da_bn", stage), x); err != nil {
			return nil, err
		}
	case NormGroup:
		// "decoder_state" is a historical misspelling kept verbatim so node
		// names line up with existing checkpoints.
		if x, err = g.GroupNorm(fmt.Sprintf("decoder_state%da_gn", stage), x, norm.Groups); err != nil {
			return nil, err
		}
	}

	if x, err = g.Activation(fmt.Sprintf("decoder_stage%da_relu", stage), x, "relu"); err != nil {
		return nil, err
	}

	if skip != nil {
		if x, err = g.Concat(fmt.Sprintf("decoder_stage%d_concat", stage), x, skip); err != nil {
			return nil, err
		}
	}

	return conv3x3Block(g, x, filters, norm, dropRate, fmt.Sprintf("decoder_stage%db", stage))
}

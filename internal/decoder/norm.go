package decoder

import (
	"errors"
	"fmt"
)

// ErrNormConflict is returned when batch and group normalization are both
// requested. The two are mutually exclusive at every scope.
var ErrNormConflict = errors.New("cannot use both BatchNorm and GroupNorm")

// NormMode selects the per-block feature normalization.
type NormMode int

const (
	NormNone NormMode = iota
	NormBatch
	NormGroup
)

func (m NormMode) String() string {
	switch m {
	case NormNone:
		return "none"
	case NormBatch:
		return "batchnorm"
	case NormGroup:
		return "groupnorm"
	default:
		return fmt.Sprintf("NormMode(%d)", int(m))
	}
}

// Norm is the resolved normalization policy for a whole model. Groups is
// only meaningful in group mode.
type Norm struct {
	Mode   NormMode
	Groups int
}

// NormFromFlags converts the boolean-pair surface into the closed Norm
// policy, rejecting the conflicting combination up front so no later call
// site has to re-check exclusivity.
func NormFromFlags(useBatchnorm, useGroupnorm bool, groups int) (Norm, error) {
	if useBatchnorm && useGroupnorm {
		return Norm{}, ErrNormConflict
	}
	switch {
	case useGroupnorm:
		if groups <= 0 {
			groups = 2
		}
		return Norm{Mode: NormGroup, Groups: groups}, nil
	case useBatchnorm:
		return Norm{Mode: NormBatch}, nil
	default:
		return Norm{Mode: NormNone}, nil
	}
}

package tensor

import "fmt"

// DataFormat fixes which axis of a Shape is the channel axis.
type DataFormat int

const (
	// ChannelsLast stores feature maps as (H, W, C). This is the default.
	ChannelsLast DataFormat = iota
	// ChannelsFirst stores feature maps as (C, H, W).
	ChannelsFirst
)

func (f DataFormat) String() string {
	switch f {
	case ChannelsLast:
		return "channels_last"
	case ChannelsFirst:
		return "channels_first"
	default:
		return fmt.Sprintf("DataFormat(%d)", int(f))
	}
}

// ChannelAxis returns the index of the channel dimension within a Shape.
func (f DataFormat) ChannelAxis() int {
	if f == ChannelsFirst {
		return 0
	}
	return 2
}

// Shape describes a single feature map, excluding the batch dimension.
// Axis order follows the owning Graph's DataFormat. A value of 0 marks an
// unknown (variable) dimension.
type Shape [3]int

func (s Shape) String() string {
	return fmt.Sprintf("(%s, %s, %s)", dimString(s[0]), dimString(s[1]), dimString(s[2]))
}

func dimString(d int) string {
	if d == 0 {
		return "?"
	}
	return fmt.Sprintf("%d", d)
}

// Channels returns the size of the channel dimension under the given format.
func (s Shape) Channels(f DataFormat) int {
	return s[f.ChannelAxis()]
}

// dimsCompatible reports whether two dimensions can coexist on the same axis.
// An unknown dimension is compatible with anything.
func dimsCompatible(a, b int) bool {
	return a == 0 || b == 0 || a == b
}

// scaleDim divides a spatial dimension by a stride, rounding up (the "same"
// padding convention). Unknown dimensions stay unknown.
func scaleDim(d, stride int) int {
	if d == 0 {
		return 0
	}
	return (d + stride - 1) / stride
}

// upDim multiplies a spatial dimension by an upsampling factor. Unknown
// dimensions stay unknown.
func upDim(d, factor int) int {
	if d == 0 {
		return 0
	}
	return d * factor
}

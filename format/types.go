// Package format holds small shared value types used by more than one
// objectwire package, following the teacher's convention of keeping wire
// enums out of the packages that consume them on both ends (writer and
// reader, or encoder and compressor).
package format

type (
	// ArrayStrategy selects the primitive-array encoding sub-strategy used
	// when a field descriptor carries the "compressed" flag (spec §4.6).
	ArrayStrategy uint8

	// CompressionType selects the whole-stream compression codec applied
	// by a Configuration (spec SPEC_FULL.md §4.10).
	CompressionType uint8
)

const (
	// ArrayDeltaRun encodes the first element as a varint, each subsequent
	// element as a varint delta from its predecessor.
	ArrayDeltaRun ArrayStrategy = 0x0
	// ArrayVarintRun encodes every element independently as a varint.
	ArrayVarintRun ArrayStrategy = 0x1
	// ArrayThinRun encodes only non-zero elements as (index, value) pairs,
	// terminated by a pair whose index equals the array length.
	ArrayThinRun ArrayStrategy = 0x2
	// ArrayOffsetShortRun encodes a base varint (the array's minimum)
	// followed by 16-bit unsigned offsets from that base.
	ArrayOffsetShortRun ArrayStrategy = 0x3

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

func (s ArrayStrategy) String() string {
	switch s {
	case ArrayDeltaRun:
		return "DeltaRun"
	case ArrayVarintRun:
		return "VarintRun"
	case ArrayThinRun:
		return "ThinRun"
	case ArrayOffsetShortRun:
		return "OffsetShortRun"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

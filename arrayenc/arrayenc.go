// Package arrayenc implements the typed-array compression sub-strategies
// spec.md §4.6 lists for int arrays: delta run, varint run, thin run, and
// offset-short run. It also covers the plain (fixed-width) and thin
// top-level array flags.
//
// The delta-of-deltas idiom (running previous value, zigzag before
// varint) is grounded on the teacher's TimestampDeltaEncoder; here it is
// generalised one level down to plain deltas (not delta-of-delta, since
// spec.md only asks for "each subsequent as a varint delta") and applied
// to arbitrary int32 arrays rather than timestamps specifically.
package arrayenc

import (
	"github.com/arloliu/objectwire/endian"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/format"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/arloliu/objectwire/varint"
)

// WritePlain writes values as four raw big-endian bytes each (spec.md §4.6
// "plain (int only)").
func WritePlain(buf *pool.ByteBuffer, values []int32) {
	eng := endian.GetBigEndianEngine()
	for _, v := range values {
		buf.B = eng.AppendUint32(buf.B, uint32(v))
	}
}

// ReadPlain reads n values written by WritePlain.
func ReadPlain(buf *pool.ByteBuffer, n int) ([]int32, error) {
	eng := endian.GetBigEndianEngine()
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		b, ok := buf.ReadN(4)
		if !ok {
			return nil, errs.ErrEndOfStream
		}
		out[i] = int32(eng.Uint32(b))
	}

	return out, nil
}

// WriteDefault writes each element independently as a varint (spec.md
// §4.6 "(default)").
func WriteDefault(buf *pool.ByteBuffer, values []int32) {
	for _, v := range values {
		varint.WriteCInt(buf, v)
	}
}

// ReadDefault reads n values written by WriteDefault.
func ReadDefault(buf *pool.ByteBuffer, n int) ([]int32, error) {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		v, err := varint.ReadCInt(buf)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

// WriteThin writes the sparse (index, value) pair stream spec.md §4.6 and
// §8 example 4 describe: one pair per non-zero element, terminated by a
// pair whose index equals the array length.
func WriteThin(buf *pool.ByteBuffer, values []int32) {
	for i, v := range values {
		if v == 0 {
			continue
		}
		varint.WriteCInt(buf, int32(i))
		varint.WriteCInt(buf, v)
	}
	varint.WriteCInt(buf, int32(len(values)))
}

// ReadThin reads a thin pair stream of n elements, defaulting unmentioned
// indices to zero.
func ReadThin(buf *pool.ByteBuffer, n int) ([]int32, error) {
	out := make([]int32, n)
	for {
		idx, err := varint.ReadCInt(buf)
		if err != nil {
			return nil, err
		}
		if int(idx) == n {
			return out, nil
		}
		if idx < 0 || int(idx) > n {
			return nil, errs.ErrMalformedTag
		}
		v, err := varint.ReadCInt(buf)
		if err != nil {
			return nil, err
		}
		out[idx] = v
	}
}

// WriteCompressed picks among the four compressed sub-strategies (spec.md
// §4.6 "compressed (int only)") by estimating each one's encoded size and
// writing whichever is smallest, prefixed by its one-byte discriminator.
func WriteCompressed(buf *pool.ByteBuffer, values []int32) {
	strategy := chooseStrategy(values)
	_ = buf.WriteByte(byte(strategy))

	switch strategy {
	case format.ArrayDeltaRun:
		writeDeltaRun(buf, values)
	case format.ArrayVarintRun:
		WriteDefault(buf, values)
	case format.ArrayThinRun:
		writeThinRunBody(buf, values)
	case format.ArrayOffsetShortRun:
		writeOffsetShortRun(buf, values)
	}
}

// ReadCompressed reads n values written by WriteCompressed.
func ReadCompressed(buf *pool.ByteBuffer, n int) ([]int32, error) {
	disc, ok := buf.ReadByte()
	if !ok {
		return nil, errs.ErrEndOfStream
	}

	switch format.ArrayStrategy(disc) {
	case format.ArrayDeltaRun:
		return readDeltaRun(buf, n)
	case format.ArrayVarintRun:
		return ReadDefault(buf, n)
	case format.ArrayThinRun:
		return readThinRunBody(buf, n)
	case format.ArrayOffsetShortRun:
		return readOffsetShortRun(buf, n)
	default:
		return nil, errs.ErrMalformedTag
	}
}

func writeDeltaRun(buf *pool.ByteBuffer, values []int32) {
	var prev int32
	for i, v := range values {
		if i == 0 {
			varint.WriteCInt(buf, v)
		} else {
			varint.WriteCInt(buf, v-prev)
		}
		prev = v
	}
}

func readDeltaRun(buf *pool.ByteBuffer, n int) ([]int32, error) {
	out := make([]int32, n)
	var prev int32
	for i := 0; i < n; i++ {
		d, err := varint.ReadCInt(buf)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out[i] = d
		} else {
			out[i] = prev + d
		}
		prev = out[i]
	}

	return out, nil
}

// writeThinRunBody / readThinRunBody are the compressed-form sub-strategy
// 2 body (no discriminator: the caller already wrote it). Identical wire
// shape to the top-level thin flag's body.
func writeThinRunBody(buf *pool.ByteBuffer, values []int32) { WriteThin(buf, values) }
func readThinRunBody(buf *pool.ByteBuffer, n int) ([]int32, error) { return ReadThin(buf, n) }

// writeOffsetShortRun emits a base varint (the minimum value) followed by
// a 16-bit unsigned offset from that base per element. The offset is
// always non-negative (base is the array minimum) and this strategy is
// never chosen when the array's range exceeds 65535, so it always fits.
func writeOffsetShortRun(buf *pool.ByteBuffer, values []int32) {
	base := minInt32(values)
	varint.WriteCInt(buf, base)
	eng := endian.GetBigEndianEngine()
	for _, v := range values {
		buf.B = eng.AppendUint16(buf.B, uint16(v-base))
	}
}

func readOffsetShortRun(buf *pool.ByteBuffer, n int) ([]int32, error) {
	base, err := varint.ReadCInt(buf)
	if err != nil {
		return nil, err
	}
	eng := endian.GetBigEndianEngine()
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		b, ok := buf.ReadN(2)
		if !ok {
			return nil, errs.ErrEndOfStream
		}
		out[i] = base + int32(eng.Uint16(b))
	}

	return out, nil
}

func minInt32(values []int32) int32 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}

	return m
}

func maxInt32(values []int32) int32 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}

	return m
}

// chooseStrategy estimates the encoded body size of each compressed
// sub-strategy and returns the cheapest. This is an encoder-side policy
// decision spec.md leaves open; a cost-based choice automatically
// satisfies the testable properties in spec.md §8 (thin strictly smaller
// for sparse arrays, diff/delta strictly smaller for monotonic runs).
func chooseStrategy(values []int32) format.ArrayStrategy {
	deltaCost := estimateDeltaRun(values)
	varintCost := estimateVarintRun(values)
	thinCost := estimateThinRun(values)
	offsetCost := estimateOffsetShortRun(values)

	best := format.ArrayVarintRun
	bestCost := varintCost

	if deltaCost < bestCost {
		best, bestCost = format.ArrayDeltaRun, deltaCost
	}
	if thinCost < bestCost {
		best, bestCost = format.ArrayThinRun, thinCost
	}
	if offsetCost < bestCost {
		best, bestCost = format.ArrayOffsetShortRun, offsetCost
	}

	return best
}

func cintCost(v int32) int {
	switch {
	case v >= -126 && v <= 127:
		return 1
	case v >= -32768 && v <= 32767:
		return 3
	default:
		return 5
	}
}

func estimateDeltaRun(values []int32) int {
	cost := 0
	var prev int32
	for i, v := range values {
		if i == 0 {
			cost += cintCost(v)
		} else {
			cost += cintCost(v - prev)
		}
		prev = v
	}

	return cost
}

func estimateVarintRun(values []int32) int {
	cost := 0
	for _, v := range values {
		cost += cintCost(v)
	}

	return cost
}

func estimateThinRun(values []int32) int {
	cost := 0
	for i, v := range values {
		if v != 0 {
			cost += cintCost(int32(i)) + cintCost(v)
		}
	}
	cost += cintCost(int32(len(values))) // terminator

	return cost
}

// estimateOffsetShortRun returns the encoded cost of the offset-short-run
// strategy, or a cost higher than any real encoding can produce when the
// array's range doesn't fit in the 16-bit unsigned offset this strategy
// writes, so chooseStrategy never selects it for a too-wide array.
func estimateOffsetShortRun(values []int32) int {
	if len(values) == 0 {
		return 1
	}
	base := minInt32(values)
	max := maxInt32(values)
	if int64(max)-int64(base) > 65535 {
		return 1<<31 - 1
	}

	return cintCost(base) + 2*len(values)
}


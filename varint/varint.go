// Package varint implements the primitive-level encode/decode operations of
// spec.md §4.1: compact ints, longs, shorts, chars, fixed-width floats and
// doubles, and the two string wire forms (compressed and UTF).
//
// Every multi-byte quantity is big-endian. Compact integers use a head-byte
// discriminator rather than the 7-bit-group varint scheme: small values cost
// one byte, and the head byte's sentinel values select a fixed-width
// continuation for larger magnitudes. This mirrors the teacher's zigzag
// varint writer (mebo's encoding/varstring.go) only in spirit — the wire
// shape here is a head-byte dispatch, not a 7-bit group scheme, because that
// is what spec.md §4.1 specifies.
package varint

import (
	"math"

	"github.com/arloliu/objectwire/endian"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/internal/pool"
)

// Sentinel head-byte values for the compact int/long encodings.
const (
	sentinelShort int8 = -128 // followed by 2 big-endian bytes
	sentinelInt   int8 = -127 // followed by 4 big-endian bytes
	sentinelLong  int8 = -126 // followed by 8 big-endian bytes (CLong only)

	minDirect int64 = -126
	maxDirect int64 = 127
)

// Byte-level head values used by readCShort/readCChar (spec.md §4.1: "head
// byte in the unsigned range 0..254 as a short value and 255 as the
// sentinel for a following two-byte big-endian read").
const cShortSentinel = 255

// alphabet is the 16-character set the compressed string form's nibble run
// can pack two characters per byte into.
const alphabet = "0123456789ABCDEF"

// nibbleOf returns the index of r in alphabet, or -1 if r is not a nibble
// character.
func nibbleOf(r byte) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	default:
		return -1
	}
}

// WriteCInt writes a signed 32-bit compact int (spec.md §4.1).
func WriteCInt(buf *pool.ByteBuffer, v int32) {
	val := int64(v)
	switch {
	case val >= minDirect && val <= maxDirect:
		buf.MustWrite([]byte{byte(int8(val))})
	case val >= math.MinInt16 && val <= math.MaxInt16:
		var tmp [2]byte
		endian.GetBigEndianEngine().PutUint16(tmp[:], uint16(int16(val)))
		buf.MustWrite([]byte{byte(sentinelShort)})
		buf.MustWrite(tmp[:])
	default:
		var tmp [4]byte
		endian.GetBigEndianEngine().PutUint32(tmp[:], uint32(v))
		buf.MustWrite([]byte{byte(sentinelInt)})
		buf.MustWrite(tmp[:])
	}
}

// ReadCInt reads a value written by WriteCInt.
func ReadCInt(buf *pool.ByteBuffer) (int32, error) {
	b, ok := buf.ReadByte()
	if !ok {
		return 0, errs.ErrEndOfStream
	}
	head := int8(b)

	switch head {
	case sentinelShort:
		data, ok := buf.ReadN(2)
		if !ok {
			return 0, errs.ErrEndOfStream
		}

		return int32(int16(endian.GetBigEndianEngine().Uint16(data))), nil
	case sentinelInt:
		data, ok := buf.ReadN(4)
		if !ok {
			return 0, errs.ErrEndOfStream
		}

		return int32(endian.GetBigEndianEngine().Uint32(data)), nil
	default:
		return int32(head), nil
	}
}

// WriteCLong writes a signed 64-bit compact long (spec.md §4.1). Unlike
// WriteCInt, -126 is not written as a single byte, since that head value is
// the 8-byte sentinel; it takes the 2-byte form instead.
func WriteCLong(buf *pool.ByteBuffer, v int64) {
	switch {
	case v > int64(sentinelLong) && v <= maxDirect:
		buf.MustWrite([]byte{byte(int8(v))})
	case v >= math.MinInt16 && v <= math.MaxInt16:
		var tmp [2]byte
		endian.GetBigEndianEngine().PutUint16(tmp[:], uint16(int16(v)))
		buf.MustWrite([]byte{byte(sentinelShort)})
		buf.MustWrite(tmp[:])
	case v >= math.MinInt32 && v <= math.MaxInt32:
		var tmp [4]byte
		endian.GetBigEndianEngine().PutUint32(tmp[:], uint32(int32(v)))
		buf.MustWrite([]byte{byte(sentinelInt)})
		buf.MustWrite(tmp[:])
	default:
		var tmp [8]byte
		endian.GetBigEndianEngine().PutUint64(tmp[:], uint64(v))
		buf.MustWrite([]byte{byte(sentinelLong)})
		buf.MustWrite(tmp[:])
	}
}

// ReadCLong reads a value written by WriteCLong.
func ReadCLong(buf *pool.ByteBuffer) (int64, error) {
	b, ok := buf.ReadByte()
	if !ok {
		return 0, errs.ErrEndOfStream
	}
	head := int8(b)

	switch head {
	case sentinelShort:
		data, ok := buf.ReadN(2)
		if !ok {
			return 0, errs.ErrEndOfStream
		}

		return int64(int16(endian.GetBigEndianEngine().Uint16(data))), nil
	case sentinelInt:
		data, ok := buf.ReadN(4)
		if !ok {
			return 0, errs.ErrEndOfStream
		}

		return int64(int32(endian.GetBigEndianEngine().Uint32(data))), nil
	case sentinelLong:
		data, ok := buf.ReadN(8)
		if !ok {
			return 0, errs.ErrEndOfStream
		}

		return int64(endian.GetBigEndianEngine().Uint64(data)), nil
	default:
		return int64(head), nil
	}
}

// WriteCShort writes an unsigned 16-bit compact value (spec.md §4.1).
func WriteCShort(buf *pool.ByteBuffer, v uint16) {
	if v <= 254 {
		buf.MustWrite([]byte{byte(v)})
		return
	}
	var tmp [2]byte
	endian.GetBigEndianEngine().PutUint16(tmp[:], v)
	buf.MustWrite([]byte{cShortSentinel})
	buf.MustWrite(tmp[:])
}

// ReadCShort reads a value written by WriteCShort.
func ReadCShort(buf *pool.ByteBuffer) (uint16, error) {
	b, ok := buf.ReadByte()
	if !ok {
		return 0, errs.ErrEndOfStream
	}
	if b != cShortSentinel {
		return uint16(b), nil
	}
	data, ok := buf.ReadN(2)
	if !ok {
		return 0, errs.ErrEndOfStream
	}

	return endian.GetBigEndianEngine().Uint16(data), nil
}

// WriteCChar writes a 16-bit compact character using the same strategy as
// WriteCShort (spec.md §4.1).
func WriteCChar(buf *pool.ByteBuffer, v uint16) { WriteCShort(buf, v) }

// ReadCChar reads a value written by WriteCChar.
func ReadCChar(buf *pool.ByteBuffer) (uint16, error) { return ReadCShort(buf) }

// WriteFloat32 writes a float32's raw IEEE-754 bit pattern as a big-endian
// 32-bit integer (spec.md §4.1).
func WriteFloat32(buf *pool.ByteBuffer, v float32) {
	var tmp [4]byte
	endian.GetBigEndianEngine().PutUint32(tmp[:], math.Float32bits(v))
	buf.MustWrite(tmp[:])
}

// ReadFloat32 reads a value written by WriteFloat32.
func ReadFloat32(buf *pool.ByteBuffer) (float32, error) {
	data, ok := buf.ReadN(4)
	if !ok {
		return 0, errs.ErrEndOfStream
	}

	return math.Float32frombits(endian.GetBigEndianEngine().Uint32(data)), nil
}

// WriteFloat64 writes a float64's raw IEEE-754 bit pattern as a big-endian
// 64-bit integer (spec.md §4.1).
func WriteFloat64(buf *pool.ByteBuffer, v float64) {
	var tmp [8]byte
	endian.GetBigEndianEngine().PutUint64(tmp[:], math.Float64bits(v))
	buf.MustWrite(tmp[:])
}

// ReadFloat64 reads a value written by WriteFloat64.
func ReadFloat64(buf *pool.ByteBuffer) (float64, error) {
	data, ok := buf.ReadN(8)
	if !ok {
		return 0, errs.ErrEndOfStream
	}

	return math.Float64frombits(endian.GetBigEndianEngine().Uint64(data)), nil
}

// WriteStringUTF writes s using the UTF string form (spec.md §4.1): a
// compact-int length prefix, then one byte per character in 0..254, or a
// 255 sentinel followed by two big-endian bytes for a wider character.
//
// Characters outside the Basic Multilingual Plane are not representable by
// this 16-bit wire form; s must only contain runes in [0, 0xFFFF].
func WriteStringUTF(buf *pool.ByteBuffer, s string) {
	runes := []rune(s)
	WriteCInt(buf, int32(len(runes)))
	for _, r := range runes {
		if r <= 254 {
			buf.MustWrite([]byte{byte(r)})
			continue
		}
		var tmp [2]byte
		endian.GetBigEndianEngine().PutUint16(tmp[:], uint16(r))
		buf.MustWrite([]byte{255})
		buf.MustWrite(tmp[:])
	}
}

// ReadStringUTF reads a value written by WriteStringUTF.
func ReadStringUTF(buf *pool.ByteBuffer) (string, error) {
	n, err := ReadCInt(buf)
	if err != nil {
		return "", err
	}
	out := make([]rune, 0, n)
	for i := int32(0); i < n; i++ {
		b, ok := buf.ReadByte()
		if !ok {
			return "", errs.ErrEndOfStream
		}
		if b != 255 {
			out = append(out, rune(b))
			continue
		}
		data, ok := buf.ReadN(2)
		if !ok {
			return "", errs.ErrEndOfStream
		}
		out = append(out, rune(endian.GetBigEndianEngine().Uint16(data)))
	}

	return string(out), nil
}

// canPackNibbles reports whether every rune in s is in the 16-character
// alphabet, making s eligible for the compressed string form's nibble run.
func canPackNibbles(s []rune) bool {
	for _, r := range s {
		if r > 255 || nibbleOf(byte(r)) < 0 {
			return false
		}
	}

	return true
}

// WriteStringCompressed writes s using the compressed string form (spec.md
// §4.1): a compact-int length prefix, then literal bytes for characters in
// 0..253, nibble runs (head byte 254) for maximal stretches of at least
// four alphabet-only characters (shorter stretches are written as literal
// bytes, so an ASCII string never costs more than one byte per character),
// and 255-sentinel two-byte escapes for anything wider than a byte.
func WriteStringCompressed(buf *pool.ByteBuffer, s string) {
	runes := []rune(s)
	WriteCInt(buf, int32(len(runes)))

	i := 0
	for i < len(runes) {
		r := runes[i]

		if canPackNibbles(runes[i : i+1]) {
			// Greedily extend the alphabet-only run, capped at 255
			// characters (the run-length byte is a single byte).
			j := i + 1
			for j < len(runes) && j-i < 255 && canPackNibbles(runes[j:j+1]) {
				j++
			}
			run := runes[i:j]
			if len(run) >= 4 {
				buf.MustWrite([]byte{254, byte(len(run))})
				for k := 0; k < len(run); k += 2 {
					hi := byte(nibbleOf(byte(run[k])))
					lo := byte(0)
					if k+1 < len(run) {
						lo = byte(nibbleOf(byte(run[k+1])))
					}
					buf.MustWrite([]byte{hi<<4 | lo})
				}
				i = j

				continue
			}
		}

		switch {
		case r <= 253:
			buf.MustWrite([]byte{byte(r)})
		default:
			var tmp [2]byte
			endian.GetBigEndianEngine().PutUint16(tmp[:], uint16(r))
			buf.MustWrite([]byte{255})
			buf.MustWrite(tmp[:])
		}
		i++
	}
}

// ReadStringCompressed reads a value written by WriteStringCompressed. The
// decoder is driven purely by each slot's head byte, per spec.md §4.1.
func ReadStringCompressed(buf *pool.ByteBuffer) (string, error) {
	n, err := ReadCInt(buf)
	if err != nil {
		return "", err
	}

	out := make([]rune, 0, n)
	for int32(len(out)) < n {
		b, ok := buf.ReadByte()
		if !ok {
			return "", errs.ErrEndOfStream
		}

		switch b {
		case 254:
			count, ok := buf.ReadByte()
			if !ok {
				return "", errs.ErrEndOfStream
			}
			packed, ok := buf.ReadN((int(count) + 1) / 2)
			if !ok {
				return "", errs.ErrEndOfStream
			}
			for k := 0; k < int(count); k++ {
				byteIdx := k / 2
				var nibble byte
				if k%2 == 0 {
					nibble = packed[byteIdx] >> 4
				} else {
					nibble = packed[byteIdx] & 0x0F
				}
				out = append(out, rune(alphabet[nibble]))
			}
		case 255:
			data, ok := buf.ReadN(2)
			if !ok {
				return "", errs.ErrEndOfStream
			}
			out = append(out, rune(endian.GetBigEndianEngine().Uint16(data)))
		default:
			out = append(out, rune(b))
		}
	}

	return string(out), nil
}

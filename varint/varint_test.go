package varint

import (
	"math"
	"testing"

	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuf() *pool.ByteBuffer { return pool.NewByteBuffer(64) }

func TestWriteCInt_SingleByteRange(t *testing.T) {
	for _, v := range []int32{-126, -1, 0, 1, 127} {
		buf := newBuf()
		WriteCInt(buf, v)
		require.Equal(t, 1, buf.Len(), "value %d should encode to exactly one byte", v)

		got, err := ReadCInt(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestCInt_RoundTrip(t *testing.T) {
	samples := []int32{
		math.MinInt32, math.MinInt32 + 1, -70000, -32769, -32768, -127, -126,
		127, 128, 32767, 32768, 70000, math.MaxInt32 - 1, math.MaxInt32,
	}
	for _, v := range samples {
		buf := newBuf()
		WriteCInt(buf, v)
		got, err := ReadCInt(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip failed for %d", v)
	}
}

func TestCLong_RoundTrip(t *testing.T) {
	samples := []int64{
		math.MinInt64, -8589934592, math.MinInt32 - 1, math.MinInt32,
		-32769, -32768, -127, -126, 127, 128, 32767, 32768,
		math.MaxInt32, math.MaxInt32 + 1, 8589934592, math.MaxInt64,
	}
	for _, v := range samples {
		buf := newBuf()
		WriteCLong(buf, v)
		got, err := ReadCLong(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip failed for %d", v)
	}
}

func TestCShort_RoundTrip(t *testing.T) {
	samples := []uint16{0, 1, 200, 254, 255, 256, 1000, 65535}
	for _, v := range samples {
		buf := newBuf()
		WriteCShort(buf, v)
		got, err := ReadCShort(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestCShort_DirectRangeIsOneByte(t *testing.T) {
	buf := newBuf()
	WriteCShort(buf, 254)
	assert.Equal(t, 1, buf.Len())
}

func TestFloat32RoundTrip(t *testing.T) {
	for _, v := range []float32{0, -1.5, 3.14159, math.MaxFloat32, float32(math.Inf(-1))} {
		buf := newBuf()
		WriteFloat32(buf, v)
		assert.Equal(t, 4, buf.Len())
		got, err := ReadFloat32(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	for _, v := range []float64{0, -1.5, 3.14159265358979, math.MaxFloat64} {
		buf := newBuf()
		WriteFloat64(buf, v)
		assert.Equal(t, 8, buf.Len())
		got, err := ReadFloat64(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestStringUTF_RoundTrip(t *testing.T) {
	samples := []string{"", "hi", "hello world", "aሴb", string(rune(0xFFEE))}
	for _, s := range samples {
		buf := newBuf()
		WriteStringUTF(buf, s)
		got, err := ReadStringUTF(buf)
		require.NoError(t, err)
		assert.Equal(t, s, got, "bit-exact round trip required for %q", s)
	}
}

func TestStringUTF_ASCIIIsOneBytePerChar(t *testing.T) {
	buf := newBuf()
	s := "hello"
	WriteStringUTF(buf, s)
	// length prefix (1 byte, since len=5 fits direct range) + 5 data bytes
	assert.Equal(t, 6, buf.Len())
}

func TestStringCompressed_RoundTrip(t *testing.T) {
	samples := []string{
		"", "hi", "DEADBEEF01234567", "hello world!", "MixedABC123 text",
		string(rune(0xFFEE)),
	}
	for _, s := range samples {
		buf := newBuf()
		WriteStringCompressed(buf, s)
		got, err := ReadStringCompressed(buf)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestStringCompressed_NibbleRunUsedForHexAlphabet(t *testing.T) {
	buf := newBuf()
	s := "DEADBEEF01234567" // 16 chars, all in the alphabet
	WriteStringCompressed(buf, s)

	data := buf.Bytes()
	// length prefix is 1 byte (16 fits direct range); then head byte 254.
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, byte(254), data[1])

	got, err := ReadStringCompressed(buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestStringCompressed_ASCIIIsAtMostOneBytePerChar(t *testing.T) {
	buf := newBuf()
	s := "hello world, this is plain ascii text"
	WriteStringCompressed(buf, s)

	// length prefix + at most len(s) bytes of body.
	assert.LessOrEqual(t, buf.Len(), 1+len(s))
}

func TestReadCInt_EndOfStream(t *testing.T) {
	buf := newBuf()
	_, err := ReadCInt(buf)
	assert.ErrorIs(t, err, errs.ErrEndOfStream)
}

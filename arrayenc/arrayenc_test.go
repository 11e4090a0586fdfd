package arrayenc

import (
	"testing"

	"github.com/arloliu/objectwire/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuf() *pool.ByteBuffer { return pool.NewByteBuffer(256) }

func TestPlain_RoundTrip(t *testing.T) {
	values := []int32{1, -2, 3, 2147483647, -2147483648}
	buf := newBuf()
	WritePlain(buf, values)
	assert.Equal(t, len(values)*4, buf.Len())

	got, err := ReadPlain(buf, len(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestDefault_RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 1000, -70000}
	buf := newBuf()
	WriteDefault(buf, values)

	got, err := ReadDefault(buf, len(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestThin_RoundTrip(t *testing.T) {
	values := []int32{0, 0, 0, 5, 0, 0, 0, 9}
	buf := newBuf()
	WriteThin(buf, values)

	got, err := ReadThin(buf, len(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestThin_WireShapeMatchesSpecExample(t *testing.T) {
	// spec example: [0,0,0,5,0,0,0,9] with thin flag encodes as
	// (3,5),(7,9),(8) i.e. three varint pairs/terminator, each single-byte.
	values := []int32{0, 0, 0, 5, 0, 0, 0, 9}
	buf := newBuf()
	WriteThin(buf, values)
	assert.Equal(t, 5, buf.Len(), "two pairs (4 bytes) plus one terminator byte")
}

func TestThin_SparseStrictlySmallerThanPlain(t *testing.T) {
	values := make([]int32, 100)
	values[50] = 7

	thinBuf := newBuf()
	WriteThin(thinBuf, values)

	plainBuf := newBuf()
	WritePlain(plainBuf, values)

	assert.Less(t, thinBuf.Len(), plainBuf.Len())
}

func TestCompressed_RoundTrip_AllStrategies(t *testing.T) {
	cases := map[string][]int32{
		"monotonic":  {10, 11, 12, 13, 14, 15},
		"sparse":     {0, 0, 0, 0, 0, 0, 0, 42, 0, 0},
		"random":     {5, -300, 70000, -1, 2, -8, 19},
		"flat_small": {1, 1, 1, 1, 1, 1, 1, 1},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			buf := newBuf()
			WriteCompressed(buf, values)
			got, err := ReadCompressed(buf, len(values))
			require.NoError(t, err)
			assert.Equal(t, values, got)
		})
	}
}

func TestCompressed_MonotonicPicksDeltaOrCheaper(t *testing.T) {
	values := []int32{1000, 1001, 1002, 1003, 1004, 1005, 1006, 1007}
	buf := newBuf()
	WriteCompressed(buf, values)

	plainBuf := newBuf()
	WritePlain(plainBuf, values)

	assert.Less(t, buf.Len(), plainBuf.Len())
}

func TestChooseStrategy_PicksThinForSparseArray(t *testing.T) {
	values := make([]int32, 50)
	values[10] = 3
	assert.Equal(t, "ThinRun", chooseStrategy(values).String())
}

package writer

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/format"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	cfg, err := config.New()
	require.NoError(t, err)

	return New(cfg)
}

func TestWriter_Encode_Nil(t *testing.T) {
	w := newTestWriter(t)
	out, err := w.Encode(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, format.TagNull, format.Tag(out[0]))
}

type plainStruct struct {
	Name   string
	Age    int32
	Active bool
}

func TestWriter_Encode_TypedStructFirstByteIsTyped(t *testing.T) {
	w := newTestWriter(t)
	out, err := w.Encode(&plainStruct{Name: "a", Age: 1, Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, format.TagTyped, format.Tag(out[0]))
}

func TestWriter_Encode_SharedPointerEmitsHandle(t *testing.T) {
	w := newTestWriter(t)
	shared := &plainStruct{Name: "shared"}

	type pair struct {
		A *plainStruct
		B *plainStruct
	}

	out, err := w.Encode(&pair{A: shared, B: shared})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// The stream must contain at least one HANDLE tag byte, since B
	// resolves to the same pointer identity as A.
	found := false
	for _, b := range out {
		if format.Tag(b) == format.TagHandle {
			found = true

			break
		}
	}
	assert.True(t, found, "expected a HANDLE tag somewhere in the stream")
}

func TestWriter_Encode_StructModeSuppressesHandles(t *testing.T) {
	cfg, err := config.New(config.WithStructMode(true))
	require.NoError(t, err)
	w := New(cfg)

	shared := &plainStruct{Name: "shared"}
	type pair struct {
		A *plainStruct
		B *plainStruct
	}

	out, err := w.Encode(&pair{A: shared, B: shared})
	require.NoError(t, err)

	for _, b := range out {
		assert.NotEqual(t, format.TagHandle, format.Tag(b))
	}
}

func TestWriter_Encode_BareInt32IsBigInt(t *testing.T) {
	w := newTestWriter(t)
	out, err := w.Encode(int32(42))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, format.TagBigInt, format.Tag(out[0]))
}

func TestWriter_Encode_BareBoolIsBigBoolean(t *testing.T) {
	w := newTestWriter(t)
	out, err := w.Encode(true)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, format.TagBigBooleanTrue, format.Tag(out[0]))
}

func TestWriter_Encode_BareStringUsesTypedOrObjectTag(t *testing.T) {
	w := newTestWriter(t)
	out, err := w.Encode("hello")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// A bare string has no field descriptor, so it is dispatched as an
	// OBJECT or TYPED tag with a string-kind body, not BIG_* or ARRAY.
	tag := format.Tag(out[0])
	assert.True(t, tag == format.TagTyped || tag == format.TagObject, "got tag %s", tag)
}

func TestWriter_Reset_ClearsState(t *testing.T) {
	w := newTestWriter(t)
	shared := &plainStruct{Name: "x"}
	_, err := w.Encode(shared)
	require.NoError(t, err)

	w.Reset()

	// After Reset, encoding the same pointer again must not emit a
	// HANDLE (its old registry entry must be gone).
	out, err := w.Encode(shared)
	require.NoError(t, err)
	assert.NotEqual(t, format.TagHandle, format.Tag(out[0]))
}

func TestDerefType(t *testing.T) {
	var p ***plainStruct
	got := derefType(reflect.TypeOf(p))
	assert.Equal(t, reflect.TypeOf(plainStruct{}), got)
}

func TestOneOfIndex(t *testing.T) {
	values := []string{"Red", "Green", "Blue"}

	idx, ok := oneOfIndex(values, reflect.ValueOf("Green"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = oneOfIndex(values, reflect.ValueOf("Purple"))
	assert.False(t, ok)
}

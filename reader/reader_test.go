package reader

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/writer"
)

func newPair(t *testing.T) (*writer.Writer, *Reader) {
	t.Helper()
	cfg, err := config.New()
	require.NoError(t, err)

	return writer.New(cfg), New(cfg)
}

type plainStruct struct {
	Name   string
	Age    int32
	Active bool
}

func TestRoundTrip_PlainStruct(t *testing.T) {
	w, r := newPair(t)

	in := &plainStruct{Name: "alice", Age: 30, Active: true}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out plainStruct
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, *in, out)
}

func TestRoundTrip_Nil(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode(nil)
	require.NoError(t, err)

	var out *plainStruct
	require.NoError(t, r.Decode(data, &out))
	assert.Nil(t, out)
}

func TestRoundTrip_BareString(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode("hello world")
	require.NoError(t, err)

	var out string
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, "hello world", out)
}

func TestRoundTrip_BareInt32(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode(int32(-7))
	require.NoError(t, err)

	var out int32
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, int32(-7), out)
}

func TestRoundTrip_BareBool(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode(false)
	require.NoError(t, err)

	var out bool
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, false, out)
}

func TestRoundTrip_Int32Slice(t *testing.T) {
	w, r := newPair(t)

	in := []int32{1, 2, 3, 4, 5}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out []int32
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestRoundTrip_SharedPointerPreservesIdentity(t *testing.T) {
	w, r := newPair(t)

	shared := &plainStruct{Name: "shared"}
	type pair struct {
		A *plainStruct
		B *plainStruct
	}

	data, err := w.Encode(&pair{A: shared, B: shared})
	require.NoError(t, err)

	var out pair
	require.NoError(t, r.Decode(data, &out))
	require.NotNil(t, out.A)
	require.NotNil(t, out.B)
	assert.Same(t, out.A, out.B, "decoded pointers should share identity")
	assert.Equal(t, "shared", out.A.Name)
}

func TestRoundTrip_StructModeSkipsIdentity(t *testing.T) {
	cfg, err := config.New(config.WithStructMode(true))
	require.NoError(t, err)
	w := writer.New(cfg)
	r := New(cfg)

	shared := &plainStruct{Name: "shared"}
	type pair struct {
		A *plainStruct
		B *plainStruct
	}

	data, err := w.Encode(&pair{A: shared, B: shared})
	require.NoError(t, err)

	var out pair
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, "shared", out.A.Name)
	assert.Equal(t, "shared", out.B.Name)
}

type withFloats struct {
	F32 float32
	F64 float64
}

func TestRoundTrip_FloatFields(t *testing.T) {
	w, r := newPair(t)

	in := &withFloats{F32: 1.5, F64: -2.25}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out withFloats
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, *in, out)
}

func TestReader_Decode_NilTargetErrors(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode(&plainStruct{Name: "x"})
	require.NoError(t, err)

	err = r.Decode(data, nil)
	require.Error(t, err)
}

type color int32

func TestRoundTrip_Enum(t *testing.T) {
	cache := classmeta.NewCache(classmeta.DefaultReflector{})
	cache.RegisterEnum(reflect.TypeOf(color(0)), []string{"Red", "Green", "Blue"})

	cfg, err := config.New(config.WithClassCache(cache))
	require.NoError(t, err)

	w := writer.New(cfg)
	r := New(cfg)

	data, err := w.Encode(color(1))
	require.NoError(t, err)

	var out color
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, color(1), out)
}

type withConditional struct {
	Always string
	Skip   int32 `objectwire:"conditional"`
}

func TestRoundTrip_ConditionalFieldReadNormally(t *testing.T) {
	w, r := newPair(t)

	in := &withConditional{Always: "a", Skip: 42}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out withConditional
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, *in, out)
}

func TestRoundTrip_ConditionalFieldSkippedByPolicy(t *testing.T) {
	w, r := newPair(t)
	r.SetConditionalPolicy(func(fieldName string) bool { return fieldName == "Skip" })

	in := &withConditional{Always: "a", Skip: 42}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out withConditional
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, "a", out.Always)
	assert.Equal(t, int32(0), out.Skip, "skipped field should keep its zero value")
}

type withManyBools struct {
	B0, B1, B2, B3, B4, B5, B6, B7, B8, B9 bool
}

func TestRoundTrip_BoolPackingAcrossByteBoundary(t *testing.T) {
	w, r := newPair(t)

	in := &withManyBools{B0: true, B2: true, B4: true, B6: true, B8: true}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out withManyBools
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, *in, out)
}

type withIntArrayFlags struct {
	Plain      []int32 `objectwire:"plain"`
	Thin       []int32 `objectwire:"thin"`
	Compressed []int32 `objectwire:"compressed"`
}

func TestRoundTrip_Int32ArrayStrategies(t *testing.T) {
	w, r := newPair(t)

	in := &withIntArrayFlags{
		Plain:      []int32{1, 2, 3},
		Thin:       []int32{0, 0, 0, 0, 99, 0, 0, 0},
		Compressed: []int32{10, 20, 30, 40, 50},
	}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out withIntArrayFlags
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, *in, out)
}

func TestRoundTrip_StringSlice(t *testing.T) {
	w, r := newPair(t)

	in := []string{"alpha", "beta", "gamma"}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out []string
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, in, out)
}

type recordingValidator struct {
	tag      string
	priority int
	order    *[]string
}

func (v *recordingValidator) Validate() error {
	*v.order = append(*v.order, v.tag)

	return nil
}

func (v *recordingValidator) ValidationPriority() int { return v.priority }

func TestReader_RunValidations_HighestPriorityFirst(t *testing.T) {
	_, r := newPair(t)

	var order []string
	r.pendingValidations = []validationEntry{
		{priority: 0, v: &recordingValidator{tag: "low", priority: 0, order: &order}},
		{priority: 5, v: &recordingValidator{tag: "high", priority: 5, order: &order}},
		{priority: 2, v: &recordingValidator{tag: "mid", priority: 2, order: &order}},
	}

	r.runValidations()

	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

type panickingValidator struct{}

func (panickingValidator) Validate() error { panic("boom") }

func TestReader_RunValidations_PanicDoesNotStopOthers(t *testing.T) {
	_, r := newPair(t)

	var order []string
	r.pendingValidations = []validationEntry{
		{priority: 1, v: panickingValidator{}},
		{priority: 0, v: &recordingValidator{tag: "after", priority: 0, order: &order}},
	}

	require.NotPanics(t, func() { r.runValidations() })
	assert.Equal(t, []string{"after"}, order)
}

func TestRoundTrip_ValidationCallbackInvokedDuringDecode(t *testing.T) {
	w, r := newPair(t)

	in := &plainStruct{Name: "x", Age: 1, Active: true}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out plainStruct
	require.NoError(t, r.Decode(data, &out))
	// plainStruct doesn't implement Validatable, so no callbacks queue.
	assert.Empty(t, r.pendingValidations)
}

func TestReader_Reset_ClearsState(t *testing.T) {
	w, r := newPair(t)

	data, err := w.Encode(&plainStruct{Name: "x"})
	require.NoError(t, err)

	var out plainStruct
	require.NoError(t, r.Decode(data, &out))

	r.Reset()

	var out2 plainStruct
	require.NoError(t, r.Decode(data, &out2))
	assert.Equal(t, out, out2)
}

// compatPerson exercises compatible mode (SPEC_FULL.md §4): it writes and
// reads its own field set by hand instead of the default field-reader loop,
// including a KindReference field (Nested) to exercise the self-describing
// TagObject path WriteField/ReadField fall back to in place of TagTyped.
type compatPerson struct {
	Name   string
	Age    int32
	Nested *plainStruct
}

func (p *compatPerson) WriteCompat(w classmeta.CompatWriter) error {
	if err := w.WriteField("Name", classmeta.KindReference, p.Name); err != nil {
		return err
	}
	if err := w.WriteField("Age", classmeta.KindInt, p.Age); err != nil {
		return err
	}

	return w.WriteField("Nested", classmeta.KindReference, p.Nested)
}

func (p *compatPerson) ReadCompat(r classmeta.CompatReader) error {
	name, err := r.ReadField("Name", classmeta.KindReference)
	if err != nil {
		return err
	}
	p.Name = name.(string)

	age, err := r.ReadField("Age", classmeta.KindInt)
	if err != nil {
		return err
	}
	p.Age = age.(int32)

	nested, err := r.ReadField("Nested", classmeta.KindReference)
	if err != nil {
		return err
	}
	if nested != nil {
		p.Nested = nested.(*plainStruct)
	}

	return nil
}

func TestRoundTrip_CompatibleMode(t *testing.T) {
	w, r := newPair(t)

	in := &compatPerson{Name: "bob", Age: 42, Nested: &plainStruct{Name: "inner", Age: 7}}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out compatPerson
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Age, out.Age)
	require.NotNil(t, out.Nested)
	assert.Equal(t, *in.Nested, *out.Nested)
}

func TestRoundTrip_CompatibleMode_NilReference(t *testing.T) {
	w, r := newPair(t)

	in := &compatPerson{Name: "nobody", Age: 0, Nested: nil}
	data, err := w.Encode(in)
	require.NoError(t, err)

	var out compatPerson
	require.NoError(t, r.Decode(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Nil(t, out.Nested)
}

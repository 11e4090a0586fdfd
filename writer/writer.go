// Package writer implements the writer state machine (spec.md §4.4): given
// an arbitrary Go value, it selects one wire tag per spec.md's priority
// order, assigns or reuses class codes through the class-name registry,
// and recurses into nested reference fields.
//
// Writer owns one byte buffer, one class-name registry, and one
// object-reference registry, mirroring the teacher's single-owner-per-
// encoder-instance shape (each mebo encoder owns its own ByteBuffer and
// index state, reset and reused rather than reallocated between blobs).
package writer

import (
	"fmt"
	"reflect"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/classreg"
	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/format"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/arloliu/objectwire/objref"
	"github.com/arloliu/objectwire/plugin"
	"github.com/arloliu/objectwire/varint"
)

// Writer is a single-use-per-stream encoder. Not safe for concurrent use;
// call Reset to reuse it for a new stream (spec.md §5: "a writer or reader
// object may be used by one task at a time").
type Writer struct {
	cfg         *config.Configuration
	buf         *pool.ByteBuffer
	classReg    *classreg.Registry
	objReg      *objref.WriteRegistry
	predictions map[*classmeta.FieldDescriptor][]*classmeta.ClassDescriptor
}

// New returns a Writer bound to cfg. cfg may be nil to use defaults.
func New(cfg *config.Configuration) *Writer {
	if cfg == nil {
		cfg, _ = config.New()
	}

	return &Writer{
		cfg:         cfg,
		buf:         pool.NewByteBuffer(pool.StreamBufferDefaultSize),
		classReg:    classreg.New(),
		objReg:      objref.NewWriteRegistry(),
		predictions: make(map[*classmeta.FieldDescriptor][]*classmeta.ClassDescriptor),
	}
}

// Reset discards all per-stream state so the Writer can be reused.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.classReg.Reset()
	w.objReg.Reset()
	clear(w.predictions)
}

// Encode writes v as a complete stream and returns the bytes. v should be
// a pointer for identity to round-trip through nested fields, the same
// way json.Marshal works best on addressable values, though any value is
// accepted at the top level. This is the top-level entry point;
// WriteObject (the plugin.WriteContext method) is for recursing into a
// nested value from inside a custom serializer or externalizable hook.
func (w *Writer) Encode(v any) ([]byte, error) {
	w.Reset()

	rv := reflect.ValueOf(v)
	if err := w.writeValue(rv, nil); err != nil {
		return nil, err
	}

	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())

	if w.cfg.Compression != nil {
		compressed, err := w.cfg.Compression.Compress(out)
		if err != nil {
			return nil, err
		}

		return compressed, nil
	}

	return out, nil
}

// WriteBytes implements plugin.WriteContext: appends raw bytes already in
// a class's wire form, for custom serializers and externalizable hooks
// that manage their own body layout.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.MustWrite(b)
}

// WriteObject implements plugin.WriteContext: lets a custom serializer or
// externalizable hook recurse into a nested value with no field
// descriptor context (declared type equals the concrete type it
// observes, same as a top-level call).
func (w *Writer) WriteObject(v any) error {
	return w.writeValue(reflect.ValueOf(v), nil)
}

// anyType is reused as the synthetic FieldDescriptor.Type for
// WriteField's KindReference case: it has no class of its own, so
// derefType never collapses it to the value's concrete type, which keeps
// writeValue off the TagTyped path (declaredType == concreteType is what
// triggers TagTyped, and TagTyped carries no class name on the wire).
// ReadField has no hint parameter to resolve a class-less TagTyped with,
// so the written tag must be self-describing: TagObject, TagArray or
// TagEnum instead.
var anyType = reflect.TypeFor[any]()

// WriteField implements classmeta.CompatWriter: writes one named field's
// value inline per kind, for a compatible-mode WriteHook (spec.md §4.7)
// that writes its own field set by hand instead of going through the
// default field-reader loop. A KindReference value recurses through the
// ordinary tag dispatch, same as any other reference field, but with a
// synthetic field descriptor so the tag it picks stays resolvable by
// ReadField (see anyType).
func (w *Writer) WriteField(name string, kind classmeta.FieldKind, value any) error {
	if kind == classmeta.KindReference {
		return w.writeValue(reflect.ValueOf(value), &classmeta.FieldDescriptor{Name: name, Kind: kind, Type: anyType})
	}

	return w.writeKind(reflect.ValueOf(value), &classmeta.FieldDescriptor{Name: name, Kind: kind}, false)
}

var _ plugin.WriteContext = (*Writer)(nil)
var _ classmeta.CompatWriter = (*Writer)(nil)

// writeValue selects one tag for rv (spec.md §4.4 selection policy) and
// writes it, recursing for reference-kind content. fd is nil at the top
// level and for values reached through a custom serializer or
// externalizable hook.
func (w *Writer) writeValue(rv reflect.Value, fd *classmeta.FieldDescriptor) error {
	rv = unwrapInterface(rv)

	if isNilValue(rv) {
		_ = w.buf.WriteByte(byte(format.TagNull))

		return nil
	}

	considerIdentity := !w.cfg.StructMode && !(fd != nil && fd.Flags.Flat)

	pos := w.buf.Len()
	if considerIdentity {
		if handlePos, ok := w.objReg.Lookup(rv); ok {
			_ = w.buf.WriteByte(byte(format.TagHandle))
			varint.WriteCInt(w.buf, int32(handlePos))

			return nil
		}
	}

	if fd != nil && fd.IsEnum() {
		if idx, ok := oneOfIndex(fd.EnumValues, rv); ok {
			_ = w.buf.WriteByte(byte(format.TagOneOf))
			_ = w.buf.WriteByte(byte(idx))

			return nil
		}
	}

	// A named integral type registered via Cache.RegisterEnum is ENUM, not
	// a boxed primitive, even though its Kind is one of the boxed-primitive
	// kinds below. Check before the Kind switch so the switch only ever
	// sees genuinely unnamed boxed primitives.
	if values, ok := w.cfg.Cache().EnumValues(rv.Type()); ok {
		return w.writeEnum(rv, values)
	}

	switch rv.Kind() {
	case reflect.Int32:
		_ = w.buf.WriteByte(byte(format.TagBigInt))
		varint.WriteCInt(w.buf, int32(rv.Int()))

		return nil
	case reflect.Int64, reflect.Int:
		_ = w.buf.WriteByte(byte(format.TagBigLong))
		varint.WriteCLong(w.buf, rv.Int())

		return nil
	case reflect.Bool:
		if rv.Bool() {
			_ = w.buf.WriteByte(byte(format.TagBigBooleanTrue))
		} else {
			_ = w.buf.WriteByte(byte(format.TagBigBooleanFalse))
		}

		return nil
	case reflect.Slice, reflect.Array:
		if considerIdentity && rv.Kind() == reflect.Slice {
			w.objReg.Register(rv, pos)
		}

		return w.writeArray(rv, fd)
	}

	concreteType := rv.Type()
	if concreteType.Kind() == reflect.Pointer {
		concreteType = concreteType.Elem()
		if rv.IsNil() {
			_ = w.buf.WriteByte(byte(format.TagNull))

			return nil
		}
		rv = rv.Elem()
	}

	if !rv.CanAddr() {
		addr := reflect.New(concreteType)
		addr.Elem().Set(rv)
		rv = addr.Elem()
	}

	desc, err := w.cfg.Cache().Get(concreteType)
	if err != nil {
		return err
	}

	flatIdentity := considerIdentity && !desc.Flags.Flat
	if flatIdentity {
		w.objReg.Register(rv.Addr(), pos)
	}

	declaredType := concreteType
	if fd != nil {
		declaredType = derefType(fd.Type)
	}

	if fd != nil && predictionCode(w.predictions[fd], desc) > 0 {
		code := predictionCode(w.predictions[fd], desc)
		_ = w.buf.WriteByte(byte(int(format.TagPredictionBase) + code - 1))

		return w.writeBody(rv, desc)
	}

	if concreteType == declaredType {
		_ = w.buf.WriteByte(byte(format.TagTyped))

		return w.writeBody(rv, desc)
	}

	_ = w.buf.WriteByte(byte(format.TagObject))
	w.classReg.Encode(w.buf, desc.Name, nil)

	if fd != nil {
		w.insertPrediction(fd, desc)
	}

	return w.writeBody(rv, desc)
}

// writeBody dispatches to a custom serializer, an externalizable hook, or
// the default field-reader loop (spec.md §4.5 step 4, write-side mirror).
//
// Custom serializers are looked up from the Configuration's plugin table,
// not the (process-wide, Configuration-independent) class descriptor:
// spec.md §6 describes the plugin table as something a Configuration
// holds, so the same type can be handled by the default field-reader loop
// under one Configuration and a custom Serializer under another.
func (w *Writer) writeBody(rv reflect.Value, desc *classmeta.ClassDescriptor) error {
	// A non-struct builtin (string, or a primitive boxed into an
	// interface-typed field with no field descriptor to carry its Kind)
	// has no fields to walk; its "body" is its own varint-coded form.
	// Handling it here, rather than in the field-reader loop, lets it
	// still flow through the ordinary TYPED/OBJECT/HANDLE dispatch above
	// for identity tracking via a pointer to it.
	if desc.Type.Kind() != reflect.Struct {
		return writePrimitiveBody(w.buf, rv)
	}

	if serializer, ok := w.cfg.Plugins().Lookup(desc.Type); ok {
		return serializer.WriteObject(w, rv.Addr().Interface())
	}

	if desc.Flags.Externalizable {
		if ext, ok := rv.Addr().Interface().(classmeta.ExternalWriter); ok {
			return ext.WriteExternal(w)
		}
	}

	if desc.Flags.CompatibleMode {
		return w.writeCompatBody(rv, desc)
	}

	return w.writeFields(rv, desc)
}

// writeCompatBody runs compatible mode's write side (spec.md §4.7): each
// CompatLevel's WriteHook runs root-first (index 0 is the type's own
// level; any further levels a custom Reflector supplies are the levels
// above it), writing whatever field set that level
// chooses through the CompatWriter interface rather than the default
// canonical field loop.
func (w *Writer) writeCompatBody(rv reflect.Value, desc *classmeta.ClassDescriptor) error {
	instance := rv.Addr().Interface()
	for _, level := range desc.CompatInfo {
		if level.WriteHook == nil {
			continue
		}
		if err := level.WriteHook(w, instance); err != nil {
			return err
		}
	}

	return nil
}

// writePrimitiveBody writes rv's value directly, for a concrete type whose
// ClassDescriptor carries no fields to walk: a string, or a primitive
// reached with no field descriptor to supply its FieldKind (a bare array
// element or a value boxed into an interface-typed field).
func writePrimitiveBody(buf *pool.ByteBuffer, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.String:
		varint.WriteStringCompressed(buf, rv.String())

		return nil
	case reflect.Bool:
		_ = buf.WriteByte(boolByte(rv.Bool()))

		return nil
	case reflect.Int8, reflect.Uint8:
		_ = buf.WriteByte(byteValue(rv))

		return nil
	case reflect.Int16, reflect.Uint16:
		varint.WriteCShort(buf, shortValue(rv))

		return nil
	case reflect.Int32, reflect.Uint32:
		varint.WriteCInt(buf, int32(asInt64(rv)))

		return nil
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		varint.WriteCLong(buf, asInt64(rv))

		return nil
	case reflect.Float32:
		varint.WriteFloat32(buf, float32(rv.Float()))

		return nil
	case reflect.Float64:
		varint.WriteFloat64(buf, rv.Float())

		return nil
	default:
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedPrimitive, rv.Kind())
	}
}

// derefType strips one level of pointer indirection, the way a declared
// *Foo field's "declared type" is compared against a concrete Foo.
func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

func unwrapInterface(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv
		}
		rv = rv.Elem()
	}

	return rv
}

func isNilValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// writeEnum writes the ENUM tag: class name/code, then ordinal (or, under
// cross-language mode, the value's name string instead of its ordinal).
func (w *Writer) writeEnum(rv reflect.Value, values []string) error {
	desc, err := w.cfg.Cache().Get(rv.Type())
	if err != nil {
		return err
	}

	_ = w.buf.WriteByte(byte(format.TagEnum))
	w.classReg.Encode(w.buf, desc.Name, nil)

	ordinal := int(rv.Int())
	if w.cfg.CrossLanguage {
		varint.WriteStringUTF(w.buf, values[ordinal])
	} else {
		varint.WriteCInt(w.buf, int32(ordinal))
	}

	return nil
}

// oneOfIndex reports whether rv's value matches one of a field's declared
// "oneOf" set, and its index, for the ONE_OF tag (spec.md §4.4).
func oneOfIndex(values []string, rv reflect.Value) (int, bool) {
	s := fmt.Sprintf("%v", rv.Interface())
	for i, v := range values {
		if v == s {
			return i, true
		}
	}

	return 0, false
}

// predictionCode returns the 1-based prediction code for desc within
// table, or 0 if desc is not present.
func predictionCode(table []*classmeta.ClassDescriptor, desc *classmeta.ClassDescriptor) int {
	for i, d := range table {
		if d == desc {
			return i + 1
		}
	}

	return 0
}

// insertPrediction appends desc to fd's possible-classes table unless it
// is already present or the table is full (spec.md §9 "prediction table
// overflow": fall back to OBJECT and do not extend the table).
func (w *Writer) insertPrediction(fd *classmeta.FieldDescriptor, desc *classmeta.ClassDescriptor) {
	table := w.predictions[fd]
	if predictionCode(table, desc) > 0 {
		return
	}
	if len(table) >= format.MaxPredictionCodes {
		return
	}
	w.predictions[fd] = append(table, desc)
}


// Package reader implements the reader state machine (spec.md §4.5): the
// mirror image of package writer. Given a byte stream, it reads one tag
// per value, resolves or instantiates the concrete class, and recursively
// fills fields, maintaining the same per-stream object-reference and
// class-name state the writer built the stream with.
package reader

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/classreg"
	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/format"
	internallog "github.com/arloliu/objectwire/internal/log"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/arloliu/objectwire/objref"
	"github.com/arloliu/objectwire/plugin"
	"github.com/arloliu/objectwire/varint"
)

// Reader is a single-use-per-stream decoder. Not safe for concurrent use;
// call Reset to reuse it for a new stream.
type Reader struct {
	cfg         *config.Configuration
	buf         *pool.ByteBuffer
	classReg    *classreg.Registry
	objReg      *objref.ReadRegistry
	predictions map[*classmeta.FieldDescriptor][]*classmeta.ClassDescriptor

	// conditionalPolicy, if set, is consulted for every conditional field
	// to decide whether to skip its body (spec.md §4.5 "conditional
	// skip-group"). A nil policy never skips.
	conditionalPolicy func(fieldName string) bool

	// pendingValidations accumulates every Validatable instance produced
	// while reading the current stream, for the post-top-level-read
	// invocation pass (spec.md §7).
	pendingValidations []validationEntry

	// compatDesc is the ClassDescriptor currently being filled by
	// readCompatBody, so ReadFields (classmeta.CompatReader) knows which
	// class's canonical field set to read back as a map. Saved and
	// restored around each ReadHook call so a compatible-mode class
	// nested inside another one's hook doesn't clobber the outer call's
	// descriptor.
	compatDesc *classmeta.ClassDescriptor
}

// Validatable is the interface a type implements to run a post-read
// consistency check. The reader auto-detects it rather than requiring an
// explicit per-object registration call during the read (spec.md §7
// describes callbacks "registered during a read"; Go's interface
// satisfaction makes every instance of a Validatable type self-registering
// the moment the reader constructs it).
type Validatable interface {
	Validate() error
}

// PrioritizedValidatable lets a Validatable type control its place in the
// invocation order; higher runs first. Types that only implement
// Validatable run at priority 0.
type PrioritizedValidatable interface {
	Validatable
	ValidationPriority() int
}

type validationEntry struct {
	priority int
	v        Validatable
}

// New returns a Reader bound to cfg. cfg may be nil to use defaults.
func New(cfg *config.Configuration) *Reader {
	if cfg == nil {
		cfg, _ = config.New()
	}

	return &Reader{
		cfg:         cfg,
		buf:         pool.NewByteBuffer(pool.StreamBufferDefaultSize),
		classReg:    classreg.New(),
		objReg:      objref.NewReadRegistry(),
		predictions: make(map[*classmeta.FieldDescriptor][]*classmeta.ClassDescriptor),
	}
}

// SetConditionalPolicy installs the callback consulted for conditional
// fields; returning true skips the field (spec.md §4.5).
func (r *Reader) SetConditionalPolicy(fn func(fieldName string) bool) {
	r.conditionalPolicy = fn
}

// Reset discards all per-stream state so the Reader can be reused.
func (r *Reader) Reset() {
	r.buf.Reset()
	r.classReg.Reset()
	r.objReg.Reset()
	clear(r.predictions)
	r.pendingValidations = r.pendingValidations[:0]
}

// Decode reads a complete stream from data into target, which must be a
// non-nil pointer. This is the top-level entry point; ReadObject (the
// plugin.ReadContext method) is for recursing into a nested value from
// inside a custom serializer or externalizable hook, with no framing of
// its own.
func (r *Reader) Decode(data []byte, target any) error {
	r.Reset()

	if r.cfg.Compression != nil {
		plain, err := r.cfg.Compression.Decompress(data)
		if err != nil {
			return err
		}
		data = plain
	}

	r.buf.MustWrite(data)

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errs.ErrNilTarget
	}

	val, err := r.readValue(nil, rv.Type().Elem())
	if err != nil {
		return err
	}

	r.runValidations()

	if !val.IsValid() {
		return nil
	}

	return assignInto(rv.Elem(), val)
}

// runValidations invokes every Validatable instance produced while
// reading the stream, highest ValidationPriority first, after the
// top-level read has fully succeeded (spec.md §7). A panic or error from
// one callback is logged and does not stop the rest from running, and
// never fails the read.
func (r *Reader) runValidations() {
	if len(r.pendingValidations) == 0 {
		return
	}

	sort.SliceStable(r.pendingValidations, func(i, j int) bool {
		return r.pendingValidations[i].priority > r.pendingValidations[j].priority
	})

	for _, entry := range r.pendingValidations {
		r.invokeValidation(entry)
	}
}

func (r *Reader) invokeValidation(entry validationEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			internallog.Logger().Warningf("objectwire: validation callback panicked: %v", rec)
		}
	}()

	if err := entry.v.Validate(); err != nil {
		internallog.Logger().Warningf("objectwire: validation callback failed: %v", err)
	}
}

// ReadBytes implements plugin.ReadContext: consumes n raw bytes, for
// custom serializers and externalizable hooks that manage their own body
// layout.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, ok := r.buf.ReadN(n)
	if !ok {
		return nil, errs.ErrEndOfStream
	}

	return b, nil
}

// ReadObject implements plugin.ReadContext: lets a custom serializer or
// externalizable hook recurse into a nested value with no field
// descriptor context, filling target (a non-nil pointer) in place.
func (r *Reader) ReadObject(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errs.ErrNilTarget
	}

	val, err := r.readValue(nil, rv.Elem().Type())
	if err != nil {
		return err
	}
	if !val.IsValid() {
		return nil
	}

	return assignInto(rv.Elem(), val)
}

// ReadField implements classmeta.CompatReader: reads one inline value per
// kind, the read-side mirror of Writer.WriteField, for a compatible-mode
// ReadHook (spec.md §4.7). A KindReference value recurses through the
// ordinary tag dispatch with no declared-type hint, same as ReadObject's
// companion WriteObject; WriteField forces such values onto the
// self-describing OBJECT/ARRAY tags rather than TYPED precisely so this
// works with no hint available.
func (r *Reader) ReadField(name string, kind classmeta.FieldKind) (any, error) {
	switch kind {
	case classmeta.KindBool:
		b, ok := r.buf.ReadByte()
		if !ok {
			return nil, errs.ErrEndOfStream
		}

		return b != 0, nil

	case classmeta.KindByte:
		b, ok := r.buf.ReadByte()
		if !ok {
			return nil, errs.ErrEndOfStream
		}

		return b, nil

	case classmeta.KindShort, classmeta.KindChar:
		return varint.ReadCShort(r.buf)

	case classmeta.KindInt:
		return varint.ReadCInt(r.buf)

	case classmeta.KindLong:
		return varint.ReadCLong(r.buf)

	case classmeta.KindFloat:
		return varint.ReadFloat32(r.buf)

	case classmeta.KindDouble:
		return varint.ReadFloat64(r.buf)

	default:
		v, err := r.readValue(nil, nil)
		if err != nil {
			return nil, err
		}
		if !v.IsValid() {
			return nil, nil
		}

		return v.Interface(), nil
	}
}

// ReadFields implements classmeta.CompatReader: reads the current
// compatible-mode class's full canonical field set (name by declared
// order, same as the default field-reader loop would read into a struct)
// and returns it as a name-keyed map instead. Only valid from inside a
// ReadHook invoked by readCompatBody; called any other time it reports
// ErrIllegalFieldAccess, the same sentinel the default reflector uses for
// an out-of-bounds field access.
func (r *Reader) ReadFields() (map[string]any, error) {
	if r.compatDesc == nil {
		return nil, errs.ErrIllegalFieldAccess
	}

	fields := r.compatDesc.Fields
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := r.ReadField(f.Name, f.Kind)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}

	return out, nil
}

var _ plugin.ReadContext = (*Reader)(nil)
var _ classmeta.CompatReader = (*Reader)(nil)

// readValue reads one tagged value and returns it as a reflect.Value of
// its natural decoded type (a pointer for struct-shaped classes, a bare
// value for primitives and slices), or an invalid Value for NULL. fd is
// nil at the top level, for array elements, and when reached through a
// custom serializer or externalizable hook; hint supplies the statically
// expected type in those cases, the way a field descriptor's own Type
// does when fd is non-nil (spec.md §4.5's TYPED tag needs a declared type
// to resolve, since it carries no class name of its own).
func (r *Reader) readValue(fd *classmeta.FieldDescriptor, hint reflect.Type) (reflect.Value, error) {
	pos := r.buf.Len() - r.buf.Remaining() // stream position of the tag byte
	tagByte, ok := r.buf.ReadByte()
	if !ok {
		return reflect.Value{}, errs.ErrEndOfStream
	}
	tag := format.Tag(tagByte)

	switch tag {
	case format.TagNull:
		return reflect.Value{}, nil

	case format.TagHandle:
		target, err := varint.ReadCInt(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}
		instance, ok := r.objReg.Resolve(int(target))
		if !ok {
			return reflect.Value{}, errs.ErrUnresolvedHandle
		}

		return reflect.ValueOf(instance), nil

	case format.TagCopyHandle:
		return r.readCopyHandle(fd, hint)

	case format.TagOneOf:
		idxByte, ok := r.buf.ReadByte()
		if !ok {
			return reflect.Value{}, errs.ErrEndOfStream
		}
		if fd == nil || int(idxByte) >= len(fd.EnumValues) {
			return reflect.Value{}, errs.ErrMalformedTag
		}

		return oneOfValue(fd, int(idxByte)), nil

	case format.TagBigInt:
		v, err := varint.ReadCInt(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(v), nil

	case format.TagBigLong:
		v, err := varint.ReadCLong(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(v), nil

	case format.TagBigBooleanTrue:
		return reflect.ValueOf(true), nil

	case format.TagBigBooleanFalse:
		return reflect.ValueOf(false), nil

	case format.TagArray:
		return r.readArray(fd, pos)

	case format.TagEnum:
		return r.readEnum()

	case format.TagTyped:
		declaredType := declaredTypeOf(fd)
		if declaredType == nil {
			declaredType = hint
		}

		return r.readTypedOrPrediction(fd, pos, declaredType)

	case format.TagObject:
		return r.readObjectTag(fd, pos)

	default:
		if tag >= format.TagPredictionBase {
			code := int(tag-format.TagPredictionBase) + 1
			if fd == nil {
				return reflect.Value{}, errs.ErrMalformedTag
			}
			table := r.predictions[fd]
			if code < 1 || code > len(table) {
				return reflect.Value{}, errs.ErrMalformedTag
			}

			return r.readTypedOrPrediction(fd, pos, table[code-1].Type)
		}

		return reflect.Value{}, errs.ErrMalformedTag
	}
}

func declaredTypeOf(fd *classmeta.FieldDescriptor) reflect.Type {
	if fd == nil {
		return nil
	}

	t := fd.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

func oneOfValue(fd *classmeta.FieldDescriptor, idx int) reflect.Value {
	name := fd.EnumValues[idx]
	out := reflect.New(declaredTypeOf(fd)).Elem()
	if out.Kind() == reflect.String {
		out.SetString(name)
	}

	return out
}

// readEnum reads the ENUM tag: class name/code, then ordinal (or, under
// cross-language mode, a UTF name string resolved against the class's
// registered "oneOf" set).
func (r *Reader) readEnum() (reflect.Value, error) {
	name, _, _, err := r.classReg.Decode(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}

	t, ok := r.cfg.Cache().TypeByName(name)
	if !ok {
		return reflect.Value{}, errs.ErrUnknownClass
	}

	values, _ := r.cfg.Cache().EnumValues(t)

	out := reflect.New(t).Elem()

	if r.cfg.CrossLanguage {
		s, err := varint.ReadStringUTF(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}
		for i, v := range values {
			if v == s {
				out.SetInt(int64(i))

				return out, nil
			}
		}

		return reflect.Value{}, errs.ErrUnknownClass
	}

	ordinal, err := varint.ReadCInt(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}
	out.SetInt(int64(ordinal))

	return out, nil
}

// readTypedOrPrediction instantiates and fills a class known in advance
// (TYPED: the field's declared type; prediction code: possibleClasses[n]),
// with no class-name-registry traffic.
func (r *Reader) readTypedOrPrediction(fd *classmeta.FieldDescriptor, pos int, t reflect.Type) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, errs.ErrUnknownClass
	}

	desc, err := r.cfg.Cache().Get(t)
	if err != nil {
		return reflect.Value{}, err
	}

	return r.readInstance(fd, desc, pos)
}

// readObjectTag resolves the class by name from the class-name registry,
// then instantiates and fills it, recording the class in fd's prediction
// table for subsequent same-site writes (mirroring the writer).
func (r *Reader) readObjectTag(fd *classmeta.FieldDescriptor, pos int) (reflect.Value, error) {
	name, _, _, err := r.classReg.Decode(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}

	t, ok := r.cfg.Cache().TypeByName(name)
	if !ok {
		return reflect.Value{}, errs.ErrUnknownClass
	}

	desc, err := r.cfg.Cache().Get(t)
	if err != nil {
		return reflect.Value{}, err
	}

	if fd != nil {
		r.insertPrediction(fd, desc)
	}

	return r.readInstance(fd, desc, pos)
}

// readInstance implements spec.md §4.5 steps 1-5: instantiate, register
// (unless flat/always-copied), fill the body, then apply read-resolve.
func (r *Reader) readInstance(fd *classmeta.FieldDescriptor, desc *classmeta.ClassDescriptor, pos int) (reflect.Value, error) {
	considerIdentity := !r.cfg.StructMode && !(fd != nil && fd.Flags.Flat) && !desc.Flags.Flat

	instancePtr := desc.New() // reflect.New(desc.Type): always a pointer

	alwaysCopy := false
	if serializer, ok := r.cfg.Plugins().Lookup(desc.Type); ok {
		alwaysCopy = serializer.AlwaysCopy()
		if made, ok := serializer.Instantiate(desc.Type, r, pos); ok {
			instancePtr = reflect.ValueOf(made)
		}
	}

	if considerIdentity && !alwaysCopy {
		r.objReg.Register(pos, instancePtr.Interface())
	}

	if err := r.readBody(instancePtr.Elem(), desc); err != nil {
		return reflect.Value{}, err
	}

	result := instancePtr.Interface()
	if desc.ReadResolve != nil {
		if replacement, ok := desc.ReadResolve(result); ok {
			result = replacement
			if considerIdentity && !alwaysCopy {
				r.objReg.Replace(pos, result)
			}
		}
	}

	if v, ok := result.(Validatable); ok {
		priority := 0
		if pv, ok := result.(PrioritizedValidatable); ok {
			priority = pv.ValidationPriority()
		}
		r.pendingValidations = append(r.pendingValidations, validationEntry{priority: priority, v: v})
	}

	return reflect.ValueOf(result), nil
}

// readBody fills instancePtr's fields (instancePtr is addressable, the
// Elem() of a pointer) via a custom serializer, an externalizable hook, or
// the default field-reader loop.
func (r *Reader) readBody(instance reflect.Value, desc *classmeta.ClassDescriptor) error {
	// Mirror of the writer's non-struct special-case: a string, or a
	// primitive reached with no field descriptor to supply its FieldKind,
	// has no fields to walk.
	if desc.Type.Kind() != reflect.Struct {
		return readPrimitiveBody(r.buf, instance)
	}

	if serializer, ok := r.cfg.Plugins().Lookup(desc.Type); ok {
		return serializer.ReadObject(r, instance.Addr().Interface())
	}

	if desc.Flags.Externalizable {
		if ext, ok := instance.Addr().Interface().(classmeta.ExternalReader); ok {
			return ext.ReadExternal(r)
		}
	}

	if desc.Flags.CompatibleMode {
		return r.readCompatBody(instance, desc)
	}

	return r.readFields(instance, desc)
}

// readCompatBody runs compatible mode's read side (spec.md §4.7), the
// mirror of writer's writeCompatBody: each CompatLevel's ReadHook runs
// root-first, reading back whatever field set its paired WriteHook chose
// through the CompatReader interface instead of the default canonical
// field loop.
func (r *Reader) readCompatBody(instance reflect.Value, desc *classmeta.ClassDescriptor) error {
	prevDesc := r.compatDesc
	r.compatDesc = desc
	defer func() { r.compatDesc = prevDesc }()

	target := instance.Addr().Interface()
	for _, level := range desc.CompatInfo {
		if level.ReadHook == nil {
			continue
		}
		if err := level.ReadHook(r, target); err != nil {
			return err
		}
	}

	return nil
}

// readPrimitiveBody reads a value directly into instance, for a concrete
// type whose ClassDescriptor carries no fields to walk: a string, or a
// primitive reached with no field descriptor to supply its FieldKind. The
// mirror image of writer's writePrimitiveBody.
func readPrimitiveBody(buf *pool.ByteBuffer, instance reflect.Value) error {
	switch instance.Kind() {
	case reflect.String:
		s, err := varint.ReadStringCompressed(buf)
		if err != nil {
			return err
		}
		instance.SetString(s)

		return nil

	case reflect.Bool:
		b, ok := buf.ReadByte()
		if !ok {
			return errs.ErrEndOfStream
		}
		instance.SetBool(b != 0)

		return nil

	case reflect.Int8, reflect.Uint8:
		b, ok := buf.ReadByte()
		if !ok {
			return errs.ErrEndOfStream
		}
		setIntegral(instance, uint64(b), 8)

		return nil

	case reflect.Int16, reflect.Uint16:
		v, err := varint.ReadCShort(buf)
		if err != nil {
			return err
		}
		setIntegral(instance, uint64(v), 16)

		return nil

	case reflect.Int32, reflect.Uint32:
		v, err := varint.ReadCInt(buf)
		if err != nil {
			return err
		}
		setIntegral(instance, uint64(uint32(v)), 32)

		return nil

	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		v, err := varint.ReadCLong(buf)
		if err != nil {
			return err
		}
		setIntegral(instance, uint64(v), 64)

		return nil

	case reflect.Float32:
		v, err := varint.ReadFloat32(buf)
		if err != nil {
			return err
		}
		instance.SetFloat(float64(v))

		return nil

	case reflect.Float64:
		v, err := varint.ReadFloat64(buf)
		if err != nil {
			return err
		}
		instance.SetFloat(v)

		return nil

	default:
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedPrimitive, instance.Kind())
	}
}

// readCopyHandle implements COPYHANDLE (spec.md §4.3, §4.5): re-decodes
// the bytes at the referenced position in a fresh sub-context (via the
// buffer's push/pop stack), producing a structurally equal but distinct
// object rather than sharing identity with the original.
func (r *Reader) readCopyHandle(fd *classmeta.FieldDescriptor, hint reflect.Type) (reflect.Value, error) {
	target, err := varint.ReadCInt(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}

	snapshot := make([]byte, len(r.buf.Bytes()))
	copy(snapshot, r.buf.Bytes())

	r.buf.Push(snapshot, int(target))
	defer r.buf.Pop()

	return r.readValue(fd, hint)
}

// insertPrediction mirrors the writer's table-insert policy so both sides
// assign the same code to the same class at the same site.
func (r *Reader) insertPrediction(fd *classmeta.FieldDescriptor, desc *classmeta.ClassDescriptor) {
	table := r.predictions[fd]
	for _, d := range table {
		if d == desc {
			return
		}
	}
	if len(table) >= format.MaxPredictionCodes {
		return
	}
	r.predictions[fd] = append(table, desc)
}

// assignInto assigns src into dst, dereferencing a pointer-shaped src when
// dst expects the pointee's value, the mirror image of the writer's
// pointer-vs-value handling.
func assignInto(dst reflect.Value, src reflect.Value) error {
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)

		return nil
	}

	if dst.Kind() == reflect.Pointer && src.Kind() != reflect.Pointer {
		ptr := reflect.New(src.Type())
		ptr.Elem().Set(src)
		src = ptr
	} else if dst.Kind() != reflect.Pointer && src.Kind() == reflect.Pointer {
		src = src.Elem()
	}

	if !src.Type().AssignableTo(dst.Type()) {
		return errs.ErrIllegalFieldAccess
	}
	dst.Set(src)

	return nil
}

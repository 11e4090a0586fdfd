package reader

import (
	"reflect"
	"strings"

	"github.com/arloliu/objectwire/arrayenc"
	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/varint"
)

// readArray reads the ARRAY tag's body: class code of the array type,
// length, then elements (spec.md §4.6). fd carries the field's array
// flags; it is nil when the array is reached with no field context, in
// which case the element type is instead recovered from the class-name
// registry's "[]<elem>" name, the same way an OBJECT tag with no field
// context resolves its type from the class name alone.
func (r *Reader) readArray(fd *classmeta.FieldDescriptor, pos int) (reflect.Value, error) {
	name, _, _, err := r.classReg.Decode(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}

	n, err := varint.ReadCInt(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}
	if n < 0 {
		return reflect.Value{}, errs.ErrMalformedTag
	}

	elemType := elemTypeOf(fd)
	if elemType == nil {
		elemType = r.elemTypeFromArrayName(name)
	}
	if elemType != nil && elemType.Kind() == reflect.Int32 {
		return r.readInt32Array(fd, pos, int(n))
	}

	sliceType := reflect.TypeOf([]any(nil))
	if elemType != nil {
		sliceType = reflect.SliceOf(elemType)
	} else if fd != nil {
		sliceType = sliceTypeOf(fd)
	}

	out := reflect.MakeSlice(sliceType, int(n), int(n))

	considerIdentity := !r.cfg.StructMode && !(fd != nil && fd.Flags.Flat)
	if considerIdentity {
		r.objReg.Register(pos, out.Interface())
	}

	for i := 0; i < int(n); i++ {
		var elemFd *classmeta.FieldDescriptor
		v, err := r.readValue(elemFd, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		if !v.IsValid() {
			continue // NULL element, leave zero value
		}
		if err := assignInto(out.Index(i), v); err != nil {
			return reflect.Value{}, err
		}
	}

	return out, nil
}

func (r *Reader) readInt32Array(fd *classmeta.FieldDescriptor, pos, n int) (reflect.Value, error) {
	var (
		values []int32
		err    error
	)

	switch {
	case fd != nil && fd.Flags.Plain:
		values, err = arrayenc.ReadPlain(r.buf, n)
	case fd != nil && fd.Flags.Thin:
		values, err = arrayenc.ReadThin(r.buf, n)
	case fd != nil && fd.Flags.Compressed:
		values, err = arrayenc.ReadCompressed(r.buf, n)
	default:
		values, err = arrayenc.ReadDefault(r.buf, n)
	}
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.ValueOf(values)

	considerIdentity := !r.cfg.StructMode && !(fd != nil && fd.Flags.Flat)
	if considerIdentity {
		r.objReg.Register(pos, out.Interface())
	}

	return out, nil
}

// elemTypeFromArrayName recovers an element type from the class-name
// registry's "[]<elem>" name, via the same Cache.TypeByName lookup an
// OBJECT tag with no field context uses. Returns nil if the element name
// was never registered.
func (r *Reader) elemTypeFromArrayName(name string) reflect.Type {
	elemName := strings.TrimPrefix(name, "[]")
	if elemName == name {
		return nil
	}

	t, ok := r.cfg.Cache().TypeByName(elemName)
	if !ok {
		return nil
	}

	return t
}

// elemTypeOf returns fd's array element type, or nil if fd carries no
// static type information (array reached with no field context).
func elemTypeOf(fd *classmeta.FieldDescriptor) reflect.Type {
	if fd == nil {
		return nil
	}

	t := fd.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return nil
	}

	return t.Elem()
}

// sliceTypeOf returns the slice type to materialise for fd, defaulting to
// []any when fd carries no static type information.
func sliceTypeOf(fd *classmeta.FieldDescriptor) reflect.Type {
	elem := elemTypeOf(fd)
	if elem == nil {
		return reflect.TypeOf([]any(nil))
	}

	return reflect.SliceOf(elem)
}

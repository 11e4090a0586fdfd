package writer

import (
	"reflect"

	"github.com/arloliu/objectwire/arrayenc"
	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/format"
	"github.com/arloliu/objectwire/varint"
)

// writeArray writes the ARRAY tag's body: class code of the array type,
// length, then elements (spec.md §4.6). fd carries the field's array flags
// (plain/compressed/thin); it is nil for an array reached with no field
// context, in which case the element-wise default strategy is used.
func (w *Writer) writeArray(rv reflect.Value, fd *classmeta.FieldDescriptor) error {
	_ = w.buf.WriteByte(byte(format.TagArray))

	elemType := rv.Type().Elem()
	w.classReg.Encode(w.buf, classArrayName(elemType), nil)
	varint.WriteCInt(w.buf, int32(rv.Len()))

	if elemType.Kind() == reflect.Int32 {
		return w.writeInt32Array(rv, fd)
	}

	for i := 0; i < rv.Len(); i++ {
		if err := w.writeValue(rv.Index(i), nil); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) writeInt32Array(rv reflect.Value, fd *classmeta.FieldDescriptor) error {
	values := make([]int32, rv.Len())
	for i := range values {
		values[i] = int32(rv.Index(i).Int())
	}

	switch {
	case fd != nil && fd.Flags.Plain:
		arrayenc.WritePlain(w.buf, values)
	case fd != nil && fd.Flags.Thin:
		arrayenc.WriteThin(w.buf, values)
	case fd != nil && fd.Flags.Compressed:
		arrayenc.WriteCompressed(w.buf, values)
	default:
		arrayenc.WriteDefault(w.buf, values)
	}

	return nil
}

// classArrayName derives the class-name-registry key for an array whose
// elements have type elemType, e.g. "[]int32" or "[]myapp.Widget".
func classArrayName(elemType reflect.Type) string {
	return "[]" + qualifiedElemName(elemType)
}

func qualifiedElemName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}

	return t.PkgPath() + "." + t.Name()
}

package writer

import (
	"reflect"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/endian"
	"github.com/arloliu/objectwire/varint"
)

// writeFields is the default field-reader loop's write side (spec.md §4.5
// "Field-reader loop"): walks desc.Fields in canonical order, packing
// contiguous boolean runs eight per byte and writing every other integral
// field inline, recursing for reference fields.
func (w *Writer) writeFields(rv reflect.Value, desc *classmeta.ClassDescriptor) error {
	fields := desc.Fields

	for i := 0; i < len(fields); {
		f := fields[i]

		if f.Kind == classmeta.KindBool && !f.Flags.Array {
			j := i
			for j < len(fields) && fields[j].Kind == classmeta.KindBool && !fields[j].Flags.Array {
				j++
			}
			w.writeBoolRun(rv, fields[i:j])
			i = j

			continue
		}

		if err := w.writeField(rv, f); err != nil {
			return err
		}
		i++
	}

	return nil
}

// writeBoolRun packs a contiguous run of non-array boolean fields into
// ceil(n/8) bytes, one bit per field via a rolling mask (spec.md §4.5:
// "booleans are packed eight per byte using a rolling mask"). Canonical
// field ordering (classmeta.sortFields) guarantees every class's boolean
// fields are contiguous, so the field-reader loop never needs to track
// groups spanning non-boolean fields.
func (w *Writer) writeBoolRun(rv reflect.Value, fields []*classmeta.FieldDescriptor) {
	var b byte
	mask := byte(1)

	for _, f := range fields {
		if rv.FieldByIndex(f.Index).Bool() {
			b |= mask
		}
		mask <<= 1
		if mask == 0 {
			_ = w.buf.WriteByte(b)
			b, mask = 0, 1
		}
	}

	if mask != 1 {
		_ = w.buf.WriteByte(b)
	}
}

// writeField writes one non-boolean field, honoring the conditional
// skip-group protocol when the field is flagged conditional.
func (w *Writer) writeField(rv reflect.Value, f *classmeta.FieldDescriptor) error {
	if f.Flags.Conditional && !w.cfg.IgnoreAnnotations {
		return w.writeConditionalField(rv, f)
	}

	return w.writeFieldBody(rv, f)
}

// writeConditionalField implements the per-field skip-group simplification:
// spec.md describes a jump target preceding "a contiguous group" of
// conditional fields; this writer treats every conditional field as its
// own one-field group, writing a fixed 4-byte jump target immediately
// before the field body and backpatching it once the body's end position
// is known. A reader's conditional callback can then skip exactly this
// field by seeking to the jump target.
func (w *Writer) writeConditionalField(rv reflect.Value, f *classmeta.FieldDescriptor) error {
	jumpPos := w.buf.Len()
	eng := endian.GetBigEndianEngine()
	w.buf.B = eng.AppendUint32(w.buf.B, 0) // placeholder, backpatched below

	if err := w.writeFieldBody(rv, f); err != nil {
		return err
	}

	endPos := w.buf.Len()
	eng.PutUint32(w.buf.B[jumpPos:jumpPos+4], uint32(endPos))

	return nil
}

// writeFieldBody writes one field's value with no conditional wrapping.
func (w *Writer) writeFieldBody(rv reflect.Value, f *classmeta.FieldDescriptor) error {
	fv := rv.FieldByIndex(f.Index)

	if f.Flags.Array {
		return w.writeValue(fv, f)
	}

	return w.writeKind(fv, f, f.Flags.Plain)
}

// writeKind writes fv inline per kind, the shared body of writeFieldBody
// and WriteField (compatible mode's CompatWriter.WriteField, spec.md
// §4.7): an explicit kind/value pair with no FieldDescriptor to index
// through, since a compatible-mode hook names its own fields by hand.
func (w *Writer) writeKind(fv reflect.Value, f *classmeta.FieldDescriptor, plain bool) error {
	kind := classmeta.KindReference
	if f != nil {
		kind = f.Kind
	}

	switch kind {
	case classmeta.KindBool:
		_ = w.buf.WriteByte(boolByte(fv.Bool()))

		return nil
	case classmeta.KindByte:
		_ = w.buf.WriteByte(byteValue(fv))

		return nil
	case classmeta.KindShort, classmeta.KindChar:
		varint.WriteCShort(w.buf, shortValue(fv))

		return nil
	case classmeta.KindInt:
		if plain {
			eng := endian.GetBigEndianEngine()
			w.buf.B = eng.AppendUint32(w.buf.B, uint32(asInt64(fv)))

			return nil
		}
		varint.WriteCInt(w.buf, int32(asInt64(fv)))

		return nil
	case classmeta.KindLong:
		varint.WriteCLong(w.buf, asInt64(fv))

		return nil
	case classmeta.KindFloat:
		varint.WriteFloat32(w.buf, float32(fv.Float()))

		return nil
	case classmeta.KindDouble:
		varint.WriteFloat64(w.buf, fv.Float())

		return nil
	default:
		return w.writeValue(fv, f)
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}

	return 0
}

// byteValue reads fv as a single raw byte regardless of its signedness
// (int8 or uint8, per builtinKind's KindByte mapping).
func byteValue(fv reflect.Value) byte {
	if fv.Kind() == reflect.Uint8 {
		return byte(fv.Uint())
	}

	return byte(fv.Int())
}

// shortValue reads fv as a uint16 regardless of its signedness (int16 or
// uint16, per builtinKind's KindShort/KindChar mapping).
func shortValue(fv reflect.Value) uint16 {
	if fv.Kind() == reflect.Uint16 {
		return uint16(fv.Uint())
	}

	return uint16(fv.Int())
}

// asInt64 reads fv as an int64 regardless of its signedness, for the
// KindInt/KindLong integral kinds which admit both signed and unsigned
// Go field types (builtinKind maps int32/uint32 to KindInt, and
// int64/uint64/int/uint to KindLong).
func asInt64(fv reflect.Value) int64 {
	switch fv.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return int64(fv.Uint())
	default:
		return fv.Int()
	}
}

package reader

import (
	"reflect"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/endian"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/varint"
)

// readFields is the default field-reader loop (spec.md §4.5): walks
// desc.Fields in canonical order, unpacking contiguous boolean runs eight
// per byte and reading every other integral field inline, recursing for
// reference fields. instance is addressable (Elem() of a freshly
// allocated pointer).
func (r *Reader) readFields(instance reflect.Value, desc *classmeta.ClassDescriptor) error {
	fields := desc.Fields

	for i := 0; i < len(fields); {
		f := fields[i]

		if f.Kind == classmeta.KindBool && !f.Flags.Array {
			j := i
			for j < len(fields) && fields[j].Kind == classmeta.KindBool && !fields[j].Flags.Array {
				j++
			}
			if err := r.readBoolRun(instance, fields[i:j]); err != nil {
				return err
			}
			i = j

			continue
		}

		if err := r.readField(instance, f); err != nil {
			return err
		}
		i++
	}

	return nil
}

func (r *Reader) readBoolRun(instance reflect.Value, fields []*classmeta.FieldDescriptor) error {
	var b byte
	mask := byte(1)

	for _, f := range fields {
		if mask == 1 {
			var ok bool
			b, ok = r.buf.ReadByte()
			if !ok {
				return errs.ErrEndOfStream
			}
		}
		instance.FieldByIndex(f.Index).SetBool(b&mask != 0)
		mask <<= 1
		if mask == 0 {
			mask = 1
		}
	}

	return nil
}

func (r *Reader) readField(instance reflect.Value, f *classmeta.FieldDescriptor) error {
	if f.Flags.Conditional && !r.cfg.IgnoreAnnotations {
		return r.readConditionalField(instance, f)
	}

	return r.readFieldBody(instance, f)
}

// readConditionalField mirrors the writer's per-field skip-group
// simplification: a fixed 4-byte jump target precedes the field body. If
// the installed conditional callback says to skip, the reader seeks
// directly to the jump target instead of reading the body.
func (r *Reader) readConditionalField(instance reflect.Value, f *classmeta.FieldDescriptor) error {
	raw, ok := r.buf.ReadN(4)
	if !ok {
		return errs.ErrEndOfStream
	}
	jumpTarget := int(endian.GetBigEndianEngine().Uint32(raw))

	if r.conditionalPolicy != nil && r.conditionalPolicy(f.Name) {
		r.buf.SeekTo(jumpTarget)

		return nil
	}

	return r.readFieldBody(instance, f)
}

func (r *Reader) readFieldBody(instance reflect.Value, f *classmeta.FieldDescriptor) error {
	fv := instance.FieldByIndex(f.Index)

	if f.Flags.Array {
		v, err := r.readValue(f, nil)
		if err != nil {
			return err
		}
		if !v.IsValid() {
			return nil
		}

		return assignInto(fv, v)
	}

	switch f.Kind {
	case classmeta.KindBool:
		b, ok := r.buf.ReadByte()
		if !ok {
			return errs.ErrEndOfStream
		}
		fv.SetBool(b != 0)

		return nil

	case classmeta.KindByte:
		b, ok := r.buf.ReadByte()
		if !ok {
			return errs.ErrEndOfStream
		}
		setIntegral(fv, uint64(b), 8)

		return nil

	case classmeta.KindShort, classmeta.KindChar:
		v, err := varint.ReadCShort(r.buf)
		if err != nil {
			return err
		}
		setIntegral(fv, uint64(v), 16)

		return nil

	case classmeta.KindInt:
		if f.Flags.Plain {
			raw, ok := r.buf.ReadN(4)
			if !ok {
				return errs.ErrEndOfStream
			}
			setIntegral(fv, uint64(endian.GetBigEndianEngine().Uint32(raw)), 32)

			return nil
		}
		v, err := varint.ReadCInt(r.buf)
		if err != nil {
			return err
		}
		setIntegral(fv, uint64(uint32(v)), 32)

		return nil

	case classmeta.KindLong:
		v, err := varint.ReadCLong(r.buf)
		if err != nil {
			return err
		}
		setIntegral(fv, uint64(v), 64)

		return nil

	case classmeta.KindFloat:
		v, err := varint.ReadFloat32(r.buf)
		if err != nil {
			return err
		}
		fv.SetFloat(float64(v))

		return nil

	case classmeta.KindDouble:
		v, err := varint.ReadFloat64(r.buf)
		if err != nil {
			return err
		}
		fv.SetFloat(v)

		return nil

	default:
		v, err := r.readValue(f, nil)
		if err != nil {
			return err
		}
		if !v.IsValid() {
			return nil
		}

		return assignInto(fv, v)
	}
}

// setIntegral assigns the low bitSize bits of raw to fv, sign-extending
// when fv's Go type is signed. This is the read mirror of the writer's
// asInt64/byteValue/shortValue helpers, which go the other direction.
func setIntegral(fv reflect.Value, raw uint64, bitSize int) {
	switch fv.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		fv.SetUint(raw)
	default:
		shift := 64 - bitSize
		fv.SetInt(int64(raw<<shift) >> shift)
	}
}

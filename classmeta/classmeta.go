// Package classmeta implements the class metadata cache (spec.md §4.8): a
// process-wide map from a Go type to its class descriptor, built lazily by
// reflection and never mutated afterward.
//
// The descriptor the cache returns is the concrete form of the "class
// reflector" collaborator spec.md §6 names but leaves unimplemented — a
// real module needs one, so DefaultReflector provides a reflect-based
// default the way encoding/gob's own type analysis does, grounded in the
// same "ordered field list, flags per field" shape the spec asks for.
package classmeta

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldKind classifies a field's wire shape. The eight integral kinds read
// and write inline via the varint package; Reference fields recurse into
// the writer/reader state machine (spec.md §4.5 "field-reader loop").
type FieldKind uint8

const (
	KindBool FieldKind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindChar
	KindReference
)

// IsIntegral reports whether the kind is read/written inline rather than by
// recursing into the writer/reader state machine.
func (k FieldKind) IsIntegral() bool { return k != KindReference }

// FieldFlags mirrors the flag set spec.md §3 attaches to each field
// descriptor: {integral, array, flat, plain, conditional, compressed, thin}.
// Integral is derived from Kind rather than stored redundantly.
type FieldFlags struct {
	Array       bool // field is a slice/array, encoded per spec.md §4.6
	Flat        bool // value is always inlined, never a HANDLE (spec.md glossary)
	Plain       bool // int field/array uses fixed-width encoding, not compact
	Conditional bool // field participates in the skip-group protocol (§4.5)
	Compressed  bool // int array uses a compressed sub-strategy (§4.6)
	Thin        bool // int array uses the sparse (index,value) wire form
}

// FieldDescriptor is an immutable description of one field of a class,
// built once by the reflector and cached for the life of the process.
//
// The per-field prediction table and "last seen" inline cache spec.md §3
// describes are NOT stored here: they reset between streams, so they live
// in a per-writer/per-reader PredictionState keyed by the FieldDescriptor's
// identity (see the writer and reader packages). Storing them here would
// make a supposedly-immutable, process-wide descriptor mutable per stream.
type FieldDescriptor struct {
	Name       string
	Type       reflect.Type
	Kind       FieldKind
	Flags      FieldFlags
	Index      []int // reflect.Value.FieldByIndex path
	EnumValues []string // the "oneOf" set, non-nil only for enum-like fields
}

// IsEnum reports whether the field has a registered enumeration ("oneOf").
func (f *FieldDescriptor) IsEnum() bool { return len(f.EnumValues) > 0 }

// ClassFlags mirrors the class-level flags of spec.md §3's class descriptor.
type ClassFlags struct {
	Externalizable bool
	Flat           bool
	CompatibleMode bool
}

// CompatLevel describes one superclass level's hook methods for compatible
// mode (spec.md §4.7). Go has no superclass chain, so DefaultReflector
// gives a class at most one level — its own; a custom Reflector's
// CompatInfo may return more.
type CompatLevel struct {
	Fields    []*FieldDescriptor
	WriteHook func(w CompatWriter, instance any) error
	ReadHook  func(r CompatReader, instance any) error
	Symmetric bool
}

// CompatWriter and CompatReader are the wrapper-stream interfaces compatible
// mode's hooks are given (spec.md §4.7); defined here to avoid an import
// cycle with the writer/reader packages, which implement them.
type CompatWriter interface {
	WriteField(name string, kind FieldKind, value any) error
	WriteObject(value any) error
}

type CompatReader interface {
	ReadField(name string, kind FieldKind) (any, error)
	ReadObject(target any) error
	ReadFields() (map[string]any, error)
}

// ClassDescriptor is the per-class metadata spec.md §3 describes: an
// ordered field list, compatibility info, an optional custom serializer,
// class-level flags, and an optional read-resolve hook. Built lazily by
// Cache.Get and never mutated afterward.
// ClassDescriptor does not itself carry a custom serializer: spec.md §6
// describes the plugin table as something a Configuration holds, so the
// same class can be handled by the default field-reader loop under one
// Configuration and a custom Serializer under another. Writer/Reader look
// a class's serializer up from their Configuration's plugin table, keyed
// by ClassDescriptor.Type.
type ClassDescriptor struct {
	Type        reflect.Type
	Name        string
	Fields      []*FieldDescriptor
	CompatInfo  []CompatLevel
	Flags       ClassFlags
	ReadResolve func(instance any) (any, bool)

	// EnumValues is non-nil when Type was registered via Cache.RegisterEnum,
	// marking it as an enum-like class encoded with the ENUM tag (class
	// code + ordinal, or + name under cross-language mode) rather than
	// TYPED/OBJECT.
	EnumValues []string
}

// IsEnum reports whether this class is encoded via the ENUM tag.
func (c *ClassDescriptor) IsEnum() bool { return c.EnumValues != nil }

// New allocates a zero value of the described type and returns a
// reflect.Value holding a pointer to it, the way the default instantiator (spec.md §4.5 step 2)
// does when no custom serializer's Instantiate hook is installed.
func (c *ClassDescriptor) New() reflect.Value {
	return reflect.New(c.Type)
}

// fieldSortKey orders fields the way spec.md §4.8 asks: "canonical, chosen
// to maximise locality of like-typed fields (all booleans contiguous for
// packing; all ints contiguous; references last)". Concretely: group by
// Kind in a fixed integral-kinds-before-reference order, tiebreak by name.
func fieldSortKey(f *FieldDescriptor) (int, string) {
	return int(f.Kind), f.Name
}

func sortFields(fields []*FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		ki, ni := fieldSortKey(fields[i])
		kj, nj := fieldSortKey(fields[j])
		if ki != kj {
			return ki < kj
		}

		return ni < nj
	})
}

// qualifiedName derives the class-name string the class-name registry
// (package classreg) writes to the stream the first time a class is seen.
func qualifiedName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		return "[]" + qualifiedName(t.Elem())
	}
	if t.PkgPath() == "" {
		return t.String() // builtin (int32, string, ...) or unnamed type
	}

	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}

// builtinKind maps a Go primitive type to its FieldKind, or KindReference
// for anything that isn't an integral wire primitive.
func builtinKind(t reflect.Type) FieldKind {
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int8, reflect.Uint8:
		return KindByte
	case reflect.Int16, reflect.Uint16:
		return KindShort
	case reflect.Int32, reflect.Uint32:
		return KindInt
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		return KindLong
	case reflect.Float32:
		return KindFloat
	case reflect.Float64:
		return KindDouble
	default:
		return KindReference
	}
}

// tagChar marks a field as a "char" (16-bit code unit) rather than a short;
// Go has no distinct rune-sized char type, so this is driven entirely by
// the `objectwire:"char"` struct tag.
const tagChar = "char"

// parseTag splits a struct tag's comma-separated flag list.
func parseTag(tag string) map[string]bool {
	flags := make(map[string]bool)
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			flags[part] = true
		}
	}

	return flags
}

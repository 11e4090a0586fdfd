package classmeta

import (
	"reflect"
	"sync"
)

// Cache is the process-wide class metadata cache spec.md §4.8 describes: a
// read-mostly map from reflect.Type to *ClassDescriptor, built lazily and
// never mutated after insertion. sync.Map gives concurrent readers a
// lock-free path; the rare insert race is resolved by LoadOrStore, so two
// goroutines racing to build the same type's descriptor both succeed and
// agree on the winner without a separate gate.
type Cache struct {
	descriptors sync.Map // reflect.Type -> *ClassDescriptor
	reflector   Reflector
	enums       sync.Map // reflect.Type -> []string
	names       sync.Map // string (ClassDescriptor.Name) -> reflect.Type
}

// NewCache returns a cache that derives descriptors via reflector.
func NewCache(reflector Reflector) *Cache {
	return &Cache{reflector: reflector}
}

// DefaultCache is the package-wide cache used when no Configuration
// supplies its own, analogous to encoding/gob's shared type registry.
var DefaultCache = NewCache(DefaultReflector{})

// init registers on DefaultCache the builtin types a reader must be able
// to resolve purely from their OBJECT/ENUM class-name string, with no
// prior field-level type information to fall back on (e.g. a string
// boxed into an interface-typed field). Pre-registering them means a
// fresh process can decode them without an explicit Cache.Register call,
// mirroring how encoding/gob pre-registers its own primitive types.
func init() {
	for _, t := range []reflect.Type{
		reflect.TypeFor[string](),
		reflect.TypeFor[bool](),
		reflect.TypeFor[int32](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[float32](),
		reflect.TypeFor[float64](),
	} {
		_ = DefaultCache.Register(t)
	}
}

// RegisterEnum declares t's "oneOf" value set, enabling ENUM tag encoding
// for fields of that type (spec.md §4.1 ENUM tag).
func (c *Cache) RegisterEnum(t reflect.Type, values []string) {
	cp := make([]string, len(values))
	copy(cp, values)
	c.enums.Store(t, cp)
}

// Get returns t's class descriptor, building it on first use.
func (c *Cache) Get(t reflect.Type) (*ClassDescriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if v, ok := c.descriptors.Load(t); ok {
		return v.(*ClassDescriptor), nil
	}

	desc, err := c.build(t)
	if err != nil {
		return nil, err
	}

	actual, _ := c.descriptors.LoadOrStore(t, desc)
	c.names.LoadOrStore(desc.Name, t)

	return actual.(*ClassDescriptor), nil
}

// Register pre-builds t's descriptor and makes it resolvable by name via
// TypeByName, the way encoding/gob.Register lets a reader recognise a
// concrete type it only ever sees spelled out as a string on the wire
// (OBJECT/ENUM class names). A process that both writes and reads streams
// populates this mapping for free as Get is called on the write side; a
// read-only process must call Register explicitly for every concrete type
// it expects to decode.
func (c *Cache) Register(t reflect.Type) error {
	_, err := c.Get(t)

	return err
}

// TypeByName returns the concrete type previously resolved (via Get or
// Register) under the given class-descriptor name.
func (c *Cache) TypeByName(name string) (reflect.Type, bool) {
	v, ok := c.names.Load(name)
	if !ok {
		return nil, false
	}

	return v.(reflect.Type), true
}

func (c *Cache) build(t reflect.Type) (*ClassDescriptor, error) {
	fields, err := c.reflector.Fields(t)
	if err != nil {
		return nil, err
	}

	sortFields(fields)

	compatInfo := c.reflector.CompatInfo(t)

	desc := &ClassDescriptor{
		Type:       t,
		Name:       qualifiedName(t),
		Fields:     fields,
		CompatInfo: compatInfo,
		Flags: ClassFlags{
			Externalizable: c.reflector.Externalizable(t),
			CompatibleMode: len(compatInfo) > 0,
		},
	}
	desc.ReadResolve = c.reflector.ReadResolveHook(t)
	if values, ok := c.enums.Load(t); ok {
		desc.EnumValues = values.([]string)
	}

	return desc, nil
}

// EnumValues returns t's registered "oneOf" set, if any.
func (c *Cache) EnumValues(t reflect.Type) ([]string, bool) {
	v, ok := c.enums.Load(t)
	if !ok {
		return nil, false
	}

	return v.([]string), true
}

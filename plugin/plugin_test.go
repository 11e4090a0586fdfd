package plugin

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSerializer struct{ alwaysCopy bool }

func (s stubSerializer) WriteObject(WriteContext, any) error              { return nil }
func (s stubSerializer) ReadObject(ReadContext, any) error                { return nil }
func (s stubSerializer) Instantiate(reflect.Type, ReadContext, int) (any, bool) {
	return nil, false
}
func (s stubSerializer) AlwaysCopy() bool    { return s.alwaysCopy }
func (s stubSerializer) CrossLanguage() bool { return false }

type concreteA struct{}
type concreteB struct{}

func TestTable_RegisterAndLookup(t *testing.T) {
	tbl := NewTable()
	s := stubSerializer{alwaysCopy: true}
	tbl.Register(reflect.TypeOf(concreteA{}), s)

	got, ok := tbl.Lookup(reflect.TypeOf(concreteA{}))
	require.True(t, ok)
	assert.True(t, got.AlwaysCopy())

	_, ok = tbl.Lookup(reflect.TypeOf(concreteB{}))
	assert.False(t, ok)
}

func TestTable_Delegate(t *testing.T) {
	tbl := NewTable()
	s := stubSerializer{}
	tbl.Register(reflect.TypeOf(concreteA{}), s)
	tbl.SetDelegate(func(t reflect.Type) (reflect.Type, bool) {
		if t == reflect.TypeOf(concreteB{}) {
			return reflect.TypeOf(concreteA{}), true
		}

		return nil, false
	})

	got, ok := tbl.Lookup(reflect.TypeOf(concreteB{}))
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestTable_Clone_Independent(t *testing.T) {
	base := NewTable()
	base.Register(reflect.TypeOf(concreteA{}), stubSerializer{})

	clone := base.Clone()
	clone.Register(reflect.TypeOf(concreteB{}), stubSerializer{})

	_, ok := base.Lookup(reflect.TypeOf(concreteB{}))
	assert.False(t, ok, "registering on the clone must not affect the base table")

	_, ok = clone.Lookup(reflect.TypeOf(concreteA{}))
	assert.True(t, ok, "clone should still see entries copied from base")
}

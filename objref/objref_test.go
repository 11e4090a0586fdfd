package objref

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct{ V int }

func TestWriteRegistry_RegisterAndLookup(t *testing.T) {
	r := NewWriteRegistry()
	n := &node{V: 1}
	v := reflect.ValueOf(n)

	_, ok := r.Lookup(v)
	assert.False(t, ok)

	r.Register(v, 42)
	pos, ok := r.Lookup(v)
	require.True(t, ok)
	assert.Equal(t, 42, pos)
}

func TestWriteRegistry_DistinctPointersDistinctIdentity(t *testing.T) {
	r := NewWriteRegistry()
	a := &node{V: 1}
	b := &node{V: 1} // structurally equal, distinct identity

	r.Register(reflect.ValueOf(a), 1)
	_, ok := r.Lookup(reflect.ValueOf(b))
	assert.False(t, ok)
}

func TestWriteRegistry_Reset(t *testing.T) {
	r := NewWriteRegistry()
	n := &node{}
	r.Register(reflect.ValueOf(n), 7)
	r.Reset()

	_, ok := r.Lookup(reflect.ValueOf(n))
	assert.False(t, ok)
}

func TestIdentity_ValueStructHasNoIdentity(t *testing.T) {
	_, ok := Identity(reflect.ValueOf(node{V: 1}))
	assert.False(t, ok, "flat value types carry no identity key")
}

func TestIdentity_NilPointerHasNoIdentity(t *testing.T) {
	var n *node
	_, ok := Identity(reflect.ValueOf(n))
	assert.False(t, ok)
}

func TestReadRegistry_RegisterResolve(t *testing.T) {
	r := NewReadRegistry()
	inst := &node{V: 9}
	r.Register(5, inst)

	got, ok := r.Resolve(5)
	require.True(t, ok)
	assert.Same(t, inst, got)
}

func TestReadRegistry_Replace(t *testing.T) {
	r := NewReadRegistry()
	orig := &node{V: 1}
	sub := &node{V: 2}
	r.Register(3, orig)
	r.Replace(3, sub)

	got, ok := r.Resolve(3)
	require.True(t, ok)
	assert.Same(t, sub, got)
}

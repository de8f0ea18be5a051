// Package anyobject provides a type-checked container for values of any
// type, and a keyed store built on it for host and interpreter state.
//
// An Object remembers the dynamic type it was built from. Get only hands the
// value back when asked for exactly that type:
//
//	o := anyobject.New(vm.I32(7))
//	v, ok := anyobject.Get[vm.Value](o)   // v == I32(7), ok == true
//	_, ok = anyobject.Get[int32](o)       // ok == false
package anyobject

import (
	"fmt"
	"reflect"
	"sort"
)

// Object is an opaque handle to a value of any type.
type Object struct {
	typ   reflect.Type
	value any
}

// New wraps v. The zero Object holds nothing.
func New[T any](v T) Object {
	return Object{typ: reflect.TypeFor[T](), value: v}
}

// Get returns the wrapped value if o was built from a T.
func Get[T any](o Object) (T, bool) {
	var zero T
	if o.typ == nil || o.typ != reflect.TypeFor[T]() {
		return zero, false
	}
	v, ok := o.value.(T)
	if !ok {
		// nil interface values stored under an interface type
		return zero, o.value == nil
	}
	return v, true
}

// Type returns the type o was built from, or nil for the zero Object.
func (o Object) Type() reflect.Type {
	return o.typ
}

// IsZero reports whether o holds nothing.
func (o Object) IsZero() bool {
	return o.typ == nil
}

// String describes the stored value for debugging.
func (o Object) String() string {
	if o.typ == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%s(%v)", o.typ, o.value)
}

// Store maps string keys to Objects. It is not safe for concurrent use; like
// the engine that owns it, it belongs to one goroutine.
type Store struct {
	items map[string]Object
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]Object)}
}

// Set stores v under key, replacing any previous value of any type.
func Set[T any](s *Store, key string, v T) {
	s.items[key] = New(v)
}

// Lookup returns the value under key if it exists and was stored as a T.
func Lookup[T any](s *Store, key string) (T, bool) {
	o, ok := s.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return Get[T](o)
}

// Object returns the raw handle stored under key.
func (s *Store) Object(key string) (Object, bool) {
	o, ok := s.items[key]
	return o, ok
}

// Delete removes key.
func (s *Store) Delete(key string) {
	delete(s.items, key)
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return len(s.items)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

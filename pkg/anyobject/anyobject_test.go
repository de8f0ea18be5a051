package anyobject

import (
	"errors"
	"reflect"
	"testing"
)

type point struct{ X, Y int }

func TestGet_MatchingType(t *testing.T) {
	o := New(point{1, 2})

	p, ok := Get[point](o)
	if !ok {
		t.Fatal("expected Get to succeed")
	}
	if p != (point{1, 2}) {
		t.Errorf("expected {1 2}, got %v", p)
	}
	if o.Type() != reflect.TypeOf(point{}) {
		t.Errorf("unexpected type %v", o.Type())
	}
}

func TestGet_WrongType(t *testing.T) {
	o := New(int32(7))

	if _, ok := Get[int64](o); ok {
		t.Error("expected int64 lookup of int32 to fail")
	}
	if _, ok := Get[any](o); ok {
		t.Error("expected any lookup of int32 to fail")
	}
	if v, ok := Get[int32](o); !ok || v != 7 {
		t.Errorf("expected 7, got %v %v", v, ok)
	}
}

func TestGet_NilInterface(t *testing.T) {
	var err error
	o := New(err)

	got, ok := Get[error](o)
	if !ok {
		t.Fatal("expected nil error to come back")
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	o = New[error](errors.New("boom"))
	if got, ok := Get[error](o); !ok || got.Error() != "boom" {
		t.Errorf("expected boom, got %v %v", got, ok)
	}
}

func TestObject_Zero(t *testing.T) {
	var o Object
	if !o.IsZero() {
		t.Error("expected zero object")
	}
	if o.Type() != nil {
		t.Errorf("expected nil type, got %v", o.Type())
	}
	if _, ok := Get[int](o); ok {
		t.Error("expected Get on zero object to fail")
	}
	if o.String() != "<empty>" {
		t.Errorf("unexpected string %q", o.String())
	}
	if New(3).IsZero() {
		t.Error("expected wrapped value to be non-zero")
	}
}

func TestObject_String(t *testing.T) {
	if got := New(uint8(9)).String(); got != "uint8(9)" {
		t.Errorf("expected uint8(9), got %q", got)
	}
}

func TestStore_SetLookup(t *testing.T) {
	s := NewStore()
	Set(s, "a", []int{1, 2})
	Set(s, "b", "text")

	if s.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", s.Len())
	}
	if v, ok := Lookup[[]int](s, "a"); !ok || len(v) != 2 {
		t.Errorf("unexpected lookup result %v %v", v, ok)
	}
	if _, ok := Lookup[int](s, "b"); ok {
		t.Error("expected wrong-type lookup to fail")
	}
	if _, ok := Lookup[string](s, "missing"); ok {
		t.Error("expected missing key to fail")
	}
}

func TestStore_Replace(t *testing.T) {
	s := NewStore()
	Set(s, "k", 1)
	Set(s, "k", "one")

	if _, ok := Lookup[int](s, "k"); ok {
		t.Error("expected old value to be replaced")
	}
	if v, _ := Lookup[string](s, "k"); v != "one" {
		t.Errorf("expected one, got %q", v)
	}
	o, ok := s.Object("k")
	if !ok || o.Type().Kind() != reflect.String {
		t.Errorf("unexpected object %v", o)
	}
}

func TestStore_DeleteAndKeys(t *testing.T) {
	s := NewStore()
	for _, k := range []string{"c", "a", "b"} {
		Set(s, k, k)
	}
	s.Delete("b")
	s.Delete("nope")

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("expected [a c], got %v", keys)
	}
	if _, ok := s.Object("b"); ok {
		t.Error("expected b to be deleted")
	}
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"testing"

	"github.com/grailbio/gradual/intrange"
)

func TestNormalizeBuiltins(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{User("term"), "term()"},
		{User("boolean"), "false | true"},
		{User("byte"), "0..255"},
		{User("number"), "integer() | float()"},
		{User("string"), "[char()]"},
		{User("nonempty_string"), "[char(), ...]"},
		{User("timeout"), "infinity | non_neg_integer()"},
		{User("identifier"), "pid() | port() | reference()"},
		{User("list"), "[any()]"},
		{User("list", User("byte")), "[0..255]"},
		{User("mfa"), "{atom(), atom(), 0..255}"},
		{User("binary"), "<<_:_*8>>"},
		{User("module"), "atom()"},
	} {
		if got, want := Normalize(e, c.typ).String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestNormalizeUnion(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{Union(Atom, Union(Atom, Integer)), "atom() | integer()"},
		{Union(Range(intrange.Between(1, 5)), Range(intrange.Between(6, 10))), "1..10"},
		{Union(IntLit(1), IntLit(2)), "1..2"},
		{Union(IntLit(1), IntLit(3)), "1 | 3"},
		{Union(NegInteger, NonNegInteger), "integer()"},
		{Union(None, Atom), "atom()"},
		{Union(Any, Atom), "any()"},
		{Union(Top, Atom), "term()"},
		{Union(Atom, AtomLit("x")), "atom()"},
		{Union(AtomLit("b"), AtomLit("a")), "a | b"},
		{Union(Nil, NonemptyList(Atom)), "[atom()]"},
		{Union(Float, IntLit(3)), "3 | float()"},
		{Union(), "none()"},
		{Union(Integer), "integer()"},
	} {
		if got, want := Normalize(e, c.typ).String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	e := testEnv()
	e.Limit = 3
	u := Union(AtomLit("a"), AtomLit("b"), AtomLit("c"), AtomLit("d"))
	if got, want := Normalize(e, u).String(), "any()"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	u = Union(AtomLit("a"), AtomLit("b"), AtomLit("c"))
	if got, want := Normalize(e, u).String(), "a | b | c"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{Range(intrange.Between(5, 3)), "none()"},
		{Range(intrange.Between(5, 5)), "5"},
		{Range(intrange.Full), "integer()"},
		{Range(intrange.AtLeast(1)), "pos_integer()"},
		{Tuple(Atom, None), "none()"},
		{List(None), "[]"},
		{NonemptyList(None), "none()"},
		{Map(&Assoc{Mandatory: true, Key: AtomLit("k"), Val: None}), "none()"},
		{Map(&Assoc{Key: AtomLit("k"), Val: None}), "#{}"},
		{Record("point", &Field{Name: "x", T: None}), "none()"},
	} {
		if got, want := Normalize(e, c.typ).String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestNormalizeUser(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{User("id"), "atom()"},
		{User("pair", Integer), "{integer(), integer()}"},
		{User("pair", User("id")), "{atom(), atom()}"},
		{User("tree"), "leaf | {node, a:tree(), a:tree()}"},
		{Remote("b", "pub"), "error | ok"},
		{Remote("b", "queue", Integer), "b:queue(integer())"},
		{User("priv"), "atom()"},
	} {
		if got, want := Normalize(e, c.typ).String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	// In its defining module, an opaque unfolds.
	be := NewEnv("b", testEnv().resolver)
	if got, want := Normalize(be, User("queue", Integer)).String(), "[integer()]"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	// Unknown and private types surface as error types.
	if typ := Normalize(e, User("nosuch")); typ.Kind != ErrorKind {
		t.Errorf("got %v, want error type", typ)
	}
	if typ := Normalize(e, Remote("b", "priv")); typ.Kind != ErrorKind {
		t.Errorf("got %v, want error type", typ)
	}
	if typ := Normalize(e, Remote("b", "nosuch")); typ.Kind != ErrorKind {
		t.Errorf("got %v, want error type", typ)
	}
}

func TestNormalizeRecord(t *testing.T) {
	e := testEnv()
	if got, want := Normalize(e, Record("point")).String(), "#point{}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// A refinement equal to the declaration drops.
	r := Normalize(e, Record("point", &Field{Name: "x", T: Integer}))
	if got, want := r.String(), "#point{}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	r = Normalize(e, Record("point", &Field{Name: "y", T: IntLit(3)}, &Field{Name: "x", T: IntLit(2)}))
	if got, want := r.String(), "#point{x :: 2, y :: 3}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if typ := Normalize(e, Record("nosuch")); typ.Kind != ErrorKind {
		t.Errorf("got %v, want error type", typ)
	}
	if typ := Normalize(e, Record("point", &Field{Name: "z", T: Atom})); typ.Kind != ErrorKind {
		t.Errorf("got %v, want error type", typ)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	e := testEnv()
	for _, typ := range []*T{
		User("boolean"),
		User("iolist"),
		User("iodata"),
		User("tree"),
		Remote("b", "queue", User("tree")),
		Union(Nil, NonemptyList(Atom), Range(intrange.Between(0, 9))),
		Record("point", &Field{Name: "x", T: User("byte")}),
		Fun([]*T{User("number")}, User("string")),
	} {
		once := Normalize(e, typ)
		twice := Normalize(e, once)
		if !once.Equal(twice) {
			t.Errorf("got %v, want %v", twice, once)
		}
	}
}

func TestNormalizePositions(t *testing.T) {
	e := testEnv()
	pos := scannerPos("m.erl", 7, 1)
	typ := Normalize(e, At(pos, Tuple(At(pos, Atom), At(pos, Integer))))
	if typ.Pos.IsValid() {
		t.Errorf("position survived normalization")
	}
	for _, m := range typ.Elems {
		if m.Pos.IsValid() {
			t.Errorf("element position survived normalization")
		}
	}
}

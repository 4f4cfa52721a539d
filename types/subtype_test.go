// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"testing"

	"github.com/grailbio/gradual/intrange"
)

func TestSubtype(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		t, u *T
		want bool
	}{
		// Gradual axioms.
		{Any, Integer, true},
		{Integer, Any, true},
		{Integer, Top, true},
		{Top, Integer, false},
		{None, Integer, true},
		{Integer, None, false},

		// Integers.
		{Range(intrange.Between(1, 10)), Integer, true},
		{Integer, Range(intrange.Between(1, 10)), false},
		{IntLit(42), Range(intrange.Between(40, 50)), true},
		{IntLit(42), PosInteger, true},
		{IntLit(-1), PosInteger, false},
		{IntLit(-1), NegInteger, true},
		{Char, Integer, true},
		{PosInteger, NonNegInteger, true},
		{NonNegInteger, PosInteger, false},

		// Atoms.
		{AtomLit("a"), Atom, true},
		{Atom, AtomLit("a"), false},
		{AtomLit("a"), AtomLit("b"), false},

		// Unions.
		{AtomLit("a"), Normalize(e, Union(AtomLit("a"), AtomLit("b"))), true},
		{Normalize(e, Union(AtomLit("a"), AtomLit("b"))), Atom, true},
		{Atom, Normalize(e, Union(AtomLit("a"), AtomLit("b"))), false},
		{Bool, Atom, true},

		// Tuples and records.
		{Tuple(IntLit(1), AtomLit("a")), Tuple(Integer, Atom), true},
		{Tuple(Integer, Atom), Tuple(IntLit(1), AtomLit("a")), false},
		{Tuple(Atom), AnyTuple, true},
		{AnyTuple, Tuple(Atom), false},
		{Tuple(Atom), Tuple(Atom, Atom), false},
		{Normalize(e, Record("point")), AnyTuple, true},
		{Normalize(e, Record("point")), Tuple(Atom, Integer, Integer), true},
		{Tuple(AtomLit("point"), IntLit(1), IntLit(2)), Normalize(e, Record("point")), true},
		{Tuple(AtomLit("pixel"), IntLit(1), IntLit(2)), Normalize(e, Record("point")), false},
		{Normalize(e, Record("point", &Field{Name: "x", T: IntLit(1)})), Normalize(e, Record("point")), true},
		{Normalize(e, Record("point")), Normalize(e, Record("point", &Field{Name: "x", T: IntLit(1)})), false},

		// Lists.
		{Nil, List(Integer), true},
		{NonemptyList(Integer), List(Integer), true},
		{List(Integer), NonemptyList(Integer), false},
		{List(Range(intrange.Between(1, 5))), List(Integer), true},
		{Nil, NonemptyList(Integer), false},
		{List(Integer), Normalize(e, User("iolist")), false},
		{List(Range(intrange.Between(0, 255))), Normalize(e, User("iolist")), true},

		// Funs: contravariant arguments, covariant results.
		{Fun([]*T{Integer}, AtomLit("a")), Fun([]*T{Range(intrange.Between(1, 5))}, Atom), true},
		{Fun([]*T{Range(intrange.Between(1, 5))}, Atom), Fun([]*T{Integer}, AtomLit("a")), false},
		{Fun([]*T{Integer}, Atom), Fun([]*T{Integer, Integer}, Atom), false},
		{Fun([]*T{Integer}, Atom), AnyFun, true},
		{AnyFun, Fun([]*T{Integer}, Atom), true},
		{Fun([]*T{Integer}, AtomLit("a")), AnyArityFun(Atom), true},
		{Fun([]*T{Integer}, Atom), AnyArityFun(AtomLit("a")), false},

		// Maps.
		{Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}),
			Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}, &Assoc{Key: AtomLit("b"), Val: Atom}), true},
		{Map(),
			Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}), false},
		{Map(),
			Map(&Assoc{Key: AtomLit("a"), Val: Integer}), true},
		{Map(&Assoc{Key: AtomLit("a"), Val: Range(intrange.Between(1, 5))}),
			Map(&Assoc{Key: AtomLit("a"), Val: Integer}), true},
		{AnyMap, Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}), true},
		{Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}), AnyMap, true},
		{Map(&Assoc{Key: AtomLit("a"), Val: Integer}),
			Map(), false},
		{Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: Integer}),
			AnyMap, true},

		// Bitstrings.
		{Binary, Bitstring, true},
		{Bitstring, Binary, false},
		{Bin(16, 0), Binary, true},
		{Bin(8, 0), Bin(16, 0), false},
		{Bin(16, 8), Bin(0, 8), true},
		{Bin(0, 8), Bin(16, 8), false},

		// Cross-kind.
		{Integer, Float, false},
		{Atom, Integer, false},
		{Pid, Reference, false},
	} {
		if _, got := Subtype(e, c.t, c.u); got != c.want {
			t.Errorf("%v <: %v: got %v, want %v", c.t, c.u, got, c.want)
		}
	}
}

// A pair that fails while one union member is probed must not be
// taken as settled when the same pair recurs elsewhere.
func TestSubtypeRevisit(t *testing.T) {
	e := testEnv()
	// true <: false fails inside the boolean() probe; the second
	// element asks the same pair again and must fail again.
	if Compatible(e, Tuple(True, True), Tuple(Bool, False)) {
		t.Error("{true, true} accepted at {boolean(), false}")
	}
	if !Compatible(e, Tuple(True, True), Tuple(Bool, True)) {
		t.Error("{true, true} rejected at {boolean(), true}")
	}
}

func TestSubtypeRecursive(t *testing.T) {
	e := testEnv()
	tree := Normalize(e, User("tree"))
	tree2 := Normalize(e, User("tree2"))
	if !Compatible(e, tree, tree2) {
		t.Errorf("%v is a subtype of %v", tree, tree2)
	}
	if !Compatible(e, tree2, tree) {
		t.Errorf("%v is a subtype of %v", tree2, tree)
	}
	wider := Normalize(e, Union(AtomLit("leaf"), AnyTuple))
	if !Compatible(e, tree, wider) {
		t.Errorf("%v is a subtype of %v", tree, wider)
	}
	if Compatible(e, wider, tree) {
		t.Errorf("%v is not a subtype of %v", wider, tree)
	}
}

// A private recursive type folds within its own module and must
// unfold on comparison like an exported one.
func TestSubtypeRecursivePrivate(t *testing.T) {
	e := testEnv()
	ptree := Normalize(e, User("ptree"))
	tree := Normalize(e, User("tree"))
	if !Compatible(e, ptree, tree) {
		t.Errorf("%v is a subtype of %v", ptree, tree)
	}
	if !Compatible(e, tree, ptree) {
		t.Errorf("%v is a subtype of %v", tree, ptree)
	}
}

func TestSubtypeOpaque(t *testing.T) {
	e := testEnv()
	qi := Normalize(e, Remote("b", "queue", Integer))
	qr := Normalize(e, Remote("b", "queue", Range(intrange.Between(1, 5))))
	if !Compatible(e, qi, qi) {
		t.Errorf("%v is a subtype of itself", qi)
	}
	// Opaque arguments are invariant.
	if Compatible(e, qr, qi) {
		t.Errorf("%v is not a subtype of %v", qr, qi)
	}
	// Opacity hides the representation.
	if Compatible(e, qi, List(Integer)) {
		t.Errorf("%v must not expose its representation", qi)
	}
	// The defining module sees through.
	be := NewEnv("b", testEnv().resolver)
	if !Compatible(be, Normalize(be, User("queue", Integer)), List(Integer)) {
		t.Errorf("defining module must see the representation")
	}
}

func TestSubtypeVars(t *testing.T) {
	e := testEnv()
	cs, ok := Subtype(e, Var("T"), Integer)
	if !ok || len(cs) != 1 || !cs[0].Upper || cs[0].Var != "T" {
		t.Errorf("got %v, %v; want upper bound on T", cs, ok)
	}
	cs, ok = Subtype(e, IntLit(5), Var("T"))
	if !ok || len(cs) != 1 || cs[0].Upper || cs[0].Var != "T" {
		t.Errorf("got %v, %v; want lower bound on T", cs, ok)
	}
	cs, ok = Subtype(e, Tuple(Var("T"), Var("U")), Tuple(Integer, Atom))
	if !ok || len(cs) != 2 {
		t.Errorf("got %v, %v; want two constraints", cs, ok)
	}
}

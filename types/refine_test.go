// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"testing"

	"github.com/grailbio/gradual/intrange"
)

func TestDiff(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		t, u *T
		want string
	}{
		{Bool, True, "false"},
		{Bool, False, "true"},
		{Bool, Atom, "none()"},
		{Atom, AtomLit("a"), "atom()"},
		{Integer, Range(intrange.Between(1, 10)), "..0 | 11.."},
		{Range(intrange.Between(1, 10)), Range(intrange.Between(3, 5)), "1..2 | 6..10"},
		{Range(intrange.Between(1, 10)), Integer, "none()"},
		{NonNegInteger, IntLit(0), "pos_integer()"},
		{Char, Range(intrange.Between(0, 0x10ffff)), "none()"},
		{Integer, Float, "integer()"},
		{Any, True, "any()"},
		{Atom, Top, "none()"},
		{List(Bool), Nil, "[false | true, ...]"},
		{List(Bool), NonemptyList(Any), "[]"},
		{List(Bool), NonemptyList(True), "[false | true]"},
		{Nil, NonemptyList(Any), "[]"},
		{List(Bool), List(Any), "none()"},
	} {
		if got, want := Diff(e, c.t, c.u).String(), c.want; got != want {
			t.Errorf("diff(%v, %v): got %v, want %v", c.t, c.u, got, c.want)
		}
	}
}

func TestDiffUnchanged(t *testing.T) {
	e := testEnv()
	// Subtractions that cannot refine return the subject itself.
	if got := Diff(e, Atom, AtomLit("x")); got != Atom {
		t.Errorf("got %v, want the original atom()", got)
	}
	subj := Tuple(Bool, Atom)
	if got := Diff(e, subj, Tuple(True, AtomLit("a"))); got != subj {
		t.Errorf("got %v, want the original %v", got, subj)
	}
}

func TestDiffTuple(t *testing.T) {
	e := testEnv()
	subj := Tuple(Bool, Bool)
	resid := Diff(e, subj, Tuple(True, True))
	// {true, true} removed: escape in the first or second position.
	for _, covered := range []*T{Tuple(False, True), Tuple(False, False), Tuple(True, False)} {
		if !Compatible(e, covered, resid) {
			t.Errorf("%v not in residual %v", covered, resid)
		}
	}
	if Compatible(e, Tuple(True, True), resid) {
		t.Errorf("{true, true} still in residual %v", resid)
	}
	resid = Diff(e, resid, Tuple(False, Bool))
	resid = Diff(e, resid, Tuple(True, False))
	if resid.Kind != NoneKind {
		t.Errorf("got %v, want none()", resid)
	}
}

func TestDiffUnion(t *testing.T) {
	e := testEnv()
	subj := Normalize(e, Union(Bool, Range(intrange.Between(1, 3))))
	resid := Diff(e, subj, True)
	resid = Diff(e, resid, IntLit(2))
	if got, want := resid.String(), "false | 1 | 3"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	resid = Diff(e, resid, False)
	resid = Diff(e, resid, Range(intrange.Between(1, 3)))
	if resid.Kind != NoneKind {
		t.Errorf("got %v, want none()", resid)
	}
}

func TestDiffRecord(t *testing.T) {
	e := testEnv()
	subj := Normalize(e, Record("flag"))
	resid := Diff(e, subj, Normalize(e, Record("flag", &Field{Name: "on", T: True})))
	if got, want := resid.String(), "#flag{on :: false}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	resid = Diff(e, resid, Normalize(e, Record("flag", &Field{Name: "on", T: False})))
	if resid.Kind != NoneKind {
		t.Errorf("got %v, want none()", resid)
	}
	// Tuple patterns refine records too.
	resid = Diff(e, subj, Tuple(Atom, False))
	if got, want := resid.String(), "#flag{on :: true}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDiffMap(t *testing.T) {
	e := testEnv()
	subj := Normalize(e, Map(&Assoc{Key: AtomLit("a"), Val: Bool}))
	resid := Diff(e, subj, Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: True}))
	// Maps without the key, or with the other value, remain.
	if !Compatible(e, Map(), resid) {
		t.Errorf("#{} not in residual %v", resid)
	}
	if !Compatible(e, Normalize(e, Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: False})), resid) {
		t.Errorf("#{a := false} not in residual %v", resid)
	}
	resid = Diff(e, resid, Map(&Assoc{Mandatory: true, Key: AtomLit("a"), Val: False}))
	if got, want := resid.String(), "#{}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	resid = Diff(e, resid, Normalize(e, AnyMap))
	if resid.Kind != NoneKind {
		t.Errorf("got %v, want none()", resid)
	}
}

func TestDiffRecursive(t *testing.T) {
	e := testEnv()
	tree := Normalize(e, User("tree"))
	resid := Diff(e, tree, AtomLit("leaf"))
	if got, want := resid.String(), "{node, a:tree(), a:tree()}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	resid = Diff(e, resid, AnyTuple)
	if resid.Kind != NoneKind {
		t.Errorf("got %v, want none()", resid)
	}
}

func TestRefinable(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want bool
	}{
		{Bool, true},
		{IntLit(1), true},
		{Integer, true},
		{Range(intrange.Between(1, 5)), true},
		{Nil, true},
		{List(Bool), true},
		{Tuple(Bool, IntLit(1)), true},
		{Normalize(e, Record("point")), true},
		{Normalize(e, Record("flag")), true},
		{Normalize(e, Map(&Assoc{Key: AtomLit("k"), Val: Bool})), true},
		{Normalize(e, User("tree")), true},
		{Atom, true},
		{List(Atom), true},
		{Float, false},
		{Any, false},
		{Top, false},
		{Var("T"), false},
		{AnyTuple, false},
		{AnyFun, false},
		{Pid, false},
		{Binary, false},
		{List(Atom), false},
		{Tuple(Bool, Atom), false},
		{Normalize(e, AnyMap), false},
		{Normalize(e, Remote("b", "queue", Bool)), false},
	} {
		if got := Refinable(e, c.typ); got != c.want {
			t.Errorf("refinable(%v): got %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestExample(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{Bool, "false"},
		{True, "true"},
		{IntLit(-3), "-3"},
		{Range(intrange.AtLeast(5)), "5"},
		{Range(intrange.AtMost(5)), "5"},
		{NegInteger, "-1"},
		{Tuple(True, IntLit(3)), "{true, 3}"},
		{Nil, "[]"},
		{List(Bool), "[]"},
		{NonemptyList(False), "[false]"},
		{Normalize(e, Record("point")), "#point{}"},
		{Normalize(e, Map(&Assoc{Mandatory: true, Key: AtomLit("k"), Val: IntLit(1)})), "#{k => 1}"},
		{Binary, "<<>>"},
		{Bin(8, 0), "<<0:8>>"},
		{Any, "_"},
	} {
		if got, want := Example(e, c.typ), c.want; got != want {
			t.Errorf("example(%v): got %v, want %v", c.typ, got, c.want)
		}
	}
}

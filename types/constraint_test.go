// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"reflect"
	"testing"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/intrange"
)

func TestSolve(t *testing.T) {
	e := testEnv()
	for _, c := range []struct {
		cs   Constraints
		want map[string]string
	}{
		{Lower("T", IntLit(5)), map[string]string{"T": "5"}},
		{
			Combine(Lower("T", IntLit(1)), Lower("T", Range(intrange.Between(3, 5)))),
			map[string]string{"T": "1 | 3..5"},
		},
		{
			Combine(Upper("T", Bool), Upper("T", True)),
			map[string]string{"T": "true"},
		},
		{
			// Lower bounds win over upper bounds.
			Combine(Lower("T", True), Upper("T", Bool)),
			map[string]string{"T": "true"},
		},
		{Upper("T", Top), map[string]string{"T": "any()"}},
		{
			Combine(Lower("A", Atom), Upper("B", Integer)),
			map[string]string{"A": "atom()", "B": "integer()"},
		},
		{nil, map[string]string{}},
	} {
		sub := c.cs.Solve(e)
		got := make(map[string]string)
		for v, typ := range sub {
			got[v] = typ.String()
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("solve %v: got %v, want %v", c.cs, got, c.want)
		}
	}
}

func TestConstraintVars(t *testing.T) {
	cs := Combine(Upper("B", Atom), Lower("A", Integer), Lower("B", True))
	if got, want := cs.Vars(), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if Combine(nil, nil) != nil {
		t.Error("combining empty constraint sets must stay nil")
	}
}

func TestSubst(t *testing.T) {
	sub := map[string]*T{"A": Integer, "B": Atom}
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{Var("A"), "integer()"},
		{Var("C"), "C"},
		{Tuple(Var("A"), Var("B")), "{integer(), atom()}"},
		{List(Var("A")), "[integer()]"},
		{ImproperList(MaybeEmpty, Var("A"), Var("B")), "maybe_improper_list(integer(), atom())"},
		{Union(Var("A"), Float), "integer() | float()"},
		{Fun([]*T{Var("A")}, Var("A")), "fun((integer()) -> integer())"},
		{Map(&Assoc{Mandatory: true, Key: Var("A"), Val: Var("B")}), "#{integer() := atom()}"},
	} {
		if got, want := Subst(c.typ, sub).String(), c.want; got != want {
			t.Errorf("subst %v: got %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestSubstShadow(t *testing.T) {
	// A bounded fun binds its own variables; substitution must not
	// reach through the binder.
	inner := Fun([]*T{Var("A")}, Var("A"))
	inner.Bounds = []*Field{{Name: "A", T: Atom}}
	got := Subst(inner, map[string]*T{"A": Integer})
	if want := "fun((A) -> A when A :: atom())"; got.String() != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// Unbound variables inside the fun are still substituted.
	inner = Fun([]*T{Var("A"), Var("B")}, Var("B"))
	inner.Bounds = []*Field{{Name: "A", T: Atom}}
	got = Subst(inner, map[string]*T{"A": Integer, "B": Bool})
	if want := "fun((A, false | true) -> false | true when A :: atom())"; got.String() != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSolveBounds(t *testing.T) {
	e := testEnv()
	ft := Fun([]*T{Var("A"), Var("B")}, List(Var("A")))
	ft.Bounds = []*Field{
		{Name: "A", T: Integer},
		{Name: "B", T: List(Var("A"))},
	}
	got, err := SolveBounds(e, ft)
	if err != nil {
		t.Fatal(err)
	}
	if want := "fun((integer(), [integer()]) -> [integer()])"; got.String() != want {
		t.Errorf("got %v, want %v", got, want)
	}

	// Repeated bounds on one variable meet.
	ft = Fun([]*T{Var("A")}, Var("A"))
	ft.Bounds = []*Field{
		{Name: "A", T: Bool},
		{Name: "A", T: True},
	}
	got, err = SolveBounds(e, ft)
	if err != nil {
		t.Fatal(err)
	}
	if want := "fun((true) -> true)"; got.String() != want {
		t.Errorf("got %v, want %v", got, want)
	}

	// Unbounded funs pass through.
	ft = Fun([]*T{Atom}, Atom)
	got, err = SolveBounds(e, ft)
	if err != nil {
		t.Fatal(err)
	}
	if got != ft {
		t.Errorf("got %v, want the original fun", got)
	}
}

func TestSolveBoundsCyclic(t *testing.T) {
	e := testEnv()
	ft := Fun([]*T{Var("A"), Var("B")}, Var("A"))
	ft.Bounds = []*Field{
		{Name: "A", T: List(Var("B"))},
		{Name: "B", T: List(Var("A"))},
	}
	_, err := SolveBounds(e, ft)
	if err == nil {
		t.Fatal("cyclic bounds must fail")
	}
	if !errors.Is(errors.CyclicConstraint, err) {
		t.Errorf("got %v, want a cyclic constraint error", err)
	}
}

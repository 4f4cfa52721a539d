package types

import (
	"testing"

	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/intrange"
)

func scannerPos(file string, line, col int) scanner.Position {
	return scanner.Position{Filename: file, Line: line, Column: col}
}

func TestString(t *testing.T) {
	for _, c := range []struct {
		typ  *T
		want string
	}{
		{Any, "any()"},
		{Top, "term()"},
		{None, "none()"},
		{Atom, "atom()"},
		{AtomLit("ok"), "ok"},
		{AtomLit("OK"), "'OK'"},
		{AtomLit("hello world"), "'hello world'"},
		{IntLit(42), "42"},
		{IntLit(-1), "-1"},
		{Range(intrange.Between(1, 10)), "1..10"},
		{Range(intrange.AtLeast(5)), "5.."},
		{Range(intrange.AtMost(5)), "..5"},
		{NonNegInteger, "non_neg_integer()"},
		{Float, "float()"},
		{Union(False, True), "false | true"},
		{Tuple(Atom, Integer), "{atom(), integer()}"},
		{AnyTuple, "tuple()"},
		{Nil, "[]"},
		{List(Integer), "[integer()]"},
		{NonemptyList(Char), "[char(), ...]"},
		{ImproperList(MaybeEmpty, Integer, Binary), "maybe_improper_list(integer(), <<_:_*8>>)"},
		{Fun([]*T{Atom}, Bool), "fun((atom()) -> false | true)"},
		{Fun(nil, Atom), "fun(() -> atom())"},
		{AnyFun, "fun()"},
		{AnyArityFun(Atom), "fun((...) -> atom())"},
		{Map(&Assoc{Mandatory: true, Key: AtomLit("k"), Val: Integer}), "#{k := integer()}"},
		{Map(&Assoc{Key: Atom, Val: Top}), "#{atom() => term()}"},
		{Map(), "#{}"},
		{Record("point"), "#point{}"},
		{Record("point", &Field{Name: "x", T: IntLit(0)}), "#point{x :: 0}"},
		{User("tree"), "tree()"},
		{Remote("b", "queue", Integer), "b:queue(integer())"},
		{Var("Elem"), "Elem"},
		{Bin(0, 8), "<<_:_*8>>"},
		{Bin(4, 0), "<<_:4>>"},
		{Bin(4, 8), "<<_:4, _:_*8>>"},
		{Bin(0, 0), "<<>>"},
		{Pid, "pid()"},
		{Port, "port()"},
		{Reference, "reference()"},
	} {
		if got, want := c.typ.String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestEqual(t *testing.T) {
	pos := scannerPos("x.erl", 1, 2)
	if !At(pos, Atom).Equal(Atom) {
		t.Errorf("positions must not affect equality")
	}
	if Pid.Equal(Port) {
		t.Errorf("pid() = port()")
	}
	if Tuple(Atom).Equal(Tuple(Atom, Atom)) {
		t.Errorf("tuple arities conflated")
	}
	if Record("point").Equal(&T{Kind: RecordKind, Module: "b", Name: "point"}) {
		t.Errorf("record modules conflated")
	}
	if !List(Integer).Equal(List(Integer)) {
		t.Errorf("equal lists differ")
	}
	if List(Integer).Equal(NonemptyList(Integer)) {
		t.Errorf("list emptiness conflated")
	}
	if Map().Equal(AnyMap) {
		t.Errorf("empty map type conflated with map()")
	}
}

func TestDigest(t *testing.T) {
	pos := scannerPos("x.erl", 3, 4)
	types := []*T{
		Atom, Integer, AtomLit("a"), AtomLit("b"), IntLit(1),
		Tuple(Atom), Tuple(Atom, Atom), List(Atom), NonemptyList(Atom),
		ImproperList(MaybeEmpty, Atom, Integer),
		Union(False, True), AnyFun, AnyTuple, Bin(0, 8), Bin(0, 1),
		Map(), AnyMap, Record("point"), User("t"), Remote("m", "t"),
	}
	seen := make(map[string]*T)
	for _, typ := range types {
		d := typ.Digest().String()
		if prev, ok := seen[d]; ok {
			t.Errorf("%v and %v share a digest", prev, typ)
		}
		seen[d] = typ
	}
	if got, want := At(pos, Atom).Digest(), Atom.Digest(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if At(pos, Atom).Hash() != Atom.Hash() {
		t.Errorf("position changed hash")
	}
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package scanner

import "testing"

type tok struct {
	tok  rune
	text string
}

func scanAll(t *testing.T, src string) []tok {
	t.Helper()
	var s Scanner
	s.Error = func(pos Position, msg string) {
		t.Errorf("%s: %s", pos, msg)
	}
	s.Init("test.erl", []byte(src))
	var toks []tok
	for {
		r := s.Scan()
		if r == EOF {
			return toks
		}
		toks = append(toks, tok{r, s.TokenText()})
	}
}

func TestScan(t *testing.T) {
	got := scanAll(t, `-module(foo).
f(X) when X >= 0 -> {ok, X};
f(_) -> error.
`)
	want := []tok{
		{'-', "-"}, {Atom, "module"}, {'(', "("}, {Atom, "foo"}, {')', ")"}, {'.', "."},
		{Atom, "f"}, {'(', "("}, {Var, "X"}, {')', ")"}, {Atom, "when"},
		{Var, "X"}, {Ge, ">="}, {Int, "0"}, {Arrow, "->"},
		{'{', "{"}, {Atom, "ok"}, {',', ","}, {Var, "X"}, {'}', "}"}, {';', ";"},
		{Atom, "f"}, {'(', "("}, {Var, "_"}, {')', ")"}, {Arrow, "->"}, {Atom, "error"}, {'.', "."},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOperators(t *testing.T) {
	got := scanAll(t, `-> => := :: .. ... << >> =< >= == /= =:= =/= ++ -- || <- <= | = < >`)
	want := []rune{
		Arrow, DArrow, ColonEq, ColonColon, DotDot, Ellipsis, LtLt, GtGt,
		Le, Ge, EqEq, NotEq, ExactEq, ExactNotEq, PlusPlus, MinusMinus,
		BarBar, LArrow, BinGen, '|', '=', '<', '>',
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].tok != w {
			t.Errorf("token %d: got %s, want %s", i, TokenString(got[i].tok), TokenString(w))
		}
	}
}

func TestNumbers(t *testing.T) {
	var s Scanner
	s.Init("", []byte(`42 16#ff 2#1010 1_000_000 3.14 1.0e3 1.5e-2 $a $\n 7`))
	for _, c := range []struct {
		tok  rune
		ival int64
		fval float64
	}{
		{Int, 42, 0},
		{Int, 255, 0},
		{Int, 10, 0},
		{Int, 1000000, 0},
		{Float, 0, 3.14},
		{Float, 0, 1000},
		{Float, 0, 0.015},
		{Char, 'a', 0},
		{Char, '\n', 0},
		{Int, 7, 0},
	} {
		r := s.Scan()
		if r != c.tok {
			t.Fatalf("got token %s, want %s", TokenString(r), TokenString(c.tok))
		}
		switch r {
		case Int, Char:
			if s.IntVal() != c.ival {
				t.Errorf("%s: got %d, want %d", s.TokenText(), s.IntVal(), c.ival)
			}
		case Float:
			if s.FloatVal() != c.fval {
				t.Errorf("%s: got %v, want %v", s.TokenText(), s.FloatVal(), c.fval)
			}
		}
	}
	if s.ErrorCount > 0 {
		t.Errorf("got %d scan errors, want 0", s.ErrorCount)
	}
}

func TestQuoted(t *testing.T) {
	got := scanAll(t, `'hello world' "a\nb" 'x@y' ""`)
	want := []tok{
		{Atom, "hello world"},
		{String, "a\nb"},
		{Atom, "x@y"},
		{String, ""},
	}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComments(t *testing.T) {
	got := scanAll(t, "a % comment -> ignored\nb")
	if len(got) != 2 || got[0].text != "a" || got[1].text != "b" {
		t.Errorf("got %v, want atoms a and b", got)
	}
}

func TestPositions(t *testing.T) {
	var s Scanner
	s.Init("x.erl", []byte("foo\n  bar"))
	s.Scan()
	if pos := s.Pos(); pos.Line != 1 || pos.Column != 1 {
		t.Errorf("got %s, want x.erl:1:1", pos)
	}
	s.Scan()
	if pos := s.Pos(); pos.Line != 2 || pos.Column != 3 {
		t.Errorf("got %s, want x.erl:2:3", pos)
	}
	if s.Pos().String() != "x.erl:2:3" {
		t.Errorf("got %s, want x.erl:2:3", s.Pos())
	}
}

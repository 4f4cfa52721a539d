// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors

import (
	"testing"

	"github.com/grailbio/gradual/internal/scanner"
)

var pos = scanner.Position{Filename: "a.erl", Line: 3, Column: 7}

func TestError(t *testing.T) {
	err := E("check", "f/1", TypeMismatch, pos, New("expected atom(), got integer()"))
	got := err.Error()
	want := "a.erl:3:7: check f/1: type mismatch: expected atom(), got integer()"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestKindInheritance(t *testing.T) {
	inner := E(NonExhaustive, pos, "clauses")
	outer := E("check", inner)
	e := Recover(outer)
	if e.Kind != NonExhaustive {
		t.Errorf("got kind %v, want %v", e.Kind, NonExhaustive)
	}
	if e.Pos != pos {
		t.Errorf("got pos %v, want %v", e.Pos, pos)
	}
}

func TestIs(t *testing.T) {
	err := E("pattern", IllegalPattern, pos)
	if !Is(IllegalPattern, err) {
		t.Error("expected IllegalPattern")
	}
	if Is(TypeMismatch, err) {
		t.Error("unexpected TypeMismatch")
	}
	if Is(TypeMismatch, nil) {
		t.Error("nil error should match no kind")
	}
	wrapped := E("outer", E("inner", ArityMismatch))
	if !Is(ArityMismatch, wrapped) {
		t.Error("expected ArityMismatch through chain")
	}
}

func TestMatch(t *testing.T) {
	err := E("call", "foo/2", ArityMismatch, pos)
	if !Match(ArityMismatch, err) {
		t.Error("kind match failed")
	}
	if !Match(&Error{Op: "call"}, err) {
		t.Error("op match failed")
	}
	if Match(&Error{Op: "spec"}, err) {
		t.Error("op mismatch matched")
	}
	if !Match(&Error{Pos: pos}, err) {
		t.Error("pos match failed")
	}
	if Match(&Error{Pos: scanner.Position{Filename: "b.erl", Line: 1, Column: 1}}, err) {
		t.Error("pos mismatch matched")
	}
}

func TestRecover(t *testing.T) {
	if Recover(nil) != nil {
		t.Error("Recover(nil) should be nil")
	}
	plain := New("boom")
	e := Recover(plain)
	if e.Err != plain {
		t.Error("Recover should wrap plain errors")
	}
	if Recover(e) != e {
		t.Error("Recover should pass *Error through")
	}
}

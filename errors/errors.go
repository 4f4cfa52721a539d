// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package errors provides a standard error definition for use in
// gradual. Each error is assigned a class of error (kind), a source
// position, and an operation with optional arguments. Errors may be
// chained, and thus can be used to annotate upstream errors.
//
// Package errors provides functions Errorf and New as convenience
// constructors, so that users need import only one error package.
//
// The API was inspired by package upspin.io/errors.
package errors

import (
	"bytes"
	goerrors "errors"
	"fmt"

	"github.com/grailbio/gradual/internal/scanner"
)

// Separator is inserted between chained errors while rendering.
var Separator = ": "

// Kind denotes the type of the error. The error's kind is used to
// render the error message and also for interpretation.
type Kind int

const (
	// Other denotes an unknown error.
	Other Kind = iota
	// Syntax denotes a scan or parse error.
	Syntax
	// TypeMismatch denotes an expression whose type is not compatible
	// with the type required by its context.
	TypeMismatch
	// ArityMismatch denotes a function, fun, or type applied to the
	// wrong number of arguments.
	ArityMismatch
	// UndefinedReference denotes a reference to an unknown or
	// unexported function, type, record, field, or variable.
	UndefinedReference
	// NonExhaustive denotes a clause list whose patterns do not cover
	// the type of its argument.
	NonExhaustive
	// IllegalPattern denotes an expression form that cannot appear in
	// pattern position.
	IllegalPattern
	// BadTypeAnnotation denotes a spec or type declaration that is
	// malformed or inconsistent with the code it annotates.
	BadTypeAnnotation
	// CyclicConstraint denotes a set of type variable bounds that
	// depend on themselves.
	CyclicConstraint
	// UnreachableClause denotes a clause that can never match because
	// earlier clauses cover its whole argument type.
	UnreachableClause

	maxKind
)

// String renders a human-readable description of kind k.
func (k Kind) String() string {
	switch k {
	default:
		return "unknown error"
	case Syntax:
		return "syntax error"
	case TypeMismatch:
		return "type mismatch"
	case ArityMismatch:
		return "arity mismatch"
	case UndefinedReference:
		return "undefined reference"
	case NonExhaustive:
		return "nonexhaustive patterns"
	case IllegalPattern:
		return "illegal pattern"
	case BadTypeAnnotation:
		return "bad type annotation"
	case CyclicConstraint:
		return "cyclic constraint"
	case UnreachableClause:
		return "unreachable clause"
	}
}

// Error defines a gradual error. It is used to indicate an error
// associated with a source position and an operation (and arguments),
// and may wrap another error.
//
// Errors should be constructed by errors.E.
type Error struct {
	// Kind is the error's type.
	Kind Kind
	// Pos is the source position the error refers to.
	Pos scanner.Position
	// Op is a one-word description of the operation that errored.
	Op string
	// Arg is an (optional) list of arguments to the operation.
	Arg []string
	// Err is this error's underlying error: this error is caused
	// by Err.
	Err error
}

// E is used to construct errors. E constructs errors from a set of
// arguments; each of which must be one of the following types:
//
//	string
//		The first string argument is taken as the error's Op; subsequent
//		arguments are taken as the error's Arg.
//	scanner.Position
//		Taken as the error's Pos.
//	Kind
//		Taken as the error's Kind.
//	error
//		Taken as the error's underlying error.
//
// If no Kind is provided and the underlying error is another *Error,
// the Kind and position are inherited from it.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args")
	}
	e := new(Error)
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if e.Op == "" {
				e.Op = arg
			} else {
				e.Arg = append(e.Arg, arg)
			}
		case scanner.Position:
			e.Pos = arg
		case Kind:
			e.Kind = arg
		case *Error:
			copy := *arg
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	if e.Err == nil {
		return e
	}
	if prev, ok := e.Err.(*Error); ok {
		if e.Kind == Other {
			e.Kind = prev.Kind
			prev.Kind = Other
		}
		if !e.Pos.IsValid() {
			e.Pos = prev.Pos
		}
		if prev.Op == "" && prev.Kind == Other && !prev.Pos.IsValid() {
			e.Err = prev.Err
		}
	}
	return e
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

// Error renders this error and its chain of underlying errors,
// separated by Separator. Positions of wrapped errors are elided
// when they repeat the outer error's position.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	b := new(bytes.Buffer)
	if e.Pos.IsValid() {
		b.WriteString(e.Pos.String())
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
		for i := range e.Arg {
			b.WriteString(" " + e.Arg[i])
		}
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		pad(b, Separator)
		if err, ok := e.Err.(*Error); ok && err.Pos == e.Pos {
			copy := *err
			copy.Pos = scanner.Position{}
			b.WriteString(copy.Error())
		} else {
			b.WriteString(e.Err.Error())
		}
	}
	return b.String()
}

// Errorf is an alternate spelling of fmt.Errorf.
var Errorf = fmt.Errorf

// New is an alternate spelling of errors.New.
var New = goerrors.New

// Recover recovers any error into an *Error. If the passed-in error
// is already an *Error, it is simply returned; otherwise it is
// wrapped.
func Recover(err error) *Error {
	if err == nil {
		return nil
	}
	if err, ok := err.(*Error); ok {
		return err
	}
	return E(err).(*Error)
}

// Is tells whether err has the given kind.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		if e.Kind != Other {
			return e.Kind == kind
		}
		return Is(kind, e.Err)
	}
	return false
}

// Match compares err1 with err2. If err1 has type Kind, Match reports
// whether err2's Kind is the same; otherwise Match checks that every
// nonempty field in err1 has the same value in err2. If err1 is an
// *Error with a non-nil Err field, Match recurs to check that the two
// errors' chains of underlying errors also match.
func Match(err1 interface{}, err2 error) bool {
	e2 := Recover(err2)
	switch e1 := err1.(type) {
	default:
		return false
	case Kind:
		return e1 == e2.Kind
	case *Error:
		if e1.Op != "" && e2.Op != e1.Op {
			return false
		}
		if len(e1.Arg) > 0 {
			if len(e1.Arg) != len(e2.Arg) {
				return false
			}
			for i := range e1.Arg {
				if e1.Arg[i] != e2.Arg[i] {
					return false
				}
			}
		}
		if e1.Kind != Other && e2.Kind != e1.Kind {
			return false
		}
		if e1.Pos.IsValid() && e2.Pos != e1.Pos {
			return false
		}
		if e1.Err != nil {
			if _, ok := e1.Err.(*Error); ok {
				return Match(e1.Err, e2.Err)
			}
			if e2.Err == nil || e2.Err.Error() != e1.Err.Error() {
				return false
			}
		}
		return true
	}
}

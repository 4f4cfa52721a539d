// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/types"
)

// FA identifies a function by name and arity.
type FA struct {
	Name  string
	Arity int
}

func (fa FA) String() string {
	return fmt.Sprintf("%s/%d", fa.Name, fa.Arity)
}

// TA identifies a type by name and arity.
type TA struct {
	Name  string
	Arity int
}

func (ta TA) String() string {
	return fmt.Sprintf("%s/%d", ta.Name, ta.Arity)
}

// A FuncDecl is a function definition: the clauses sharing one name
// and arity.
type FuncDecl struct {
	scanner.Position
	Name    string
	Arity   int
	Clauses []*Clause
}

// A TypeDecl is a -type or -opaque declaration. Body is the raw
// (unnormalized) right hand side.
type TypeDecl struct {
	scanner.Position
	Name   string
	Params []string
	Body   *types.T
	Opaque bool
}

// A RecordField is one field of a record declaration. Type is nil
// when the field carries no annotation.
type RecordField struct {
	Name    string
	Default *Expr
	Type    *types.T
}

// A RecordDecl is a -record declaration.
type RecordDecl struct {
	scanner.Position
	Name   string
	Fields []*RecordField
}

// A SpecDecl is a -spec declaration. Types holds the candidate
// function types in declaration order; more than one forms an
// intersection tried first to last at call sites.
type SpecDecl struct {
	scanner.Position
	Name  string
	Arity int
	Types []*types.T
}

// A Module is a parsed source module.
type Module struct {
	scanner.Position
	// Name is the declared module name; File the source path.
	Name string
	File string

	Exports     map[FA]bool
	ExportTypes map[TA]bool
	// Imports maps an imported function to its owning module.
	Imports map[FA]string

	Types   []*TypeDecl
	Records []*RecordDecl
	Specs   []*SpecDecl
	Funcs   []*FuncDecl
}

// Func returns the function declaration named by fa, or nil.
func (m *Module) Func(fa FA) *FuncDecl {
	for _, f := range m.Funcs {
		if f.Name == fa.Name && f.Arity == fa.Arity {
			return f
		}
	}
	return nil
}

// Spec returns the spec declaration for fa, or nil.
func (m *Module) Spec(fa FA) *SpecDecl {
	for _, s := range m.Specs {
		if s.Name == fa.Name && s.Arity == fa.Arity {
			return s
		}
	}
	return nil
}

// Type returns the type declaration named by ta, or nil.
func (m *Module) Type(ta TA) *TypeDecl {
	for _, t := range m.Types {
		if t.Name == ta.Name && len(t.Params) == ta.Arity {
			return t
		}
	}
	return nil
}

// Field returns the record field named name, or nil.
func (r *RecordDecl) Field(name string) *RecordField {
	for _, f := range r.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Record returns the record declaration named name, or nil.
func (m *Module) Record(name string) *RecordDecl {
	for _, r := range m.Records {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (m *Module) String() string {
	return fmt.Sprintf("module %s (%d functions)", m.Name, len(m.Funcs))
}

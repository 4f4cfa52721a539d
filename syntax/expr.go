// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/gradual/internal/scanner"
)

// ExprKind is the kind of an expression. Patterns are represented as
// expressions; the checker rejects forms that cannot appear in
// pattern position.
type ExprKind int

const (
	// ExprError indicates an erroneous expression (e.g., through a parse error).
	ExprError ExprKind = iota
	// ExprAtom is an atom literal.
	ExprAtom
	// ExprInt is an integer or character literal.
	ExprInt
	// ExprFloat is a float literal.
	ExprFloat
	// ExprString is a string literal.
	ExprString
	// ExprVar is a variable; "_" is the wildcard.
	ExprVar
	// ExprNil is the empty list.
	ExprNil
	// ExprCons is a list cell [H|T].
	ExprCons
	// ExprTuple is a tuple.
	ExprTuple
	// ExprBin is a binary construction or pattern.
	ExprBin
	// ExprMap is a map construction, or a map update when Left is set.
	ExprMap
	// ExprRecord is a record construction, or a record update when
	// Left is set.
	ExprRecord
	// ExprRecordField is a record field access Left#name.field.
	ExprRecordField
	// ExprRecordIndex is a record field index #name.field.
	ExprRecordIndex
	// ExprCall is a function application; Left is the module
	// expression for remote calls, nil otherwise.
	ExprCall
	// ExprFun is a fun expression with clauses.
	ExprFun
	// ExprFunRef is a fun reference fun f/2 or fun m:f/2.
	ExprFunRef
	// ExprCase is a case expression; Left is the subject.
	ExprCase
	// ExprIf is an if expression.
	ExprIf
	// ExprReceive is a receive expression.
	ExprReceive
	// ExprTry is a try expression.
	ExprTry
	// ExprBlock is a begin ... end block.
	ExprBlock
	// ExprMatch is a match Left = Right.
	ExprMatch
	// ExprBinop is a binary operation.
	ExprBinop
	// ExprUnop is a unary operation.
	ExprUnop
	// ExprLC is a list comprehension.
	ExprLC
	// ExprBC is a binary comprehension.
	ExprBC
	// ExprCatch is a catch prefix expression.
	ExprCatch

	maxExprKind
)

// FieldExpr stores a record field name and its expression.
type FieldExpr struct {
	Name string
	*Expr
}

// AssocExpr is one association of a map expression. Exact
// associations (":=") assert the key is already present.
type AssocExpr struct {
	Exact    bool
	Key, Val *Expr
}

// BinSeg is one segment of a binary. Type is one of "integer",
// "float", "binary", "bitstring", "utf8", "utf16", or "utf32"; Unit
// is 0 when unspecified.
type BinSeg struct {
	scanner.Position
	Expr *Expr
	Size *Expr
	Type string
	Unit int
}

// Qual is a comprehension qualifier: a generator when Seq is set
// (binary generator when Bin), otherwise a filter.
type Qual struct {
	scanner.Position
	Pat    *Expr
	Seq    *Expr
	Bin    bool
	Filter *Expr
}

// After is the after arm of a receive, or the after body of a try
// (Timeout nil).
type After struct {
	scanner.Position
	Timeout *Expr
	Body    []*Expr
}

// A Clause is one clause of a function, fun, case, if, receive, or
// try. Guards is a disjunction of conjunctions. Catch clauses carry
// the exception class and stacktrace patterns in Class and Stack.
type Clause struct {
	scanner.Position
	Pats   []*Expr
	Class  *Expr
	Stack  *Expr
	Guards [][]*Expr
	Body   []*Expr
}

// An Expr is a node in the expression AST.
type Expr struct {
	// Position contains the source position of the node. It is set by
	// the parser.
	scanner.Position

	// Kind is the expression's op; see above.
	Kind ExprKind

	// Left and Right are the operands of binary forms; Left doubles
	// as the subject of case and catch, the base of record and map
	// updates and field accesses, and the module of remote calls.
	Left, Right *Expr

	// Op is the operator in ExprBinop and ExprUnop.
	Op string

	// Ident is the text of ExprAtom and ExprVar.
	Ident string

	// Name and Field name the record and field of record forms.
	Name  string
	Field string

	// Val is the value of ExprInt; FVal of ExprFloat; Str of
	// ExprString.
	Val  int64
	FVal float64
	Str  string

	// List holds tuple elements and call arguments.
	List []*Expr

	// Body holds the expression sequence of blocks and try bodies.
	Body []*Expr

	// Clauses holds the clauses of fun, case, if, receive, and try-of.
	Clauses []*Clause
	// Catches holds the catch clauses of a try.
	Catches []*Clause
	// After is the after arm of receive and try.
	After *After

	// Fields holds the fields of record constructions and updates.
	Fields []*FieldExpr
	// Assocs holds the associations of map constructions and updates.
	Assocs []*AssocExpr
	// Segs holds the segments of a binary.
	Segs []*BinSeg

	// CompExpr and Quals define comprehensions.
	CompExpr *Expr
	Quals    []*Qual

	// Arity is the arity expression of ExprFunRef.
	Arity *Expr
}

// wildcard tells whether e is the pattern "_".
func (e *Expr) wildcard() bool {
	return e.Kind == ExprVar && e.Ident == "_"
}

// atom returns the atom text of e, if e is an atom literal.
func (e *Expr) atom() (string, bool) {
	if e.Kind == ExprAtom {
		return e.Ident, true
	}
	return "", false
}

// String renders an abbreviated Erlang spelling of e for use in
// diagnostics.
func (e *Expr) String() string {
	switch e.Kind {
	case ExprError:
		return "<error>"
	case ExprAtom:
		return quoteAtom(e.Ident)
	case ExprInt:
		return strconv.FormatInt(e.Val, 10)
	case ExprFloat:
		return strconv.FormatFloat(e.FVal, 'g', -1, 64)
	case ExprString:
		return strconv.Quote(e.Str)
	case ExprVar:
		return e.Ident
	case ExprNil:
		return "[]"
	case ExprCons:
		return fmt.Sprintf("[%s | %s]", e.Left, e.Right)
	case ExprTuple:
		return "{" + exprs(e.List) + "}"
	case ExprBin:
		segs := make([]string, len(e.Segs))
		for i, seg := range e.Segs {
			segs[i] = seg.Expr.String()
			if seg.Size != nil {
				segs[i] += ":" + seg.Size.String()
			}
		}
		return "<<" + strings.Join(segs, ", ") + ">>"
	case ExprMap:
		assocs := make([]string, len(e.Assocs))
		for i, a := range e.Assocs {
			op := "=>"
			if a.Exact {
				op = ":="
			}
			assocs[i] = fmt.Sprintf("%s %s %s", a.Key, op, a.Val)
		}
		m := "#{" + strings.Join(assocs, ", ") + "}"
		if e.Left != nil {
			return e.Left.String() + m
		}
		return m
	case ExprRecord:
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = f.Name + " = " + f.Expr.String()
		}
		r := "#" + e.Name + "{" + strings.Join(fields, ", ") + "}"
		if e.Left != nil {
			return e.Left.String() + r
		}
		return r
	case ExprRecordField:
		return fmt.Sprintf("%s#%s.%s", e.Left, e.Name, e.Field)
	case ExprRecordIndex:
		return fmt.Sprintf("#%s.%s", e.Name, e.Field)
	case ExprCall:
		callee := e.Right.String()
		if e.Left != nil {
			callee = e.Left.String() + ":" + callee
		}
		return callee + "(" + exprs(e.List) + ")"
	case ExprFun:
		return fmt.Sprintf("fun/%d", len(e.Clauses[0].Pats))
	case ExprFunRef:
		ref := fmt.Sprintf("fun %s/%s", e.Right, e.Arity)
		if e.Left != nil {
			ref = fmt.Sprintf("fun %s:%s/%s", e.Left, e.Right, e.Arity)
		}
		return ref
	case ExprCase:
		return fmt.Sprintf("case %s of ... end", e.Left)
	case ExprIf:
		return "if ... end"
	case ExprReceive:
		return "receive ... end"
	case ExprTry:
		return "try ... end"
	case ExprBlock:
		return "begin ... end"
	case ExprMatch:
		return fmt.Sprintf("%s = %s", e.Left, e.Right)
	case ExprBinop:
		return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
	case ExprUnop:
		return e.Op + " " + e.Left.String()
	case ExprLC:
		return fmt.Sprintf("[%s || ...]", e.CompExpr)
	case ExprBC:
		return fmt.Sprintf("<<%s || ...>>", e.CompExpr)
	case ExprCatch:
		return "catch " + e.Left.String()
	}
	return "<invalid>"
}

func exprs(es []*Expr) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}

// quoteAtom renders an atom, quoting when its text is not a plain
// lowercase name.
func quoteAtom(name string) string {
	plain := name != ""
	for i, r := range name {
		if i == 0 && !('a' <= r && r <= 'z') {
			plain = false
			break
		}
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_' || r == '@') {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name) + "'"
}

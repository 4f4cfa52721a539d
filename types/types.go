// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package types contains data structures and algorithms for dealing
// with gradual Erlang types. It defines type-trees and constructors
// for them, together with normalization, subtyping, meet (greatest
// lower bound), and refinement algorithms.
//
// A type is one of:
//
//	any()                         the unknown (dynamic) type
//	term()                        the top type
//	none()                        the empty type
//	A                             a type variable
//	atom(), 'foo'                 atoms and atom literals
//	integer(), pos_integer(),
//	neg_integer(),
//	non_neg_integer(), char()     the integer classes
//	42, 1..10                     integer singletons and ranges
//	float()
//	T1 | T2                       unions
//	{T1, T2}, tuple()             tuples
//	[], [T], [T, ...]             lists, possibly improper
//	fun((T1) -> R), fun()         funs
//	#{K => V, K2 := V2}           maps with optional and mandatory keys
//	#r{}, #r{f :: T}              records, possibly field-refined
//	t(A), m:t(A)                  user-defined and remote types
//	<<_:M, _:_*N>>                bitstrings
//	pid(), port(), reference()
//
// See package github.com/grailbio/gradual/syntax for parsing concrete
// syntax into type trees.
//
// Types are used in two states. As parsed, a type carries source
// positions and may contain builtin aliases and unresolved user type
// references. Normalize resolves and erases all of that, producing a
// position-free normal form; the subtyping, meet, and refinement
// algorithms operate on normal forms only. Because any() is
// compatible with every type in both directions, subtyping here is
// consistent subtyping in the gradual typing sense.
package types

import (
	"crypto"
	_ "crypto/sha256"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strings"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/intrange"
)

// Digester is the digester used to compute type digests.
var Digester = digest.Digester(crypto.SHA256)

// Kind represents a type's kind.
type Kind int

const (
	// ErrorKind is an illegal type. The zero T has ErrorKind.
	ErrorKind Kind = iota

	// AnyKind is the unknown type any(), compatible with every type
	// in both directions.
	AnyKind
	// TopKind is the top type term().
	TopKind
	// NoneKind is the empty type none().
	NoneKind
	// VarKind is a type variable.
	VarKind

	// AtomKind is the type of all atoms.
	AtomKind
	// AtomLitKind is a single atom.
	AtomLitKind
	// IntKind is a named integer class; see IntClass.
	IntKind
	// IntLitKind is a single integer.
	IntLitKind
	// RangeKind is a contiguous integer range.
	RangeKind
	// FloatKind is the type of floats.
	FloatKind
	// PidKind, PortKind, and ReferenceKind are the types of runtime
	// identifiers.
	PidKind
	PortKind
	ReferenceKind

	// UnionKind is a union of types.
	UnionKind
	// TupleKind is the type of tuples.
	TupleKind
	// ListKind is the type of lists; see Emptiness.
	ListKind
	// FunKind is the type of funs.
	FunKind
	// MapKind is the type of maps.
	MapKind
	// RecordKind is the type of records.
	RecordKind
	// UserKind is a reference to a user-defined type, possibly
	// remote, possibly opaque.
	UserKind
	// BinKind is the type of bitstrings.
	BinKind

	maxKind
)

var kindStrings = [maxKind]string{
	ErrorKind:     "error",
	AnyKind:       "any",
	TopKind:       "term",
	NoneKind:      "none",
	VarKind:       "var",
	AtomKind:      "atom",
	AtomLitKind:   "atom literal",
	IntKind:       "integer",
	IntLitKind:    "integer literal",
	RangeKind:     "range",
	FloatKind:     "float",
	PidKind:       "pid",
	PortKind:      "port",
	ReferenceKind: "reference",
	UnionKind:     "union",
	TupleKind:     "tuple",
	ListKind:      "list",
	FunKind:       "fun",
	MapKind:       "map",
	RecordKind:    "record",
	UserKind:      "user type",
	BinKind:       "bitstring",
}

func (k Kind) String() string {
	return kindStrings[k]
}

// IntClass names the built-in integer types. It refines IntKind.
type IntClass int

const (
	// ClassInteger is integer().
	ClassInteger IntClass = iota
	// ClassNeg is neg_integer().
	ClassNeg
	// ClassNonNeg is non_neg_integer().
	ClassNonNeg
	// ClassPos is pos_integer().
	ClassPos
	// ClassChar is char().
	ClassChar

	maxClass
)

var classNames = [maxClass]string{
	ClassInteger: "integer()",
	ClassNeg:     "neg_integer()",
	ClassNonNeg:  "non_neg_integer()",
	ClassPos:     "pos_integer()",
	ClassChar:    "char()",
}

func (c IntClass) String() string {
	return classNames[c]
}

// Emptiness describes which lengths a list type admits.
type Emptiness int

const (
	// MaybeEmpty admits lists of any length.
	MaybeEmpty Emptiness = iota
	// EmptyList admits only the empty list.
	EmptyList
	// Nonempty admits only lists with at least one element.
	Nonempty
)

// A Field is a named type. It is used for record fields and for the
// variable bounds of bounded funs.
type Field struct {
	Name string
	T    *T
}

func (f *Field) String() string {
	return fmt.Sprintf("%s :: %s", f.Name, f.T)
}

// Equal checks whether Field f is equivalent to Field e.
func (f *Field) Equal(e *Field) bool {
	return f.Name == e.Name && f.T.Equal(e.T)
}

// fieldNamed returns the field with the given name, or nil.
func fieldNamed(fields []*Field, name string) *Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func sortFields(fields []*Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}

// An Assoc is a single map association. A mandatory association
// (written K := V) requires its key; an optional one (K => V)
// permits it.
type Assoc struct {
	Mandatory bool
	Key, Val  *T
}

func (a *Assoc) String() string {
	op := "=>"
	if a.Mandatory {
		op = ":="
	}
	return fmt.Sprintf("%s %s %s", a.Key, op, a.Val)
}

// Equal checks whether Assoc a is equivalent to Assoc b.
func (a *Assoc) Equal(b *Assoc) bool {
	return a.Mandatory == b.Mandatory && a.Key.Equal(b.Key) && a.Val.Equal(b.Val)
}

// A T is a gradual type. The zero T is invalid. Ts are never
// modified once constructed.
type T struct {
	// Kind is the kind of the type. See above.
	Kind Kind
	// Pos is the position of the type as written in source. It is
	// set by the parser and erased by Normalize.
	Pos scanner.Position
	// Class refines IntKind.
	Class IntClass
	// Name holds atom literal text, variable names, and record and
	// user type names.
	Name string
	// Module is the defining module of a user type. It is empty in
	// parsed local references and filled in by normalization.
	Module string
	// Opaque marks a user type that may not be unfolded here.
	Opaque bool
	// Folded marks a user type reference that normalization keeps
	// folded, either because it is recursive or because it is
	// opaque. Folded references unfold on demand.
	Folded bool
	// Error holds the type's error.
	Error error
	// Val is the value of an integer literal.
	Val int64
	// Lo and Hi bound a range.
	Lo, Hi intrange.Bound
	// Elem is a list's element type.
	Elem *T
	// Tail is a list's terminator type for improper lists; nil
	// means the list is proper.
	Tail *T
	// Empty is a list's emptiness.
	Empty Emptiness
	// Elems holds union members, tuple elements, fun arguments, and
	// user type arguments.
	Elems []*T
	// Result is a fun's result type.
	Result *T
	// Wild marks tuple() and fun() style types whose structure is
	// unknown.
	Wild bool
	// Bounds holds a bounded fun's variable bounds.
	Bounds []*Field
	// Assocs holds a map's associations.
	Assocs []*Assoc
	// Fields holds a record's field refinements.
	Fields []*Field
	// Base and Unit describe a bitstring <<_:Base, _:_*Unit>>: the
	// sizes Base+k*Unit for k >= 0.
	Base, Unit int64
}

// Convenience vars for common types. These are shared; they must
// never be mutated.
var (
	Any           = &T{Kind: AnyKind}
	Top           = &T{Kind: TopKind}
	None          = &T{Kind: NoneKind}
	Atom          = &T{Kind: AtomKind}
	Float         = &T{Kind: FloatKind}
	Pid           = &T{Kind: PidKind}
	Port          = &T{Kind: PortKind}
	Reference     = &T{Kind: ReferenceKind}
	Integer       = &T{Kind: IntKind, Class: ClassInteger}
	NegInteger    = &T{Kind: IntKind, Class: ClassNeg}
	NonNegInteger = &T{Kind: IntKind, Class: ClassNonNeg}
	PosInteger    = &T{Kind: IntKind, Class: ClassPos}
	Char          = &T{Kind: IntKind, Class: ClassChar}
	Nil           = &T{Kind: ListKind, Empty: EmptyList, Elem: None}
	AnyTuple      = &T{Kind: TupleKind, Wild: true}
	AnyFun        = &T{Kind: FunKind, Wild: true, Result: Any}
	AnyMap        = &T{Kind: MapKind, Assocs: []*Assoc{{Key: Any, Val: Any}}}
	Binary        = &T{Kind: BinKind, Base: 0, Unit: 8}
	Bitstring     = &T{Kind: BinKind, Base: 0, Unit: 1}
	False         = &T{Kind: AtomLitKind, Name: "false"}
	True          = &T{Kind: AtomLitKind, Name: "true"}
)

// Bool is the normalized boolean() type.
var Bool = &T{Kind: UnionKind, Elems: []*T{False, True}}

// Error constructs a new error type.
func Error(err error) *T {
	return &T{Kind: ErrorKind, Error: err}
}

// Errorf formats a new error type.
func Errorf(format string, args ...interface{}) *T {
	return Error(fmt.Errorf(format, args...))
}

// AtomLit returns the type of the single atom name.
func AtomLit(name string) *T {
	return &T{Kind: AtomLitKind, Name: name}
}

// IntLit returns the type of the single integer v.
func IntLit(v int64) *T {
	return &T{Kind: IntLitKind, Val: v}
}

// Range returns the type of the integers in r.
func Range(r intrange.Range) *T {
	return &T{Kind: RangeKind, Lo: r.Lo, Hi: r.Hi}
}

// Var returns a type variable with the given name.
func Var(name string) *T {
	return &T{Kind: VarKind, Name: name}
}

// Union returns the (unnormalized) union of the given types.
func Union(elems ...*T) *T {
	return &T{Kind: UnionKind, Elems: elems}
}

// Tuple returns the type of tuples with the given element types.
func Tuple(elems ...*T) *T {
	return &T{Kind: TupleKind, Elems: elems}
}

// List returns the type of proper lists with the given element type.
func List(elem *T) *T {
	return &T{Kind: ListKind, Elem: elem}
}

// NonemptyList returns the type of nonempty proper lists with the
// given element type.
func NonemptyList(elem *T) *T {
	return &T{Kind: ListKind, Empty: Nonempty, Elem: elem}
}

// ImproperList returns the type of lists with the given element and
// terminator types and emptiness.
func ImproperList(empty Emptiness, elem, tail *T) *T {
	return &T{Kind: ListKind, Empty: empty, Elem: elem, Tail: tail}
}

// Fun returns the type of funs with the given argument and result
// types.
func Fun(args []*T, result *T) *T {
	return &T{Kind: FunKind, Elems: args, Result: result}
}

// AnyArityFun returns the type fun((...) -> result).
func AnyArityFun(result *T) *T {
	return &T{Kind: FunKind, Wild: true, Result: result}
}

// Map returns a map type with the given associations.
func Map(assocs ...*Assoc) *T {
	return &T{Kind: MapKind, Assocs: assocs}
}

// Record returns a record type, possibly refining the named fields.
func Record(name string, fields ...*Field) *T {
	return &T{Kind: RecordKind, Name: name, Fields: fields}
}

// User returns a reference to a user-defined type in the current
// module.
func User(name string, args ...*T) *T {
	return &T{Kind: UserKind, Name: name, Elems: args}
}

// Remote returns a reference to a user-defined type in another
// module.
func Remote(module, name string, args ...*T) *T {
	return &T{Kind: UserKind, Module: module, Name: name, Elems: args}
}

// Bin returns a bitstring type admitting sizes base+k*unit.
func Bin(base, unit int64) *T {
	return &T{Kind: BinKind, Base: base, Unit: unit}
}

// At returns a copy of t carrying the given source position. It is
// used by the parser.
func At(pos scanner.Position, t *T) *T {
	u := *t
	u.Pos = pos
	return &u
}

// IsInt tells whether t is one of the integer kinds.
func (t *T) IsInt() bool {
	switch t.Kind {
	case IntKind, IntLitKind, RangeKind:
		return true
	}
	return false
}

// IsList tells whether t is a list type.
func (t *T) IsList() bool {
	return t.Kind == ListKind
}

// TailOrNil returns a list's terminator type; proper lists terminate
// in [].
func (t *T) TailOrNil() *T {
	if t.Tail != nil {
		return t.Tail
	}
	return Nil
}

// Equal tells whether t and u are structurally equal. Positions are
// ignored.
func (t *T) Equal(u *T) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case AnyKind, TopKind, NoneKind, AtomKind, FloatKind, PidKind, PortKind, ReferenceKind:
		return true
	case VarKind, AtomLitKind:
		return t.Name == u.Name
	case IntKind:
		return t.Class == u.Class
	case IntLitKind:
		return t.Val == u.Val
	case RangeKind:
		return t.Lo == u.Lo && t.Hi == u.Hi
	case UnionKind, TupleKind:
		if t.Wild != u.Wild || len(t.Elems) != len(u.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(u.Elems[i]) {
				return false
			}
		}
		return true
	case ListKind:
		if t.Empty != u.Empty || !t.Elem.Equal(u.Elem) {
			return false
		}
		return t.TailOrNil().Equal(u.TailOrNil())
	case FunKind:
		if t.Wild != u.Wild || len(t.Elems) != len(u.Elems) || len(t.Bounds) != len(u.Bounds) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(u.Elems[i]) {
				return false
			}
		}
		for i := range t.Bounds {
			if !t.Bounds[i].Equal(u.Bounds[i]) {
				return false
			}
		}
		return t.Result.Equal(u.Result)
	case MapKind:
		if len(t.Assocs) != len(u.Assocs) {
			return false
		}
		for i := range t.Assocs {
			if !t.Assocs[i].Equal(u.Assocs[i]) {
				return false
			}
		}
		return true
	case RecordKind:
		if t.Module != u.Module || t.Name != u.Name || len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(u.Fields[i]) {
				return false
			}
		}
		return true
	case UserKind:
		if t.Module != u.Module || t.Name != u.Name || t.Opaque != u.Opaque || len(t.Elems) != len(u.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(u.Elems[i]) {
				return false
			}
		}
		return true
	case BinKind:
		return t.Base == u.Base && t.Unit == u.Unit
	}
	return false
}

// String renders the type in Erlang syntax. Internal forms that have
// no source syntax (such as half-open ranges) render in an extended
// syntax.
func (t *T) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case ErrorKind:
		if t.Error != nil {
			return "error: " + t.Error.Error()
		}
		return "error"
	case AnyKind:
		return "any()"
	case TopKind:
		return "term()"
	case NoneKind:
		return "none()"
	case VarKind:
		return t.Name
	case AtomKind:
		return "atom()"
	case AtomLitKind:
		return quoteAtom(t.Name)
	case IntKind:
		return t.Class.String()
	case IntLitKind:
		return fmt.Sprint(t.Val)
	case RangeKind:
		var b strings.Builder
		if !t.Lo.Inf {
			fmt.Fprint(&b, t.Lo.N)
		}
		b.WriteString("..")
		if !t.Hi.Inf {
			fmt.Fprint(&b, t.Hi.N)
		}
		return b.String()
	case FloatKind:
		return "float()"
	case PidKind:
		return "pid()"
	case PortKind:
		return "port()"
	case ReferenceKind:
		return "reference()"
	case UnionKind:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = e.String()
		}
		return strings.Join(elems, " | ")
	case TupleKind:
		if t.Wild {
			return "tuple()"
		}
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = e.String()
		}
		return "{" + strings.Join(elems, ", ") + "}"
	case ListKind:
		if t.Tail != nil {
			name := "maybe_improper_list"
			if t.Empty == Nonempty {
				name = "nonempty_maybe_improper_list"
			}
			return fmt.Sprintf("%s(%s, %s)", name, t.Elem, t.Tail)
		}
		switch t.Empty {
		case EmptyList:
			return "[]"
		case Nonempty:
			return fmt.Sprintf("[%s, ...]", t.Elem)
		default:
			return fmt.Sprintf("[%s]", t.Elem)
		}
	case FunKind:
		var b strings.Builder
		b.WriteString("fun(")
		if t.Wild {
			if t.Result == nil || t.Result.Kind == AnyKind {
				b.WriteString(")")
				return b.String()
			}
			fmt.Fprintf(&b, "(...) -> %s)", t.Result)
			return b.String()
		}
		b.WriteString("(")
		for i, arg := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		fmt.Fprintf(&b, ") -> %s", t.Result)
		if len(t.Bounds) > 0 {
			b.WriteString(" when ")
			for i, f := range t.Bounds {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(f.String())
			}
		}
		b.WriteString(")")
		return b.String()
	case MapKind:
		assocs := make([]string, len(t.Assocs))
		for i, a := range t.Assocs {
			assocs[i] = a.String()
		}
		return "#{" + strings.Join(assocs, ", ") + "}"
	case RecordKind:
		if len(t.Fields) == 0 {
			return "#" + t.Name + "{}"
		}
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = f.String()
		}
		return "#" + t.Name + "{" + strings.Join(fields, ", ") + "}"
	case UserKind:
		var b strings.Builder
		if t.Module != "" {
			b.WriteString(t.Module)
			b.WriteString(":")
		}
		b.WriteString(t.Name)
		b.WriteString("(")
		for i, arg := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		b.WriteString(")")
		return b.String()
	case BinKind:
		switch {
		case t.Base == 0 && t.Unit == 0:
			return "<<>>"
		case t.Unit == 0:
			return fmt.Sprintf("<<_:%d>>", t.Base)
		case t.Base == 0:
			return fmt.Sprintf("<<_:_*%d>>", t.Unit)
		default:
			return fmt.Sprintf("<<_:%d, _:_*%d>>", t.Base, t.Unit)
		}
	}
	return "<invalid>"
}

func quoteAtom(name string) string {
	if name == "" {
		return "''"
	}
	plain := name[0] >= 'a' && name[0] <= 'z'
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '@':
		default:
			plain = false
		}
	}
	if plain {
		return name
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name) + "'"
}

// WriteDigest writes the type's canonical encoding to w. Positions
// do not contribute, so a normalized type and its parsed spelling
// digest differently only if they differ structurally.
func (t *T) WriteDigest(w io.Writer) {
	switch t.Kind {
	case AnyKind, TopKind, NoneKind, AtomKind, FloatKind, PidKind, PortKind, ReferenceKind, ErrorKind:
		fmt.Fprintf(w, "%d;", t.Kind)
	case VarKind, AtomLitKind:
		fmt.Fprintf(w, "%d:%q;", t.Kind, t.Name)
	case IntKind:
		fmt.Fprintf(w, "%d:%d;", t.Kind, t.Class)
	case IntLitKind:
		fmt.Fprintf(w, "%d:%d;", t.Kind, t.Val)
	case RangeKind:
		fmt.Fprintf(w, "%d:%s,%s;", t.Kind, t.Lo, t.Hi)
	case UnionKind, TupleKind:
		fmt.Fprintf(w, "%d:%v:%d(", t.Kind, t.Wild, len(t.Elems))
		for _, e := range t.Elems {
			e.WriteDigest(w)
		}
		fmt.Fprint(w, ")")
	case ListKind:
		fmt.Fprintf(w, "%d:%d(", t.Kind, t.Empty)
		t.Elem.WriteDigest(w)
		if t.Tail != nil {
			t.Tail.WriteDigest(w)
		}
		fmt.Fprint(w, ")")
	case FunKind:
		fmt.Fprintf(w, "%d:%v:%d(", t.Kind, t.Wild, len(t.Elems))
		for _, e := range t.Elems {
			e.WriteDigest(w)
		}
		fmt.Fprint(w, ")(")
		if t.Result != nil {
			t.Result.WriteDigest(w)
		}
		fmt.Fprint(w, ")[")
		for _, f := range t.Bounds {
			fmt.Fprintf(w, "%q:", f.Name)
			f.T.WriteDigest(w)
		}
		fmt.Fprint(w, "]")
	case MapKind:
		fmt.Fprintf(w, "%d:%d(", t.Kind, len(t.Assocs))
		for _, a := range t.Assocs {
			fmt.Fprintf(w, "%v:", a.Mandatory)
			a.Key.WriteDigest(w)
			a.Val.WriteDigest(w)
		}
		fmt.Fprint(w, ")")
	case RecordKind:
		fmt.Fprintf(w, "%d:%q:%q:%d(", t.Kind, t.Module, t.Name, len(t.Fields))
		for _, f := range t.Fields {
			fmt.Fprintf(w, "%q:", f.Name)
			f.T.WriteDigest(w)
		}
		fmt.Fprint(w, ")")
	case UserKind:
		fmt.Fprintf(w, "%d:%q:%q:%v:%d(", t.Kind, t.Module, t.Name, t.Opaque, len(t.Elems))
		for _, e := range t.Elems {
			e.WriteDigest(w)
		}
		fmt.Fprint(w, ")")
	case BinKind:
		fmt.Fprintf(w, "%d:%d,%d;", t.Kind, t.Base, t.Unit)
	}
}

// Digest returns the type's cryptographic digest.
func (t *T) Digest() digest.Digest {
	w := Digester.NewWriter()
	t.WriteDigest(w)
	return w.Digest()
}

// Hash returns a 64-bit structural hash of the type.
func (t *T) Hash() uint64 {
	h := fnv.New64a()
	t.WriteDigest(h)
	return h.Sum64()
}

// key returns the canonical encoding as a string. It is used for
// deterministic ordering and deduplication.
func (t *T) key() string {
	var b strings.Builder
	t.WriteDigest(&b)
	return b.String()
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"sort"

	"github.com/grailbio/gradual/intrange"
)

// A typeRef identifies a user type definition.
type typeRef struct {
	Module string
	Name   string
	Arity  int
}

func (r typeRef) String() string {
	return fmt.Sprintf("%s:%s/%d", r.Module, r.Name, r.Arity)
}

// Normalize rewrites t into normal form: source positions are
// erased, builtin aliases and user type references are expanded,
// recursive and opaque references are folded, unions are flattened,
// deduplicated, and sorted, integer types are merged, and empty
// types collapse to none(). Unions wider than the environment's
// limit widen to any(). Normalization is idempotent.
//
// Unresolvable type references normalize to error types; they carry
// the reference's position.
func Normalize(e *Env, t *T) *T {
	n := &normalizer{e: e, module: e.Module, unfolding: make(map[typeRef]bool)}
	return n.normalize(t)
}

// unfold expands a folded user type reference by one level. Inner
// self references fold again, so unfolding always terminates.
// Opacity is not rechecked: callers gate unfolding of opaque
// references. The reference must resolve; a folded reference that
// does not is a defect in the resolver, and unfold panics.
func unfold(e *Env, t *T) *T {
	if t.Kind != UserKind || !t.Folded {
		panic("types: unfold of non-folded type " + t.String())
	}
	ref := typeRef{t.Module, t.Name, len(t.Elems)}
	var (
		params []string
		body   *T
	)
	if t.Module == "erlang" {
		var ok bool
		body, ok = builtinType(t.Name, t.Elems)
		if !ok {
			panic("types: undefined builtin " + ref.String())
		}
	} else {
		var res Resolution
		params, body, res = e.ResolveType(t.Module, t.Name, len(t.Elems))
		switch res {
		// Visibility was already judged when the reference was
		// folded; private types fold within their own module.
		case Resolved, ResolvedOpaque, ResolvedPrivate:
		default:
			panic("types: dangling folded reference " + ref.String())
		}
		sub := make(map[string]*T, len(params))
		for i, p := range params {
			sub[p] = t.Elems[i]
		}
		body = Subst(body, sub)
	}
	n := &normalizer{e: e, module: t.Module, unfolding: map[typeRef]bool{ref: true}}
	return n.normalize(body)
}

// Unfold expands a folded user type reference by one level. Foreign
// opaque references stay folded; they, and types that are not folded
// references, are returned unchanged.
func Unfold(e *Env, t *T) *T {
	if t.Kind != UserKind || !t.Folded || t.Opaque {
		return t
	}
	return unfold(e, t)
}

// A normalizer tracks the module whose types are being expanded and
// the set of references currently being unfolded.
type normalizer struct {
	e         *Env
	module    string
	unfolding map[typeRef]bool
}

func (n *normalizer) normalize(t *T) *T {
	switch t.Kind {
	case ErrorKind:
		return t
	case AnyKind:
		return Any
	case TopKind:
		return Top
	case NoneKind:
		return None
	case VarKind:
		if !t.Pos.IsValid() {
			return t
		}
		return Var(t.Name)
	case AtomKind:
		return Atom
	case AtomLitKind:
		if !t.Pos.IsValid() {
			return t
		}
		return AtomLit(t.Name)
	case FloatKind:
		return Float
	case PidKind:
		return Pid
	case PortKind:
		return Port
	case ReferenceKind:
		return Reference
	case IntKind, IntLitKind, RangeKind:
		r, _ := intView(t)
		return rangeToType(r)
	case UnionKind:
		elems := make([]*T, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = n.normalize(e)
			if elems[i].Kind == ErrorKind {
				return elems[i]
			}
		}
		return canonUnion(n.e, elems)
	case TupleKind:
		if t.Wild {
			return AnyTuple
		}
		elems := make([]*T, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = n.normalize(e)
			switch elems[i].Kind {
			case ErrorKind:
				return elems[i]
			case NoneKind:
				return None
			}
		}
		return Tuple(elems...)
	case ListKind:
		if t.Empty == EmptyList {
			return Nil
		}
		elem := n.normalize(t.Elem)
		if elem.Kind == ErrorKind {
			return elem
		}
		var tail *T
		if t.Tail != nil {
			tail = n.normalize(t.Tail)
			if tail.Kind == ErrorKind {
				return tail
			}
			if tail.Equal(Nil) {
				tail = nil
			}
		}
		// A list of none() holds no elements; only the empty list
		// remains.
		if elem.Kind == NoneKind {
			if t.Empty == Nonempty {
				return None
			}
			return Nil
		}
		if tail != nil && tail.Kind == NoneKind {
			return None
		}
		return &T{Kind: ListKind, Empty: t.Empty, Elem: elem, Tail: tail}
	case FunKind:
		result := Any
		if t.Result != nil {
			result = n.normalize(t.Result)
			if result.Kind == ErrorKind {
				return result
			}
		}
		if t.Wild {
			if result.Kind == AnyKind {
				return AnyFun
			}
			return AnyArityFun(result)
		}
		elems := make([]*T, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = n.normalize(e)
			if elems[i].Kind == ErrorKind {
				return elems[i]
			}
		}
		var bounds []*Field
		for _, f := range t.Bounds {
			ft := n.normalize(f.T)
			if ft.Kind == ErrorKind {
				return ft
			}
			bounds = append(bounds, &Field{Name: f.Name, T: ft})
		}
		return &T{Kind: FunKind, Elems: elems, Result: result, Bounds: bounds}
	case MapKind:
		var assocs []*Assoc
		for _, a := range t.Assocs {
			key := n.normalize(a.Key)
			if key.Kind == ErrorKind {
				return key
			}
			val := n.normalize(a.Val)
			if val.Kind == ErrorKind {
				return val
			}
			// An association of none() admits no entry. A mandatory
			// one empties the whole map type; an optional one
			// drops.
			if key.Kind == NoneKind || val.Kind == NoneKind {
				if a.Mandatory {
					return None
				}
				continue
			}
			assocs = append(assocs, &Assoc{Mandatory: a.Mandatory, Key: key, Val: val})
		}
		sort.SliceStable(assocs, func(i, j int) bool {
			ki, kj := assocs[i].Key.key(), assocs[j].Key.key()
			if ki != kj {
				return ki < kj
			}
			return assocs[i].Mandatory && !assocs[j].Mandatory
		})
		dedup := assocs[:0]
		for _, a := range assocs {
			if len(dedup) > 0 && dedup[len(dedup)-1].Equal(a) {
				continue
			}
			dedup = append(dedup, a)
		}
		return &T{Kind: MapKind, Assocs: dedup}
	case RecordKind:
		module := t.Module
		if module == "" {
			module = n.module
		}
		decl, ok := n.e.ResolveRecord(module, t.Name)
		if !ok {
			err := Errorf("record #%s undefined", t.Name)
			err.Pos = t.Pos
			return err
		}
		var fields []*Field
		for _, f := range t.Fields {
			df := fieldNamed(decl, f.Name)
			if df == nil {
				err := Errorf("record #%s has no field %s", t.Name, f.Name)
				err.Pos = t.Pos
				return err
			}
			ft := n.normalize(f.T)
			switch ft.Kind {
			case ErrorKind:
				return ft
			case NoneKind:
				return None
			}
			// A refinement equal to the declared type refines
			// nothing.
			if ft.Equal(df.T) {
				continue
			}
			fields = append(fields, &Field{Name: f.Name, T: ft})
		}
		sortFields(fields)
		return &T{Kind: RecordKind, Module: module, Name: t.Name, Fields: fields}
	case BinKind:
		return Bin(t.Base, t.Unit)
	case UserKind:
		return n.user(t)
	}
	return Errorf("invalid type of kind %v", t.Kind)
}

func (n *normalizer) user(t *T) *T {
	if t.Folded {
		// Already normal; arguments of a folded reference are too.
		return t
	}
	elems := make([]*T, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = n.normalize(e)
		if elems[i].Kind == ErrorKind {
			return elems[i]
		}
	}
	if t.Module == "" || t.Module == "erlang" {
		if body, ok := builtinType(t.Name, elems); ok {
			return n.normalize(body)
		}
	}
	module := t.Module
	if module == "" {
		module = n.module
	}
	ref := typeRef{module, t.Name, len(t.Elems)}
	params, body, res := n.e.ResolveType(module, t.Name, len(t.Elems))
	switch res {
	case NotFound:
		err := Errorf("type %s undefined", ref)
		err.Pos = t.Pos
		return err
	case ResolvedPrivate:
		// Private types are referable from their own module only.
		if module != n.module {
			err := Errorf("type %s not exported", ref)
			err.Pos = t.Pos
			return err
		}
	case ResolvedOpaque:
		// Opaque types unfold only for the module under analysis.
		if module != n.e.Module {
			return &T{Kind: UserKind, Module: module, Name: t.Name, Elems: elems, Opaque: true, Folded: true}
		}
	}
	if n.unfolding[ref] {
		return &T{Kind: UserKind, Module: module, Name: t.Name, Elems: elems, Folded: true}
	}
	n.unfolding[ref] = true
	defer delete(n.unfolding, ref)
	sub := make(map[string]*T, len(params))
	for i, p := range params {
		sub[p] = elems[i]
	}
	saved := n.module
	n.module = module
	u := n.normalize(Subst(body, sub))
	n.module = saved
	return u
}

// canonUnion canonicalizes a union of normalized members: nested
// unions flatten, none() drops, any() absorbs, integer types merge,
// atom literals fold into atom(), duplicates collapse, and members
// sort.
func canonUnion(e *Env, elems []*T) *T {
	var (
		flat  []*T
		ints  []intrange.Range
		hasT  bool
		start = elems
	)
	for len(start) > 0 {
		t := start[0]
		start = start[1:]
		switch t.Kind {
		case UnionKind:
			start = append(append([]*T{}, t.Elems...), start...)
		case AnyKind:
			return Any
		case NoneKind:
		case TopKind:
			hasT = true
		case IntKind, IntLitKind, RangeKind:
			r, _ := intView(t)
			ints = append(ints, r)
		default:
			flat = append(flat, t)
		}
	}
	if hasT {
		return Top
	}
	merged := rangesToType(ints)
	switch merged.Kind {
	case NoneKind:
	case UnionKind:
		flat = append(flat, merged.Elems...)
	default:
		flat = append(flat, merged)
	}
	// atom() subsumes atom literals.
	hasAtom := false
	for _, t := range flat {
		if t.Kind == AtomKind {
			hasAtom = true
		}
	}
	if hasAtom {
		out := flat[:0]
		for _, t := range flat {
			if t.Kind != AtomLitKind {
				out = append(out, t)
			}
		}
		flat = out
	}
	flat = mergeEmptiness(flat)
	sort.SliceStable(flat, func(i, j int) bool { return lessT(flat[i], flat[j]) })
	dedup := flat[:0]
	for _, t := range flat {
		if len(dedup) > 0 && dedup[len(dedup)-1].Equal(t) {
			continue
		}
		dedup = append(dedup, t)
	}
	switch {
	case len(dedup) == 0:
		return None
	case len(dedup) == 1:
		return dedup[0]
	case len(dedup) > e.limit():
		return Any
	}
	return Union(dedup...)
}

// mergeEmptiness rewrites [] | [t, ...] to [t] when the union holds
// exactly one nonempty proper list.
func mergeEmptiness(elems []*T) []*T {
	nilAt, nonemptyAt := -1, -1
	for i, t := range elems {
		if t.Kind != ListKind {
			continue
		}
		switch {
		case t.Equal(Nil):
			nilAt = i
		case t.Empty == Nonempty && t.Tail == nil:
			if nonemptyAt >= 0 {
				return elems
			}
			nonemptyAt = i
		}
	}
	if nilAt < 0 || nonemptyAt < 0 {
		return elems
	}
	merged := List(elems[nonemptyAt].Elem)
	var out []*T
	for i, t := range elems {
		switch i {
		case nilAt:
		case nonemptyAt:
			out = append(out, merged)
		default:
			out = append(out, t)
		}
	}
	return out
}

// lessT is the canonical ordering of union members. Integer types
// order numerically among themselves; atom literals alphabetically;
// everything else by kind and then by encoding.
func lessT(t, u *T) bool {
	rt, ru := kindRank(t), kindRank(u)
	if rt != ru {
		return rt < ru
	}
	if t.IsInt() && u.IsInt() {
		a, _ := intView(t)
		b, _ := intView(u)
		if a.Lo != b.Lo {
			return loBefore(a.Lo, b.Lo)
		}
		return hiBefore(a.Hi, b.Hi)
	}
	if t.Kind == AtomLitKind && u.Kind == AtomLitKind {
		return t.Name < u.Name
	}
	return t.key() < u.key()
}

func kindRank(t *T) int {
	if t.IsInt() {
		return int(IntKind)
	}
	return int(t.Kind)
}

// builtinType returns the expansion of a builtin type alias applied
// to the given (normalized) arguments.
func builtinType(name string, args []*T) (*T, bool) {
	switch len(args) {
	case 0:
		switch name {
		case "any", "dynamic":
			return Any, true
		case "term":
			return Top, true
		case "none", "no_return":
			return None, true
		case "atom", "module", "node":
			return Atom, true
		case "boolean", "bool":
			return Bool, true
		case "integer":
			return Integer, true
		case "neg_integer":
			return NegInteger, true
		case "non_neg_integer":
			return NonNegInteger, true
		case "pos_integer":
			return PosInteger, true
		case "char":
			return Char, true
		case "byte", "arity":
			return Range(intrange.Between(0, 255)), true
		case "float":
			return Float, true
		case "number":
			return Union(Integer, Float), true
		case "pid":
			return Pid, true
		case "port":
			return Port, true
		case "reference":
			return Reference, true
		case "identifier":
			return Union(Pid, Port, Reference), true
		case "tuple":
			return AnyTuple, true
		case "mfa":
			return Tuple(Atom, Atom, Range(intrange.Between(0, 255))), true
		case "list":
			return List(Any), true
		case "nil":
			return Nil, true
		case "nonempty_list":
			return NonemptyList(Any), true
		case "string":
			return List(Char), true
		case "nonempty_string":
			return NonemptyList(Char), true
		case "maybe_improper_list":
			return ImproperList(MaybeEmpty, Any, Any), true
		case "nonempty_maybe_improper_list":
			return ImproperList(Nonempty, Any, Any), true
		case "map":
			return AnyMap, true
		case "fun", "function":
			return AnyFun, true
		case "binary":
			return Binary, true
		case "bitstring":
			return Bitstring, true
		case "iolist":
			return iolist, true
		case "iodata":
			return Union(iolistRef, Binary), true
		case "timeout":
			return Union(NonNegInteger, AtomLit("infinity")), true
		}
	case 1:
		switch name {
		case "list":
			return List(args[0]), true
		case "nonempty_list":
			return NonemptyList(args[0]), true
		}
	case 2:
		switch name {
		case "maybe_improper_list":
			return ImproperList(MaybeEmpty, args[0], args[1]), true
		case "nonempty_improper_list", "nonempty_maybe_improper_list":
			return ImproperList(Nonempty, args[0], args[1]), true
		}
	}
	return nil, false
}

// iolist is recursive; its self reference stays folded under the
// builtin pseudo-module erlang.
var (
	iolistRef = &T{Kind: UserKind, Module: "erlang", Name: "iolist", Folded: true}
	iolist    = ImproperList(MaybeEmpty,
		Union(Range(intrange.Between(0, 255)), Binary, iolistRef),
		Union(Binary, Nil))
)

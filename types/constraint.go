// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"sort"

	"github.com/grailbio/gradual/errors"
)

// A Constraint bounds a type variable: an upper constraint demands
// Var <: T, a lower constraint T <: Var.
type Constraint struct {
	Var   string
	Upper bool
	T     *T
}

func (c *Constraint) String() string {
	if c.Upper {
		return fmt.Sprintf("%s <: %s", c.Var, c.T)
	}
	return fmt.Sprintf("%s :> %s", c.Var, c.T)
}

// Constraints is a set of constraints gathered during subtyping.
// A nil Constraints is empty; comparisons of ground types yield nil.
type Constraints []*Constraint

// Upper returns the single constraint v <: t.
func Upper(v string, t *T) Constraints {
	return Constraints{{Var: v, Upper: true, T: t}}
}

// Lower returns the single constraint t <: v.
func Lower(v string, t *T) Constraints {
	return Constraints{{Var: v, T: t}}
}

// Combine concatenates constraint sets, preserving nil when all are
// empty.
func Combine(css ...Constraints) Constraints {
	var all Constraints
	for _, cs := range css {
		all = append(all, cs...)
	}
	return all
}

// Vars returns the sorted set of variables constrained by cs.
func (cs Constraints) Vars() []string {
	seen := make(map[string]bool)
	var vs []string
	for _, c := range cs {
		if !seen[c.Var] {
			seen[c.Var] = true
			vs = append(vs, c.Var)
		}
	}
	sort.Strings(vs)
	return vs
}

func (cs Constraints) String() string {
	strs := make([]string, len(cs))
	for i, c := range cs {
		strs[i] = c.String()
	}
	return fmt.Sprintf("{%v}", strs)
}

// Solve computes a substitution satisfying cs: each variable maps
// to the union of its lower bounds when it has any, otherwise to
// the meet of its upper bounds, otherwise to any(). Solving never
// fails; a variable with incompatible bounds solves to its lower
// bounds, and the mismatch surfaces at the use site.
func (cs Constraints) Solve(e *Env) map[string]*T {
	sub := make(map[string]*T)
	for _, v := range cs.Vars() {
		var lowers []*T
		upper := Top
		for _, c := range cs {
			if c.Var != v {
				continue
			}
			if c.Upper {
				upper, _ = GLB(e, upper, c.T)
			} else {
				lowers = append(lowers, c.T)
			}
		}
		switch {
		case len(lowers) > 0:
			sub[v] = Normalize(e, Union(lowers...))
		case upper.Kind != TopKind:
			sub[v] = upper
		default:
			sub[v] = Any
		}
	}
	return sub
}

// Subst replaces type variables in t according to sub. Variables
// absent from sub are left in place. Bounded fun types shadow their
// own bound variables.
func Subst(t *T, sub map[string]*T) *T {
	if t == nil || len(sub) == 0 {
		return t
	}
	switch t.Kind {
	case VarKind:
		if u, ok := sub[t.Name]; ok {
			return u
		}
		return t
	case FunKind:
		if len(t.Bounds) > 0 {
			inner := make(map[string]*T, len(sub))
			for v, u := range sub {
				inner[v] = u
			}
			for _, f := range t.Bounds {
				delete(inner, f.Name)
			}
			sub = inner
		}
	}
	u := *t
	if t.Elem != nil {
		u.Elem = Subst(t.Elem, sub)
	}
	if t.Tail != nil {
		u.Tail = Subst(t.Tail, sub)
	}
	if t.Result != nil {
		u.Result = Subst(t.Result, sub)
	}
	if len(t.Elems) > 0 {
		u.Elems = make([]*T, len(t.Elems))
		for i, e := range t.Elems {
			u.Elems[i] = Subst(e, sub)
		}
	}
	if len(t.Bounds) > 0 {
		u.Bounds = make([]*Field, len(t.Bounds))
		for i, f := range t.Bounds {
			u.Bounds[i] = &Field{Name: f.Name, T: Subst(f.T, sub)}
		}
	}
	if len(t.Assocs) > 0 {
		u.Assocs = make([]*Assoc, len(t.Assocs))
		for i, a := range t.Assocs {
			u.Assocs[i] = &Assoc{Mandatory: a.Mandatory, Key: Subst(a.Key, sub), Val: Subst(a.Val, sub)}
		}
	}
	if len(t.Fields) > 0 {
		u.Fields = make([]*Field, len(t.Fields))
		for i, f := range t.Fields {
			u.Fields[i] = &Field{Name: f.Name, T: Subst(f.T, sub)}
		}
	}
	return &u
}

// SolveBounds eliminates the when-clause of a bounded fun type by
// substituting each bound variable's type into the fun's arguments
// and result. Bounds on the same variable meet. Mutually recursive
// bounds are rejected with a CyclicConstraint error.
func SolveBounds(e *Env, ft *T) (*T, error) {
	if ft.Kind != FunKind || len(ft.Bounds) == 0 {
		return ft, nil
	}
	bounds := make(map[string]*T)
	for _, f := range ft.Bounds {
		if prev, ok := bounds[f.Name]; ok {
			bounds[f.Name], _ = GLB(e, prev, f.T)
		} else {
			bounds[f.Name] = f.T
		}
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var cycle error
	var resolve func(v string) *T
	resolve = func(v string) *T {
		switch state[v] {
		case visiting:
			if cycle == nil {
				cycle = errors.E(errors.CyclicConstraint, fmt.Sprintf("bound variable %s depends on itself", v))
			}
			return Any
		case done:
			return bounds[v]
		}
		state[v] = visiting
		deps := make(map[string]bool)
		freeVars(bounds[v], deps)
		sub := make(map[string]*T)
		for dep := range deps {
			if _, ok := bounds[dep]; ok {
				sub[dep] = resolve(dep)
			}
		}
		bounds[v] = Subst(bounds[v], sub)
		state[v] = done
		return bounds[v]
	}
	for _, f := range ft.Bounds {
		resolve(f.Name)
	}
	if cycle != nil {
		return nil, cycle
	}
	u := *ft
	u.Bounds = nil
	solved := Subst(&u, bounds)
	return solved, nil
}

// FreeVars returns the sorted names of the type variables occurring
// in t.
func FreeVars(t *T) []string {
	vs := make(map[string]bool)
	freeVars(t, vs)
	names := make([]string, 0, len(vs))
	for v := range vs {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// freeVars adds the names of type variables occurring in t to vs.
func freeVars(t *T, vs map[string]bool) {
	if t == nil {
		return
	}
	if t.Kind == VarKind {
		vs[t.Name] = true
		return
	}
	freeVars(t.Elem, vs)
	freeVars(t.Tail, vs)
	freeVars(t.Result, vs)
	for _, e := range t.Elems {
		freeVars(e, vs)
	}
	for _, f := range t.Bounds {
		freeVars(f.T, vs)
	}
	for _, a := range t.Assocs {
		freeVars(a.Key, vs)
		freeVars(a.Val, vs)
	}
	for _, f := range t.Fields {
		freeVars(f.T, vs)
	}
}

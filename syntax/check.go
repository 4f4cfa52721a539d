// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package syntax implements parsing and type checking of Erlang-style
// source modules. The checker is bidirectional: expressions are
// checked top-down against an expected type where one is known
// (checkAgainst) and inferred bottom-up otherwise (infer). Both modes
// lean on package types for subtyping, meets, and refinement.
package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/log"
	"github.com/grailbio/gradual/types"
)

// Options configures module checking.
type Options struct {
	// Infer propagates literal and structural types of expressions.
	// When off, literals in expression position type as any().
	Infer bool
	// Verbose logs checking progress through Log.
	Verbose bool
	// Exhaustive enables exhaustiveness checking of clause lists.
	Exhaustive bool
	// StopOnFirstError stops checking after the first diagnostic.
	StopOnFirstError bool
	// UnionLimit overrides the union width limit when positive.
	UnionLimit int
	// Log receives progress and debug output. It may be nil.
	Log *log.Logger
}

// CheckModule type-checks the functions of module m in the given type
// environment, which must be rooted at m's name. It returns one
// diagnostic per failed function; checking continues past failures
// unless opts.StopOnFirstError is set. Defects in the checker itself
// propagate as panics and are not converted into diagnostics.
func CheckModule(m *Module, env *types.Env, opts Options) []*errors.Error {
	if opts.UnionLimit > 0 {
		env.Limit = opts.UnionLimit
	}
	c := &checker{m: m, env: env, opts: opts, log: opts.Log}
	var diags []*errors.Error
	fail := func(err error) bool {
		diags = append(diags, errors.Recover(err))
		return opts.StopOnFirstError
	}
	for _, decl := range m.Types {
		if err := c.checkTypeDecl(decl); err != nil {
			if fail(err) {
				return diags
			}
		}
	}
	for _, spec := range m.Specs {
		if err := c.checkSpecDecl(spec); err != nil {
			if fail(err) {
				return diags
			}
		}
	}
	for _, f := range m.Funcs {
		if err := c.checkFunc(f); err != nil {
			if fail(err) {
				return diags
			}
		}
	}
	return diags
}

// A checker holds the state of one module's check.
type checker struct {
	m    *Module
	env  *types.Env
	opts Options
	log  *log.Logger
}

// normalize normalizes t, converting unresolved references into
// checker errors.
func (c *checker) normalize(t *types.T) (*types.T, error) {
	n := types.Normalize(c.env, t)
	if n.Kind == types.ErrorKind {
		return nil, errors.E(errors.UndefinedReference, n.Pos, n.Error.Error())
	}
	return n, nil
}

// checkTypeDecl validates that a type declaration's body normalizes.
func (c *checker) checkTypeDecl(decl *TypeDecl) error {
	// Parameters stand for arbitrary types while validating.
	sub := make(map[string]*types.T, len(decl.Params))
	for _, p := range decl.Params {
		sub[p] = types.Any
	}
	n := types.Normalize(c.env, types.Subst(decl.Body, sub))
	if n.Kind == types.ErrorKind {
		return errors.E(errors.BadTypeAnnotation, decl.Position,
			fmt.Sprintf("type %s/%d", decl.Name, len(decl.Params)), n.Error)
	}
	return nil
}

// checkSpecDecl validates that a spec names a defined function and
// that its types normalize.
func (c *checker) checkSpecDecl(spec *SpecDecl) error {
	if c.m.Func(FA{spec.Name, spec.Arity}) == nil {
		return errors.E(errors.BadTypeAnnotation, spec.Position,
			fmt.Sprintf("spec for undefined function %s/%d", spec.Name, spec.Arity))
	}
	for _, ft := range spec.Types {
		if _, err := c.specFunType(ft); err != nil {
			return err
		}
	}
	return nil
}

// specFunType readies one spec clause for checking: bounded funs have
// their when-clauses substituted away, and the result is normalized.
func (c *checker) specFunType(ft *types.T) (*types.T, error) {
	pos := ft.Pos
	n, err := c.normalize(ft)
	if err != nil {
		return nil, err
	}
	if n.Kind != types.FunKind {
		return nil, errors.E(errors.BadTypeAnnotation, pos, fmt.Sprintf("%s is not a function type", n))
	}
	solved, err := types.SolveBounds(c.env, n)
	if err != nil {
		return nil, errors.E(pos, err)
	}
	return c.normalize(solved)
}

// checkFunc checks every clause of f against every clause of its
// spec. An unspecced function checks against fun((any(), ...) ->
// any()) at its arity.
func (c *checker) checkFunc(f *FuncDecl) error {
	if c.opts.Verbose {
		c.log.Debugf("checking %s/%d", f.Name, f.Arity)
		if c.log.At(log.DebugLevel) {
			c.log.Debug(dump(f))
		}
	}
	fts := [][]*types.T{nil}
	if spec := c.m.Spec(FA{f.Name, f.Arity}); spec != nil {
		fts = [][]*types.T{spec.Types}
	}
	for _, specTypes := range fts {
		if specTypes == nil {
			args := make([]*types.T, f.Arity)
			for i := range args {
				args[i] = types.Any
			}
			_, _, err := c.clauses(make(venv), f.Clauses, args, types.Any, bindVars)
			if err != nil {
				return err
			}
			continue
		}
		// A multi-clause spec is an intersection: the function must
		// satisfy every clause.
		for _, ft := range specTypes {
			n, err := c.specFunType(ft)
			if err != nil {
				return err
			}
			if len(n.Elems) != f.Arity && !n.Wild {
				return errors.E(errors.ArityMismatch, ft.Pos,
					fmt.Sprintf("spec of arity %d for function %s/%d", len(n.Elems), f.Name, f.Arity))
			}
			args := n.Elems
			if n.Wild {
				args = make([]*types.T, f.Arity)
				for i := range args {
					args[i] = types.Any
				}
			}
			result := types.Any
			if n.Result != nil {
				result = n.Result
			}
			if _, _, err := c.clauses(make(venv), f.Clauses, args, result, bindVars); err != nil {
				return err
			}
		}
	}
	return nil
}

// venv maps variable names to their currently known types. Venvs are
// copied on extension so that divergent pattern and union trials
// never observe each other's bindings.
type venv map[string]*types.T

func (vs venv) bind(name string, t *types.T) venv {
	nv := make(venv, len(vs)+1)
	for k, v := range vs {
		nv[k] = v
	}
	nv[name] = t
	return nv
}

// seq type-checks an expression sequence, threading bindings, and
// returns the last expression's type.
func (c *checker) seq(vs venv, body []*Expr) (*types.T, venv, types.Constraints, error) {
	var (
		t   *types.T = types.Any
		all types.Constraints
	)
	for _, e := range body {
		var (
			cs  types.Constraints
			err error
		)
		t, vs, cs, err = c.infer(vs, e)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
	}
	return t, vs, all, nil
}

// seqAgainst type-checks an expression sequence whose final
// expression is checked against want.
func (c *checker) seqAgainst(vs venv, want *types.T, body []*Expr) (venv, types.Constraints, error) {
	var all types.Constraints
	for i, e := range body {
		var (
			cs  types.Constraints
			err error
		)
		if i == len(body)-1 {
			vs, cs, err = c.checkAgainst(vs, want, e)
		} else {
			_, vs, cs, err = c.infer(vs, e)
		}
		if err != nil {
			return nil, nil, err
		}
		all = types.Combine(all, cs)
	}
	return vs, all, nil
}

// mismatch constructs a type mismatch diagnostic for e.
func (c *checker) mismatch(e *Expr, got, want *types.T) error {
	return errors.E(errors.TypeMismatch, e.Position,
		fmt.Sprintf("%s has type %s but %s is expected", e, got, want))
}

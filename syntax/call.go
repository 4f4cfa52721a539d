// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/types"
)

// inferCall checks a function application and synthesizes its result
// type.
func (c *checker) inferCall(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	if e.Left != nil {
		return c.inferRemoteCall(vs, e)
	}
	if name, ok := e.Right.atom(); ok {
		specs, err := c.localSpec(e.Position, name, len(e.List))
		if err != nil {
			return nil, nil, nil, err
		}
		return c.applyCandidates(vs, e, specs)
	}
	// The callee is a fun-valued expression.
	callee, vs, cs, err := c.infer(vs, e.Right)
	if err != nil {
		return nil, nil, nil, err
	}
	t, vs, cs2, err := c.applyValue(vs, e, callee)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, vs, types.Combine(cs, cs2), nil
}

// inferRemoteCall checks a remote application m:f(Args).
func (c *checker) inferRemoteCall(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	mod, modOK := e.Left.atom()
	name, nameOK := e.Right.atom()
	if !modOK || !nameOK {
		// Dynamic dispatch: the module and name expressions must be
		// atoms, the result is unknown.
		var all types.Constraints
		for _, part := range []*Expr{e.Left, e.Right} {
			if _, ok := part.atom(); ok {
				continue
			}
			nvs, cs, err := c.checkAgainst(vs, types.Atom, part)
			if err != nil {
				return nil, nil, nil, err
			}
			vs = nvs
			all = types.Combine(all, cs)
		}
		for _, arg := range e.List {
			_, nvs, cs, err := c.infer(vs, arg)
			if err != nil {
				return nil, nil, nil, err
			}
			vs = nvs
			all = types.Combine(all, cs)
		}
		return types.Any, vs, all, nil
	}
	specs, err := c.remoteSpec(e.Position, mod, name, len(e.List))
	if err != nil {
		return nil, nil, nil, err
	}
	return c.applyCandidates(vs, e, specs)
}

// localSpec resolves an unqualified call target: a module function,
// an import, or an auto-imported BIF. The result is the candidate
// fun types; an unspecced function yields nil types of the right
// arity, meaning fun((any(), ...) -> any()).
func (c *checker) localSpec(pos scanner.Position, name string, arity int) ([]*types.T, error) {
	fa := FA{name, arity}
	if c.m.Func(fa) != nil {
		if spec := c.m.Spec(fa); spec != nil {
			return spec.Types, nil
		}
		return nil, nil
	}
	if mod, ok := c.m.Imports[fa]; ok {
		return c.remoteSpec(pos, mod, name, arity)
	}
	if specs, ok := bifSpec("erlang", name, arity); ok {
		return specs, nil
	}
	return nil, errors.E(errors.UndefinedReference, pos,
		fmt.Sprintf("function %s/%d is undefined", name, arity))
}

// remoteSpec resolves a remote call target through the module
// database, falling back to the built-in table.
func (c *checker) remoteSpec(pos scanner.Position, mod, name string, arity int) ([]*types.T, error) {
	if mod == c.m.Name {
		return c.localSpec(pos, name, arity)
	}
	if specs, ok := c.env.ResolveSpec(mod, name, arity); ok {
		return specs, nil
	}
	if specs, ok := bifSpec(mod, name, arity); ok {
		return specs, nil
	}
	return nil, errors.E(errors.UndefinedReference, pos,
		fmt.Sprintf("function %s:%s/%d is undefined", mod, name, arity))
}

// applyCandidates applies the call e to a spec's candidate fun types
// in order; the first candidate the arguments satisfy decides the
// result. A nil candidate list means the function is unspecced.
func (c *checker) applyCandidates(vs venv, e *Expr, specs []*types.T) (*types.T, venv, types.Constraints, error) {
	if specs == nil {
		specs = []*types.T{types.AnyArityFun(types.Any)}
	}
	var first error
	for _, spec := range specs {
		ft, err := c.specFunType(spec)
		if err != nil {
			return nil, nil, nil, err
		}
		t, nvs, cs, err := c.applyFun(vs, e, ft)
		if err == nil {
			return t, nvs, cs, nil
		}
		if errors.Is(errors.ArityMismatch, err) {
			return nil, nil, nil, err
		}
		if first == nil {
			first = err
		}
	}
	return nil, nil, nil, first
}

// applyValue applies the call e to a fun-valued callee type.
func (c *checker) applyValue(vs venv, e *Expr, callee *types.T) (*types.T, venv, types.Constraints, error) {
	switch callee.Kind {
	case types.AnyKind, types.VarKind:
		return c.applyFun(vs, e, types.Normalize(c.env, types.AnyArityFun(types.Any)))
	case types.FunKind:
		return c.applyFun(vs, e, callee)
	case types.UnionKind:
		// Every alternative must accept the arguments; the results
		// union.
		var (
			results []*types.T
			all     types.Constraints
			out     venv
		)
		for _, member := range callee.Elems {
			t, nvs, cs, err := c.applyValue(vs, e, member)
			if err != nil {
				return nil, nil, nil, err
			}
			results = append(results, t)
			all = types.Combine(all, cs)
			out = nvs
		}
		return types.Normalize(c.env, types.Union(results...)), out, all, nil
	}
	return nil, nil, nil, errors.E(errors.TypeMismatch, e.Right.Position,
		fmt.Sprintf("%s has type %s and cannot be applied", e.Right, callee))
}

// applyFun checks the call e against a single normalized fun type.
func (c *checker) applyFun(vs venv, e *Expr, ft *types.T) (*types.T, venv, types.Constraints, error) {
	result := types.Any
	if ft.Result != nil {
		result = ft.Result
	}
	if ft.Wild {
		var all types.Constraints
		for _, arg := range e.List {
			_, nvs, cs, err := c.infer(vs, arg)
			if err != nil {
				return nil, nil, nil, err
			}
			vs = nvs
			all = types.Combine(all, cs)
		}
		return result, vs, all, nil
	}
	if len(ft.Elems) != len(e.List) {
		return nil, nil, nil, errors.E(errors.ArityMismatch, e.Position,
			fmt.Sprintf("%s takes %d arguments, called with %d", e.Right, len(ft.Elems), len(e.List)))
	}
	var all types.Constraints
	for i, arg := range e.List {
		nvs, cs, err := c.checkAgainst(vs, ft.Elems[i], arg)
		if err != nil {
			return nil, nil, nil, err
		}
		vs = nvs
		all = types.Combine(all, cs)
	}
	// A polymorphic spec's variables are solved from the argument
	// constraints and substituted into the result.
	if vars := types.FreeVars(result); len(vars) > 0 {
		sub := all.Solve(c.env)
		result = types.Normalize(c.env, types.Subst(result, sub))
	}
	return result, vs, all, nil
}

// bifKey identifies a built-in function.
type bifKey struct {
	module string
	name   string
	arity  int
}

// bifSpec returns the candidate fun types of a built-in function.
func bifSpec(module, name string, arity int) ([]*types.T, bool) {
	specs, ok := bifSpecs[bifKey{module, name, arity}]
	return specs, ok
}

func bif(args []*types.T, result *types.T) []*types.T {
	return []*types.T{types.Fun(args, result)}
}

// bifSpecs lists the built-in functions the checker knows. The table
// is deliberately small: what guard tests and common term
// manipulation need. Everything else comes from the module database.
var bifSpecs = map[bifKey][]*types.T{
	{"erlang", "abs", 1}:               bif([]*types.T{numberType}, numberType),
	{"erlang", "length", 1}:            bif([]*types.T{types.List(types.Any)}, types.NonNegInteger),
	{"erlang", "hd", 1}:                bif([]*types.T{types.NonemptyList(types.Any)}, types.Any),
	{"erlang", "tl", 1}:                bif([]*types.T{types.NonemptyList(types.Any)}, types.List(types.Any)),
	{"erlang", "element", 2}:           bif([]*types.T{types.PosInteger, types.AnyTuple}, types.Any),
	{"erlang", "setelement", 3}:        bif([]*types.T{types.PosInteger, types.AnyTuple, types.Top}, types.AnyTuple),
	{"erlang", "tuple_size", 1}:        bif([]*types.T{types.AnyTuple}, types.NonNegInteger),
	{"erlang", "map_size", 1}:          bif([]*types.T{types.AnyMap}, types.NonNegInteger),
	{"erlang", "byte_size", 1}:         bif([]*types.T{types.Bitstring}, types.NonNegInteger),
	{"erlang", "bit_size", 1}:          bif([]*types.T{types.Bitstring}, types.NonNegInteger),
	{"erlang", "size", 1}:              bif([]*types.T{types.Union(types.AnyTuple, types.Bitstring)}, types.NonNegInteger),
	{"erlang", "atom_to_list", 1}:      bif([]*types.T{types.Atom}, types.List(types.Char)),
	{"erlang", "list_to_atom", 1}:      bif([]*types.T{types.List(types.Char)}, types.Atom),
	{"erlang", "integer_to_list", 1}:   bif([]*types.T{types.Integer}, types.NonemptyList(types.Char)),
	{"erlang", "list_to_integer", 1}:   bif([]*types.T{types.NonemptyList(types.Char)}, types.Integer),
	{"erlang", "float_to_list", 1}:     bif([]*types.T{types.Float}, types.NonemptyList(types.Char)),
	{"erlang", "list_to_float", 1}:     bif([]*types.T{types.NonemptyList(types.Char)}, types.Float),
	{"erlang", "binary_to_list", 1}:    bif([]*types.T{types.Binary}, types.List(types.Char)),
	{"erlang", "list_to_binary", 1}:    bif([]*types.T{types.List(types.Any)}, types.Binary),
	{"erlang", "atom_to_binary", 1}:    bif([]*types.T{types.Atom}, types.Binary),
	{"erlang", "binary_to_atom", 1}:    bif([]*types.T{types.Binary}, types.Atom),
	{"erlang", "tuple_to_list", 1}:     bif([]*types.T{types.AnyTuple}, types.List(types.Any)),
	{"erlang", "list_to_tuple", 1}:     bif([]*types.T{types.List(types.Any)}, types.AnyTuple),
	{"erlang", "trunc", 1}:             bif([]*types.T{numberType}, types.Integer),
	{"erlang", "round", 1}:             bif([]*types.T{numberType}, types.Integer),
	{"erlang", "float", 1}:             bif([]*types.T{numberType}, types.Float),
	{"erlang", "min", 2}:               bif([]*types.T{types.Top, types.Top}, types.Top),
	{"erlang", "max", 2}:               bif([]*types.T{types.Top, types.Top}, types.Top),
	{"erlang", "self", 0}:              bif(nil, types.Pid),
	{"erlang", "node", 0}:              bif(nil, types.Atom),
	{"erlang", "make_ref", 0}:          bif(nil, types.Reference),
	{"erlang", "spawn", 1}:             bif([]*types.T{types.Fun(nil, types.Any)}, types.Pid),
	{"erlang", "spawn_link", 1}:        bif([]*types.T{types.Fun(nil, types.Any)}, types.Pid),
	{"erlang", "throw", 1}:             bif([]*types.T{types.Top}, types.None),
	{"erlang", "error", 1}:             bif([]*types.T{types.Top}, types.None),
	{"erlang", "error", 2}:             bif([]*types.T{types.Top, types.Top}, types.None),
	{"erlang", "exit", 1}:              bif([]*types.T{types.Top}, types.None),
	{"erlang", "apply", 3}:             bif([]*types.T{types.Atom, types.Atom, types.List(types.Any)}, types.Any),
	{"erlang", "is_atom", 1}:           bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_boolean", 1}:        bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_integer", 1}:        bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_float", 1}:          bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_number", 1}:         bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_list", 1}:           bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_tuple", 1}:          bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_map", 1}:            bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_function", 1}:       bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_function", 2}:       bif([]*types.T{types.Top, types.NonNegInteger}, types.Bool),
	{"erlang", "is_binary", 1}:         bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_bitstring", 1}:      bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_pid", 1}:            bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_port", 1}:           bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_reference", 1}:      bif([]*types.T{types.Top}, types.Bool),
	{"erlang", "is_record", 2}:         bif([]*types.T{types.Top, types.Atom}, types.Bool),
	{"maps", "get", 2}:                 bif([]*types.T{types.Top, types.AnyMap}, types.Any),
	{"maps", "put", 3}:                 bif([]*types.T{types.Top, types.Top, types.AnyMap}, types.AnyMap),
	{"maps", "find", 2}:                bif([]*types.T{types.Top, types.AnyMap}, types.Union(types.Tuple(types.AtomLit("ok"), types.Any), types.AtomLit("error"))),
	{"maps", "is_key", 2}:              bif([]*types.T{types.Top, types.AnyMap}, types.Bool),
	{"lists", "reverse", 1}:            bif([]*types.T{types.List(types.Var("A"))}, types.List(types.Var("A"))),
	{"lists", "member", 2}:             bif([]*types.T{types.Top, types.List(types.Any)}, types.Bool),
	{"lists", "append", 2}:             bif([]*types.T{types.List(types.Var("A")), types.List(types.Var("A"))}, types.List(types.Var("A"))),
	{"lists", "map", 2}:                bif([]*types.T{types.Fun([]*types.T{types.Var("A")}, types.Var("B")), types.List(types.Var("A"))}, types.List(types.Var("B"))),
	{"lists", "filter", 2}:             bif([]*types.T{types.Fun([]*types.T{types.Var("A")}, types.Bool), types.List(types.Var("A"))}, types.List(types.Var("A"))),
	{"lists", "foldl", 3}:              bif([]*types.T{types.Fun([]*types.T{types.Var("A"), types.Var("B")}, types.Var("B")), types.Var("B"), types.List(types.Var("A"))}, types.Var("B")),
	{"lists", "sort", 1}:               bif([]*types.T{types.List(types.Var("A"))}, types.List(types.Var("A"))),
	{"lists", "seq", 2}:                bif([]*types.T{types.Integer, types.Integer}, types.List(types.Integer)),
	{"io", "format", 1}:                bif([]*types.T{types.List(types.Char)}, types.AtomLit("ok")),
	{"io", "format", 2}:                bif([]*types.T{types.List(types.Char), types.List(types.Any)}, types.AtomLit("ok")),
	{"io_lib", "format", 2}:            bif([]*types.T{types.List(types.Char), types.List(types.Any)}, types.List(types.Any)),
	{"erlang", "send_after", 3}:        bif([]*types.T{types.NonNegInteger, types.Pid, types.Top}, types.Reference),
	{"erlang", "monitor", 2}:           bif([]*types.T{types.Atom, types.Top}, types.Reference),
	{"erlang", "demonitor", 1}:         bif([]*types.T{types.Reference}, types.True),
	{"erlang", "integer_to_binary", 1}: bif([]*types.T{types.Integer}, types.Binary),
	{"erlang", "binary_to_integer", 1}: bif([]*types.T{types.Binary}, types.Integer),
}

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

// clauses checks a clause list against the subject types args. When
// want is non-nil, every clause body is checked against it and want
// is returned; otherwise bodies are inferred and their union is
// returned.
//
// When exhaustiveness checking is enabled and every subject position
// is refinable, the clause list must cover the full subject space:
// the residual subject tuple is narrowed by each guard-free clause's
// coverage, and a nonempty residual after the last clause is an
// error. A clause reached with an empty residual is unreachable.
func (c *checker) clauses(vs venv, clauses []*Clause, args []*types.T, want *types.T, mode patMode) (*types.T, types.Constraints, error) {
	if len(clauses) == 0 {
		panic("empty clause list")
	}
	nargs := make([]*types.T, len(args))
	for i, arg := range args {
		n, err := c.normalize(arg)
		if err != nil {
			return nil, nil, err
		}
		nargs[i] = n
	}
	var wantN *types.T
	if want != nil {
		var err error
		wantN, err = c.normalize(want)
		if err != nil {
			return nil, nil, err
		}
	}
	track := c.trackCoverage(clauses, nargs)
	residual := types.Normalize(c.env, types.Tuple(nargs...))
	var (
		results []*types.T
		all     types.Constraints
	)
	clauseArgs := nargs
	for i, clause := range clauses {
		if track && residual.Kind == types.NoneKind {
			return nil, nil, errors.E(errors.UnreachableClause, clause.Position,
				fmt.Sprintf("clause %d can never match", i+1))
		}
		cvs, infos, cs, err := c.checkPats(vs, mode, clause.Pats, clauseArgs)
		if err != nil {
			return nil, nil, err
		}
		all = types.Combine(all, cs)
		cvs, cs, err = c.checkGuards(cvs, clause)
		if err != nil {
			return nil, nil, err
		}
		all = types.Combine(all, cs)
		if wantN != nil {
			_, cs, err := c.seqAgainst(cvs, wantN, clause.Body)
			if err != nil {
				return nil, nil, err
			}
			all = types.Combine(all, cs)
		} else {
			t, _, cs, err := c.seq(cvs, clause.Body)
			if err != nil {
				return nil, nil, err
			}
			all = types.Combine(all, cs)
			results = append(results, t)
		}
		if track {
			covs := make([]*types.T, len(infos))
			for j, info := range infos {
				covs[j] = info.cov
			}
			residual = types.Diff(c.env, residual, types.Normalize(c.env, types.Tuple(covs...)))
		}
		// A rejected guard on a variable row narrows what the next
		// clause can see.
		clauseArgs = c.refineNext(clause, clauseArgs)
	}
	if track && residual.Kind != types.NoneKind {
		return nil, nil, c.nonExhaustive(clauses[0].Position, residual)
	}
	if wantN != nil {
		return wantN, all, nil
	}
	return types.Normalize(c.env, types.Union(results...)), all, nil
}

// trackCoverage reports whether exhaustiveness accounting applies to
// a clause list: it must be requested, every subject position must be
// refinable, and no clause may carry a guard, since guards reject
// values the patterns admit.
func (c *checker) trackCoverage(clauses []*Clause, args []*types.T) bool {
	if !c.opts.Exhaustive {
		return false
	}
	for _, clause := range clauses {
		if len(clause.Guards) > 0 {
			return false
		}
	}
	for _, arg := range args {
		if !types.Refinable(c.env, arg) {
			return false
		}
	}
	return true
}

// nonExhaustive builds the diagnostic for an uncovered residual,
// citing an example value the clauses miss.
func (c *checker) nonExhaustive(pos scanner.Position, residual *types.T) error {
	example := residual
	if residual.Kind == types.TupleKind && len(residual.Elems) == 1 {
		example = residual.Elems[0]
	}
	return errors.E(errors.NonExhaustive, pos,
		fmt.Sprintf("clauses do not cover %s; example: %s", example, types.Example(c.env, example)))
}

// refineNext narrows the subject types seen by the clause after one
// whose guard rejected. The narrowing applies only when the clause's
// patterns are distinct variables or wildcards, so that pattern
// failure cannot be the reason control reached the next clause.
func (c *checker) refineNext(clause *Clause, args []*types.T) []*types.T {
	refs := c.guardRefinements(clause)
	if len(refs) == 0 || !plainVarRow(clause.Pats) {
		return args
	}
	argIndex := make(map[string]int)
	for i, pat := range clause.Pats {
		if pat.Kind == ExprVar && !pat.wildcard() {
			argIndex[pat.Ident] = i
		}
	}
	out := make([]*types.T, len(args))
	copy(out, args)
	for _, ref := range refs {
		i, ok := argIndex[ref.v]
		if !ok {
			continue
		}
		reft := types.Normalize(c.env, ref.t)
		if ref.neg {
			// The guard excluded the type; falling through means the
			// value is in it.
			m, _ := types.GLB(c.env, out[i], reft)
			out[i] = m
		} else {
			out[i] = types.Diff(c.env, out[i], reft)
		}
	}
	return out
}

// plainVarRow tells whether every pattern in a row is a distinct
// variable or a wildcard.
func plainVarRow(pats []*Expr) bool {
	seen := make(map[string]bool)
	for _, pat := range pats {
		if pat.Kind != ExprVar {
			return false
		}
		if pat.wildcard() {
			continue
		}
		if seen[pat.Ident] {
			return false
		}
		seen[pat.Ident] = true
	}
	return true
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import "github.com/grailbio/gradual/intrange"

// maxChar is the largest Unicode code point, the upper bound of
// char().
const maxChar = 0x10ffff

// intView returns the integer range denoted by an integer-kinded
// type.
func intView(t *T) (intrange.Range, bool) {
	switch t.Kind {
	case IntKind:
		switch t.Class {
		case ClassNeg:
			return intrange.AtMost(-1), true
		case ClassNonNeg:
			return intrange.AtLeast(0), true
		case ClassPos:
			return intrange.AtLeast(1), true
		case ClassChar:
			return intrange.Between(0, maxChar), true
		default:
			return intrange.Full, true
		}
	case IntLitKind:
		return intrange.Point(t.Val), true
	case RangeKind:
		return intrange.Range{Lo: t.Lo, Hi: t.Hi}, true
	}
	return intrange.Range{}, false
}

// intViews returns the ranges denoted by t when t is
// integer-kinded or a union of integer-kinded types.
func intViews(t *T) ([]intrange.Range, bool) {
	if r, ok := intView(t); ok {
		return []intrange.Range{r}, true
	}
	if t.Kind != UnionKind {
		return nil, false
	}
	var rs []intrange.Range
	for _, e := range t.Elems {
		r, ok := intView(e)
		if !ok {
			return nil, false
		}
		rs = append(rs, r)
	}
	return rs, true
}

// rangeToType maps a range back to its canonical type: named
// integer classes where the bounds coincide, literals for points,
// ranges otherwise.
func rangeToType(r intrange.Range) *T {
	if r.Empty() {
		return None
	}
	if n, ok := r.Point(); ok {
		return IntLit(n)
	}
	switch {
	case r == intrange.Full:
		return Integer
	case r == intrange.AtMost(-1):
		return NegInteger
	case r == intrange.AtLeast(0):
		return NonNegInteger
	case r == intrange.AtLeast(1):
		return PosInteger
	case r == intrange.Between(0, maxChar):
		return Char
	default:
		return Range(r)
	}
}

// rangesToType merges rs and maps the result back to a type. The
// members of a resulting union are disjoint and ascending.
func rangesToType(rs []intrange.Range) *T {
	rs = intrange.Merge(rs)
	switch len(rs) {
	case 0:
		return None
	case 1:
		return rangeToType(rs[0])
	}
	elems := make([]*T, len(rs))
	for i, r := range rs {
		elems[i] = rangeToType(r)
	}
	return Union(elems...)
}

// loBefore orders lower bounds, infinite first.
func loBefore(a, b intrange.Bound) bool {
	if a.Inf != b.Inf {
		return a.Inf
	}
	return !a.Inf && a.N < b.N
}

// hiBefore orders upper bounds, infinite last.
func hiBefore(a, b intrange.Bound) bool {
	if a.Inf != b.Inf {
		return b.Inf
	}
	return !a.Inf && a.N < b.N
}

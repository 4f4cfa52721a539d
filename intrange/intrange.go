// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package intrange implements interval arithmetic over the integers
// extended with infinities. Ranges are inclusive on both ends; either
// end may be unbounded. The package is the arithmetic core behind
// integer subtyping, meets, and refinement: subtyping reduces to
// Subset, meets to Intersect, and refinement to Diff.
package intrange

import (
	"fmt"
	"math"
	"sort"
)

// Bound is one endpoint of a range. An unbounded Bound stands for
// negative infinity in a low position and positive infinity in a
// high position.
type Bound struct {
	// Inf tells whether the bound is unbounded.
	Inf bool
	// N is the bound's value; it is meaningful only when Inf is false.
	N int64
}

// Unbounded is the infinite bound.
var Unbounded = Bound{Inf: true}

// Finite returns the bound at n.
func Finite(n int64) Bound {
	return Bound{N: n}
}

// String renders the bound for diagnostics.
func (b Bound) String() string {
	if b.Inf {
		return "*"
	}
	return fmt.Sprint(b.N)
}

// Range is an inclusive integer interval. The zero Range is the
// single point 0.
type Range struct {
	Lo, Hi Bound
}

// Full is the range of all integers.
var Full = Range{Unbounded, Unbounded}

// Point returns the range containing exactly n.
func Point(n int64) Range {
	return Range{Finite(n), Finite(n)}
}

// Between returns the range lo..hi.
func Between(lo, hi int64) Range {
	return Range{Finite(lo), Finite(hi)}
}

// AtLeast returns the range lo..infinity.
func AtLeast(lo int64) Range {
	return Range{Finite(lo), Unbounded}
}

// AtMost returns the range -infinity..hi.
func AtMost(hi int64) Range {
	return Range{Unbounded, Finite(hi)}
}

// Empty tells whether the range contains no integers.
func (r Range) Empty() bool {
	return !r.Lo.Inf && !r.Hi.Inf && r.Lo.N > r.Hi.N
}

// Point returns the range's single element, if it has exactly one.
func (r Range) Point() (int64, bool) {
	if !r.Lo.Inf && !r.Hi.Inf && r.Lo.N == r.Hi.N {
		return r.Lo.N, true
	}
	return 0, false
}

// Contains tells whether n is in the range.
func (r Range) Contains(n int64) bool {
	return (r.Lo.Inf || r.Lo.N <= n) && (r.Hi.Inf || n <= r.Hi.N)
}

// Equal tells whether two ranges denote the same set of integers.
func (r Range) Equal(s Range) bool {
	if r.Empty() || s.Empty() {
		return r.Empty() && s.Empty()
	}
	return r.Lo == s.Lo && r.Hi == s.Hi
}

// String renders the range for diagnostics.
func (r Range) String() string {
	if r.Empty() {
		return "empty"
	}
	return r.Lo.String() + ".." + r.Hi.String()
}

// Subset tells whether every integer in r is also in s.
func Subset(r, s Range) bool {
	if r.Empty() {
		return true
	}
	if s.Empty() {
		return false
	}
	loOk := s.Lo.Inf || !r.Lo.Inf && r.Lo.N >= s.Lo.N
	hiOk := s.Hi.Inf || !r.Hi.Inf && r.Hi.N <= s.Hi.N
	return loOk && hiOk
}

// SubsetAll tells whether every integer in r is in the union of ss.
func SubsetAll(r Range, ss []Range) bool {
	rest := Diff(r, ss...)
	return len(rest) == 0
}

// Intersect returns the intersection of r and s, which may be empty.
func Intersect(r, s Range) Range {
	if r.Empty() || s.Empty() {
		return Between(1, 0)
	}
	return Range{maxLo(r.Lo, s.Lo), minHi(r.Hi, s.Hi)}
}

// Merge returns the union of the given ranges as a minimal sorted
// slice of disjoint, nonadjacent ranges. Empty ranges are dropped.
func Merge(rs []Range) []Range {
	var all []Range
	for _, r := range rs {
		if !r.Empty() {
			all = append(all, r)
		}
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		return loLess(all[i].Lo, all[j].Lo)
	})
	merged := []Range{all[0]}
	for _, r := range all[1:] {
		last := &merged[len(merged)-1]
		if joins(last.Hi, r.Lo) {
			last.Hi = maxHi(last.Hi, r.Hi)
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// Diff returns the integers in r but in none of ss, as a merged
// slice of ranges. An empty result means ss covers r.
func Diff(r Range, ss ...Range) []Range {
	rest := []Range{r}
	if r.Empty() {
		return nil
	}
	for _, s := range ss {
		var next []Range
		for _, piece := range rest {
			next = append(next, diff1(piece, s)...)
		}
		rest = next
		if len(rest) == 0 {
			break
		}
	}
	return Merge(rest)
}

func diff1(r, s Range) []Range {
	cut := Intersect(r, s)
	if cut.Empty() {
		return []Range{r}
	}
	var out []Range
	if !cut.Lo.Inf && cut.Lo.N != math.MinInt64 {
		below := Range{r.Lo, Finite(cut.Lo.N - 1)}
		if !below.Empty() {
			out = append(out, below)
		}
	}
	if !cut.Hi.Inf && cut.Hi.N != math.MaxInt64 {
		above := Range{Finite(cut.Hi.N + 1), r.Hi}
		if !above.Empty() {
			out = append(out, above)
		}
	}
	return out
}

// Neg returns the arithmetic negation of r. Negating the minimum
// int64 saturates at the maximum.
func Neg(r Range) Range {
	if r.Empty() {
		return r
	}
	return Range{negHi(r.Hi), negLo(r.Lo)}
}

func negLo(b Bound) Bound {
	if b.Inf {
		return Unbounded
	}
	if b.N == math.MinInt64 {
		return Finite(math.MaxInt64)
	}
	return Finite(-b.N)
}

func negHi(b Bound) Bound {
	return negLo(b)
}

// joins tells whether a range ending at hi runs into one starting at
// lo, with no gap between them.
func joins(hi, lo Bound) bool {
	if hi.Inf || lo.Inf {
		return true
	}
	if lo.N <= hi.N {
		return true
	}
	return hi.N < math.MaxInt64 && lo.N == hi.N+1
}

func loLess(a, b Bound) bool {
	if a.Inf {
		return !b.Inf
	}
	if b.Inf {
		return false
	}
	return a.N < b.N
}

func maxLo(a, b Bound) Bound {
	if a.Inf {
		return b
	}
	if b.Inf {
		return a
	}
	if a.N >= b.N {
		return a
	}
	return b
}

func minHi(a, b Bound) Bound {
	if a.Inf {
		return b
	}
	if b.Inf {
		return a
	}
	if a.N <= b.N {
		return a
	}
	return b
}

func maxHi(a, b Bound) Bound {
	if a.Inf || b.Inf {
		return Unbounded
	}
	if a.N >= b.N {
		return a
	}
	return b
}

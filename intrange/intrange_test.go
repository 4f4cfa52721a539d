// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package intrange

import (
	"math"
	"reflect"
	"testing"
)

func TestSubset(t *testing.T) {
	for _, c := range []struct {
		r, s Range
		want bool
	}{
		{Between(1, 10), Full, true},
		{Full, Between(1, 10), false},
		{Between(3, 5), Between(1, 10), true},
		{Between(1, 10), Between(3, 5), false},
		{Point(7), Between(1, 10), true},
		{AtLeast(1), AtLeast(0), true},
		{AtLeast(0), AtLeast(1), false},
		{AtMost(-1), AtMost(0), true},
		{Between(1, 0), Point(42), true},
		{Point(42), Between(1, 0), false},
		{Full, Full, true},
	} {
		if got := Subset(c.r, c.s); got != c.want {
			t.Errorf("Subset(%v, %v): got %v, want %v", c.r, c.s, got, c.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	for _, c := range []struct {
		r, s, want Range
	}{
		{Between(1, 5), Between(3, 10), Between(3, 5)},
		{Between(1, 5), Between(6, 10), Between(1, 0)},
		{Full, Between(3, 10), Between(3, 10)},
		{AtLeast(0), AtMost(0), Point(0)},
		{AtLeast(5), AtMost(3), Between(1, 0)},
	} {
		got := Intersect(c.r, c.s)
		if !got.Equal(c.want) {
			t.Errorf("Intersect(%v, %v): got %v, want %v", c.r, c.s, got, c.want)
		}
	}
}

func TestMerge(t *testing.T) {
	for _, c := range []struct {
		rs   []Range
		want []Range
	}{
		{nil, nil},
		{[]Range{Between(1, 0)}, nil},
		{[]Range{Between(5, 9), Between(1, 3)}, []Range{Between(1, 3), Between(5, 9)}},
		{[]Range{Between(1, 3), Between(4, 9)}, []Range{Between(1, 9)}},
		{[]Range{Between(1, 5), Between(3, 9)}, []Range{Between(1, 9)}},
		{[]Range{AtMost(0), AtLeast(1)}, []Range{Full}},
		{[]Range{Point(1), Point(3), Point(2)}, []Range{Between(1, 3)}},
		{[]Range{AtLeast(10), Between(1, 2)}, []Range{Between(1, 2), AtLeast(10)}},
	} {
		got := Merge(c.rs)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Merge(%v): got %v, want %v", c.rs, got, c.want)
		}
	}
}

func TestDiff(t *testing.T) {
	for _, c := range []struct {
		r    Range
		ss   []Range
		want []Range
	}{
		{Between(1, 10), []Range{Between(3, 5)}, []Range{Between(1, 2), Between(6, 10)}},
		{Between(1, 10), []Range{Between(1, 10)}, nil},
		{Between(1, 10), []Range{Full}, nil},
		{Full, []Range{Between(0, 0)}, []Range{AtMost(-1), AtLeast(1)}},
		{Between(1, 10), []Range{Between(20, 30)}, []Range{Between(1, 10)}},
		{Between(1, 10), []Range{Between(1, 3), Between(8, 10)}, []Range{Between(4, 7)}},
		{Between(1, 10), []Range{Between(1, 4), Between(5, 10)}, nil},
		{AtLeast(0), []Range{Point(0)}, []Range{AtLeast(1)}},
	} {
		got := Diff(c.r, c.ss...)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Diff(%v, %v): got %v, want %v", c.r, c.ss, got, c.want)
		}
	}
}

func TestSubsetAll(t *testing.T) {
	if !SubsetAll(Between(1, 3), []Range{Point(1), Point(2), Point(3)}) {
		t.Error("1..3 should be covered by 1, 2, 3")
	}
	if SubsetAll(Between(1, 3), []Range{Point(1), Point(3)}) {
		t.Error("1..3 should not be covered by 1 and 3")
	}
}

func TestNeg(t *testing.T) {
	for _, c := range []struct {
		r, want Range
	}{
		{Between(1, 5), Between(-5, -1)},
		{Point(0), Point(0)},
		{AtLeast(1), AtMost(-1)},
		{AtMost(0), AtLeast(0)},
		{Full, Full},
	} {
		got := Neg(c.r)
		if !got.Equal(c.want) {
			t.Errorf("Neg(%v): got %v, want %v", c.r, got, c.want)
		}
	}
	if got := Neg(Point(math.MinInt64)); !got.Equal(Point(math.MaxInt64)) {
		t.Errorf("Neg(min int): got %v, want saturation at max int", got)
	}
}

func TestContains(t *testing.T) {
	r := Between(-3, 7)
	for n, want := range map[int64]bool{-4: false, -3: true, 0: true, 7: true, 8: false} {
		if got := r.Contains(n); got != want {
			t.Errorf("%v.Contains(%d): got %v, want %v", r, n, got, want)
		}
	}
	if !Full.Contains(math.MaxInt64) || !Full.Contains(math.MinInt64) {
		t.Error("Full should contain all integers")
	}
}

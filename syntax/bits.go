// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import "github.com/grailbio/gradual/types"

// binType computes the bitstring type <<_:Base, _:_*Unit>> of a
// binary expression or pattern from its segments: the sum of the
// statically known sizes and the gcd of the possible increments.
func binType(e *Expr) *types.T {
	var base, unit int64
	for _, seg := range e.Segs {
		b, u := segBits(seg)
		base += b
		unit = gcd(unit, u)
	}
	if unit > 0 {
		base %= unit
	}
	return types.Bin(base, unit)
}

// segBits returns the statically known bit size of one segment and
// the increment its dynamic part contributes.
func segBits(seg *BinSeg) (base, unit int64) {
	u := int64(seg.Unit)
	switch seg.Type {
	case "float":
		if u == 0 {
			u = 1
		}
		if seg.Size == nil {
			return 64, 0
		}
		if v, ok := constIntExpr(seg.Size); ok {
			return v * u, 0
		}
		return 0, u
	case "binary":
		if u == 0 {
			u = 8
		}
	case "bitstring":
		if u == 0 {
			u = 1
		}
	case "utf8":
		return 0, 8
	case "utf16":
		return 0, 16
	case "utf32":
		return 32, 0
	default: // integer
		if u == 0 {
			u = 1
		}
		if seg.Size == nil {
			return 8 * u, 0
		}
	}
	if seg.Size == nil {
		// binary/bitstring without a size consumes the rest.
		return 0, u
	}
	if v, ok := constIntExpr(seg.Size); ok {
		return v * u, 0
	}
	return 0, u
}

// segType is the value type of a binary segment.
func segType(seg *BinSeg) *types.T {
	switch seg.Type {
	case "float":
		return types.Float
	case "binary":
		return types.Binary
	case "bitstring":
		return types.Bitstring
	case "utf8", "utf16", "utf32":
		return types.Char
	default:
		return types.Integer
	}
}

// segValueType is the type a segment's expression must have when
// constructing a binary. Integer and float segments accept any
// number; string literals are also admitted for integer segments.
func segValueType(seg *BinSeg) *types.T {
	switch seg.Type {
	case "float":
		return types.Union(types.Integer, types.Float)
	case "binary":
		return types.Binary
	case "bitstring":
		return types.Bitstring
	default:
		return types.Integer
	}
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

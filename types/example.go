// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strings"
)

// Example returns a sample value inhabiting t, rendered in Erlang
// term syntax. Nonexhaustive match diagnostics use it to show a
// value the clauses miss. Positions where no concrete value can be
// named render as an underscore.
func Example(e *Env, t *T) string {
	return example(e, t, 0)
}

const maxExampleDepth = 5

func example(e *Env, t *T, depth int) string {
	if depth > maxExampleDepth {
		return "..."
	}
	switch t.Kind {
	case AtomLitKind:
		return quoteAtom(t.Name)
	case IntLitKind:
		return fmt.Sprint(t.Val)
	case RangeKind:
		switch {
		case !t.Lo.Inf:
			return fmt.Sprint(t.Lo.N)
		case !t.Hi.Inf:
			return fmt.Sprint(t.Hi.N)
		}
		return "0"
	case IntKind:
		switch t.Class {
		case ClassNeg:
			return "-1"
		case ClassPos:
			return "1"
		default:
			return "0"
		}
	case FloatKind:
		return "0.0"
	case UnionKind:
		return example(e, t.Elems[0], depth)
	case TupleKind:
		if t.Wild {
			return "{}"
		}
		elems := make([]string, len(t.Elems))
		for i, m := range t.Elems {
			elems[i] = example(e, m, depth+1)
		}
		return "{" + strings.Join(elems, ", ") + "}"
	case ListKind:
		switch {
		case t.Empty != Nonempty:
			return "[]"
		case t.Tail != nil:
			return fmt.Sprintf("[%s | %s]", example(e, t.Elem, depth+1), example(e, t.Tail, depth+1))
		default:
			return "[" + example(e, t.Elem, depth+1) + "]"
		}
	case MapKind:
		var assocs []string
		for _, a := range t.Assocs {
			if !a.Mandatory {
				continue
			}
			assocs = append(assocs, fmt.Sprintf("%s => %s", example(e, a.Key, depth+1), example(e, a.Val, depth+1)))
		}
		return "#{" + strings.Join(assocs, ", ") + "}"
	case RecordKind:
		if len(t.Fields) == 0 {
			return "#" + t.Name + "{}"
		}
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = fmt.Sprintf("%s = %s", f.Name, example(e, f.T, depth+1))
		}
		return "#" + t.Name + "{" + strings.Join(fields, ", ") + "}"
	case BinKind:
		if t.Base > 0 {
			return fmt.Sprintf("<<0:%d>>", t.Base)
		}
		return "<<>>"
	case UserKind:
		if t.Opaque {
			return "_"
		}
		return example(e, unfold(e, t), depth+1)
	}
	return "_"
}

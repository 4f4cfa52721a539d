// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/intrange"
	"github.com/grailbio/gradual/types"
)

// parseType parses a type, including unions.
func (p *Parser) parseType() *types.T {
	pos := p.pos
	t := p.parseType1()
	if p.tok != '|' {
		return t
	}
	elems := []*types.T{t}
	for p.got('|') {
		elems = append(elems, p.parseType1())
	}
	return types.At(pos, types.Union(elems...))
}

// parseTypeArg parses a type in argument position, where an
// annotation "Name :: Type" names the argument without constraining
// it.
func (p *Parser) parseTypeArg() *types.T {
	if p.tok == scanner.Var {
		name, pos := p.expectVar()
		if p.got(scanner.ColonColon) {
			return p.parseType()
		}
		return p.varType(pos, name)
	}
	return p.parseType()
}

func (p *Parser) varType(pos scanner.Position, name string) *types.T {
	if name == "_" {
		return types.At(pos, types.Any)
	}
	return types.At(pos, types.Var(name))
}

// parseType1 parses a non-union type.
func (p *Parser) parseType1() *types.T {
	pos := p.pos
	switch p.tok {
	case scanner.Var:
		name, _ := p.expectVar()
		return p.varType(pos, name)
	case scanner.Int, scanner.Char, '-':
		return p.parseIntType(pos)
	case '(':
		p.next()
		t := p.parseType()
		p.expect(')')
		return t
	case '[':
		return p.parseListType(pos)
	case '{':
		p.next()
		var elems []*types.T
		if p.tok != '}' {
			for {
				elems = append(elems, p.parseType())
				if !p.got(',') {
					break
				}
			}
		}
		p.expect('}')
		return types.At(pos, types.Tuple(elems...))
	case '#':
		p.next()
		if p.tok == '{' {
			return p.parseMapType(pos)
		}
		return p.parseRecordType(pos)
	case scanner.LtLt:
		p.next()
		return p.parseBinType(pos)
	case scanner.Atom:
		if p.text == "fun" {
			p.next()
			return p.parseFunType(pos)
		}
		name, _ := p.expectAtom()
		switch p.tok {
		case '(':
			args := p.parseTypeArgs()
			if len(args) == 0 {
				if t, ok := scalarBuiltins[name]; ok {
					return types.At(pos, t)
				}
			}
			return types.At(pos, types.User(name, args...))
		case ':':
			p.next()
			tname, _ := p.expectAtom()
			args := p.parseTypeArgs()
			return types.At(pos, types.Remote(name, tname, args...))
		}
		return types.At(pos, types.AtomLit(name))
	}
	p.errorf(pos, "expected type, found %s", p.found())
	return nil
}

func (p *Parser) parseTypeArgs() []*types.T {
	p.expect('(')
	var args []*types.T
	if p.tok != ')' {
		for {
			args = append(args, p.parseType())
			if !p.got(',') {
				break
			}
		}
	}
	p.expect(')')
	return args
}

// parseIntType parses an integer singleton or range, constant-folding
// arithmetic in the bounds.
func (p *Parser) parseIntType(pos scanner.Position) *types.T {
	lo := p.parseConstInt()
	if !p.got(scanner.DotDot) {
		return types.At(pos, types.IntLit(lo))
	}
	hi := p.parseConstInt()
	if lo > hi {
		p.errorf(pos, "empty integer range %d..%d", lo, hi)
	}
	return types.At(pos, types.Range(intrange.Between(lo, hi)))
}

// parseConstInt parses and folds a constant integer expression.
func (p *Parser) parseConstInt() int64 {
	v := p.parseConstMult()
	for {
		switch {
		case p.got('+'):
			v += p.parseConstMult()
		case p.got('-'):
			v -= p.parseConstMult()
		default:
			return v
		}
	}
}

func (p *Parser) parseConstMult() int64 {
	v := p.parseConstUnary()
	for {
		switch {
		case p.got('*'):
			v *= p.parseConstUnary()
		case p.gotAtom("div"):
			d := p.parseConstUnary()
			if d == 0 {
				p.errorf(p.pos, "division by zero in type")
			}
			v /= d
		case p.gotAtom("rem"):
			d := p.parseConstUnary()
			if d == 0 {
				p.errorf(p.pos, "division by zero in type")
			}
			v %= d
		default:
			return v
		}
	}
}

func (p *Parser) parseConstUnary() int64 {
	switch {
	case p.got('-'):
		return -p.parseConstUnary()
	case p.got('('):
		v := p.parseConstInt()
		p.expect(')')
		return v
	case p.tok == scanner.Int, p.tok == scanner.Char:
		v := p.ival
		p.next()
		return v
	}
	p.errorf(p.pos, "expected integer, found %s", p.found())
	return 0
}

// parseListType parses [], [T], and [T, ...].
func (p *Parser) parseListType(pos scanner.Position) *types.T {
	p.expect('[')
	if p.got(']') {
		return types.At(pos, types.Nil)
	}
	elem := p.parseType()
	nonempty := false
	if p.got(',') {
		p.expect(scanner.Ellipsis)
		nonempty = true
	}
	p.expect(']')
	if nonempty {
		return types.At(pos, types.NonemptyList(elem))
	}
	return types.At(pos, types.List(elem))
}

func (p *Parser) parseMapType(pos scanner.Position) *types.T {
	p.expect('{')
	var assocs []*types.Assoc
	if p.tok != '}' {
		for {
			key := p.parseType()
			var mandatory bool
			switch {
			case p.got(scanner.DArrow):
			case p.got(scanner.ColonEq):
				mandatory = true
			default:
				p.errorf(p.pos, `expected "=>" or ":=", found %s`, p.found())
			}
			assocs = append(assocs, &types.Assoc{Mandatory: mandatory, Key: key, Val: p.parseType()})
			if !p.got(',') {
				break
			}
		}
	}
	p.expect('}')
	return types.At(pos, types.Map(assocs...))
}

func (p *Parser) parseRecordType(pos scanner.Position) *types.T {
	name, _ := p.expectAtom()
	p.expect('{')
	var fields []*types.Field
	if p.tok != '}' {
		for {
			fname, _ := p.expectAtom()
			p.expect(scanner.ColonColon)
			fields = append(fields, &types.Field{Name: fname, T: p.parseType()})
			if !p.got(',') {
				break
			}
		}
	}
	p.expect('}')
	return types.At(pos, types.Record(name, fields...))
}

// parseFunType parses fun(), fun((...) -> T), and fun((T, ...) -> T)
// after the fun keyword.
func (p *Parser) parseFunType(pos scanner.Position) *types.T {
	p.expect('(')
	if p.got(')') {
		return types.At(pos, types.AnyFun)
	}
	p.expect('(')
	if p.got(scanner.Ellipsis) {
		p.expect(')')
		p.expect(scanner.Arrow)
		result := p.parseType()
		p.expect(')')
		return types.At(pos, types.AnyArityFun(result))
	}
	var args []*types.T
	if p.tok != ')' {
		for {
			args = append(args, p.parseTypeArg())
			if !p.got(',') {
				break
			}
		}
	}
	p.expect(')')
	p.expect(scanner.Arrow)
	result := p.parseType()
	p.expect(')')
	return types.At(pos, types.Fun(args, result))
}

// parseBinType parses <<>>, <<_:M>>, <<_:_*N>>, and <<_:M, _:_*N>>
// after the opening "<<".
func (p *Parser) parseBinType(pos scanner.Position) *types.T {
	if p.got(scanner.GtGt) {
		return types.At(pos, types.Bin(0, 0))
	}
	var base, unit int64
	for {
		v, vpos := p.expectVar()
		if v != "_" {
			p.errorf(vpos, "expected _, found %q", v)
		}
		p.expect(':')
		if p.tok == scanner.Var {
			u, upos := p.expectVar()
			if u != "_" {
				p.errorf(upos, "expected _, found %q", u)
			}
			p.expect('*')
			unit = p.parseConstInt()
		} else {
			base = p.parseConstInt()
		}
		if !p.got(',') {
			break
		}
	}
	p.expect(scanner.GtGt)
	return types.At(pos, types.Bin(base, unit))
}

// scalarBuiltins maps zero-argument scalar builtin type names to
// their canonical types, folded at parse time. Structural and
// recursive builtins (string(), map(), iolist(), ...) expand during
// normalization instead.
var scalarBuiltins = map[string]*types.T{
	"any":             types.Any,
	"dynamic":         types.Any,
	"term":            types.Top,
	"none":            types.None,
	"no_return":       types.None,
	"atom":            types.Atom,
	"module":          types.Atom,
	"node":            types.Atom,
	"boolean":         types.Bool,
	"bool":            types.Bool,
	"integer":         types.Integer,
	"neg_integer":     types.NegInteger,
	"non_neg_integer": types.NonNegInteger,
	"pos_integer":     types.PosInteger,
	"char":            types.Char,
	"float":           types.Float,
	"pid":             types.Pid,
	"port":            types.Port,
	"reference":       types.Reference,
}

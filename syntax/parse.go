// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/internal/scanner"
	"github.com/grailbio/gradual/types"
)

// ParserMode determines the parser's entry production.
type ParserMode int

const (
	// ParseModule parses a whole source module.
	ParseModule ParserMode = iota
	// ParseExpr parses a single expression.
	ParseExpr
	// ParseType parses a single type.
	ParseType
)

// Parser parses Erlang-style source text. It composes the internal
// scanner with a single token of lookahead: the current token is held
// in the parser's tok/text/pos fields and consumed by next. Parse
// errors accumulate in an errlist; each form recovers independently,
// so one bad form does not hide the rest of the module.
type Parser struct {
	// File is prefixed to parser error locations.
	File string
	// Body is the source text to parse.
	Body []byte

	// Mode governs how the parser is started. The fields Module,
	// Expr, and Type are set depending on the parser mode.
	Mode ParserMode

	// Module contains the parsed module (ParseModule).
	Module *Module
	// Expr contains the parsed expression (ParseExpr).
	Expr *Expr
	// Type contains the parsed type (ParseType).
	Type *types.T

	el errlist

	scanner scanner.Scanner

	tok  rune
	text string
	pos  scanner.Position
	ival int64
	fval float64
}

// bailout aborts the current form after a parse error.
type bailout struct{}

// Parse parses the parser's body and reports any parsing error. The
// parse result is deposited in x.Module, x.Expr, or x.Type, depending
// on the parser's mode.
func (p *Parser) Parse() error {
	p.scanner.Error = func(pos scanner.Position, msg string) {
		p.el = p.el.Errorf(pos, "%s", msg)
	}
	p.scanner.Init(p.File, p.Body)
	p.next()
	switch p.Mode {
	case ParseModule:
		p.Module = p.parseModule()
	case ParseExpr:
		func() {
			defer p.recoverBailout()
			p.Expr = p.parseExpr()
			p.expectEOF()
		}()
	case ParseType:
		func() {
			defer p.recoverBailout()
			p.Type = p.parseType()
			p.expectEOF()
		}()
	}
	return p.el.Make()
}

func (p *Parser) recoverBailout() {
	if e := recover(); e != nil {
		if _, ok := e.(bailout); !ok {
			panic(e)
		}
	}
}

func (p *Parser) next() {
	p.tok = p.scanner.Scan()
	p.text = p.scanner.TokenText()
	p.pos = p.scanner.Pos()
	p.ival = p.scanner.IntVal()
	p.fval = p.scanner.FloatVal()
}

func (p *Parser) errorf(pos scanner.Position, format string, args ...interface{}) {
	p.el = p.el.Errorf(pos, format, args...)
	panic(bailout{})
}

func (p *Parser) expect(tok rune) scanner.Position {
	if p.tok != tok {
		p.errorf(p.pos, "expected %s, found %s", scanner.TokenString(tok), p.found())
	}
	pos := p.pos
	p.next()
	return pos
}

func (p *Parser) expectEOF() {
	if p.tok != scanner.EOF {
		p.errorf(p.pos, "unexpected %s after end of input", p.found())
	}
}

// found renders the current token for error messages.
func (p *Parser) found() string {
	switch p.tok {
	case scanner.Atom, scanner.Var, scanner.Int, scanner.Float, scanner.String:
		return fmt.Sprintf("%q", p.text)
	}
	return scanner.TokenString(p.tok)
}

// got consumes the current token if it is tok.
func (p *Parser) got(tok rune) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

// atomIs tells whether the current token is the given unquoted atom.
func (p *Parser) atomIs(name string) bool {
	return p.tok == scanner.Atom && p.text == name
}

// gotAtom consumes the current token if it is the given atom.
func (p *Parser) gotAtom(name string) bool {
	if p.atomIs(name) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(name string) {
	if !p.gotAtom(name) {
		p.errorf(p.pos, "expected %q, found %s", name, p.found())
	}
}

func (p *Parser) expectAtom() (string, scanner.Position) {
	if p.tok != scanner.Atom {
		p.errorf(p.pos, "expected atom, found %s", p.found())
	}
	name, pos := p.text, p.pos
	p.next()
	return name, pos
}

func (p *Parser) expectVar() (string, scanner.Position) {
	if p.tok != scanner.Var {
		p.errorf(p.pos, "expected variable, found %s", p.found())
	}
	name, pos := p.text, p.pos
	p.next()
	return name, pos
}

func (p *Parser) expectInt() int64 {
	if p.tok != scanner.Int {
		p.errorf(p.pos, "expected integer, found %s", p.found())
	}
	v := p.ival
	p.next()
	return v
}

// Forms.

func (p *Parser) parseModule() *Module {
	m := &Module{
		File:        p.File,
		Exports:     make(map[FA]bool),
		ExportTypes: make(map[TA]bool),
		Imports:     make(map[FA]string),
	}
	for p.tok != scanner.EOF {
		p.parseForm(m)
	}
	if m.Name == "" {
		p.el = p.el.Errorf(scanner.Position{Filename: p.File, Line: 1, Column: 1}, "no module declaration")
	}
	return m
}

// parseForm parses one attribute or function, terminated by ".". On a
// parse error it skips to the end of the form.
func (p *Parser) parseForm(m *Module) {
	defer func() {
		if e := recover(); e != nil {
			if _, ok := e.(bailout); !ok {
				panic(e)
			}
			p.sync()
		}
	}()
	switch {
	case p.got('-'):
		p.parseAttribute(m)
	case p.tok == scanner.Atom:
		m.Funcs = append(m.Funcs, p.parseFunction())
	default:
		p.errorf(p.pos, "expected attribute or function, found %s", p.found())
	}
}

// sync skips tokens through the next form-terminating dot.
func (p *Parser) sync() {
	for p.tok != scanner.EOF && !p.got('.') {
		p.next()
	}
}

func (p *Parser) parseAttribute(m *Module) {
	name, pos := p.expectAtom()
	switch name {
	case "module":
		p.expect('(')
		m.Name, _ = p.expectAtom()
		m.Position = pos
		p.expect(')')
	case "export":
		p.expect('(')
		for _, fa := range p.parseFAList() {
			m.Exports[fa] = true
		}
		p.expect(')')
	case "export_type":
		p.expect('(')
		for _, fa := range p.parseFAList() {
			m.ExportTypes[TA{fa.Name, fa.Arity}] = true
		}
		p.expect(')')
	case "import":
		p.expect('(')
		from, _ := p.expectAtom()
		p.expect(',')
		for _, fa := range p.parseFAList() {
			m.Imports[fa] = from
		}
		p.expect(')')
	case "type", "opaque":
		m.Types = append(m.Types, p.parseTypeDecl(pos, name == "opaque"))
	case "record":
		m.Records = append(m.Records, p.parseRecordDecl(pos))
	case "spec":
		m.Specs = append(m.Specs, p.parseSpecDecl(pos))
	default:
		// Unknown attributes (compile, behaviour, ...) are skipped.
		p.skipBalanced()
	}
	p.expect('.')
}

// skipBalanced skips tokens up to the form's closing dot, balancing
// brackets.
func (p *Parser) skipBalanced() {
	depth := 0
	for p.tok != scanner.EOF {
		switch p.tok {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case '.':
			if depth <= 0 {
				return
			}
		}
		p.next()
	}
}

func (p *Parser) parseFAList() []FA {
	p.expect('[')
	var fas []FA
	for {
		name, _ := p.expectAtom()
		p.expect('/')
		arity := p.expectInt()
		fas = append(fas, FA{name, int(arity)})
		if !p.got(',') {
			break
		}
	}
	p.expect(']')
	return fas
}

func (p *Parser) parseTypeDecl(pos scanner.Position, opaque bool) *TypeDecl {
	name, _ := p.expectAtom()
	p.expect('(')
	var params []string
	if p.tok != ')' {
		for {
			v, _ := p.expectVar()
			params = append(params, v)
			if !p.got(',') {
				break
			}
		}
	}
	p.expect(')')
	p.expect(scanner.ColonColon)
	body := p.parseType()
	return &TypeDecl{Position: pos, Name: name, Params: params, Body: body, Opaque: opaque}
}

func (p *Parser) parseRecordDecl(pos scanner.Position) *RecordDecl {
	p.expect('(')
	name, _ := p.expectAtom()
	p.expect(',')
	p.expect('{')
	var fields []*RecordField
	if p.tok != '}' {
		for {
			fname, _ := p.expectAtom()
			f := &RecordField{Name: fname}
			if p.got('=') {
				f.Default = p.parseExpr()
			}
			if p.got(scanner.ColonColon) {
				f.Type = p.parseType()
			}
			fields = append(fields, f)
			if !p.got(',') {
				break
			}
		}
	}
	p.expect('}')
	p.expect(')')
	return &RecordDecl{Position: pos, Name: name, Fields: fields}
}

func (p *Parser) parseSpecDecl(pos scanner.Position) *SpecDecl {
	name, _ := p.expectAtom()
	if p.got(':') {
		// Module-qualified specs apply to the declaring module.
		name, _ = p.expectAtom()
	}
	fts := []*types.T{p.parseSpecFun(pos)}
	for p.got(';') {
		if p.tok == scanner.Atom {
			n, npos := p.expectAtom()
			if n != name {
				p.errorf(npos, "spec clause name %s does not match %s", n, name)
			}
			fts = append(fts, p.parseSpecFun(npos))
		} else {
			fts = append(fts, p.parseSpecFun(p.pos))
		}
	}
	arity := len(fts[0].Elems)
	for _, t := range fts {
		if len(t.Elems) != arity {
			p.errorf(t.Pos, "spec clauses of %s have differing arities", name)
		}
	}
	return &SpecDecl{Position: pos, Name: name, Arity: arity, Types: fts}
}

// parseSpecFun parses "(T, ...) -> T [when bounds]".
func (p *Parser) parseSpecFun(pos scanner.Position) *types.T {
	p.expect('(')
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
	ft := types.At(pos, types.Fun(args, result))
	if p.gotAtom("when") {
		ft.Bounds = p.parseBounds()
	}
	return ft
}

func (p *Parser) parseBounds() []*types.Field {
	var bounds []*types.Field
	for {
		v, _ := p.expectVar()
		p.expect(scanner.ColonColon)
		bounds = append(bounds, &types.Field{Name: v, T: p.parseType()})
		if !p.got(',') {
			break
		}
	}
	return bounds
}

func (p *Parser) parseFunction() *FuncDecl {
	name, pos := p.expectAtom()
	f := &FuncDecl{Position: pos, Name: name, Arity: -1}
	for {
		clause := p.parseFunClause()
		if f.Arity < 0 {
			f.Arity = len(clause.Pats)
		} else if len(clause.Pats) != f.Arity {
			p.errorf(clause.Position, "clause of %s/%d has %d arguments", f.Name, f.Arity, len(clause.Pats))
		}
		f.Clauses = append(f.Clauses, clause)
		if !p.got(';') {
			break
		}
		n, npos := p.expectAtom()
		if n != name {
			p.errorf(npos, "clause name %s does not match %s", n, name)
		}
	}
	p.expect('.')
	return f
}

func (p *Parser) parseFunClause() *Clause {
	pos := p.expect('(')
	var pats []*Expr
	if p.tok != ')' {
		for {
			pats = append(pats, p.parseExpr())
			if !p.got(',') {
				break
			}
		}
	}
	p.expect(')')
	guards := p.parseGuards()
	p.expect(scanner.Arrow)
	body := p.parseBody()
	return &Clause{Position: pos, Pats: pats, Guards: guards, Body: body}
}

// parseGuards parses an optional "when" guard sequence: a disjunction
// (";") of conjunctions (",").
func (p *Parser) parseGuards() [][]*Expr {
	if !p.gotAtom("when") {
		return nil
	}
	var guards [][]*Expr
	for {
		var conj []*Expr
		for {
			conj = append(conj, p.parseExpr())
			if !p.got(',') {
				break
			}
		}
		guards = append(guards, conj)
		if !p.got(';') {
			break
		}
	}
	return guards
}

// parseBody parses a comma-separated expression sequence.
func (p *Parser) parseBody() []*Expr {
	var body []*Expr
	for {
		body = append(body, p.parseExpr())
		if !p.got(',') {
			break
		}
	}
	return body
}

// Expressions, by descending precedence.

func (p *Parser) parseExpr() *Expr {
	if p.atomIs("catch") {
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprCatch, Left: p.parseExpr()}
	}
	return p.parseMatch()
}

func (p *Parser) parseMatch() *Expr {
	lhs := p.parseOrelse()
	switch p.tok {
	case '=':
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprMatch, Left: lhs, Right: p.parseMatch()}
	case '!':
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprBinop, Op: "!", Left: lhs, Right: p.parseMatch()}
	}
	return lhs
}

func (p *Parser) parseOrelse() *Expr {
	lhs := p.parseAndalso()
	for p.atomIs("orelse") {
		pos := p.pos
		p.next()
		lhs = &Expr{Position: pos, Kind: ExprBinop, Op: "orelse", Left: lhs, Right: p.parseAndalso()}
	}
	return lhs
}

func (p *Parser) parseAndalso() *Expr {
	lhs := p.parseCompare()
	for p.atomIs("andalso") {
		pos := p.pos
		p.next()
		lhs = &Expr{Position: pos, Kind: ExprBinop, Op: "andalso", Left: lhs, Right: p.parseCompare()}
	}
	return lhs
}

var compareOps = map[rune]string{
	scanner.EqEq:       "==",
	scanner.NotEq:      "/=",
	scanner.Le:         "=<",
	'<':                "<",
	scanner.Ge:         ">=",
	'>':                ">",
	scanner.ExactEq:    "=:=",
	scanner.ExactNotEq: "=/=",
}

func (p *Parser) parseCompare() *Expr {
	lhs := p.parseListOp()
	if op, ok := compareOps[p.tok]; ok {
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprBinop, Op: op, Left: lhs, Right: p.parseListOp()}
	}
	return lhs
}

func (p *Parser) parseListOp() *Expr {
	lhs := p.parseAdd()
	switch p.tok {
	case scanner.PlusPlus:
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprBinop, Op: "++", Left: lhs, Right: p.parseListOp()}
	case scanner.MinusMinus:
		pos := p.pos
		p.next()
		return &Expr{Position: pos, Kind: ExprBinop, Op: "--", Left: lhs, Right: p.parseListOp()}
	}
	return lhs
}

func (p *Parser) addOp() (string, bool) {
	switch p.tok {
	case '+':
		return "+", true
	case '-':
		return "-", true
	case scanner.Atom:
		switch p.text {
		case "bor", "bxor", "bsl", "bsr", "or", "xor":
			return p.text, true
		}
	}
	return "", false
}

func (p *Parser) parseAdd() *Expr {
	lhs := p.parseMult()
	for {
		op, ok := p.addOp()
		if !ok {
			return lhs
		}
		pos := p.pos
		p.next()
		lhs = &Expr{Position: pos, Kind: ExprBinop, Op: op, Left: lhs, Right: p.parseMult()}
	}
}

func (p *Parser) mulOp() (string, bool) {
	switch p.tok {
	case '*':
		return "*", true
	case '/':
		return "/", true
	case scanner.Atom:
		switch p.text {
		case "div", "rem", "band", "and":
			return p.text, true
		}
	}
	return "", false
}

func (p *Parser) parseMult() *Expr {
	lhs := p.parseUnary()
	for {
		op, ok := p.mulOp()
		if !ok {
			return lhs
		}
		pos := p.pos
		p.next()
		lhs = &Expr{Position: pos, Kind: ExprBinop, Op: op, Left: lhs, Right: p.parseUnary()}
	}
}

func (p *Parser) parseUnary() *Expr {
	var op string
	switch {
	case p.tok == '-':
		op = "-"
	case p.tok == '+':
		op = "+"
	case p.atomIs("not"):
		op = "not"
	case p.atomIs("bnot"):
		op = "bnot"
	default:
		return p.parseSuffixed()
	}
	pos := p.pos
	p.next()
	return &Expr{Position: pos, Kind: ExprUnop, Op: op, Left: p.parseUnary()}
}

// parseSuffixed parses a primary expression followed by call, remote
// name, record, and map suffixes.
func (p *Parser) parseSuffixed() *Expr {
	e := p.parsePrimary()
	for {
		switch p.tok {
		case '(':
			args := p.parseCallArgs()
			call := &Expr{Position: e.Position, Kind: ExprCall, Right: e, List: args}
			if e.Kind == ExprBinop && e.Op == ":" {
				call.Left, call.Right = e.Left, e.Right
			}
			e = call
		case ':':
			// A remote name m:f becomes a call when followed by
			// arguments; catch clause heads destructure it directly.
			pos := p.pos
			p.next()
			e = &Expr{Position: pos, Kind: ExprBinop, Op: ":", Left: e, Right: p.parsePrimary()}
		case '#':
			p.next()
			if p.tok == '{' {
				upd := p.parseMapTail(e.Position)
				upd.Left = e
				e = upd
				continue
			}
			name, npos := p.expectAtom()
			if p.got('.') {
				fname, _ := p.expectAtom()
				e = &Expr{Position: npos, Kind: ExprRecordField, Left: e, Name: name, Field: fname}
				continue
			}
			upd := p.parseRecordTail(npos, name)
			upd.Left = e
			e = upd
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs() []*Expr {
	p.expect('(')
	var args []*Expr
	if p.tok != ')' {
		for {
			args = append(args, p.parseExpr())
			if !p.got(',') {
				break
			}
		}
	}
	p.expect(')')
	return args
}

func (p *Parser) parsePrimary() *Expr {
	pos := p.pos
	switch p.tok {
	case scanner.Int, scanner.Char:
		v := p.ival
		p.next()
		return &Expr{Position: pos, Kind: ExprInt, Val: v}
	case scanner.Float:
		v := p.fval
		p.next()
		return &Expr{Position: pos, Kind: ExprFloat, FVal: v}
	case scanner.String:
		s := p.text
		p.next()
		return &Expr{Position: pos, Kind: ExprString, Str: s}
	case scanner.Var:
		name := p.text
		p.next()
		return &Expr{Position: pos, Kind: ExprVar, Ident: name}
	case '(':
		p.next()
		e := p.parseExpr()
		p.expect(')')
		return e
	case '{':
		p.next()
		var elems []*Expr
		if p.tok != '}' {
			for {
				elems = append(elems, p.parseExpr())
				if !p.got(',') {
					break
				}
			}
		}
		p.expect('}')
		return &Expr{Position: pos, Kind: ExprTuple, List: elems}
	case '[':
		p.next()
		return p.parseListTail(pos)
	case scanner.LtLt:
		p.next()
		return p.parseBinTail(pos)
	case '#':
		p.next()
		if p.tok == '{' {
			return p.parseMapTail(pos)
		}
		name, npos := p.expectAtom()
		if p.got('.') {
			fname, _ := p.expectAtom()
			return &Expr{Position: npos, Kind: ExprRecordIndex, Name: name, Field: fname}
		}
		return p.parseRecordTail(npos, name)
	case scanner.Atom:
		switch p.text {
		case "case":
			return p.parseCase(pos)
		case "if":
			return p.parseIf(pos)
		case "receive":
			return p.parseReceive(pos)
		case "try":
			return p.parseTry(pos)
		case "begin":
			p.next()
			body := p.parseBody()
			p.expectKeyword("end")
			return &Expr{Position: pos, Kind: ExprBlock, Body: body}
		case "fun":
			return p.parseFun(pos)
		case "end", "of", "when", "after":
			p.errorf(pos, "unexpected keyword %q", p.text)
		}
		name := p.text
		p.next()
		return &Expr{Position: pos, Kind: ExprAtom, Ident: name}
	}
	p.errorf(pos, "expected expression, found %s", p.found())
	return nil
}

// parseListTail parses a list literal, cons, or comprehension after
// the opening bracket.
func (p *Parser) parseListTail(pos scanner.Position) *Expr {
	if p.got(']') {
		return &Expr{Position: pos, Kind: ExprNil}
	}
	head := p.parseExpr()
	if p.got(scanner.BarBar) {
		quals := p.parseQuals()
		p.expect(']')
		return &Expr{Position: pos, Kind: ExprLC, CompExpr: head, Quals: quals}
	}
	elems := []*Expr{head}
	for p.got(',') {
		elems = append(elems, p.parseExpr())
	}
	var tail *Expr
	if p.got('|') {
		tail = p.parseExpr()
	} else {
		tail = &Expr{Position: p.pos, Kind: ExprNil}
	}
	p.expect(']')
	for i := len(elems) - 1; i >= 0; i-- {
		tail = &Expr{Position: elems[i].Position, Kind: ExprCons, Left: elems[i], Right: tail}
	}
	return tail
}

func (p *Parser) parseQuals() []*Qual {
	var quals []*Qual
	for {
		pos := p.pos
		e := p.parseExpr()
		// Generators scan as a "<-"/"<=" binop only if the pattern
		// and sequence were not consumed together; the arrow tokens
		// terminate expressions, so e is the pattern here.
		switch {
		case p.got(scanner.LArrow):
			quals = append(quals, &Qual{Position: pos, Pat: e, Seq: p.parseExpr()})
		case p.got(scanner.BinGen):
			quals = append(quals, &Qual{Position: pos, Pat: e, Seq: p.parseExpr(), Bin: true})
		default:
			quals = append(quals, &Qual{Position: pos, Filter: e})
		}
		if !p.got(',') {
			break
		}
	}
	return quals
}

// parseBinTail parses a binary construction, pattern, or
// comprehension after the opening "<<".
func (p *Parser) parseBinTail(pos scanner.Position) *Expr {
	if p.got(scanner.GtGt) {
		return &Expr{Position: pos, Kind: ExprBin}
	}
	first := p.parseBinSeg()
	if p.got(scanner.BarBar) {
		quals := p.parseQuals()
		p.expect(scanner.GtGt)
		return &Expr{Position: pos, Kind: ExprBC, CompExpr: first.Expr, Quals: quals}
	}
	segs := []*BinSeg{first}
	for p.got(',') {
		segs = append(segs, p.parseBinSeg())
	}
	p.expect(scanner.GtGt)
	return &Expr{Position: pos, Kind: ExprBin, Segs: segs}
}

func (p *Parser) parseBinSeg() *BinSeg {
	seg := &BinSeg{Position: p.pos}
	// Segment values and sizes bind more tightly than ":", so they
	// are parsed without the remote-name suffix.
	seg.Expr = p.parseSegValue()
	if p.got(':') {
		seg.Size = p.parseSegValue()
	}
	if p.got('/') {
		for {
			spec, _ := p.expectAtom()
			switch spec {
			case "integer", "float", "binary", "bitstring", "utf8", "utf16", "utf32":
				seg.Type = spec
			case "bytes":
				seg.Type = "binary"
			case "bits":
				seg.Type = "bitstring"
			case "signed", "unsigned", "big", "little", "native":
				// Sign and endianness do not affect sizes.
			case "unit":
				p.expect(':')
				seg.Unit = int(p.expectInt())
			default:
				p.errorf(p.pos, "unknown binary segment specifier %q", spec)
			}
			if !p.got('-') {
				break
			}
		}
	}
	return seg
}

func (p *Parser) parseSegValue() *Expr {
	if p.tok == '-' || p.tok == '+' {
		pos := p.pos
		op := string(p.tok)
		p.next()
		return &Expr{Position: pos, Kind: ExprUnop, Op: op, Left: p.parseSegValue()}
	}
	return p.parsePrimary()
}

func (p *Parser) parseMapTail(pos scanner.Position) *Expr {
	p.expect('{')
	var assocs []*AssocExpr
	if p.tok != '}' {
		for {
			key := p.parseExpr()
			var exact bool
			switch {
			case p.got(scanner.DArrow):
			case p.got(scanner.ColonEq):
				exact = true
			default:
				p.errorf(p.pos, `expected "=>" or ":=", found %s`, p.found())
			}
			assocs = append(assocs, &AssocExpr{Exact: exact, Key: key, Val: p.parseExpr()})
			if !p.got(',') {
				break
			}
		}
	}
	p.expect('}')
	return &Expr{Position: pos, Kind: ExprMap, Assocs: assocs}
}

func (p *Parser) parseRecordTail(pos scanner.Position, name string) *Expr {
	p.expect('{')
	var fields []*FieldExpr
	if p.tok != '}' {
		for {
			var fname string
			if p.tok == scanner.Var && p.text == "_" {
				// #r{_ = E} sets every unnamed field.
				fname = "_"
				p.next()
			} else {
				fname, _ = p.expectAtom()
			}
			p.expect('=')
			fields = append(fields, &FieldExpr{Name: fname, Expr: p.parseExpr()})
			if !p.got(',') {
				break
			}
		}
	}
	p.expect('}')
	return &Expr{Position: pos, Kind: ExprRecord, Name: name, Fields: fields}
}

func (p *Parser) parseCase(pos scanner.Position) *Expr {
	p.expectKeyword("case")
	subject := p.parseExpr()
	p.expectKeyword("of")
	clauses := p.parseCaseClauses()
	p.expectKeyword("end")
	return &Expr{Position: pos, Kind: ExprCase, Left: subject, Clauses: clauses}
}

// parseCaseClauses parses "Pat [when G] -> Body" clauses separated by
// semicolons.
func (p *Parser) parseCaseClauses() []*Clause {
	var clauses []*Clause
	for {
		pos := p.pos
		pat := p.parseExpr()
		guards := p.parseGuards()
		p.expect(scanner.Arrow)
		body := p.parseBody()
		clauses = append(clauses, &Clause{Position: pos, Pats: []*Expr{pat}, Guards: guards, Body: body})
		if !p.got(';') {
			break
		}
	}
	return clauses
}

func (p *Parser) parseIf(pos scanner.Position) *Expr {
	p.expectKeyword("if")
	var clauses []*Clause
	for {
		cpos := p.pos
		var conj []*Expr
		for {
			conj = append(conj, p.parseExpr())
			if !p.got(',') {
				break
			}
		}
		p.expect(scanner.Arrow)
		body := p.parseBody()
		clauses = append(clauses, &Clause{Position: cpos, Guards: [][]*Expr{conj}, Body: body})
		if !p.got(';') {
			break
		}
	}
	p.expectKeyword("end")
	return &Expr{Position: pos, Kind: ExprIf, Clauses: clauses}
}

func (p *Parser) parseReceive(pos scanner.Position) *Expr {
	p.expectKeyword("receive")
	e := &Expr{Position: pos, Kind: ExprReceive}
	if !p.atomIs("after") && !p.atomIs("end") {
		e.Clauses = p.parseCaseClauses()
	}
	if p.atomIs("after") {
		apos := p.pos
		p.next()
		timeout := p.parseExpr()
		p.expect(scanner.Arrow)
		e.After = &After{Position: apos, Timeout: timeout, Body: p.parseBody()}
	}
	p.expectKeyword("end")
	return e
}

func (p *Parser) parseTry(pos scanner.Position) *Expr {
	p.expectKeyword("try")
	e := &Expr{Position: pos, Kind: ExprTry, Body: p.parseBody()}
	if p.gotAtom("of") {
		e.Clauses = p.parseCaseClauses()
	}
	if p.gotAtom("catch") {
		e.Catches = p.parseCatchClauses()
	}
	if p.atomIs("after") {
		apos := p.pos
		p.next()
		e.After = &After{Position: apos, Body: p.parseBody()}
	}
	if e.Catches == nil && e.After == nil {
		p.errorf(pos, "try without catch or after")
	}
	p.expectKeyword("end")
	return e
}

// parseCatchClauses parses "Class:Pat:Stack [when G] -> Body"
// clauses. The class and stacktrace parts are optional; the parser
// leaves them as left-nested ":" nodes for us to destructure.
func (p *Parser) parseCatchClauses() []*Clause {
	var clauses []*Clause
	for {
		cpos := p.pos
		head := p.parseExpr()
		clause := &Clause{Position: cpos}
		switch {
		case head.Kind == ExprBinop && head.Op == ":" && head.Left.Kind == ExprBinop && head.Left.Op == ":":
			clause.Class = head.Left.Left
			clause.Pats = []*Expr{head.Left.Right}
			clause.Stack = head.Right
		case head.Kind == ExprBinop && head.Op == ":":
			clause.Class = head.Left
			clause.Pats = []*Expr{head.Right}
		default:
			clause.Pats = []*Expr{head}
		}
		clause.Guards = p.parseGuards()
		p.expect(scanner.Arrow)
		clause.Body = p.parseBody()
		clauses = append(clauses, clause)
		if !p.got(';') {
			break
		}
	}
	return clauses
}

func (p *Parser) parseFun(pos scanner.Position) *Expr {
	p.expectKeyword("fun")
	if p.tok == '(' {
		var clauses []*Clause
		for {
			clauses = append(clauses, p.parseFunClause())
			if !p.got(';') {
				break
			}
		}
		p.expectKeyword("end")
		arity := len(clauses[0].Pats)
		for _, c := range clauses[1:] {
			if len(c.Pats) != arity {
				p.errorf(c.Position, "fun clause has %d arguments, expected %d", len(c.Pats), arity)
			}
		}
		return &Expr{Position: pos, Kind: ExprFun, Clauses: clauses}
	}
	// fun f/1 and fun m:f/1, with variable module and function parts.
	first := p.parseNameOrVar()
	e := &Expr{Position: pos, Kind: ExprFunRef}
	if p.got(':') {
		e.Left = first
		e.Right = p.parseNameOrVar()
	} else {
		e.Right = first
	}
	p.expect('/')
	e.Arity = p.parseNameOrVarOrInt()
	return e
}

func (p *Parser) parseNameOrVar() *Expr {
	pos := p.pos
	switch p.tok {
	case scanner.Atom:
		name := p.text
		p.next()
		return &Expr{Position: pos, Kind: ExprAtom, Ident: name}
	case scanner.Var:
		name := p.text
		p.next()
		return &Expr{Position: pos, Kind: ExprVar, Ident: name}
	}
	p.errorf(pos, "expected atom or variable, found %s", p.found())
	return nil
}

func (p *Parser) parseNameOrVarOrInt() *Expr {
	if p.tok == scanner.Int {
		pos := p.pos
		v := p.ival
		p.next()
		return &Expr{Position: pos, Kind: ExprInt, Val: v}
	}
	return p.parseNameOrVar()
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import "fmt"

// testResolver serves a fixed set of type and record definitions.
type testResolver struct {
	types   map[string]*testType
	records map[string][]*Field
	specs   map[string][]*T
}

type testType struct {
	params  []string
	body    *T
	opaque  bool
	private bool
}

func (r *testResolver) ResolveType(module, name string, arity int) ([]string, *T, Resolution) {
	d := r.types[fmt.Sprintf("%s:%s/%d", module, name, arity)]
	if d == nil {
		return nil, nil, NotFound
	}
	switch {
	case d.opaque:
		return d.params, d.body, ResolvedOpaque
	case d.private:
		return d.params, d.body, ResolvedPrivate
	}
	return d.params, d.body, Resolved
}

func (r *testResolver) ResolveRecord(module, name string) ([]*Field, bool) {
	fields, ok := r.records[module+":"+name]
	return fields, ok
}

func (r *testResolver) ResolveSpec(module, name string, arity int) ([]*T, bool) {
	specs, ok := r.specs[fmt.Sprintf("%s:%s/%d", module, name, arity)]
	return specs, ok
}

// testEnv resolves in module a. Module a defines an alias, a
// parametric pair, two recursive trees of the same shape, and
// private plain and recursive types; module b defines an opaque
// queue and a public alias.
func testEnv() *Env {
	r := &testResolver{
		types: map[string]*testType{
			"a:id/0":    {body: Atom},
			"a:pair/1":  {params: []string{"T"}, body: Tuple(Var("T"), Var("T"))},
			"a:tree/0":  {body: Union(AtomLit("leaf"), Tuple(AtomLit("node"), User("tree"), User("tree")))},
			"a:tree2/0": {body: Union(AtomLit("leaf"), Tuple(AtomLit("node"), User("tree2"), User("tree2")))},
			"a:priv/0":  {body: Atom, private: true},
			"a:ptree/0": {body: Union(AtomLit("leaf"), Tuple(AtomLit("node"), User("ptree"), User("ptree"))), private: true},
			"b:queue/1": {params: []string{"T"}, body: List(Var("T")), opaque: true},
			"b:pub/0":   {body: Union(AtomLit("ok"), AtomLit("error"))},
			"b:priv/0":  {body: Atom, private: true},
		},
		records: map[string][]*Field{
			"a:point": {{Name: "x", T: Integer}, {Name: "y", T: Integer}},
			"a:flag":  {{Name: "on", T: Bool}},
		},
	}
	return NewEnv("a", r)
}

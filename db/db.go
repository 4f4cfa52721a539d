// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package db maintains a database of parsed source modules and
// serves type, record, and spec lookups to the checker. Modules are
// located on a search path and loaded lazily, at most once each.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/log"
	"github.com/grailbio/gradual/syntax"
	"github.com/grailbio/gradual/types"
	"golang.org/x/sync/errgroup"
)

// A DB locates, parses, and caches source modules. It implements
// types.Resolver. DBs are safe for concurrent use.
type DB struct {
	paths []string
	log   *log.Logger

	mu      sync.Mutex
	modules map[string]*entry
}

type entry struct {
	once sync.Once
	m    *syntax.Module
	err  error
}

// New creates a database searching the given directories, in order.
func New(paths []string, logger *log.Logger) *DB {
	return &DB{
		paths:   paths,
		log:     logger,
		modules: make(map[string]*entry),
	}
}

// Add seeds the database with an already-parsed module, overriding
// the search path for its name.
func (d *DB) Add(m *syntax.Module) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := &entry{m: m}
	e.once.Do(func() {})
	d.modules[m.Name] = e
}

// Load returns the named module, parsing it on first use.
func (d *DB) Load(name string) (*syntax.Module, error) {
	d.mu.Lock()
	e, ok := d.modules[name]
	if !ok {
		e = new(entry)
		d.modules[name] = e
	}
	d.mu.Unlock()
	e.once.Do(func() {
		e.m, e.err = d.load(name)
	})
	return e.m, e.err
}

// LoadAll loads the named modules concurrently.
func (d *DB) LoadAll(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := d.Load(name)
			return err
		})
	}
	return g.Wait()
}

func (d *DB) load(name string) (*syntax.Module, error) {
	file, err := d.find(name)
	if err != nil {
		return nil, err
	}
	d.log.Debugf("loading module %s from %s", name, file)
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p := &syntax.Parser{File: file, Body: src, Mode: syntax.ParseModule}
	if err := p.Parse(); err != nil {
		return nil, err
	}
	if p.Module.Name != name {
		return nil, errors.E(errors.Other,
			fmt.Sprintf("file %s declares module %s, not %s", file, p.Module.Name, name))
	}
	return p.Module, nil
}

func (d *DB) find(name string) (string, error) {
	for _, dir := range d.paths {
		file := filepath.Join(dir, name+".erl")
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}
	return "", errors.E(errors.UndefinedReference,
		fmt.Sprintf("module %s not found on search path", name))
}

// ResolveType implements types.Resolver. Lookups in modules that
// cannot be loaded resolve as not found; the checker reports the
// reference, and the tool reports the load failure separately.
func (d *DB) ResolveType(module, name string, arity int) ([]string, *types.T, types.Resolution) {
	m, err := d.Load(module)
	if err != nil {
		d.log.Debugf("resolve %s:%s/%d: %v", module, name, arity, err)
		return nil, nil, types.NotFound
	}
	decl := m.Type(syntax.TA{Name: name, Arity: arity})
	if decl == nil {
		return nil, nil, types.NotFound
	}
	res := types.Resolved
	switch {
	case decl.Opaque:
		res = types.ResolvedOpaque
	case !m.ExportTypes[syntax.TA{Name: name, Arity: arity}]:
		res = types.ResolvedPrivate
	}
	return decl.Params, decl.Body, res
}

// ResolveRecord implements types.Resolver.
func (d *DB) ResolveRecord(module, name string) ([]*types.Field, bool) {
	m, err := d.Load(module)
	if err != nil {
		return nil, false
	}
	decl := m.Record(name)
	if decl == nil {
		return nil, false
	}
	fields := make([]*types.Field, len(decl.Fields))
	for i, f := range decl.Fields {
		t := types.Any
		if f.Type != nil {
			t = f.Type
		}
		fields[i] = &types.Field{Name: f.Name, T: t}
	}
	return fields, true
}

// ResolveSpec implements types.Resolver. Only exported functions
// resolve: an unexported function cannot be called remotely.
func (d *DB) ResolveSpec(module, name string, arity int) ([]*types.T, bool) {
	m, err := d.Load(module)
	if err != nil {
		return nil, false
	}
	fa := syntax.FA{Name: name, Arity: arity}
	if m.Func(fa) == nil || !m.Exports[fa] {
		return nil, false
	}
	if spec := m.Spec(fa); spec != nil {
		return spec.Types, true
	}
	// An exported function without a spec is callable at any
	// argument types.
	return []*types.T{types.AnyArityFun(types.Any)}, true
}

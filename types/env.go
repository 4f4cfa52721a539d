// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/digest"
)

// defaultLimit is the union width above which normalization widens
// to any().
const defaultLimit = 30

// Resolution is the result of a user type lookup.
type Resolution int

const (
	// Resolved indicates the type was found and is exported.
	Resolved Resolution = iota
	// ResolvedOpaque indicates the type was found and is declared
	// opaque. Whether it may be unfolded depends on the viewing
	// module, which the caller judges.
	ResolvedOpaque
	// ResolvedPrivate indicates the type was found but is not
	// exported. Whether the reference is legal depends on the
	// referring module, which the caller judges.
	ResolvedPrivate
	// NotFound indicates no such type exists.
	NotFound
)

// A Resolver supplies type, record, and spec definitions from
// loaded modules. Implementations must be safe for concurrent use.
type Resolver interface {
	// ResolveType looks up the named user type of the given arity
	// in the given module. On success it returns the type's formal
	// parameter names and its body.
	ResolveType(module, name string, arity int) (params []string, body *T, res Resolution)
	// ResolveRecord looks up a record declaration.
	ResolveRecord(module, name string) ([]*Field, bool)
	// ResolveSpec looks up the spec of the named function. A spec
	// holds one fun type per overlapping clause.
	ResolveSpec(module, name string, arity int) ([]*T, bool)
}

// An Env is the context in which types are normalized and compared:
// it carries the current module, the resolver for cross-module
// lookups, and per-session caches. The zero of its knobs selects
// defaults. Envs are safe for concurrent use.
type Env struct {
	// Module is the module whose types are being processed. Local
	// type references and opacity are judged relative to it.
	Module string
	// Limit overrides the union width limit when positive.
	Limit int

	resolver Resolver

	varc uint32

	mu  sync.Mutex
	glb map[digest.Digest]*T
}

// NewEnv creates an environment for the given module. The resolver
// may be nil, in which case all user type lookups fail.
func NewEnv(module string, resolver Resolver) *Env {
	return &Env{
		Module:   module,
		resolver: resolver,
		glb:      make(map[digest.Digest]*T),
	}
}

func (e *Env) limit() int {
	if e == nil || e.Limit <= 0 {
		return defaultLimit
	}
	return e.Limit
}

// Fresh mints a type variable unused elsewhere in this session.
func (e *Env) Fresh() *T {
	return Var(fmt.Sprintf("_TV%d", atomic.AddUint32(&e.varc, 1)))
}

// ResolveType looks up a user type. An empty module resolves in the
// environment's own module.
func (e *Env) ResolveType(module, name string, arity int) ([]string, *T, Resolution) {
	if module == "" {
		module = e.Module
	}
	if e.resolver == nil {
		return nil, nil, NotFound
	}
	return e.resolver.ResolveType(module, name, arity)
}

// ResolveRecord looks up a record declaration. An empty module
// resolves in the environment's own module.
func (e *Env) ResolveRecord(module, name string) ([]*Field, bool) {
	if module == "" {
		module = e.Module
	}
	if e.resolver == nil {
		return nil, false
	}
	return e.resolver.ResolveRecord(module, name)
}

// ResolveSpec looks up a function spec.
func (e *Env) ResolveSpec(module, name string, arity int) ([]*T, bool) {
	if e.resolver == nil {
		return nil, false
	}
	return e.resolver.ResolveSpec(module, name, arity)
}

// glbKey computes the cache key for a meet of t and u in this
// environment. Keys are module-relative because opacity is.
func (e *Env) glbKey(t, u *T) digest.Digest {
	w := Digester.NewWriter()
	io.WriteString(w, e.Module)
	io.WriteString(w, "\x00")
	t.WriteDigest(w)
	u.WriteDigest(w)
	return w.Digest()
}

func (e *Env) cachedGLB(d digest.Digest) (*T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.glb[d]
	return t, ok
}

func (e *Env) cacheGLB(d digest.Digest, t *T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.glb[d]; ok {
		return
	}
	e.glb[d] = t
}

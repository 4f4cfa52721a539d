// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/types"
	"github.com/grailbio/testutil"
)

const libSource = `
-module(lib).
-export([area/1, mystery/0]).
-export_type([shape/0]).
-type shape() :: circle | square.
-type hidden() :: atom().
-opaque handle() :: {lib, integer()}.
-record(point, {x :: integer(), y :: integer(), label}).
-spec area(shape()) -> float().
area(circle) -> 3.14;
area(square) -> 1.0.
mystery() -> ok.
internal() -> secret.
`

// writeModules populates dir with the test corpus and returns a
// database searching it.
func writeModules(t *testing.T, dir string) *DB {
	t.Helper()
	files := map[string]string{
		"lib.erl": libSource,
		// Declared name disagrees with the file name.
		"liar.erl": "-module(honest).\nf() -> ok.\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0666); err != nil {
			t.Fatal(err)
		}
	}
	return New([]string{dir}, nil)
}

func TestLoad(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	m, err := d.Load("lib")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.Name, "lib"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// Loading again returns the cached module.
	m2, err := d.Load("lib")
	if err != nil {
		t.Fatal(err)
	}
	if m2 != m {
		t.Error("expected cached module")
	}

	if _, err := d.Load("nosuch"); !errors.Is(errors.UndefinedReference, err) {
		t.Errorf("expected UndefinedReference, got %v", err)
	}
	if _, err := d.Load("liar"); err == nil {
		t.Error("expected declared-name mismatch error")
	}
}

func TestLoadAll(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	if err := d.LoadAll(context.Background(), []string{"lib", "lib"}); err != nil {
		t.Fatal(err)
	}
	if err := d.LoadAll(context.Background(), []string{"lib", "nosuch"}); err == nil {
		t.Error("expected error for missing module")
	}
}

func TestAdd(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	m, err := d.Load("lib")
	if err != nil {
		t.Fatal(err)
	}
	// Seeding overrides the search path.
	empty := New(nil, nil)
	empty.Add(m)
	m2, err := empty.Load("lib")
	if err != nil {
		t.Fatal(err)
	}
	if m2 != m {
		t.Error("expected seeded module")
	}
}

func TestResolveType(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	for _, c := range []struct {
		name string
		res  types.Resolution
	}{
		{"shape", types.Resolved},
		{"hidden", types.ResolvedPrivate},
		{"handle", types.ResolvedOpaque},
		{"nosuch", types.NotFound},
	} {
		if _, _, got := d.ResolveType("lib", c.name, 0); got != c.res {
			t.Errorf("%s: got %v, want %v", c.name, got, c.res)
		}
	}
	if _, _, got := d.ResolveType("nosuch", "t", 0); got != types.NotFound {
		t.Errorf("got %v, want NotFound", got)
	}
}

func TestResolveRecord(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	fields, ok := d.ResolveRecord("lib", "point")
	if !ok {
		t.Fatal("record point not resolved")
	}
	if got, want := len(fields), 3; got != want {
		t.Fatalf("got %v fields, want %v", got, want)
	}
	// An unannotated field is any().
	if got, want := fields[2].T.Kind, types.AnyKind; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := d.ResolveRecord("lib", "nosuch"); ok {
		t.Error("resolved nonexistent record")
	}
}

func TestResolveSpec(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "db")
	defer cleanup()
	d := writeModules(t, dir)

	specs, ok := d.ResolveSpec("lib", "area", 1)
	if !ok {
		t.Fatal("spec for area/1 not resolved")
	}
	if got, want := len(specs), 1; got != want {
		t.Fatalf("got %v specs, want %v", got, want)
	}
	if got, want := specs[0].Kind, types.FunKind; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	// Exported but unspecced: callable at any argument types.
	specs, ok = d.ResolveSpec("lib", "mystery", 0)
	if !ok {
		t.Fatal("mystery/0 not resolved")
	}
	if !specs[0].Wild {
		t.Error("expected any-arity fun type")
	}

	// Unexported functions cannot be called remotely.
	if _, ok := d.ResolveSpec("lib", "internal", 0); ok {
		t.Error("resolved unexported function")
	}
	if _, ok := d.ResolveSpec("lib", "nosuch", 0); ok {
		t.Error("resolved nonexistent function")
	}
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/gradual/db"
	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/log"
	"github.com/grailbio/gradual/syntax"
	"github.com/grailbio/gradual/types"
)

func (c *Cmd) check(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("check", flag.ExitOnError)
		help  = `Check type checks the modules in the named source files and
prints a diagnostic for each type error found. Files are checked
concurrently; diagnostics are reported in argument order. Check
exits with a nonzero status if any file fails to check.

Modules referenced remotely (m:f(...), m:t()) are located on the
search path, which comprises the directories of the named files,
the -path global flag, and the configured path, in that order.

Unannotated expressions are assigned gradual types: by default
their types are inferred; with -infer=false, literals and
unspecced functions are typed any() and checking is limited to
the annotations actually written.`
	)
	var (
		infer      = flags.Bool("infer", c.Config.Check.Infer, "infer types for unannotated expressions")
		exhaustive = flags.Bool("exhaustive", c.Config.Check.Exhaustive, "report non-exhaustive case and function clauses")
		stop       = flags.Bool("stop", false, "stop checking a module at its first error")
		unionLimit = flags.Int("unionlimit", c.Config.Check.UnionLimit, "union width above which unions widen (0 for the builtin limit)")
	)
	c.Parse(flags, args, help, "check [-infer] [-exhaustive] [-stop] [-unionlimit n] file...")
	if flags.NArg() == 0 {
		flags.Usage()
	}
	files := flags.Args()

	d := db.New(c.searchPath(files), c.Log)
	modules := make([]*syntax.Module, len(files))
	err := traverse.Each(len(files), func(i int) error {
		src, err := os.ReadFile(files[i])
		if err != nil {
			return err
		}
		p := &syntax.Parser{File: files[i], Body: src, Mode: syntax.ParseModule}
		if err := p.Parse(); err != nil {
			return err
		}
		modules[i] = p.Module
		return nil
	})
	c.must(err)
	// Seed the database so the named modules resolve each other
	// without a second parse.
	for _, m := range modules {
		d.Add(m)
	}

	opts := syntax.Options{
		Infer:            *infer,
		Exhaustive:       *exhaustive,
		StopOnFirstError: *stop,
		UnionLimit:       *unionLimit,
		Verbose:          c.Log.At(log.DebugLevel),
		Log:              c.Log,
	}
	diags := make([][]*errors.Error, len(modules))
	_ = traverse.Each(len(modules), func(i int) error {
		env := types.NewEnv(modules[i].Name, d)
		diags[i] = syntax.CheckModule(modules[i], env, opts)
		return nil
	})
	var n int
	for i, errs := range diags {
		for _, e := range errs {
			c.Println(e)
		}
		n += len(errs)
		if len(errs) == 0 {
			c.Log.Debugf("%s: ok", files[i])
		}
	}
	if n > 0 {
		c.Exit(1)
	}
}

// searchPath builds the module search path for the given source
// files: their directories first, then the flag and configuration
// paths.
func (c *Cmd) searchPath(files []string) []string {
	var (
		paths []string
		seen  = make(map[string]bool)
	)
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			paths = append(paths, dir)
		}
	}
	for _, file := range files {
		add(filepath.Dir(file))
	}
	for _, dir := range c.Config.Path {
		add(dir)
	}
	return paths
}

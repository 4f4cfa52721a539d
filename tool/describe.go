// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/gradual/db"
	"github.com/grailbio/gradual/syntax"
	"v.io/x/lib/textutil"
)

func (c *Cmd) describe(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("describe", flag.ExitOnError)
		help  = `Describe displays the declared interface of a module: its
exported functions and their specs, and its type, opaque, and
record declarations. The argument is either a source file path
or a module name located on the search path.`
	)
	c.Parse(flags, args, help, "describe path-or-module")
	if flags.NArg() != 1 {
		flags.Usage()
	}
	arg := flags.Arg(0)

	var (
		m   *syntax.Module
		err error
	)
	if strings.HasSuffix(arg, ".erl") {
		var src []byte
		src, err = os.ReadFile(arg)
		c.must(err)
		p := &syntax.Parser{File: arg, Body: src, Mode: syntax.ParseModule}
		err = p.Parse()
		c.must(err)
		m = p.Module
	} else {
		d := db.New(c.Config.Path, c.Log)
		m, err = d.Load(arg)
		c.must(err)
	}

	c.Printf("module %s (%s)\n", m.Name, filepath.Base(m.File))
	if len(m.Types) > 0 {
		c.Println()
		c.Println("Types")
		for _, t := range m.Types {
			kw := "type"
			if t.Opaque {
				kw = "opaque"
			}
			decl := fmt.Sprintf("-%s %s(%s) :: %s.", kw, t.Name, strings.Join(t.Params, ", "), t.Body)
			if !m.ExportTypes[syntax.TA{Name: t.Name, Arity: len(t.Params)}] {
				decl += " (not exported)"
			}
			c.printwrapped(decl)
		}
	}
	if len(m.Records) > 0 {
		c.Println()
		c.Println("Records")
		for _, r := range m.Records {
			fields := make([]string, len(r.Fields))
			for i, f := range r.Fields {
				fields[i] = f.Name
				if f.Type != nil {
					fields[i] += " :: " + f.Type.String()
				}
			}
			c.printwrapped(fmt.Sprintf("-record(%s, {%s}).", r.Name, strings.Join(fields, ", ")))
		}
	}
	c.Println()
	c.Println("Functions")
	for _, f := range m.Funcs {
		fa := syntax.FA{Name: f.Name, Arity: f.Arity}
		header := fmt.Sprintf("%s/%d", f.Name, f.Arity)
		if !m.Exports[fa] {
			header += " (not exported)"
		}
		c.Println(header)
		if spec := m.Spec(fa); spec != nil {
			for _, t := range spec.Types {
				c.printwrapped("    " + t.String())
			}
		}
	}
}

// printwrapped prints s wrapped at 80 columns, continuation lines
// indented.
func (c *Cmd) printwrapped(s string) {
	pw := textutil.PrefixLineWriter(c.Stdout, "\t")
	ww := textutil.NewUTF8WrapWriter(pw, 80)
	if _, err := io.WriteString(ww, s); err != nil {
		c.Fatal(err)
	}
	ww.Flush()
	pw.Flush()
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config is the tool's configuration. It is stored as a YAML
// document; flags override its values.
type Config struct {
	// Path is the module search path, in order.
	Path []string `yaml:"path,omitempty"`
	// Check holds checker option defaults for the check command.
	Check struct {
		Infer      bool `yaml:"infer"`
		Exhaustive bool `yaml:"exhaustive"`
		UnionLimit int  `yaml:"unionlimit,omitempty"`
	} `yaml:"check"`
}

// DefaultConfig is the builtin configuration used when no
// configuration file is present.
var DefaultConfig = func() Config {
	var cfg Config
	cfg.Check.Infer = true
	cfg.Check.Exhaustive = true
	return cfg
}()

func (c *Cmd) config(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("config", flag.ExitOnError)
		help  = `Config writes the current gradual configuration to standard
output.

Gradual's configuration is a YAML file with the following toplevel
keys:

path: list of directories searched, in order, for modules named
	by remote type and call references (m:f(...), m:t()). The
	-path global flag prepends directories to this list.
check: checker option defaults for the check command; its keys
	infer, exhaustive, and unionlimit correspond to the check
	command's flags of the same names.

A configuration may be modified and then supplied back to the tool:

	$ gradual config > myconfig
	<edit myconfig>
	$ gradual -config myconfig ...`
	)
	c.Parse(flags, args, help, "config")
	if flags.NArg() != 0 {
		flags.Usage()
	}
	data, err := yaml.Marshal(c.Config)
	c.must(err)
	c.Stdout.Write(data)
}

func splitPath(path string) []string {
	return filepath.SplitList(path)
}

// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package tool implements the gradual command.
package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	golog "log"
	"os"
	"sort"

	"github.com/grailbio/gradual/log"
	"gopkg.in/yaml.v2"
)

// Func is the type of a command function.
type Func func(*Cmd, context.Context, ...string)

// Cmd holds the configuration, flag definitions, and runtime objects
// required for tool invocations.
type Cmd struct {
	// Config holds the active tool configuration. It is populated
	// from the configuration file (if present) and then overridden
	// by flags.
	Config Config

	// ConfigFile stores the path of the active configuration file.
	// May be overridden by the -config flag.
	ConfigFile string
	// DefaultConfigFile is the configuration file read when the
	// -config flag is not given. It is not an error for the default
	// file to be missing.
	DefaultConfigFile string

	Version string

	// Commands contains the additional set of invocable commands.
	Commands map[string]Func

	// Intro is an additional introduction printed after the standard one.
	Intro string

	// The standard output and error as defined by this command.
	Stdout, Stderr io.Writer

	pathFlag string
	logFlag  string

	onexits []func()

	flags *flag.FlagSet

	Log *log.Logger
}

var commands = map[string]Func{
	"check":    (*Cmd).check,
	"describe": (*Cmd).describe,
	"config":   (*Cmd).config,
	"version":  (*Cmd).versionCmd,
}

var intro = `The gradual command type checks Erlang-style source modules
against their -spec and -type annotations.

The command comprises a set of subcommands; the list of supported
commands can be obtained by running

	gradual -help

Each subcommand can in turn be invoked with -help, displaying its
usage and help text. For example, the following displays help for the
"check" command.

	gradual check -help

Each subcommand defines a set of (optional) flags and arguments.
Additionally, gradual defines a number of global flags. Flags must be
supplied in order: global flags after the "gradual" command; command
flags after that command's name. For example, the following checks a
module with debug logging enabled (global) and inference disabled
(command):

	gradual -log debug check -infer=false mymod.erl

Gradual is configured from a single YAML configuration file holding
the module search path and checker defaults. The active configuration
may be examined by

	gradual config

Gradual may be invoked with a custom configuration by supplying the
-config flag:

	gradual -config myconfig ...`

var help = `Gradual is a type checker for Erlang-style modules.

Usage of gradual:
	gradual [flags] <command> [args]`

func (c *Cmd) usage(flags *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, help)
	fmt.Fprintln(os.Stderr, "Gradual commands:")
	var cmds []string
	for name := range c.commands() {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	for _, name := range cmds {
		fmt.Fprintln(os.Stderr, "\t"+name)
	}
	fmt.Fprintln(os.Stderr, "Global flags:")
	flags.PrintDefaults()
	c.Exit(2)
}

// Main parses command line flags and then invokes the requested
// command. The caller is expected to have parsed the flagset for us
// before calling Main.
//
// Main should only be called once.
func (c *Cmd) Main() {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	flags := c.Flags()
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, intro)
		if c.Intro != "" {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, c.Intro)
		}
		c.Exit(2)
	}
	cmd := flags.Arg(0)
	fn := c.commands()[cmd]
	if fn == nil {
		flags.Usage()
	}
	var (
		level     log.Level
		logflags  int
		logprefix = "gradual: "
	)
	switch c.logFlag {
	case "off":
		level = log.OffLevel
	case "error":
		level = log.ErrorLevel
	case "info":
		level = log.InfoLevel
	case "debug":
		level = log.DebugLevel
	default:
		c.Fatalf("unrecognized log level %v", c.logFlag)
	}
	if level > log.InfoLevel {
		logflags = golog.LstdFlags
		logprefix = ""
	}
	c.Log = log.New(golog.New(c.Stderr, logprefix, logflags), level)

	if c.ConfigFile != "" {
		b, err := os.ReadFile(c.ConfigFile)
		if err != nil && c.ConfigFile != c.DefaultConfigFile {
			c.Fatal(err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &c.Config); err != nil {
				c.Fatalf("config %s: %v", c.ConfigFile, err)
			}
		}
	}
	if c.pathFlag != "" {
		c.Config.Path = append(splitPath(c.pathFlag), c.Config.Path...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Note that the flag package stops parsing flags after the first
	// non-flag argument (i.e., the first argument that does not begin
	// with "-"); thus flag.Args()[1:] contains all the flags and
	// arguments for the command in flags.Arg[0].
	fn(c, ctx, flags.Args()[1:]...)
	c.Exit(0)
}

// Fatal formats a message in the manner of fmt.Print, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatal(v ...interface{}) {
	fmt.Fprintln(c.Stderr, v...)
	c.Exit(1)
}

// Fatalf formats a message in the manner of fmt.Printf, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatalf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stderr, format, v...)
	fmt.Fprintln(c.Stderr)
	c.Exit(1)
}

// Errorln formats a message in the manner of fmt.Println and prints it
// to stderr.
func (c *Cmd) Errorln(v ...interface{}) {
	fmt.Fprintln(c.Stderr, v...)
}

// Errorf formats a message in the manner of fmt.Printf and prints it
// to stderr.
func (c *Cmd) Errorf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stderr, format, v...)
}

// Println formats a message in the manner of fmt.Println and prints
// it to stdout.
func (c *Cmd) Println(v ...interface{}) {
	fmt.Fprintln(c.Stdout, v...)
}

// Printf formats a message in the manner of fmt.Printf and prints it
// to stdout.
func (c *Cmd) Printf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stdout, format, v...)
}

// Exit causes the command to exit with the provided status code.
// Exit ensures that command teardown is properly handled.
func (c *Cmd) Exit(code int) {
	for _, fn := range c.onexits {
		fn()
	}
	os.Exit(code)
}

// Flags initializes and returns the FlagSet used by this Cmd instance.
// The user should parse this flagset before invoking (*Cmd).Main, e.g.:
//
//	cmd.Flags().Parse(os.Args[1:])
func (c *Cmd) Flags() *flag.FlagSet {
	if c.flags == nil {
		c.flags = flag.NewFlagSet("gradual", flag.ExitOnError)
		c.flags.Usage = func() { c.usage(c.flags) }
		c.flags.StringVar(&c.ConfigFile, "config", c.DefaultConfigFile, "path to configuration file; otherwise use default (builtin) config")
		c.flags.StringVar(&c.pathFlag, "path", "", "colon-separated module search path, prepended to the configured path")
		c.flags.StringVar(&c.logFlag, "log", "info", "set the log level: off, error, info, debug")
	}
	return c.flags
}

func (c *Cmd) commands() map[string]Func {
	m := make(map[string]Func)
	for name, f := range commands {
		m[name] = f
	}
	for name, f := range c.Commands {
		m[name] = f
	}
	return m
}

func (c *Cmd) onexit(fn func()) {
	c.onexits = append(c.onexits, fn)
}

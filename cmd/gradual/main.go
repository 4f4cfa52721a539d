// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/grailbio/gradual/tool"
)

// version is stamped by the release build.
var version = "dev"

var configFile = os.ExpandEnv("$HOME/.gradual/config.yaml")

func main() {
	cmd := &tool.Cmd{
		Config:            tool.DefaultConfig,
		DefaultConfigFile: configFile,
		Version:           version,
	}
	cmd.Flags().Parse(os.Args[1:])
	cmd.Main()
}

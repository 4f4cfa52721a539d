// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import "github.com/davecgh/go-spew/spew"

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// dump renders an AST node for debug logging.
func dump(v interface{}) string {
	return dumpConfig.Sdump(v)
}

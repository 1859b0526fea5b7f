// Package main duff working-copy diff dashboard API
//
//	@title			duff API
//	@version		0.1.0
//	@description	duff shows uncommitted changes across local git working copies
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host			localhost:3000
//	@BasePath		/api/v1
package main

import (
	"os"

	"github.com/chigichan24/duff/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

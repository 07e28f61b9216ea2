// Command avhost runs Lua programs under a fixed-timestep scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/avhost/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "avhost: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// Command dit keeps a proof-of-work action log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dit:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

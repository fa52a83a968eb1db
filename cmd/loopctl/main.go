// Command loopctl is a thin host adaptor demonstrating the :Loop command
// surface named in spec §6 over this module's library operations. main is a
// deterministic boundary, following the teacher's cmd/scriptweaver/main.go
// convention: parse args, hand off to the engine, translate its outcome into
// a process exit code.
package main

import (
	"fmt"
	"os"

	"github.com/loopforge/taskloop/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

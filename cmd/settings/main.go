// settings reads and writes persistent hierarchical settings.
package main

import (
	"fmt"
	"os"

	"settings-lite/internal/cmd"
)

var (
	run    = func() error { return cmd.Execute() }
	osExit = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

// lfcfg reads and safely edits the rkipc.ini of a Luckfox Pico camera.
package main

import (
	"fmt"
	"os"

	"luckfox-webcfg/internal/cmd"
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

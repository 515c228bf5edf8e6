// Command computeserver runs the compute task server.
package main

import (
	"fmt"
	"os"

	"github.com/SyntheticEdelweiss/ClientServerExample/cmd/computeserver/commands"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

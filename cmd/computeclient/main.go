// Command computeclient submits tasks to a compute server.
package main

import (
	"fmt"
	"os"

	"github.com/SyntheticEdelweiss/ClientServerExample/cmd/computeclient/commands"
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

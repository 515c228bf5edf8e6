// Package commands implements the CLI commands for the compute client.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile    string
	serverAddr string
)

// rootCmd is the base command. The classic invocation passes credentials
// and the task inline:
//
//	computeclient alice secret sort 5 3 9 3 1
//
// The run subcommand does the same with credentials from the config file.
var rootCmd = &cobra.Command{
	Use:   "computeclient <username> <password> <task> [args...]",
	Short: "Submit compute tasks to a compute server",
	Long: `computeclient connects to a compute server, authenticates, submits one
task, renders its progress and prints the result.

Tasks:
  sort <number> [number...]
        Sort the given integers.
  primes <from> <to>
        Find every prime in the inclusive range.
  function <linear|quadratic> <from> <to> <step> <a> <b> <c>
        Tabulate f(x) = a*x + b (linear) or a*x^2 + b*x + c (quadratic)
        for x = from, from+step, ... while x <= to.

Examples:
  computeclient alice secret sort 5 3 9 3 1
  computeclient alice secret primes 1 20
  computeclient alice secret function linear 0 4 2 2 3 0
  computeclient --server 10.0.0.5:5555 alice secret primes 1 100

Press Ctrl+C while a task runs to cancel it on the server.

Use "computeclient [command] --help" for more information about a command.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runRoot handles the bare invocation: username, password, then the task
// and its arguments. Missing credentials print usage and exit 1.
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		cmd.PrintErrln(cmd.UsageString())
		os.Exit(1)
	}
	if len(args) < 3 {
		cmd.PrintErrf("missing task after credentials\n\n")
		cmd.PrintErrln(cmd.UsageString())
		os.Exit(1)
	}

	return executeTask(args[0], args[1], args[2], args[3:])
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo records the build-time version variables.
func SetVersionInfo(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/computeclient/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "server address as host:port (default: from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

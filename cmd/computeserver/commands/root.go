// Package commands implements the CLI commands for compute server management.
package commands

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd is the base command. Invoked bare with host and port positionals
// it runs the server in the foreground, which is the classic invocation:
//
//	computeserver 0.0.0.0 5555
//
// Everything else is a subcommand.
var rootCmd = &cobra.Command{
	Use:   "computeserver <host> <port>",
	Short: "Compute server for remote task execution",
	Long: `computeserver accepts tasks from authenticated clients over TCP, splits
them into chunks executed on a worker pool, and streams progress back while
they run. Results are cached, so resubmitting identical work is answered
immediately.

Run it directly with a listen address:

  computeserver 0.0.0.0 5555

or manage it as a daemon:

  computeserver start
  computeserver status
  computeserver stop

Use "computeserver [command] --help" for more information about a command.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runRoot handles the bare invocation: exactly two positionals, host and
// port. Anything else prints usage and exits 1.
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		cmd.PrintErrln(cmd.UsageString())
		os.Exit(1)
	}

	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		cmd.PrintErrf("invalid port %q: expected a number between 1 and 65535\n\n", args[1])
		cmd.PrintErrln(cmd.UsageString())
		os.Exit(1)
	}

	return runServer(serveOptions{Host: host, Port: port, OverrideListen: true})
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/computeserver/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

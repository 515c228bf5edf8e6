package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	startForeground bool
	startPidFile    string
	startLogFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the compute server",
	Long: `Start the compute server using the configured listen address.

By default the server detaches and runs as a daemon, writing its PID file
and log under the state directory. Use --foreground to keep it attached
to the terminal.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&startForeground, "foreground", "f", false, "run in the foreground instead of daemonizing")
	startCmd.Flags().StringVar(&startPidFile, "pid-file", "", "PID file path (default: state dir)")
	startCmd.Flags().StringVar(&startLogFile, "log-file", "", "daemon log file path (default: state dir)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if startForeground {
		return runServer(serveOptions{PidFile: startPidFile})
	}
	return startDaemon()
}

// startDaemon re-executes the current binary in the background with
// --foreground, detached from the controlling terminal.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := startPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	logPath := startLogFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	// Refuse to start twice. A stale PID file from a crashed daemon is
	// cleaned up silently.
	if data, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			if proc, err := os.FindProcess(pid); err == nil {
				if err := proc.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("server already running with PID %d (use 'computeserver stop' first)", pid)
				}
			}
		}
		os.Remove(pidPath)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if cfgFile != "" {
		daemonArgs = append(daemonArgs, "--config", cfgFile)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	daemon := exec.Command(executable, daemonArgs...)
	daemon.Stdout = logFile
	daemon.Stderr = logFile
	daemon.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := daemon.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Compute server started (PID %d)\n", daemon.Process.Pid)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Println()
	fmt.Println("Use 'computeserver status' to check the server.")
	fmt.Println("Use 'computeserver logs -f' to follow the log.")
	fmt.Println("Use 'computeserver stop' to stop it.")

	// The child owns its own lifecycle now.
	_ = daemon.Process.Release()

	return nil
}

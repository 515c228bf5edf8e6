package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running compute server",
	Long: `Stop a compute server started with 'computeserver start'.

Sends SIGTERM for a graceful shutdown: in-flight tasks are cancelled, their
clients get a final reply, and connections are drained. Use --force to send
SIGKILL instead.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "PID file path (default: state dir)")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "kill the server immediately (SIGKILL)")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("server does not appear to be running (no PID file at %s)", pidPath)
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID file %s: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	sig := syscall.SIGTERM
	if stopForce {
		sig = syscall.SIGKILL
	}

	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			os.Remove(pidPath)
			fmt.Printf("Server (PID %d) already stopped, removed stale PID file\n", pid)
			return nil
		}
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	if stopForce {
		fmt.Printf("Sent SIGKILL to server (PID %d)\n", pid)
		os.Remove(pidPath)
	} else {
		fmt.Printf("Sent SIGTERM to server (PID %d), shutting down gracefully\n", pid)
	}
	return nil
}

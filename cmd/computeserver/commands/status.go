package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/bytesize"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/api"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
)

var (
	statusPidFile string
	statusAPIPort int
	statusOutput  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show compute server status",
	Long: `Show whether the server process is running and, when the management
API is reachable, its live state: connected clients, running tasks and
result cache usage.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "PID file path (default: state dir)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 0, "management API port (default: from config)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format: table or json")
}

// serverStatus is the aggregate view assembled from the PID file and the
// management API.
type serverStatus struct {
	Running bool            `json:"running"`
	PID     int             `json:"pid,omitempty"`
	Healthy bool            `json:"healthy"`
	Message string          `json:"message,omitempty"`
	Info    *api.StatusData `json:"info,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := serverStatus{}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	if pid, ok := readAlivePid(pidPath); ok {
		status.Running = true
		status.PID = pid
	}

	host, port := resolveAPIAddress()
	info, err := fetchStatus(host, port)
	if err != nil {
		status.Message = err.Error()
	} else {
		status.Healthy = true
		status.Info = info
		// A server started in the foreground has no PID file but still
		// answers the API.
		status.Running = true
	}

	switch statusOutput {
	case "json":
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		printStatusTable(status)
	}
	return nil
}

// readAlivePid reports the PID from the file if the process exists.
func readAlivePid(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

func resolveAPIAddress() (string, int) {
	host := "127.0.0.1"
	port := statusAPIPort

	cfg, err := config.Load(GetConfigFile())
	if err == nil {
		if cfg.API.Host != "" && cfg.API.Host != "0.0.0.0" {
			host = cfg.API.Host
		}
		if port == 0 {
			port = cfg.API.Port
		}
	}
	if port == 0 {
		port = 8080
	}
	return host, port
}

// fetchStatus asks the management API for its status document.
func fetchStatus(host string, port int) (*api.StatusData, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://%s/status", net.JoinHostPort(host, strconv.Itoa(port)))

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("management API not reachable at %s", url)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("status request failed: %s", envelope.Error)
	}

	var info api.StatusData
	if err := json.Unmarshal(envelope.Data, &info); err != nil {
		return nil, fmt.Errorf("malformed status payload: %w", err)
	}
	return &info, nil
}

func printStatusTable(status serverStatus) {
	const (
		green = "\033[32m"
		red   = "\033[31m"
		reset = "\033[0m"
	)

	fmt.Println("Compute Server Status")
	fmt.Println("=====================")
	fmt.Println()

	if status.Running {
		if status.PID != 0 {
			fmt.Printf("  Process:      %s●%s running (PID %d)\n", green, reset, status.PID)
		} else {
			fmt.Printf("  Process:      %s●%s running\n", green, reset)
		}
	} else {
		fmt.Printf("  Process:      %s○%s not running\n", red, reset)
	}

	if !status.Healthy {
		fmt.Printf("  API:          %s○%s unreachable\n", red, reset)
		if status.Message != "" {
			fmt.Printf("                %s\n", status.Message)
		}
		fmt.Println()
		return
	}

	info := status.Info
	fmt.Printf("  API:          %s●%s healthy\n", green, reset)
	fmt.Printf("  Version:      %s\n", info.Version)
	fmt.Printf("  Uptime:       %s\n", info.Uptime)
	fmt.Printf("  Connections:  %d\n", info.ActiveConnections)
	if len(info.AuthorizedUsers) > 0 {
		fmt.Printf("  Users:        %s\n", strings.Join(info.AuthorizedUsers, ", "))
	} else {
		fmt.Printf("  Users:        none\n")
	}

	if len(info.RunningTasks) == 0 {
		fmt.Printf("  Tasks:        none\n")
	} else {
		fmt.Printf("  Tasks:        %d running\n", len(info.RunningTasks))
		for _, task := range info.RunningTasks {
			fmt.Printf("                - %s by %s (%s, %d chunks)\n",
				task.Kind, task.Username, task.State, task.Chunks)
		}
	}

	fmt.Printf("  Cache:        %d entries, %s / %s (hits %d, misses %d)\n",
		info.Cache.Entries,
		bytesize.ByteSize(info.Cache.Cost).String(),
		bytesize.ByteSize(info.Cache.MaxCost).String(),
		info.Cache.Hits,
		info.Cache.Misses)
	fmt.Println()
}

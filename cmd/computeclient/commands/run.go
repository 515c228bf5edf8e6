package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/client"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
)

// errCancelled marks a run ended by an acknowledged cancellation.
var errCancelled = errors.New("task cancelled")

var runCmd = &cobra.Command{
	Use:   "run <task> [args...]",
	Short: "Submit a task using credentials from the config file",
	Long: `Submit a task like the bare invocation, but read the username and
password from the credentials section of the client config file instead of
the command line. Intended for scripted runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadClient(GetConfigFile())
		if err != nil {
			return err
		}
		if cfg.Credentials.Username == "" {
			return fmt.Errorf("no credentials configured in %s (fill the credentials section or pass username and password as arguments)", clientConfigPath())
		}
		return executeTask(cfg.Credentials.Username, cfg.Credentials.Password, args[0], args[1:])
	},
}

func clientConfigPath() string {
	if path := GetConfigFile(); path != "" {
		return path
	}
	return config.GetDefaultClientConfigPath()
}

// executeTask connects, submits one task and waits for its terminal reply,
// rendering progress along the way. Ctrl+C requests cancellation.
func executeTask(username, password, taskName string, taskArgs []string) error {
	req, err := buildRequest(taskName, taskArgs)
	if err != nil {
		return err
	}

	cfg, err := config.LoadClient(GetConfigFile())
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	address := serverAddr
	if address == "" {
		address = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	} else if _, _, err := net.SplitHostPort(address); err != nil {
		return fmt.Errorf("invalid --server address %q: %w", address, err)
	}

	var local string
	if cfg.Local.Host != "" || cfg.Local.Port != 0 {
		local = net.JoinHostPort(cfg.Local.Host, strconv.Itoa(cfg.Local.Port))
	}

	progress := newProgressPrinter(term.IsTerminal(int(syscall.Stdout)))

	// First terminal outcome wins; later events (including the Unconnected
	// emitted by the deferred Close) are ignored.
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	// Distinguishes a server that answered and then dropped from one that
	// closed straight after login, which is how auth rejection looks.
	var sawReply atomic.Bool

	events := client.Events{
		State: func(st client.State) {
			logger.Info("Connection state changed", "state", st.String())
			if st == client.StateUnconnected {
				if sawReply.Load() {
					finish(errors.New("connection lost"))
				} else {
					finish(errors.New("server closed the connection during login (check credentials and the server allow-list)"))
				}
			}
		},
		ProgressRange: func(min, max int32) {
			sawReply.Store(true)
			progress.SetRange(min, max)
		},
		ProgressValue: func(value int32) {
			sawReply.Store(true)
			progress.Update(value)
		},
		Result: func(result wire.Request) {
			sawReply.Store(true)
			progress.Finish()
			printResult(result)
			finish(nil)
		},
		Invalid: func(code wire.ErrorCode, text string) {
			sawReply.Store(true)
			progress.Finish()
			finish(fmt.Errorf("server rejected request: %s (%s)", code, text))
		},
		CancelAck: func() {
			sawReply.Store(true)
			progress.Finish()
			finish(errCancelled)
		},
	}

	cli, err := client.New(client.Config{
		Address:        address,
		LocalAddress:   local,
		Username:       username,
		Password:       password,
		ConnectTimeout: cfg.Connection.ConnectTimeout,
		WriteTimeout:   cfg.Connection.WriteTimeout,
		// One-shot run: a reconnect could not resume the submitted task,
		// so a lost connection ends the run instead.
		Reconnect: false,
	}, events)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := cli.Connect(context.Background()); err != nil {
		return err
	}

	if err := cli.Submit(req); err != nil {
		return err
	}
	logger.Info("Task submitted", "task", req.Type().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cancelRequested := false
	for {
		select {
		case err := <-done:
			progress.Finish()
			if errors.Is(err, errCancelled) {
				fmt.Println("Task cancelled.")
				return nil
			}
			return err

		case <-sigCh:
			if cancelRequested {
				progress.Finish()
				return errors.New("interrupted")
			}
			cancelRequested = true
			progress.Finish()
			fmt.Fprintln(os.Stderr, "Cancelling task... (Ctrl+C again to quit without waiting)")
			if err := cli.Cancel(); err != nil {
				return fmt.Errorf("cancel failed: %w", err)
			}
		}
	}
}

// buildRequest parses the task name and arguments into a protocol request.
// Range and step validity is checked by the client before anything is sent.
func buildRequest(task string, args []string) (wire.Request, error) {
	switch strings.ToLower(task) {
	case "sort":
		if len(args) == 0 {
			return nil, errors.New("sort needs at least one number")
		}
		numbers := make([]int32, 0, len(args))
		for _, arg := range args {
			v, err := parseInt32(arg)
			if err != nil {
				return nil, err
			}
			numbers = append(numbers, v)
		}
		return &wire.SortArray{Numbers: numbers}, nil

	case "primes":
		if len(args) != 2 {
			return nil, errors.New("usage: primes <from> <to>")
		}
		from, err := parseInt32(args[0])
		if err != nil {
			return nil, err
		}
		to, err := parseInt32(args[1])
		if err != nil {
			return nil, err
		}
		return &wire.FindPrimeNumbers{XFrom: from, XTo: to}, nil

	case "function":
		if len(args) != 7 {
			return nil, errors.New("usage: function <linear|quadratic> <from> <to> <step> <a> <b> <c>")
		}
		var eq wire.EquationType
		switch strings.ToLower(args[0]) {
		case "linear":
			eq = wire.EquationLinear
		case "quadratic":
			eq = wire.EquationQuadratic
		default:
			return nil, fmt.Errorf("unknown equation %q (expected linear or quadratic)", args[0])
		}
		fields := make([]int32, 6)
		for i, arg := range args[1:] {
			v, err := parseInt32(arg)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		return &wire.CalculateFunction{
			Equation: eq,
			XFrom:    fields[0],
			XTo:      fields[1],
			XStep:    fields[2],
			A:        fields[3],
			B:        fields[4],
			C:        fields[5],
		}, nil

	default:
		return nil, fmt.Errorf("unknown task %q (expected sort, primes or function)", task)
	}
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid 32-bit integer", s)
	}
	return int32(v), nil
}

// progressPrinter renders chunk progress, rewriting one line in place on a
// terminal and printing discrete lines otherwise.
type progressPrinter struct {
	mu    sync.Mutex
	tty   bool
	max   int32
	dirty bool
}

func newProgressPrinter(tty bool) *progressPrinter {
	return &progressPrinter{tty: tty}
}

func (p *progressPrinter) SetRange(min, max int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.max = max
	p.render(min)
}

func (p *progressPrinter) Update(value int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render(value)
}

func (p *progressPrinter) render(value int32) {
	if p.tty {
		fmt.Printf("\rProgress: %d/%d chunks", value, p.max)
		p.dirty = true
		return
	}
	fmt.Printf("Progress: %d/%d chunks\n", value, p.max)
}

// Finish terminates an in-place progress line before other output.
func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		fmt.Println()
		p.dirty = false
	}
}

func printResult(result wire.Request) {
	switch r := result.(type) {
	case *wire.SortArray:
		fmt.Printf("Sorted %d numbers:\n%s\n", len(r.Numbers), formatInt32s(r.Numbers))

	case *wire.FindPrimeNumbers:
		fmt.Printf("Found %d primes in [%d, %d]\n", len(r.Primes), r.XFrom, r.XTo)
		if len(r.Primes) > 0 {
			fmt.Println(formatInt32s(r.Primes))
		}

	case *wire.CalculateFunction:
		fmt.Printf("Tabulated %d points of the %s function:\n", len(r.Points), strings.ToLower(r.Equation.String()))
		for _, pt := range r.Points {
			fmt.Printf("  f(%d) = %d\n", pt.X, pt.Y)
		}

	default:
		fmt.Printf("Unexpected result type %s\n", result.Type())
	}
}

func formatInt32s(values []int32) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	return b.String()
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/daemon"
	"github.com/1broseidon/dashell/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "show":
		os.Exit(runVisibility("show", os.Args[2:]))
	case "hide":
		os.Exit(runVisibility("hide", os.Args[2:]))
	case "toggle":
		os.Exit(runVisibility("toggle", os.Args[2:]))
	case "set":
		os.Exit(runSet(os.Args[2:]))
	case "bounds":
		os.Exit(runBounds(os.Args[2:]))
	case "insets":
		os.Exit(runInsets(os.Args[2:]))
	case "obscure":
		os.Exit(runObscure(os.Args[2:]))
	case "launch":
		os.Exit(runLaunch(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "resize":
		os.Exit(runResize(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "control":
		os.Exit(runControl(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dashell <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the dashell daemon (foreground)")
	fmt.Fprintln(w, "  status              Show display areas, tasks and queue state")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  show <area>         Show a display area (hides its group peers)")
	fmt.Fprintln(w, "  hide <area>         Hide a display area")
	fmt.Fprintln(w, "  toggle <area>       Toggle a display area")
	fmt.Fprintln(w, "  set <area>          Request visibility, bounds and focus in one transaction")
	fmt.Fprintln(w, "  bounds <area> X Y W H")
	fmt.Fprintln(w, "                      Move and resize a display area")
	fmt.Fprintln(w, "  insets <area> INDEX TYPE [X Y W H]")
	fmt.Fprintln(w, "                      Add or remove an insets frame")
	fmt.Fprintln(w, "  obscure <area> [X Y W H]...")
	fmt.Fprintln(w, "                      Set the region that ignores touch")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  launch <activity>   Launch a task into a display area")
	fmt.Fprintln(w, "  close <task-id>     Close a task")
	fmt.Fprintln(w, "  resize W H          Resize a display")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config init         Write the default configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive TUI")
	fmt.Fprintln(w, "  control             Quick prompt to show or hide an area")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'dashell <command> --help' for command-specific options.")
}

// loadConfig loads path, or the default config file when path is empty.
func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell daemon [--path PATH] [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the display-area coordinator in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/dashell/config.yaml)")
	socket := fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/dashell.sock)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := res.Config

	console := daemon.NewConsole(os.Stderr, cfg.LogLevel)
	logger := daemon.SlogFrom(console)
	slog.SetDefault(logger)
	for _, f := range res.Files {
		logger.Debug("config loaded", "file", f)
	}

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: *path,
		SocketPath: *socket,
		Console:    console,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading config")
				if err := d.Reload(); err != nil {
					logger.Error("config reload failed", "err", err)
				}
				continue
			}
			logger.Info("shutting down dashell daemon")
			cancel()
			return
		}
	}()

	if err := d.Run(ctx); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output the full status as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running: %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Fprintf(w, "pending:        %d\n", status.Pending)
	fmt.Fprintf(w, "in_flight:      %v\n", status.InFlight)

	areas := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AREA", "VISIBLE", "BOUNDS", "DISPLAY", "FEATURE", "GROUP")
	for _, sd := range status.Surfaces {
		group := sd.Group
		if group == "" {
			group = "-"
		}
		areas.Row(sd.Name, strconv.FormatBool(sd.Visible), formatRect(sd.Bounds),
			strconv.Itoa(sd.DisplayID), strconv.Itoa(sd.FeatureID), group)
	}
	fmt.Fprintln(w, areas.String())

	if len(status.Tasks) == 0 {
		return
	}
	tasks := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "DISPLAY", "FEATURE", "ACTIVITY")
	for _, td := range status.Tasks {
		activity := td.Activity
		if td.Placeholder {
			activity += " (placeholder)"
		}
		tasks.Row(strconv.Itoa(td.ID), strconv.Itoa(td.DisplayID), strconv.Itoa(td.FeatureID), activity)
	}
	fmt.Fprintln(w, tasks.String())
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to re-read its config file.")
		fmt.Fprintln(os.Stderr, "Log level and animation settings apply immediately; area changes need a restart.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

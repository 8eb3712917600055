package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/coxlong/zap/internal/config"
	"github.com/coxlong/zap/internal/ipc"
	"github.com/coxlong/zap/internal/pool"
	"github.com/coxlong/zap/internal/tui"
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
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "release":
		os.Exit(runRelease(os.Args[2:]))
	case "state":
		os.Exit(runState(os.Args[2:]))
	case "top":
		os.Exit(runTop(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
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
	fmt.Fprintln(w, "Usage: zap <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the zap daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  open                Open a window showing a view")
	fmt.Fprintln(w, "  release             Return a window to the pool")
	fmt.Fprintln(w, "  state               Print window pool counters")
	fmt.Fprintln(w, "  top                 Live view of the window pool")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file location")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'zap <command> --help' for command-specific options.")
}

// parseFlags parses args and reports the exit code to use when parsing
// should stop the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:   %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	fmt.Printf("pool_initialized: %v\n", status.PoolInitialized)
	if status.PoolInitialized {
		fmt.Printf("min_idle:         %d\n", status.MinIdle)
		fmt.Printf("max_total:        %d\n", status.MaxTotal)
		fmt.Printf("ttl:              %s\n", time.Duration(status.TTLSeconds)*time.Second)
	}
	if status.Pool != nil {
		fmt.Printf("active_windows:   %d\n", status.Pool.ActiveCount)
		fmt.Printf("idle_windows:     %d\n", status.Pool.IdleCount)
	}
	return 0
}

type openFlags struct {
	view        string
	title       string
	width       int
	height      int
	x           int
	y           int
	data        string
	alwaysOnTop bool
	skipTaskbar bool
	noWait      bool
}

// options builds the open request. set lists flags given on the command
// line, so explicit false overrides and a 0 position can be told apart from
// defaults.
func (f openFlags) options(set map[string]bool) (pool.OpenWindowOptions, error) {
	if strings.TrimSpace(f.view) == "" {
		return pool.OpenWindowOptions{}, fmt.Errorf("--view is required")
	}
	if set["x"] != set["y"] {
		return pool.OpenWindowOptions{}, fmt.Errorf("--x and --y must be given together")
	}

	opts := pool.OpenWindowOptions{Config: pool.WindowConfig{
		View:   f.view,
		Title:  f.title,
		Width:  f.width,
		Height: f.height,
	}}
	if set["x"] {
		x, y := f.x, f.y
		opts.Config.X, opts.Config.Y = &x, &y
	}
	if set["always-on-top"] || set["skip-taskbar"] {
		o := &pool.Overrides{}
		if set["always-on-top"] {
			v := f.alwaysOnTop
			o.AlwaysOnTop = &v
		}
		if set["skip-taskbar"] {
			v := f.skipTaskbar
			o.SkipTaskbar = &v
		}
		opts.Config.Overrides = o
	}
	if f.data != "" {
		if !json.Valid([]byte(f.data)) {
			return pool.OpenWindowOptions{}, fmt.Errorf("--data is not valid JSON")
		}
		opts.Data = json.RawMessage(f.data)
	}
	return opts, nil
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var f openFlags
	fs.StringVar(&f.view, "view", "", "View to display (prompted for when omitted on a terminal)")
	fs.StringVar(&f.title, "title", "", "Window title")
	fs.IntVar(&f.width, "width", 0, "Window width in pixels")
	fs.IntVar(&f.height, "height", 0, "Window height in pixels")
	fs.IntVar(&f.x, "x", 0, "Left edge (requires --y)")
	fs.IntVar(&f.y, "y", 0, "Top edge (requires --x)")
	fs.StringVar(&f.data, "data", "", "JSON payload delivered to the view")
	fs.BoolVar(&f.alwaysOnTop, "always-on-top", false, "Keep the window above others")
	fs.BoolVar(&f.skipTaskbar, "skip-taskbar", false, "Hide the window from taskbars")
	fs.BoolVar(&f.noWait, "no-wait", false, "Return as soon as the window is reserved")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap open --view NAME [options]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if f.view == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := promptOpen(&f); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	opts, err := f.options(set)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	data, err := ipc.NewClient().OpenWindow(opts, !f.noWait)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("window_id: %d\n", data.WindowID)
	fmt.Printf("lease:     %s\n", data.Lease)
	return 0
}

// promptOpen asks for the view and title interactively, offering the
// configured hotkey views as suggestions.
func promptOpen(f *openFlags) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	var suggestions []string
	for _, keys := range cfg.HotkeyNames() {
		suggestions = append(suggestions, cfg.Hotkeys[keys].View)
	}
	suggestions = append(suggestions, cfg.Pool.DefaultView)

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("View").
			Suggestions(suggestions).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("view is required")
				}
				return nil
			}).
			Value(&f.view),
		huh.NewInput().
			Title("Title").
			Value(&f.title),
	))
	return form.Run()
}

func runRelease(args []string) int {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap release <window-id>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	var id uint32
	if _, err := fmt.Sscanf(fs.Arg(0), "%d", &id); err != nil || id == 0 {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().ReleaseWindow(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runState(args []string) int {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON (default when stdout is not a terminal)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap state [--json]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	st, err := ipc.NewClient().PoolState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	writeState(os.Stdout, st)
	return 0
}

func writeState(w io.Writer, st *ipc.PoolStateData) {
	if !st.Initialized {
		fmt.Fprintln(w, "pool: not initialized")
		return
	}
	fmt.Fprintf(w, "pool_size:       %d\n", st.PoolSize)
	fmt.Fprintf(w, "active_count:    %d\n", st.ActiveCount)
	fmt.Fprintf(w, "idle_count:      %d\n", st.IdleCount)
	fmt.Fprintf(w, "total_created:   %d\n", st.TotalCreated)
	fmt.Fprintf(w, "total_reused:    %d\n", st.TotalReused)
	fmt.Fprintf(w, "total_destroyed: %d\n", st.TotalDestroyed)
}

func runTop(args []string) int {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/zap/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap top [--path PATH]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	// The view list falls back to defaults when the config is broken.
	var cfg *config.Config
	if res, err := loadConfig(*path); err == nil {
		cfg = res.Config
	}
	if err := tui.Run(ipc.NewClient(), cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

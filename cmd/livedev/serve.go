package main

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livedev/internal/config"
	"github.com/vango-dev/livedev/internal/dev"
	"github.com/vango-dev/livedev/internal/errors"
)

type serveOptions struct {
	configPath  string
	host        string
	port        int
	watch       []string
	silent      []string
	pushState   bool
	transport   string
	poll        bool
	allowStderr bool
	stderrLimit int
	openBrowser bool
	verbose     bool
	noColor     bool
	noMetrics   bool
	trace       bool
}

func rootCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "livedev [root]",
		Short: "Static file server that reloads the browser when files change",
		Long: `livedev serves a directory over HTTP and reloads every open tab when
a watched file changes.

Watch rules pair a glob with an optional shell command. When a file
matching the glob changes, the command runs with the file's path in
$FILE. Browsers reload when it succeeds and show its stderr when it
fails. Rules without a command reload immediately.

Settings are read from livedev.json in the root directory when present.
DEV_SERVER_ADDRESS and DEV_SERVER_PORT set the listen address.

Examples:
  livedev
  livedev public -w 'public/**/*.html'
  livedev dist -w 'src/**/*.js=npm run build' -w 'src/**/*.css=make css'
  livedev dist -s 'docs/**/*.md=make docs' --push-state
  DEV_SERVER_PORT=8080 livedev site`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}

	bindServeFlags(cmd, &opts)

	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a config file (default: <root>/livedev.json)")
	flags.StringVarP(&opts.host, "host", "H", "", "Host to bind to (default localhost)")
	flags.IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default 3000)")
	flags.StringArrayVarP(&opts.watch, "watch", "w", nil, "Watch rule PATTERN[=COMMAND] (repeatable)")
	flags.StringArrayVarP(&opts.silent, "silent", "s", nil, "Silent watch rule PATTERN[=COMMAND]; never notifies browsers (repeatable)")
	flags.BoolVar(&opts.pushState, "push-state", false, "Serve index.html for unresolved HTML paths")
	flags.StringVar(&opts.transport, "transport", "", `Browser transport: "websocket" or "poll"`)
	flags.BoolVar(&opts.poll, "poll", false, "Poll the filesystem instead of using native notifications")
	flags.BoolVar(&opts.allowStderr, "allow-stderr", false, "Treat stderr output of a successful command as success")
	flags.IntVar(&opts.stderrLimit, "stderr-limit", 0, "Bytes of command stderr kept for error messages")
	flags.BoolVarP(&opts.openBrowser, "open", "o", false, "Open browser on start")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.noMetrics, "no-metrics", false, "Disable the Prometheus metrics endpoint")
	flags.BoolVar(&opts.trace, "trace", false, "Write OpenTelemetry spans for builds and broadcasts to stderr")
}

func runServe(cmd *cobra.Command, opts serveOptions, args []string) error {
	if opts.noColor {
		errors.DisableColors()
	} else {
		errors.DetectColors(os.Stdout)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd, opts, args, os.Getenv)
	if err != nil {
		return err
	}

	if cfg.Trace {
		shutdown, err := setupTracing(os.Stderr)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	server, err := dev.NewServer(dev.ServerOptions{
		Config: cfg,
		Logger: logger,
		OnReload: func(path string, clients int) {
			success("Reloaded by %s (%d browsers)", path, clients)
		},
		OnFailure: func(message string, clients int) {
			errorMsg("Reload failed (%d browsers)", clients)
			if opts.verbose {
				info("%s", strings.TrimRight(message, "\n"))
			}
		},
	})
	if err != nil {
		return err
	}
	if err := server.Listen(); err != nil {
		return err
	}

	printBanner()
	info("Serving %s", cfg.RootPath())
	if path := cfg.Path(); path != "" {
		info("Config %s", path)
	}
	hasCommand := false
	for _, rule := range server.Rules() {
		info("Watching %s", rule)
		hasCommand = hasCommand || rule.HasCommand()
	}
	if hasCommand {
		info("Commands run with %s", server.Shell())
	}
	if len(server.Rules()) == 0 {
		warn("No watch rules; add one with --watch 'src/**/*.js'")
	}
	success("Waiting for reloads at %s", server.URL())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		info("Shutting down...")
	}()

	if cfg.Open {
		go openURL(server.URL())
	}

	return server.Start(ctx)
}

// loadConfig merges defaults, the config file, the environment and flags,
// in increasing precedence.
func loadConfig(cmd *cobra.Command, opts serveOptions, args []string, getenv func(string) string) (*config.Config, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
		if err == nil {
			cfg.Root = root
		}
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("push-state") {
		cfg.PushState = opts.pushState
	}
	if flags.Changed("transport") {
		cfg.Transport = opts.transport
	}
	if flags.Changed("poll") {
		cfg.Poll = opts.poll
	}
	if flags.Changed("allow-stderr") {
		cfg.StderrIsFailure = !opts.allowStderr
	}
	if flags.Changed("stderr-limit") {
		cfg.StderrLimit = opts.stderrLimit
	}
	if flags.Changed("open") {
		cfg.Open = opts.openBrowser
	}
	if opts.noMetrics {
		cfg.Metrics = false
	}
	if flags.Changed("trace") {
		cfg.Trace = opts.trace
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	for _, spec := range opts.watch {
		if err := cfg.AddRule(spec, wd, false); err != nil {
			return nil, err
		}
	}
	for _, spec := range opts.silent {
		if err := cfg.AddRule(spec, wd, true); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case runtime.GOOS == "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	default:
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Warn("could not open browser", "url", url, "error", err)
	}
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

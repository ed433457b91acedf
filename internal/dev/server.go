package dev

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/livedev/internal/build"
	"github.com/vango-dev/livedev/internal/config"
	"github.com/vango-dev/livedev/internal/errors"
	"github.com/vango-dev/livedev/internal/reload"
	"github.com/vango-dev/livedev/internal/watch"
)

// routePrefix holds the server's own endpoints, apart from the long-poll
// path.
const routePrefix = "/__livedev"

// Endpoint paths served next to the site.
const (
	WebSocketPath = reload.DefaultWebSocketPath
	PollPath      = reload.DefaultPollPath
	StatusPath    = reload.DefaultStatusPath
	NotifyPath    = "/__livedev/notify"
	MetricsPath   = "/__livedev/metrics"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the validated configuration.
	Config *config.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Output receives mirrored build command output. Defaults to os.Stderr.
	Output io.Writer

	// Metrics overrides the metrics created when Config.Metrics is set.
	Metrics *Metrics

	// OnReload is called after an update is broadcast.
	OnReload func(path string, clients int)

	// OnFailure is called after an error is broadcast.
	OnFailure func(message string, clients int)

	// TracerProvider is handed to the hub and the runner. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider
}

// Server is the development server: it serves the site, watches the rule
// directories, runs rule commands and pushes results to browsers.
type Server struct {
	config  *config.Config
	options ServerOptions
	logger  *slog.Logger
	rules   []*watch.Rule
	hub     *reload.Hub
	runner  *build.Runner
	watcher *watch.Watcher
	files   *FileServer
	metrics *Metrics
	handler http.Handler

	mu         sync.Mutex
	running    bool
	stopped    bool
	listener   net.Listener
	httpServer *http.Server
	runCtx     context.Context
	cancel     context.CancelFunc
	builds     sync.WaitGroup
}

// NewServer creates a development server. Configuration problems such as a
// missing watch directory are returned as *errors.LivedevError.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := cfg.WatchRules()
	if err != nil {
		return nil, err
	}

	metrics := options.Metrics
	if metrics == nil && cfg.Metrics {
		metrics = NewMetrics()
	}

	s := &Server{
		config:  cfg,
		options: options,
		logger:  logger.With("component", "server"),
		rules:   rules,
		metrics: metrics,
	}

	s.hub = reload.NewHub(reload.HubOptions{
		Logger:      logger,
		OnBroadcast: metrics.ObserveBroadcast,
		OnClients:   metrics.SetClients,
		OnDrop:      func(reload.Client, error) { metrics.ClientDropped() },

		TracerProvider: options.TracerProvider,
	})

	s.runner = build.NewRunner(build.Options{
		StderrLimit: cfg.StderrLimit,
		AllowStderr: !cfg.StderrIsFailure,
		Output:      options.Output,
		Logger:      logger,
		OnComplete:  metrics.ObserveBuild,

		TracerProvider: options.TracerProvider,
	})

	transport := cfg.Transport
	path := WebSocketPath
	if transport == reload.TransportPoll {
		path = PollPath
	}
	s.files = NewFileServer(FileServerOptions{
		Root:      cfg.RootPath(),
		PushState: cfg.PushState,
		Snippet: reload.Script(reload.ScriptOptions{
			Transport:      transport,
			Path:           path,
			StatusPath:     StatusPath,
			ReconnectDelay: cfg.ReconnectDelayDuration(),
		}),
		Logger: logger,
	})

	if len(rules) > 0 {
		ignore := cfg.Ignore
		if ignore == nil {
			ignore = watch.DefaultIgnore
		}
		s.watcher, err = watch.New(watch.Config{
			Roots:    watch.Bases(rules),
			Ignore:   ignore,
			Poll:     cfg.Poll,
			Interval: cfg.PollIntervalDuration(),
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		s.watcher.OnChange(s.handleChange)
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route(routePrefix, func(r chi.Router) {
		r.Get(strings.TrimPrefix(WebSocketPath, routePrefix), reload.NewWebSocketHandler(s.hub, s.logger).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(s.metrics.Instrument("api"))
			r.Get(strings.TrimPrefix(StatusPath, routePrefix), s.handleStatus)
			r.Post(strings.TrimPrefix(NotifyPath, routePrefix), s.handleNotify)
		})

		if s.metrics != nil {
			r.Get(strings.TrimPrefix(MetricsPath, routePrefix), s.metrics.Handler().ServeHTTP)
		}
	})
	r.Get(PollPath, reload.NewPollHandler(s.hub, s.logger).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(s.metrics.Instrument("static"))
		r.Use(middleware.Compress(5))
		r.Handle("/*", s.files)
	})

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the broadcast hub.
func (s *Server) Hub() *reload.Hub {
	return s.hub
}

// Rules returns the configured watch rules.
func (s *Server) Rules() []*watch.Rule {
	return s.rules
}

// Addr returns the address the server is listening on, or the configured
// address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.DevAddress()
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()
	if !listening {
		return s.config.DevURL()
	}
	return "http://" + s.Addr()
}

// Shell returns the executor used for rule commands.
func (s *Server) Shell() string {
	return s.runner.Shell()
}

// Listen binds the configured address. Start calls it if needed; calling it
// first lets callers learn the address before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.DevAddress())
	if err != nil {
		return errors.New("E400").WithDetail(s.config.DevAddress()).Wrap(err)
	}
	s.listener = ln
	return nil
}

// Start serves until ctx is cancelled or the server fails, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}
	httpServer := s.httpServer
	listener := s.listener
	s.mu.Unlock()

	if s.watcher != nil {
		s.logger.Debug("watching", "roots", s.watcher.Roots())
		go func() {
			if err := s.watcher.Start(runCtx); err != nil && runCtx.Err() == nil {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
	} else {
		s.logger.Warn("no watch rules; browsers reload only through " + NotifyPath)
	}

	s.logger.Info("serving", "root", s.config.RootPath(), "url", s.URL())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return errors.New("E400").WithDetail(s.config.DevAddress()).Wrap(err)
		}
		return nil
	}
}

// Stop shuts the server down: running commands are cancelled, the watcher is
// closed, browser connections are released and the HTTP server drains.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	cancel := s.cancel
	httpServer := s.httpServer
	s.mu.Unlock()

	cancel()
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.hub.Close()

	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}

	s.builds.Wait()
}

// handleChange runs every rule matching the changed file. Each matching rule
// runs in its own goroutine; nothing is queued or debounced.
func (s *Server) handleChange(change watch.Change) {
	var matched []*watch.Rule
	for _, rule := range s.rules {
		if rule.Match(change.Path) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.builds.Add(len(matched))
	s.mu.Unlock()

	for _, rule := range matched {
		s.logger.Debug("change matched", "rule", rule.Pattern, "file", change.Path)
		go func(rule *watch.Rule) {
			defer s.builds.Done()
			s.runRule(ctx, rule, change.Path)
		}(rule)
	}
}

func (s *Server) runRule(ctx context.Context, rule *watch.Rule, path string) {
	result, notify := s.runner.Run(ctx, rule, path)
	if !notify {
		return
	}
	s.publish(ctx, result)
}

// publish broadcasts result and reports it once, through the callbacks when
// set and the logger otherwise.
func (s *Server) publish(ctx context.Context, result reload.Result) {
	s.hub.Broadcast(ctx, result)
	clients := s.hub.ClientCount()

	switch r := result.(type) {
	case reload.Update:
		if s.options.OnReload != nil {
			s.logger.Debug("Reloaded by "+r.Path, "clients", clients)
			s.options.OnReload(r.Path, clients)
			return
		}
		s.logger.Info("Reloaded by "+r.Path, "clients", clients)
	case reload.Failure:
		if s.options.OnFailure != nil {
			s.logger.Debug("Reload failed", "clients", clients)
			s.options.OnFailure(r.Message, clients)
			return
		}
		s.logger.Error("Reload failed", "clients", clients)
	}
}

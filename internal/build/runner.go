package build

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/livedev/internal/errors"
	"github.com/vango-dev/livedev/internal/reload"
	"github.com/vango-dev/livedev/internal/watch"
)

// DefaultStderrLimit is the number of stderr bytes kept for a Failure message.
const DefaultStderrLimit = 1 << 20

const tracerName = "github.com/vango-dev/livedev/internal/build"

// DefaultWaitDelay bounds how long a cancelled command may take to exit.
const DefaultWaitDelay = 5 * time.Second

// Outcomes reported to Options.OnComplete.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeStartError = "start_error"
	OutcomeNoCommand  = "no_command"
	OutcomeCancelled  = "cancelled"
)

// Options configures a Runner.
type Options struct {
	// Shell overrides the executor. Defaults to $SHELL, then /bin/sh
	// (%ComSpec% on Windows).
	Shell string

	// Env is appended to the inherited environment.
	Env []string

	// StderrLimit caps captured stderr. Defaults to DefaultStderrLimit.
	StderrLimit int

	// AllowStderr makes a zero exit with stderr output a success.
	AllowStderr bool

	// Output receives mirrored command output. Defaults to os.Stderr.
	Output io.Writer

	// WaitDelay bounds how long a cancelled command may take to exit.
	WaitDelay time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnComplete is called after every run.
	OnComplete func(Report)

	// TracerProvider receives a "build.run" span per command. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider
}

// Report describes a finished run.
type Report struct {
	Rule     *watch.Rule
	Path     string
	Outcome  string
	ExitCode int
	Duration time.Duration
	Stderr   string
	Err      error
}

// Runner executes rule commands. It is safe for concurrent use.
type Runner struct {
	options Options
	shell   string
	flag    string
	output  io.Writer
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRunner creates a runner.
func NewRunner(options Options) *Runner {
	if options.StderrLimit <= 0 {
		options.StderrLimit = DefaultStderrLimit
	}
	if options.WaitDelay <= 0 {
		options.WaitDelay = DefaultWaitDelay
	}

	shell, flag := defaultShell()
	if options.Shell != "" {
		shell = options.Shell
	}

	output := options.Output
	if output == nil {
		output = os.Stderr
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tp := options.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Runner{
		options: options,
		shell:   shell,
		flag:    flag,
		output:  &syncWriter{w: output},
		logger:  logger.With("component", "build"),
		tracer:  tp.Tracer(tracerName),
	}
}

// Shell returns the executor used for commands.
func (r *Runner) Shell() string {
	return r.shell
}

// Run handles a change to path for rule. The boolean reports whether the
// result should be broadcast.
func (r *Runner) Run(ctx context.Context, rule *watch.Rule, path string) (reload.Result, bool) {
	if !rule.HasCommand() {
		r.complete(Report{Rule: rule, Path: path, Outcome: OutcomeNoCommand})
		return reload.Update{Path: path}, true
	}

	ctx, span := r.tracer.Start(ctx, "build.run",
		trace.WithAttributes(
			attribute.String("build.rule", rule.Pattern),
			attribute.String("build.command", rule.Command),
			attribute.String("build.file", path),
		),
	)
	defer span.End()

	start := time.Now()
	stderr := newLimitedBuffer(r.options.StderrLimit)

	cmd := exec.CommandContext(ctx, r.shell, r.flag, rule.Command)
	cmd.Dir = rule.Dir
	cmd.Env = append(os.Environ(), r.options.Env...)
	cmd.Env = append(cmd.Env, "FILE="+path)
	cmd.Stdout = r.output
	if rule.Silent {
		cmd.Stderr = stderr
	} else {
		cmd.Stderr = io.MultiWriter(stderr, r.output)
	}
	cmd.WaitDelay = r.options.WaitDelay
	group := newProcessGroup(cmd, r.options.WaitDelay)

	r.logger.Debug("running command", "rule", rule.Pattern, "command", rule.Command, "file", path)

	if err := cmd.Start(); err != nil {
		group.release()
		err := errors.New("E300").WithDetail(rule.Command).Wrap(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		r.logger.Error("command failed to start", "command", rule.Command, "shell", r.shell, "error", err)
		r.complete(Report{
			Rule:     rule,
			Path:     path,
			Outcome:  OutcomeStartError,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      err,
		})
		return reload.Failure{Message: err.Error()}, true
	}
	group.started()

	err := cmd.Wait()
	group.release()

	report := Report{
		Rule:     rule,
		Path:     path,
		Duration: time.Since(start),
		Stderr:   stderr.String(),
		Err:      err,
	}
	if cmd.ProcessState != nil {
		report.ExitCode = cmd.ProcessState.ExitCode()
	}
	span.SetAttributes(attribute.Int("build.exit_code", report.ExitCode))

	if ctx.Err() != nil {
		report.Outcome = OutcomeCancelled
		span.SetStatus(codes.Error, "cancelled")
		r.complete(report)
		return nil, false
	}

	if stderr.Truncated() {
		r.logger.Warn("stderr truncated", "command", rule.Command, "limit", r.options.StderrLimit)
	}

	var result reload.Result
	switch {
	case err != nil:
		message := report.Stderr
		if message == "" {
			message = err.Error()
		}
		result = reload.Failure{Message: message}
		report.Outcome = OutcomeFailure
	case report.Stderr != "" && !r.options.AllowStderr:
		result = reload.Failure{Message: report.Stderr}
		report.Outcome = OutcomeFailure
	default:
		result = reload.Update{Path: path}
		report.Outcome = OutcomeSuccess
	}

	if report.Outcome == OutcomeFailure {
		span.SetStatus(codes.Error, "command failed")
	}
	r.complete(report)

	if rule.Silent {
		return nil, false
	}
	return result, true
}

func (r *Runner) complete(report Report) {
	if r.options.OnComplete != nil {
		r.options.OnComplete(report)
	}
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
// Writes never fail so the command is not interrupted by a full buffer.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// syncWriter serializes writes from concurrently running commands.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

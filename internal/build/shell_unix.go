//go:build !windows

package build

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

func defaultShell() (string, string) {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, "-c"
	}
	return "/bin/sh", "-c"
}

// groupPollInterval is how often release checks for surviving group members.
const groupPollInterval = 20 * time.Millisecond

// processGroup runs the command in its own process group so cancellation
// reaches everything the shell started. Cancel sends SIGTERM to the group;
// members still alive after the grace period get SIGKILL.
type processGroup struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu       sync.Mutex
	pgid     int
	deadline time.Time
}

func newProcessGroup(cmd *exec.Cmd, grace time.Duration) *processGroup {
	g := &processGroup{cmd: cmd, grace: grace}

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		g.mu.Lock()
		g.pgid = cmd.Process.Pid
		g.deadline = time.Now().Add(g.grace)
		g.mu.Unlock()

		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
			return cmd.Process.Signal(syscall.SIGTERM)
		}
		return nil
	}
	return g
}

func (g *processGroup) started() {}

// release runs after Wait. For a cancelled command it waits for the rest of
// the group to exit and kills whatever outlives the grace period. It never
// holds a job, so it always reports false.
func (g *processGroup) release() bool {
	g.mu.Lock()
	pgid, deadline := g.pgid, g.deadline
	g.mu.Unlock()

	if pgid == 0 {
		return false
	}
	for time.Now().Before(deadline) {
		if syscall.Kill(-pgid, 0) != nil {
			return false
		}
		time.Sleep(groupPollInterval)
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	return false
}

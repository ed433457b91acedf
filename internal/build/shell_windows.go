//go:build windows

package build

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

func defaultShell() (string, string) {
	if shell := os.Getenv("ComSpec"); shell != "" {
		return shell, "/C"
	}
	return "cmd.exe", "/C"
}

// processGroup ties the command to a job object that kills every process in
// it when the handle is closed.
type processGroup struct {
	cmd *exec.Cmd

	mu  sync.Mutex
	job windows.Handle
}

func newProcessGroup(cmd *exec.Cmd, _ time.Duration) *processGroup {
	g := &processGroup{cmd: cmd}

	job, err := createJobObject()
	if err == nil {
		g.job = job
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	cmd.Cancel = func() error {
		if g.release() {
			return nil
		}
		return cmd.Process.Kill()
	}
	return g
}

func (g *processGroup) started() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job == 0 {
		return
	}
	if err := assignProcessToJob(g.job, g.cmd.Process.Pid); err != nil {
		windows.CloseHandle(g.job)
		g.job = 0
	}
}

// release closes the job, killing its processes. It reports whether a job
// was open.
func (g *processGroup) release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job == 0 {
		return false
	}
	windows.CloseHandle(g.job)
	g.job = 0
	return true
}

func createJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{}
	info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return 0, err
	}

	return job, nil
}

func assignProcessToJob(job windows.Handle, pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	return windows.AssignProcessToJobObject(job, handle)
}

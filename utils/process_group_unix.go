//go:build unix

package utils

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// BindProcessLifetime makes cancellation of a command created with exec.CommandContext kill the whole process group
// it starts, so children it forked cannot keep the output pipes open. Run returns at most ProcessWaitDelay after
// cancellation.
func BindProcessLifetime(command *exec.Cmd) {
	if command.SysProcAttr == nil {
		command.SysProcAttr = &syscall.SysProcAttr{}
	}
	command.SysProcAttr.Setpgid = true
	command.Cancel = func() error {
		if command.Process == nil {
			return nil
		}
		// A negative pid signals every process in the group.
		return unix.Kill(-command.Process.Pid, unix.SIGKILL)
	}
	command.WaitDelay = ProcessWaitDelay
}

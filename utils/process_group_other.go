//go:build !unix

package utils

import "os/exec"

// BindProcessLifetime bounds how long Run waits for the output pipes of a command created with exec.CommandContext
// once it is cancelled. Children the process forked are not killed.
func BindProcessLifetime(command *exec.Cmd) {
	command.WaitDelay = ProcessWaitDelay
}

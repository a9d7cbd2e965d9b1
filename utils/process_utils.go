package utils

import (
	"bytes"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ProcessWaitDelay is how long Run waits for a cancelled process's output pipes to close before giving up on them.
const ProcessWaitDelay = 1 * time.Second

// ProcessOutput describes the captured result of an executed command.
type ProcessOutput struct {
	// ExitCode is the exit code the process terminated with, or -1 if it never started or was killed by a signal.
	ExitCode int

	// Stdout contains everything the process wrote to standard output.
	Stdout []byte

	// Stderr contains everything the process wrote to standard error.
	Stderr []byte

	// Combined contains standard output and standard error interleaved in the order they were written.
	Combined []byte
}

// RunCommand runs a given exec.Cmd and captures its output and exit code. A non-zero exit code is not treated as an
// error: the returned error is only non-nil if the process could not be started or waited upon. Callers decide how to
// interpret ProcessOutput.ExitCode.
func RunCommand(command *exec.Cmd) (*ProcessOutput, error) {
	// Create our buffers to capture output and errors.
	var bStdout, bStderr, bCombined bytes.Buffer

	// Create a synchronized writer over bCombined to avoid data race.
	var combinedWriter io.Writer = &synchronizedWriter{writer: &bCombined}

	// Create multi writers to capture output into individual and combined buffers
	command.Stdout = io.MultiWriter(&bStdout, combinedWriter)
	command.Stderr = io.MultiWriter(&bStderr, combinedWriter)

	// Execute the command
	err := command.Run()
	output := &ProcessOutput{
		ExitCode: -1,
		Stdout:   bStdout.Bytes(),
		Stderr:   bStderr.Bytes(),
		Combined: bCombined.Bytes(),
	}
	if command.ProcessState != nil {
		output.ExitCode = command.ProcessState.ExitCode()
	}

	// An exit error only tells us about the exit code, which we already captured.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return output, errors.WithStack(err)
	}
	return output, nil
}

// IsWindowsEnvironment returns a boolean indicating whether the current execution environment is a Windows platform.
func IsWindowsEnvironment() bool {
	return runtime.GOOS == "windows"
}

// synchronizedWriter wraps an io.Writer to avoid a data race when writing.
type synchronizedWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

func (s *synchronizedWriter) Write(p []byte) (n int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writer.Write(p)
}

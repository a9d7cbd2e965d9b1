package compilation

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

var (
	// ErrCompilerNotInstalled indicates the compiler executable could not be located.
	ErrCompilerNotInstalled = errors.New("compiler is not installed")

	// ErrContentResolutionFailed indicates the content of a source file could not be obtained.
	ErrContentResolutionFailed = errors.New("could not resolve source file content")

	// ErrCompilerInvocationFailed indicates the compiler process failed or exited with a non-zero exit code.
	ErrCompilerInvocationFailed = errors.New("compiler invocation failed")

	// ErrEmptyCompilerOutput indicates the compiler succeeded but wrote nothing to stdout.
	ErrEmptyCompilerOutput = errors.New("compiler returned no output")

	// ErrUnparseableOutput indicates the compiler output could not be decoded or is internally inconsistent.
	ErrUnparseableOutput = errors.New("could not parse compiler output")

	// ErrCompilationFailed indicates the compiler reported at least one error diagnostic.
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrVersionTooOld indicates the installed compiler is older than the configured minimum.
	ErrVersionTooOld = errors.New("compiler version is too old")

	// ErrCompilerTimedOut indicates the compiler did not finish within the configured timeout.
	ErrCompilerTimedOut = errors.New("compiler timed out")
)

// compilerNotInstalledHint describes how to remedy ErrCompilerNotInstalled.
const compilerNotInstalledHint = "install solc and make sure it is available on your PATH " +
	"(https://docs.soliditylang.org/en/latest/installing-solidity.html)"

// CompilerInvocationError describes a compiler process which failed.
type CompilerInvocationError struct {
	// ExitCode is the exit code of the process, or -1 if it could not be started.
	ExitCode int

	// Stderr is the standard error output of the process.
	Stderr string

	// Err is the error which prevented the process from running, if any.
	Err error
}

// Error returns the error message.
func (e *CompilerInvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrCompilerInvocationFailed, e.Err)
	}
	msg := fmt.Sprintf("%v: compiler exited with error code %d", ErrCompilerInvocationFailed, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

// Is matches ErrCompilerInvocationFailed.
func (e *CompilerInvocationError) Is(target error) bool {
	return target == ErrCompilerInvocationFailed
}

// Unwrap returns the underlying process error, if any.
func (e *CompilerInvocationError) Unwrap() error {
	return e.Err
}

// CompilationError describes every error diagnostic reported by the compiler.
type CompilationError struct {
	// Messages holds the formatted message of each error diagnostic, in the order they were reported.
	Messages []string
}

// Error returns the error message.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("%v with %d error(s):\n%s", ErrCompilationFailed, len(e.Messages), strings.Join(e.Messages, "\n"))
}

// Is matches ErrCompilationFailed.
func (e *CompilationError) Is(target error) bool {
	return target == ErrCompilationFailed
}

// VersionTooOldError describes an installed compiler which is older than required.
type VersionTooOldError struct {
	Installed *semver.Version
	Required  *semver.Version
}

// Error returns the error message.
func (e *VersionTooOldError) Error() string {
	return fmt.Sprintf("%v: installed version %s is older than the required version %s",
		ErrVersionTooOld, e.Installed, e.Required)
}

// Is matches ErrVersionTooOld.
func (e *VersionTooOldError) Is(target error) bool {
	return target == ErrVersionTooOld
}

// wrapSentinel returns an error which matches both the sentinel and the cause.
func wrapSentinel(sentinel error, cause error, format string, args ...any) error {
	return errors.WithStack(fmt.Errorf("%w: %s: %w", sentinel, fmt.Sprintf(format, args...), cause))
}

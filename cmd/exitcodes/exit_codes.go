package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.
	// ExitCodeHandledError is the exception, as it is never surfaced to the user with an error message.

	// ExitCodeHandledError indicates an error occurred which was already reported, so it should not be printed again.
	ExitCodeHandledError = 2

	// ExitCodeCompilationFailed indicates the compiler reported errors in the sources.
	ExitCodeCompilationFailed = 6

	// ExitCodeCompilerNotInstalled indicates the compiler executable could not be found.
	ExitCodeCompilerNotInstalled = 7
)

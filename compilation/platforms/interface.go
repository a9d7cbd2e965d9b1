package platforms

import (
	"context"

	"github.com/Masterminds/semver"
	"github.com/crytic/solbuild/utils"
)

// Compiler describes the interface to an external Solidity compiler executable.
type Compiler interface {
	// Binary returns the name or path of the compiler executable.
	Binary() string

	// Available returns an error if the compiler executable cannot be located.
	Available() error

	// Version obtains the version of the compiler executable.
	Version(ctx context.Context) (*semver.Version, error)

	// Run executes the compiler with the provided arguments, writing stdin to its standard input if it is non-nil.
	// A non-zero exit code is reported through the returned ProcessOutput rather than as an error.
	Run(ctx context.Context, stdin []byte, args ...string) (*utils.ProcessOutput, error)
}

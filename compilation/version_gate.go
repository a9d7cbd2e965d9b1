package compilation

import (
	"context"

	"github.com/Masterminds/semver"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/pkg/errors"
)

// CheckVersion verifies the compiler is at least the configured minimum version. It returns the installed version,
// and a VersionTooOldError if it is older than required. If no minimum is configured, any version is accepted.
func (b *Builder) CheckVersion(ctx context.Context) (*semver.Version, error) {
	if err := b.compiler.Available(); err != nil {
		return nil, errors.Wrapf(ErrCompilerNotInstalled, "could not find '%s' (%v), %s", b.compiler.Binary(), err, compilerNotInstalledHint)
	}

	installed, err := b.compiler.Version(ctx)
	if err != nil {
		return nil, errors.WithStack(&CompilerInvocationError{ExitCode: -1, Err: err})
	}

	required, err := b.config.RequiredVersion()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if required == nil {
		return installed, nil
	}
	if installed.LessThan(required) {
		return installed, errors.WithStack(&VersionTooOldError{Installed: installed, Required: required})
	}

	b.logger.Debug("Using ", b.compiler.Binary(), " version ", colors.Bold, installed.String(), colors.Reset)
	return installed, nil
}

package compilation

import (
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
)

// BinaryFileExtension is the extension of files holding a contract's creation bytecode.
const BinaryFileExtension = ".bin"

// OutputFinalizedEvent describes an event where the caller has finished producing output for a compilation.
type OutputFinalizedEvent struct {
	// BuildDirectory overrides the configured build directory for deferred writes, if non-empty.
	BuildDirectory string
}

// scheduleBinaryOutput registers a one-time handler which writes each artifact's creation bytecode once
// OutputFinalized is published.
func (b *Builder) scheduleBinaryOutput(artifacts types.Artifacts, logger *logging.Logger) {
	b.OutputFinalized.SubscribeOnce(func(event OutputFinalizedEvent) error {
		buildDirectory := b.config.BuildDirectory
		if event.BuildDirectory != "" {
			buildDirectory = event.BuildDirectory
		}
		WriteBinaries(artifacts, b.absolutePath(buildDirectory), logger)
		return nil
	})
}

// WriteBinaries writes each artifact's creation bytecode to <buildDirectory>/<Name>.bin. Failures are logged and do not
// stop the remaining writes. Returns the number of files written.
func WriteBinaries(artifacts types.Artifacts, buildDirectory string, logger *logging.Logger) int {
	written := 0
	for _, name := range artifacts.Names() {
		err := utils.WriteFile(buildDirectory, name+BinaryFileExtension, []byte(artifacts[name].Code))
		if err != nil {
			logger.Error("Failed to write binary for contract ", colors.Bold, name, colors.Reset, err)
			continue
		}
		written++
	}
	logger.Debug("Wrote ", written, " binary file(s) to ", buildDirectory)
	return written
}

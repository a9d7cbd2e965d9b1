package compilation

import (
	"strings"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"golang.org/x/exp/slices"
)

// StripSourceDirectory removes the first of the provided directory prefixes which the filename starts with. At most
// one prefix is removed, and the filename is returned unchanged if none match.
func StripSourceDirectory(filename string, sourceDirectories []string) string {
	for _, dir := range sourceDirectories {
		if dir != "" && strings.HasPrefix(filename, dir) {
			return strings.TrimPrefix(filename, dir)
		}
	}
	return filename
}

// orderSourcePaths returns the keys of the compiled sources: those named in inputOrder first, in that order, followed by
// any others in sorted order.
func orderSourcePaths[T any](inputOrder []string, compiled map[string]T) []string {
	ordered := make([]string, 0, len(compiled))
	for _, sourcePath := range inputOrder {
		if _, ok := compiled[sourcePath]; ok && !slices.Contains(ordered, sourcePath) {
			ordered = append(ordered, sourcePath)
		}
	}

	extra := make([]string, 0)
	for sourcePath := range compiled {
		if !slices.Contains(ordered, sourcePath) {
			extra = append(extra, sourcePath)
		}
	}
	slices.Sort(extra)
	return append(ordered, extra...)
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// normalizeOutput converts standard-json output into artifacts keyed by contract name. Sources are visited in input
// order and contracts in name order, so when two contracts share a name the one visited last is kept.
func (b *Builder) normalizeOutput(logger *logging.Logger, output *types.CompilerOutput, inputOrder []string) (types.Artifacts, error) {
	artifacts := make(types.Artifacts)
	for _, sourcePath := range orderSourcePaths(inputOrder, output.Contracts) {
		contracts := output.Contracts[sourcePath]
		for _, name := range sortedKeys(contracts) {
			filename := StripSourceDirectory(sourcePath, b.config.SourceDirectories)
			artifact, err := types.NewArtifact(name, filename, sourcePath, contracts[name])
			if err != nil {
				return nil, wrapSentinel(ErrUnparseableOutput, err, "contract '%s:%s'", sourcePath, name)
			}
			addArtifact(logger, artifacts, artifact)
		}
	}
	return artifacts, nil
}

// addArtifact inserts an artifact, replacing any existing artifact with the same contract name.
func addArtifact(logger *logging.Logger, artifacts types.Artifacts, artifact *types.Artifact) {
	if existing, ok := artifacts[artifact.Name]; ok {
		logger.Warn(
			"Contract ", colors.Bold, artifact.Name, colors.Reset, " in ", existing.OriginalFilename,
			" is replaced by the contract of the same name in ", artifact.OriginalFilename,
		)
	}
	artifacts[artifact.Name] = artifact
	reportGasEstimates(logger, artifact)
}

// reportGasEstimates logs the most expensive external call of an artifact, if the compiler estimated gas costs.
func reportGasEstimates(logger *logging.Logger, artifact *types.Artifact) {
	if artifact.GasEstimates == nil || len(artifact.GasEstimates.External) == 0 {
		return
	}
	maxCost, unbounded := artifact.GasEstimates.MaxExternalCost()
	if unbounded {
		logger.Debug("Contract ", colors.Bold, artifact.Name, colors.Reset, " has external functions with unbounded gas cost")
	}
	logger.Debug("Contract ", colors.Bold, artifact.Name, colors.Reset, " costs at most ", maxCost.Dec(), " gas per bounded external call")
}

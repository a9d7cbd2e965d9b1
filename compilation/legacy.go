package compilation

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/crytic/medusa-geth/common/compiler"
	"github.com/crytic/solbuild/compilation/platforms"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// materializedSourcesDirectory is the directory, beneath the build cache root, where sources without a storage path
// are written so that they can be passed to the compiler as files.
const materializedSourcesDirectory = "sources"

// combinedJSONResult describes the output of compiling a single source in combined-json mode.
type combinedJSONResult struct {
	// target is the path the compiler was given.
	target string

	// key is the name the source is known by.
	key string

	// contracts maps "path:Name" identifiers to compiled contracts.
	contracts map[string]*compiler.Contract
}

// compileCombinedJSON compiles each source in its own combined-json invocation, concurrently, and merges the results in
// input order.
func (b *Builder) compileCombinedJSON(
	ctx context.Context,
	logger *logging.Logger,
	sources []resolvedSource,
	remappings []types.Remapping,
	allowedPaths []string,
) (types.Artifacts, error) {
	version, err := b.compiler.Version(ctx)
	if err != nil {
		return nil, errors.WithStack(&CompilerInvocationError{ExitCode: -1, Err: err})
	}
	settings := platforms.CombinedJSONSettings{
		Optimize:      b.config.Optimizer,
		OptimizerRuns: b.config.OptimizerRuns,
		Remappings:    remappings,
		AllowedPaths:  allowedPaths,
		OutputOptions: platforms.CombinedJSONOutputOptions(version),
	}

	results := make([]combinedJSONResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			// A failed sibling invocation stops the remaining ones before they start.
			if utils.CheckContextDone(gctx) {
				return gctx.Err()
			}
			target, err := b.sourceTarget(source)
			if err != nil {
				return wrapSentinel(ErrContentResolutionFailed, err, "'%s'", source.key)
			}
			output, err := b.runCompiler(gctx, logger, nil, platforms.CombinedJSONArgs(target, settings)...)
			if err != nil {
				return err
			}
			contracts, err := compiler.ParseCombinedJSON(output.Stdout, source.content, version.String(), version.String(), settings.OutputOptions)
			if err != nil {
				return wrapSentinel(ErrUnparseableOutput, err, "combined-json output for '%s'", source.key)
			}
			results[i] = combinedJSONResult{target: target, key: source.key, contracts: contracts}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	artifacts := make(types.Artifacts)
	for _, result := range results {
		for _, identifier := range sortedKeys(result.contracts) {
			sourcePath, name := splitContractIdentifier(identifier)
			if sourcePath == result.target {
				sourcePath = result.key
			}
			contract, err := convertCombinedJSONContract(result.contracts[identifier])
			if err == nil {
				err = contract.Validate()
			}
			if err != nil {
				return nil, wrapSentinel(ErrUnparseableOutput, err, "contract '%s'", identifier)
			}
			filename := StripSourceDirectory(sourcePath, b.config.SourceDirectories)
			artifact, err := types.NewArtifact(name, filename, sourcePath, *contract)
			if err != nil {
				return nil, wrapSentinel(ErrUnparseableOutput, err, "contract '%s'", identifier)
			}
			addArtifact(logger, artifacts, artifact)
		}
	}
	return artifacts, nil
}

// sourceTarget returns the file the compiler is given for a source: its storage path, or, for sources without one, a
// copy of its content written beneath the build cache root.
func (b *Builder) sourceTarget(source resolvedSource) (string, error) {
	if source.path != "" {
		return source.path, nil
	}
	target := filepath.Join(b.absolutePath(BuildCacheRoot), materializedSourcesDirectory, filepath.FromSlash(source.key))
	if err := utils.WriteFile(filepath.Dir(target), filepath.Base(target), []byte(source.content)); err != nil {
		return "", err
	}
	return target, nil
}

// splitContractIdentifier splits a "path:Name" identifier at its last colon.
func splitContractIdentifier(identifier string) (string, string) {
	idx := strings.LastIndex(identifier, ":")
	if idx == -1 {
		return "", identifier
	}
	return identifier[:idx], identifier[idx+1:]
}

// convertCombinedJSONContract converts a contract parsed from combined-json output into the standard-json contract
// shape.
func convertCombinedJSONContract(contract *compiler.Contract) (*types.ContractOutput, error) {
	abiDefinition, err := json.Marshal(contract.Info.AbiDefinition)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &types.ContractOutput{
		ABI:      abiDefinition,
		Metadata: contract.Info.Metadata,
		EVM: types.EVMOutput{
			Bytecode:          types.BytecodeOutput{Object: strings.TrimPrefix(contract.Code, "0x")},
			DeployedBytecode:  types.BytecodeOutput{Object: strings.TrimPrefix(contract.RuntimeCode, "0x")},
			MethodIdentifiers: contract.Hashes,
		},
	}, nil
}

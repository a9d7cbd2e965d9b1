package compilation

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/crytic/solbuild/compilation/platforms"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/events"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Builder compiles Solidity source files into artifacts using an external compiler.
type Builder struct {
	// config describes the compilation settings.
	config *CompilationConfig

	// compiler is the compiler executable used to build sources.
	compiler platforms.Compiler

	// remappings describes the parsed import remappings from config, applied to every source.
	remappings []types.Remapping

	// workingDirectory is the directory relative paths are resolved against.
	workingDirectory string

	// logger describes the Builder's logger.
	logger *logging.Logger

	// OutputFinalized emits an event once the caller has finished producing output for a compilation. Deferred
	// work, such as writing binaries, runs when it is published.
	OutputFinalized events.EventEmitter[OutputFinalizedEvent]
}

// resolvedSource describes a source file whose content has been obtained.
type resolvedSource struct {
	// key is the name the source is registered under in the compiler input.
	key string

	// path is the storage path of the source, if it has one.
	path string

	// content is the source text with normalized line endings.
	content string

	// remappings describes the import remappings the source requires.
	remappings []types.Remapping
}

// NewBuilder creates a Builder which uses the compiler executable named in the config.
func NewBuilder(config *CompilationConfig) (*Builder, error) {
	if config == nil {
		return nil, errors.New("a compilation config must be provided")
	}
	return NewBuilderWithCompiler(config, platforms.NewSolc(config.Compiler))
}

// NewBuilderWithCompiler creates a Builder which uses the provided compiler.
func NewBuilderWithCompiler(config *CompilationConfig, compiler platforms.Compiler) (*Builder, error) {
	if config == nil {
		return nil, errors.New("a compilation config must be provided")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	remappings, err := types.ParseRemappings(config.Remappings)
	if err != nil {
		return nil, err
	}
	workingDirectory, err := os.Getwd()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Builder{
		config:           config,
		compiler:         compiler,
		remappings:       remappings,
		workingDirectory: workingDirectory,
		logger:           logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE),
	}, nil
}

// Config returns the compilation settings of the Builder.
func (b *Builder) Config() *CompilationConfig {
	return b.config
}

// Compiler returns the compiler the Builder invokes.
func (b *Builder) Compiler() platforms.Compiler {
	return b.compiler
}

// SetWorkingDirectory changes the directory relative paths are resolved against. A solc compiler is also moved to
// run in it, so that it resolves remapping targets and imports against the same base.
func (b *Builder) SetWorkingDirectory(dir string) {
	b.workingDirectory = dir
	if solc, ok := b.compiler.(*platforms.Solc); ok {
		b.compiler = solc.WithWorkingDirectory(dir)
	}
}

// Compile compiles the provided source files and returns the resulting artifacts keyed by contract name. An empty
// list of files yields an empty set of artifacts without invoking the compiler. If binaries are to be emitted, they
// are written once OutputFinalized is published.
func (b *Builder) Compile(ctx context.Context, files []*types.SourceFile) (types.Artifacts, error) {
	if len(files) == 0 {
		return types.Artifacts{}, nil
	}

	if err := b.compiler.Available(); err != nil {
		return nil, errors.Wrapf(ErrCompilerNotInstalled, "could not find '%s' (%v), %s", b.compiler.Binary(), err, compilerNotInstalledHint)
	}

	buildLogger := b.logger.NewSubLogger("build", uuid.NewString())
	buildLogger.Info("Compiling ", len(files), " source file(s) with ", colors.Bold, b.compiler.Binary(), colors.Reset, "...")

	allowedPaths := b.ResolveAllowedPaths(files)
	sources, remappings, err := b.resolveSources(ctx, files)
	if err != nil {
		return nil, err
	}

	var artifacts types.Artifacts
	if b.config.InvocationMode == CombinedJSONMode {
		artifacts, err = b.compileCombinedJSON(ctx, buildLogger, sources, remappings, allowedPaths)
	} else {
		artifacts, err = b.compileStandardJSON(ctx, buildLogger, sources, remappings, allowedPaths)
	}
	if err != nil {
		return nil, err
	}

	buildLogger.Info("Compiled ", colors.Bold, len(artifacts), colors.Reset, " contract(s)")
	if b.config.EmitBinaries {
		b.scheduleBinaryOutput(artifacts, buildLogger)
	}
	return artifacts, nil
}

// ResolveAllowedPaths returns the directories the compiler may read from: the absolute directory of every source file
// followed by the configured roots resolved against the working directory. Duplicates are dropped.
func (b *Builder) ResolveAllowedPaths(files []*types.SourceFile) []string {
	paths := make([]string, 0, len(files)+len(b.config.AllowedPathRoots))
	for _, file := range files {
		filePath := file.Path
		if filePath == "" {
			filePath = filepath.FromSlash(file.Filename)
		}
		paths = append(paths, b.absolutePath(filepath.Dir(filePath)))
	}
	for _, root := range b.config.AllowedPathRoots {
		paths = append(paths, b.absolutePath(root))
	}
	return utils.SliceDeduplicate(paths)
}

// absolutePath resolves a path against the working directory.
func (b *Builder) absolutePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.workingDirectory, p)
}

// resolveSources obtains the content of every file concurrently, then merges the results in input order. The merged
// remappings begin with the configured remappings, followed by each file's remappings, with duplicates dropped.
func (b *Builder) resolveSources(ctx context.Context, files []*types.SourceFile) ([]resolvedSource, []types.Remapping, error) {
	results := make([]resolvedSource, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			content, err := file.ResolveContent(gctx)
			if err != nil {
				return wrapSentinel(ErrContentResolutionFailed, err, "'%s'", file.Filename)
			}
			results[i] = resolvedSource{
				key:        file.SourceKey(),
				path:       file.Path,
				content:    types.NormalizeLineEndings(content),
				remappings: file.Remappings,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	remappings := append([]types.Remapping{}, b.remappings...)
	for _, result := range results {
		remappings = append(remappings, result.remappings...)
	}
	return results, utils.SliceDeduplicate(remappings), nil
}

// compileStandardJSON compiles every source in a single standard-json invocation.
func (b *Builder) compileStandardJSON(
	ctx context.Context,
	logger *logging.Logger,
	sources []resolvedSource,
	remappings []types.Remapping,
	allowedPaths []string,
) (types.Artifacts, error) {
	contents := make(map[string]string, len(sources))
	order := make([]string, 0, len(sources))
	for _, source := range sources {
		if _, exists := contents[source.key]; !exists {
			order = append(order, source.key)
		}
		contents[source.key] = source.content
	}

	input := types.NewCompilerInput(contents, types.OptimizerSettings{
		Enabled: b.config.Optimizer,
		Runs:    b.config.OptimizerRuns,
	}, remappings)
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	output, err := b.runCompiler(ctx, logger, inputJSON, platforms.StandardJSONArgs(allowedPaths)...)
	if err != nil {
		return nil, err
	}

	compilerOutput, err := types.ParseCompilerOutput(output.Stdout)
	if err != nil {
		return nil, wrapSentinel(ErrUnparseableOutput, err, "standard-json output")
	}
	if err = b.checkDiagnostics(logger, compilerOutput); err != nil {
		return nil, err
	}
	if err = compilerOutput.Validate(); err != nil {
		return nil, wrapSentinel(ErrUnparseableOutput, err, "standard-json output")
	}
	return b.normalizeOutput(logger, compilerOutput, order)
}

// checkDiagnostics logs non-error diagnostics and returns a CompilationError carrying every error diagnostic, if any
// were reported.
func (b *Builder) checkDiagnostics(logger *logging.Logger, output *types.CompilerOutput) error {
	for _, diagnostic := range output.NonErrorDiagnostics() {
		logger.Warn(colors.Yellow, diagnostic.String())
	}

	errorDiagnostics := output.ErrorDiagnostics()
	if len(errorDiagnostics) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errorDiagnostics))
	for _, diagnostic := range errorDiagnostics {
		messages = append(messages, diagnostic.String())
	}
	return &CompilationError{Messages: messages}
}

// runCompiler invokes the compiler, bounded by the configured timeout, and verifies it exited successfully with
// output.
func (b *Builder) runCompiler(ctx context.Context, logger *logging.Logger, stdin []byte, args ...string) (*utils.ProcessOutput, error) {
	runCtx := ctx
	if timeout := b.config.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Debug("Running ", b.compiler.Binary(), " ", args)
	output, err := b.compiler.Run(runCtx, stdin, args...)
	if ctx.Err() != nil {
		return nil, errors.WithStack(ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.Wrapf(ErrCompilerTimedOut, "'%s' did not finish within %v", b.compiler.Binary(), b.config.TimeoutDuration())
	}
	if err != nil {
		return nil, errors.WithStack(&CompilerInvocationError{ExitCode: -1, Err: err})
	}

	if stderr := bytes.TrimSpace(output.Stderr); len(stderr) > 0 {
		logger.Warn(string(stderr))
	}
	if output.ExitCode != 0 {
		return nil, errors.WithStack(&CompilerInvocationError{ExitCode: output.ExitCode, Stderr: string(output.Stderr)})
	}
	if len(bytes.TrimSpace(output.Stdout)) == 0 {
		return nil, errors.WithStack(ErrEmptyCompilerOutput)
	}
	return output, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/crytic/solbuild/cmd/exitcodes"
	"github.com/crytic/solbuild/compilation"
	"github.com/crytic/solbuild/compilation/store"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/configs"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// compileCmd represents the command provider for compile
var compileCmd = &cobra.Command{
	Use:           "compile [sources...]",
	Short:         "Compiles Solidity sources into contract artifacts",
	Long:          `Compiles Solidity sources into contract artifacts, writing binaries and the artifact database to the build directory`,
	RunE:          cmdRunCompile,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Add flags to compile command
	err := addCompileFlags(compileCmd.Flags())
	if err != nil {
		cmdLogger.Panic("Failed to initialize the compile command", err)
	}

	// Add the compile command and its associated flags to the root command
	rootCmd.AddCommand(compileCmd)
}

// cmdRunCompile executes the compile CLI command.
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	projectConfig, configDirectory, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Positional sources replace the configured ones
	if len(args) > 0 {
		projectConfig.Compilation.Sources = args
	}

	err = updateProjectConfigWithCompileFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	err = projectConfig.Validate()
	if err != nil {
		cmdLogger.Error("Failed to validate the project configuration", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	closeLogFile, err := setupGlobalLogger(projectConfig, configDirectory)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogFile()

	// Stop compiling on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = runCompile(ctx, projectConfig, configDirectory)
	return compileErrorWithExitCode(err)
}

// setupGlobalLogger replaces the global logger and the command logger with ones configured by the project, which write
// to stdout and, if a log directory is set, to a structured log file. Returns a function that closes the log file.
func setupGlobalLogger(projectConfig *configs.ProjectConfig, configDirectory string) (func(), error) {
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}

	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)

	if projectConfig.Logging.LogDirectory == "" {
		cmdLogger = logging.GlobalLogger.NewSubLogger("module", logging.CLI_SERVICE)
		return func() {}, nil
	}

	logDirectory := projectConfig.Logging.LogDirectory
	if !filepath.IsAbs(logDirectory) {
		logDirectory = filepath.Join(configDirectory, logDirectory)
	}
	fileName := fmt.Sprintf("%s-%s.log", LogFileNamePrefix, time.Now().Format("2006-01-02-15-04-05"))
	file, err := utils.CreateFile(logDirectory, fileName)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	cmdLogger = logging.GlobalLogger.NewSubLogger("module", logging.CLI_SERVICE)

	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		cmdLogger.RemoveWriter(file, logging.STRUCTURED, false)
		_ = file.Close()
	}, nil
}

// runCompile builds the project's sources into artifacts, then finalizes the output: the artifact hash cache, the
// artifact database and the binary files.
func runCompile(ctx context.Context, projectConfig *configs.ProjectConfig, configDirectory string) (types.Artifacts, error) {
	compilationConfig := projectConfig.Compilation

	files, err := compilationConfig.SourceFiles(configDirectory)
	if err != nil {
		return nil, err
	}

	builder, err := newVersionCheckedBuilder(ctx, compilationConfig, configDirectory)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	artifacts, err := builder.Compile(ctx, files)
	if err != nil {
		return nil, err
	}
	cmdLogger.Info("Finished compiling ", colors.Bold, len(artifacts), colors.Reset, " contract(s) in ", time.Since(start).Round(time.Millisecond))

	buildDirectory := compilationConfig.BuildDirectory
	if !filepath.IsAbs(buildDirectory) {
		buildDirectory = filepath.Join(configDirectory, buildDirectory)
	}

	if len(artifacts) > 0 {
		compilation.NotifyArtifactHashStatus(artifacts, buildDirectory, cmdLogger)
	}

	if compilationConfig.ArtifactDatabase {
		if err = storeArtifacts(ctx, artifacts, buildDirectory); err != nil {
			return nil, err
		}
	}

	// Output is final, so deferred writers may run.
	if err = builder.OutputFinalized.Publish(compilation.OutputFinalizedEvent{}); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// newVersionCheckedBuilder creates a Builder whose compiler satisfies the configured minimum version. If the
// configured compiler is too old and a fallback compiler is set, the fallback is checked and used instead.
func newVersionCheckedBuilder(ctx context.Context, compilationConfig *compilation.CompilationConfig, workingDirectory string) (*compilation.Builder, error) {
	builder, err := compilation.NewBuilder(compilationConfig)
	if err != nil {
		return nil, err
	}
	builder.SetWorkingDirectory(workingDirectory)

	installed, err := builder.CheckVersion(ctx)
	if err == nil || !errors.Is(err, compilation.ErrVersionTooOld) || compilationConfig.FallbackCompiler == "" {
		if err == nil {
			cmdLogger.Debug("Found ", builder.Compiler().Binary(), " version ", installed.String())
		}
		return builder, err
	}

	cmdLogger.Warn(err.Error(), ", falling back to ", colors.Bold, compilationConfig.FallbackCompiler, colors.Reset)
	fallbackConfig := *compilationConfig
	fallbackConfig.Compiler = compilationConfig.FallbackCompiler
	fallbackConfig.FallbackCompiler = ""
	return newVersionCheckedBuilder(ctx, &fallbackConfig, workingDirectory)
}

// storeArtifacts writes the artifacts to the artifact database in the build directory.
func storeArtifacts(ctx context.Context, artifacts types.Artifacts, buildDirectory string) error {
	artifactStore, err := store.Open(ctx, buildDirectory)
	if err != nil {
		return err
	}
	err = artifactStore.PutAll(artifacts)
	closeErr := artifactStore.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// compileErrorWithExitCode attaches the exit code for a compile error. Errors whose exit code identifies them are left
// for the caller to print, all others are logged here.
func compileErrorWithExitCode(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, compilation.ErrCompilationFailed):
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilationFailed)
	case errors.Is(err, compilation.ErrCompilerNotInstalled):
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilerNotInstalled)
	default:
		cmdLogger.Error("Failed to compile the project", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
}

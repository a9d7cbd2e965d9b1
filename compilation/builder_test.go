package compilation

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Masterminds/semver"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompiler is a platforms.Compiler which records invocations and answers them with a callback.
type fakeCompiler struct {
	available error
	version   string
	run       func(ctx context.Context, stdin []byte, args []string) (*utils.ProcessOutput, error)

	mutex       sync.Mutex
	invocations [][]string
	stdins      [][]byte
}

func (f *fakeCompiler) Binary() string {
	return "fake-solc"
}

func (f *fakeCompiler) Available() error {
	return f.available
}

func (f *fakeCompiler) Version(ctx context.Context) (*semver.Version, error) {
	return semver.NewVersion(f.version)
}

func (f *fakeCompiler) Run(ctx context.Context, stdin []byte, args ...string) (*utils.ProcessOutput, error) {
	f.mutex.Lock()
	f.invocations = append(f.invocations, args)
	f.stdins = append(f.stdins, stdin)
	f.mutex.Unlock()
	return f.run(ctx, stdin, args)
}

func (f *fakeCompiler) invocationCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.invocations)
}

// respondWith returns a run callback which answers every invocation with the provided stdout.
func respondWith(stdout []byte) func(context.Context, []byte, []string) (*utils.ProcessOutput, error) {
	return func(context.Context, []byte, []string) (*utils.ProcessOutput, error) {
		return &utils.ProcessOutput{ExitCode: 0, Stdout: stdout}, nil
	}
}

// newTestBuilder creates a Builder around a fake compiler, rooted in a temporary working directory.
func newTestBuilder(t *testing.T, compiler *fakeCompiler, modify func(config *CompilationConfig)) *Builder {
	config := NewDefaultCompilationConfig()
	config.EmitBinaries = false
	config.ArtifactDatabase = false
	if modify != nil {
		modify(config)
	}
	if compiler.version == "" {
		compiler.version = "0.8.19"
	}
	builder, err := NewBuilderWithCompiler(config, compiler)
	require.NoError(t, err)
	builder.SetWorkingDirectory(t.TempDir())
	return builder
}

// inlineSource creates a source file whose content is provided directly.
func inlineSource(filename string, content string, remappings ...types.Remapping) *types.SourceFile {
	return &types.SourceFile{
		Filename: filename,
		Content: func(ctx context.Context) (string, error) {
			return content, nil
		},
		Remappings: remappings,
	}
}

// testContract creates compiler output for a contract with a single transfer method and well-formed bytecode.
func testContract(code string) types.ContractOutput {
	return types.ContractOutput{
		ABI:      json.RawMessage(`[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}]`),
		Metadata: `{"language":"Solidity"}`,
		EVM: types.EVMOutput{
			Bytecode:          types.BytecodeOutput{Object: code},
			DeployedBytecode:  types.BytecodeOutput{Object: "6080" + strings.Repeat("ab", 32) + "0029"},
			MethodIdentifiers: map[string]string{"transfer(address,uint256)": "a9059cbb"},
		},
	}
}

// standardJSONOutput serializes a compiler output document.
func standardJSONOutput(t *testing.T, contracts map[string]map[string]types.ContractOutput, diagnostics ...types.Diagnostic) []byte {
	b, err := json.Marshal(types.CompilerOutput{Errors: diagnostics, Contracts: contracts})
	require.NoError(t, err)
	return b
}

func TestCompileEmptyFileList(t *testing.T) {
	compiler := &fakeCompiler{available: errors.New("not installed")}
	builder := newTestBuilder(t, compiler, nil)

	artifacts, err := builder.Compile(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, artifacts)
	assert.Empty(t, artifacts)
	assert.EqualValues(t, 0, compiler.invocationCount())
}

func TestCompileCompilerNotInstalled(t *testing.T) {
	compiler := &fakeCompiler{available: errors.New("executable file not found in $PATH")}
	builder := newTestBuilder(t, compiler, nil)

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "contract A {}")})
	assert.ErrorIs(t, err, ErrCompilerNotInstalled)
	assert.Contains(t, err.Error(), "PATH")
	assert.EqualValues(t, 0, compiler.invocationCount())
}

func TestCompileStandardJSON(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"contracts/Token.sol": {"Token": testContract("60806040")},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	builder := newTestBuilder(t, compiler, func(config *CompilationConfig) {
		config.Remappings = []string{"@base/=lib/base/"}
	})

	shared := types.Remapping{Prefix: "@oz/", Target: "node_modules/@openzeppelin/"}
	files := []*types.SourceFile{
		inlineSource("contracts/Token.sol", "contract Token {}\r\n", shared),
		inlineSource("contracts/Other.sol", "contract Other {}\r", shared, types.Remapping{Prefix: "@x/", Target: "lib/x/"}),
	}
	artifacts, err := builder.Compile(context.Background(), files)
	require.NoError(t, err)

	// Verify the compiler was invoked once with a standard-json document on stdin.
	require.EqualValues(t, 1, compiler.invocationCount())
	args := compiler.invocations[0]
	require.Len(t, args, 3)
	assert.EqualValues(t, "--standard-json", args[0])
	assert.EqualValues(t, "--allow-paths", args[1])
	assert.EqualValues(t, []string{
		filepath.Join(builder.workingDirectory, "contracts"),
		filepath.Join(builder.workingDirectory, DependencyRoot),
		filepath.Join(builder.workingDirectory, BuildCacheRoot),
	}, strings.Split(args[2], ","))

	var input types.CompilerInput
	require.NoError(t, json.Unmarshal(compiler.stdins[0], &input))
	assert.EqualValues(t, types.SolidityLanguage, input.Language)
	assert.EqualValues(t, "contract Token {}\n", input.Sources["contracts/Token.sol"].Content)
	assert.EqualValues(t, "contract Other {}\n", input.Sources["contracts/Other.sol"].Content)
	assert.EqualValues(t, []string{"@base/=lib/base/", "@oz/=node_modules/@openzeppelin/", "@x/=lib/x/"}, input.Settings.Remappings)
	assert.True(t, input.Settings.Optimizer.Enabled)
	assert.EqualValues(t, 200, input.Settings.Optimizer.Runs)

	// Verify the artifact was normalized.
	require.Len(t, artifacts, 1)
	token := artifacts["Token"]
	require.NotNil(t, token)
	assert.EqualValues(t, "60806040", token.Code)
	assert.EqualValues(t, "6080", token.RealRuntimeBytecode)
	assert.EqualValues(t, strings.Repeat("ab", 32), token.SwarmHash)
	assert.EqualValues(t, "Token.sol", token.Filename)
	assert.EqualValues(t, "contracts/Token.sol", token.OriginalFilename)
	assert.EqualValues(t, map[string]string{"transfer(address,uint256)": "a9059cbb"}, token.FunctionHashes)
}

func TestCompileIsDeterministic(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"A.sol": {"A": testContract("6001"), "Shared": testContract("6002")},
		"B.sol": {"B": testContract("6003"), "Shared": testContract("6004")},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	builder := newTestBuilder(t, compiler, nil)
	files := []*types.SourceFile{inlineSource("B.sol", ""), inlineSource("A.sol", "")}

	first, err := builder.Compile(context.Background(), files)
	require.NoError(t, err)
	second, err := builder.Compile(context.Background(), files)
	require.NoError(t, err)

	assert.EqualValues(t, first, second)
	assert.EqualValues(t, []string{"A", "B", "Shared"}, first.Names())
}

func TestCompileNameCollisionLastWriteWins(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"First.sol":    {"Token": testContract("6001")},
		"Second.sol":   {"Token": testContract("6002")},
		"Imported.sol": {"Token": testContract("6003")},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	builder := newTestBuilder(t, compiler, nil)

	var buf bytes.Buffer
	builder.logger = logging.NewLogger(zerolog.WarnLevel)
	builder.logger.AddWriter(&buf, logging.UNSTRUCTURED, false)

	// Input sources are visited in input order, then sources the compiler added, sorted.
	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{
		inlineSource("Second.sol", ""),
		inlineSource("First.sol", ""),
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.EqualValues(t, "6003", artifacts["Token"].Code)
	assert.EqualValues(t, "Imported.sol", artifacts["Token"].OriginalFilename)
	assert.Contains(t, buf.String(), "replaced")

	output = map[string]map[string]types.ContractOutput{
		"First.sol":  {"Token": testContract("6001")},
		"Second.sol": {"Token": testContract("6002")},
	}
	compiler.run = respondWith(standardJSONOutput(t, output))
	artifacts, err = builder.Compile(context.Background(), []*types.SourceFile{
		inlineSource("Second.sol", ""),
		inlineSource("First.sol", ""),
	})
	require.NoError(t, err)
	assert.EqualValues(t, "6001", artifacts["Token"].Code)
}

func TestCompileStripsFirstMatchingSourceDirectory(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"contracts/sub/Token.sol": {"Token": testContract("6001")},
	}

	cases := []struct {
		directories []string
		expected    string
	}{
		{[]string{"contracts/", "contracts/sub/"}, "sub/Token.sol"},
		{[]string{"contracts/sub/", "contracts/"}, "Token.sol"},
		{[]string{"other/"}, "contracts/sub/Token.sol"},
	}
	for _, c := range cases {
		compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
		builder := newTestBuilder(t, compiler, func(config *CompilationConfig) {
			config.SourceDirectories = c.directories
		})
		artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("contracts/sub/Token.sol", "")})
		require.NoError(t, err)
		assert.EqualValues(t, c.expected, artifacts["Token"].Filename)
		assert.EqualValues(t, "contracts/sub/Token.sol", artifacts["Token"].OriginalFilename)
	}
}

func TestCompileShortDeployedBytecode(t *testing.T) {
	contract := testContract("6001")
	contract.EVM.DeployedBytecode.Object = "6080"
	output := map[string]map[string]types.ContractOutput{"A.sol": {"A": contract}}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	builder := newTestBuilder(t, compiler, nil)

	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	require.NoError(t, err)
	assert.EqualValues(t, "6080", artifacts["A"].RuntimeBytecode)
	assert.Empty(t, artifacts["A"].RealRuntimeBytecode)
	assert.Empty(t, artifacts["A"].SwarmHash)
}

func TestCompileErrorDiagnostics(t *testing.T) {
	diagnostics := []types.Diagnostic{
		{Severity: types.SeverityError, Type: "ParserError", Message: "expected ';'", FormattedMessage: "A.sol:1:1: ParserError: expected ';'"},
		{Severity: types.SeverityWarning, Type: "Warning", Message: "unused", FormattedMessage: "A.sol:2:1: Warning: unused"},
		{Severity: types.SeverityError, Type: "TypeError", Message: "bad type", FormattedMessage: "B.sol:3:1: TypeError: bad type"},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, nil, diagnostics...))}
	builder := newTestBuilder(t, compiler, nil)

	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", ""), inlineSource("B.sol", "")})
	assert.Nil(t, artifacts)
	assert.ErrorIs(t, err, ErrCompilationFailed)

	var compilationErr *CompilationError
	require.True(t, errors.As(err, &compilationErr))
	assert.EqualValues(t, []string{
		"A.sol:1:1: ParserError: expected ';'",
		"B.sol:3:1: TypeError: bad type",
	}, compilationErr.Messages)
}

func TestCompileWarningsDoNotFail(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{"A.sol": {"A": testContract("6001")}}
	warning := types.Diagnostic{Severity: types.SeverityWarning, Message: "shadowed"}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output, warning))}
	builder := newTestBuilder(t, compiler, nil)

	var buf bytes.Buffer
	builder.logger = logging.NewLogger(zerolog.WarnLevel)
	builder.logger.AddWriter(&buf, logging.UNSTRUCTURED, false)

	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
	assert.Contains(t, buf.String(), "shadowed")
}

func TestCompileInvocationFailure(t *testing.T) {
	compiler := &fakeCompiler{run: func(context.Context, []byte, []string) (*utils.ProcessOutput, error) {
		return &utils.ProcessOutput{ExitCode: 1, Stderr: []byte("unrecognised option")}, nil
	}}
	builder := newTestBuilder(t, compiler, nil)

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrCompilerInvocationFailed)

	var invocationErr *CompilerInvocationError
	require.True(t, errors.As(err, &invocationErr))
	assert.EqualValues(t, 1, invocationErr.ExitCode)
	assert.EqualValues(t, "unrecognised option", invocationErr.Stderr)
}

func TestCompileStartFailure(t *testing.T) {
	cause := errors.New("permission denied")
	compiler := &fakeCompiler{run: func(context.Context, []byte, []string) (*utils.ProcessOutput, error) {
		return &utils.ProcessOutput{ExitCode: -1}, cause
	}}
	builder := newTestBuilder(t, compiler, nil)

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrCompilerInvocationFailed)
	assert.ErrorIs(t, err, cause)
}

func TestCompileEmptyOutput(t *testing.T) {
	compiler := &fakeCompiler{run: respondWith([]byte("  \n"))}
	builder := newTestBuilder(t, compiler, nil)

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrEmptyCompilerOutput)
}

func TestCompileUnparseableOutput(t *testing.T) {
	compiler := &fakeCompiler{run: respondWith([]byte("Compiler run successful, no output requested."))}
	builder := newTestBuilder(t, compiler, nil)

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrUnparseableOutput)

	contract := testContract("6001")
	contract.EVM.MethodIdentifiers = map[string]string{"transfer(address,uint256)": "00000000"}
	compiler.run = respondWith(standardJSONOutput(t, map[string]map[string]types.ContractOutput{"A.sol": {"A": contract}}))
	_, err = builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrUnparseableOutput)
}

func TestCompileContentResolutionFailure(t *testing.T) {
	cause := errors.New("plugin unavailable")
	compiler := &fakeCompiler{run: respondWith([]byte("{}"))}
	builder := newTestBuilder(t, compiler, nil)

	failing := &types.SourceFile{
		Filename: "Broken.sol",
		Content: func(ctx context.Context) (string, error) {
			return "", cause
		},
	}
	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", ""), failing})
	assert.Nil(t, artifacts)
	assert.ErrorIs(t, err, ErrContentResolutionFailed)
	assert.ErrorIs(t, err, cause)
	assert.EqualValues(t, 0, compiler.invocationCount())
}

func TestCompileTimeout(t *testing.T) {
	compiler := &fakeCompiler{run: func(ctx context.Context, _ []byte, _ []string) (*utils.ProcessOutput, error) {
		<-ctx.Done()
		return &utils.ProcessOutput{ExitCode: -1}, nil
	}}
	builder := newTestBuilder(t, compiler, func(config *CompilationConfig) {
		config.Timeout = 1
	})

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, ErrCompilerTimedOut)
}

func TestCompileCancelled(t *testing.T) {
	compiler := &fakeCompiler{run: func(ctx context.Context, _ []byte, _ []string) (*utils.ProcessOutput, error) {
		<-ctx.Done()
		return &utils.ProcessOutput{ExitCode: -1}, nil
	}}
	builder := newTestBuilder(t, compiler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := builder.Compile(ctx, []*types.SourceFile{inlineSource("A.sol", "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileDefersBinaryOutput(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"A.sol": {"A": testContract("6001"), "B": testContract("6002")},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	buildDirectory := filepath.Join(t.TempDir(), "build")
	builder := newTestBuilder(t, compiler, func(config *CompilationConfig) {
		config.EmitBinaries = true
		config.BuildDirectory = buildDirectory
	})

	_, err := builder.Compile(context.Background(), []*types.SourceFile{inlineSource("A.sol", "")})
	require.NoError(t, err)

	// Nothing is written until output is finalized.
	_, err = os.Stat(filepath.Join(buildDirectory, "A.bin"))
	assert.True(t, os.IsNotExist(err))
	assert.EqualValues(t, 1, builder.OutputFinalized.SubscriptionCount())

	require.NoError(t, builder.OutputFinalized.Publish(OutputFinalizedEvent{}))
	for name, code := range map[string]string{"A": "6001", "B": "6002"} {
		b, err := os.ReadFile(filepath.Join(buildDirectory, name+BinaryFileExtension))
		require.NoError(t, err)
		assert.EqualValues(t, code, string(b))
	}
	assert.EqualValues(t, 0, builder.OutputFinalized.SubscriptionCount())
}

func TestWriteBinariesLogsFailures(t *testing.T) {
	// A file in place of the build directory makes every write fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte{}, 0644))

	var buf bytes.Buffer
	logger := logging.NewLogger(zerolog.InfoLevel)
	logger.AddWriter(&buf, logging.UNSTRUCTURED, false)

	artifacts := types.Artifacts{"A": {Name: "A", Code: "6001"}}
	assert.EqualValues(t, 0, WriteBinaries(artifacts, blocked, logger))
	assert.Contains(t, buf.String(), "Failed to write binary")
}

func TestResolveAllowedPaths(t *testing.T) {
	builder := newTestBuilder(t, &fakeCompiler{}, nil)
	wd := builder.workingDirectory
	absolute := filepath.Join(t.TempDir(), "lib", "Lib.sol")

	paths := builder.ResolveAllowedPaths([]*types.SourceFile{
		{Filename: "contracts/A.sol", Path: filepath.Join("contracts", "A.sol")},
		{Filename: "contracts/B.sol"},
		{Filename: "Lib.sol", Path: absolute},
		{Filename: "node_modules/x/C.sol"},
	})
	assert.EqualValues(t, []string{
		filepath.Join(wd, "contracts"),
		filepath.Dir(absolute),
		filepath.Join(wd, "node_modules", "x"),
		filepath.Join(wd, DependencyRoot),
		filepath.Join(wd, BuildCacheRoot),
	}, paths)
}

func TestCompilePluginSourceKey(t *testing.T) {
	output := map[string]map[string]types.ContractOutput{
		"plugins/p/Plugin.sol": {"Plugin": testContract("6001")},
	}
	compiler := &fakeCompiler{run: respondWith(standardJSONOutput(t, output))}
	builder := newTestBuilder(t, compiler, nil)

	file := inlineSource("Plugin.sol", "contract Plugin {}")
	file.PluginPath = "plugins/p"
	artifacts, err := builder.Compile(context.Background(), []*types.SourceFile{file})
	require.NoError(t, err)

	var input types.CompilerInput
	require.NoError(t, json.Unmarshal(compiler.stdins[0], &input))
	assert.Contains(t, input.Sources, "plugins/p/Plugin.sol")
	assert.EqualValues(t, "plugins/p/Plugin.sol", artifacts["Plugin"].OriginalFilename)
}

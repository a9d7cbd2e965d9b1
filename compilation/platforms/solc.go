package platforms

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
)

// DefaultSolcBinary is the executable name used when no compiler is configured.
const DefaultSolcBinary = "solc"

// versionExp extracts a "major.minor.patch" version from compiler output.
var versionExp = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Solc is a Compiler backed by a solc executable on the system.
type Solc struct {
	// binary is the name or path of the executable.
	binary string

	// workingDirectory is the directory the compiler is executed in. If empty, the current directory is used.
	workingDirectory string
}

// NewSolc creates a Solc for the provided executable. An empty binary selects DefaultSolcBinary.
func NewSolc(binary string) *Solc {
	if binary == "" {
		binary = DefaultSolcBinary
	}
	return &Solc{binary: binary}
}

// WithWorkingDirectory returns a copy of the compiler which executes in the provided directory.
func (s *Solc) WithWorkingDirectory(dir string) *Solc {
	return &Solc{binary: s.binary, workingDirectory: dir}
}

// WorkingDirectory returns the directory the compiler is executed in, or an empty string for the current directory.
func (s *Solc) WorkingDirectory() string {
	return s.workingDirectory
}

// Binary returns the name or path of the executable.
func (s *Solc) Binary() string {
	return s.binary
}

// Available returns an error if the executable cannot be found on the PATH.
func (s *Solc) Available() error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Version runs the executable with --version and parses the reported version.
func (s *Solc) Version(ctx context.Context) (*semver.Version, error) {
	output, err := s.Run(ctx, nil, "--version")
	if err != nil {
		return nil, err
	}
	if output.ExitCode != 0 {
		return nil, fmt.Errorf("error while executing %s:\nOUTPUT:\n%s\nEXIT CODE: %d", s.binary, string(output.Combined), output.ExitCode)
	}
	return ParseSolcVersion(string(output.Stdout))
}

// Run executes the compiler with the provided arguments. Cancelling ctx kills the compiler along with any process it
// started.
func (s *Solc) Run(ctx context.Context, stdin []byte, args ...string) (*utils.ProcessOutput, error) {
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Dir = s.workingDirectory
	utils.BindProcessLifetime(cmd)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return utils.RunCommand(cmd)
}

// ParseSolcVersion extracts the first "major.minor.patch" version from compiler output.
func ParseSolcVersion(output string) (*semver.Version, error) {
	versionStr := versionExp.FindString(output)
	if versionStr == "" {
		return nil, fmt.Errorf("could not parse a compiler version from output: %q", strings.TrimSpace(output))
	}
	return semver.NewVersion(versionStr)
}

// StandardJSONArgs returns the arguments which direct the compiler to read a standard-json document from stdin,
// allowing imports from the provided paths.
func StandardJSONArgs(allowedPaths []string) []string {
	args := []string{"--standard-json"}
	if len(allowedPaths) > 0 {
		args = append(args, "--allow-paths", strings.Join(allowedPaths, ","))
	}
	return args
}

// CombinedJSONSettings describes the settings of a combined-json invocation.
type CombinedJSONSettings struct {
	Optimize      bool
	OptimizerRuns int
	Remappings    []types.Remapping
	AllowedPaths  []string
	OutputOptions string
}

// CombinedJSONArgs returns the arguments which direct the compiler to compile a single file and print its combined
// JSON output.
func CombinedJSONArgs(target string, settings CombinedJSONSettings) []string {
	args := make([]string, 0, len(settings.Remappings)+8)
	for _, remapping := range settings.Remappings {
		args = append(args, remapping.String())
	}
	if settings.Optimize {
		args = append(args, "--optimize", "--optimize-runs", strconv.Itoa(settings.OptimizerRuns))
	}
	if len(settings.AllowedPaths) > 0 {
		args = append(args, "--allow-paths", strings.Join(settings.AllowedPaths, ","))
	}
	return append(args, "--combined-json", settings.OutputOptions, target)
}

// versionConstraint parses a constraint known to be valid.
func versionConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

var (
	// noHashesConstraint matches compilers which do not accept the 'hashes' output option.
	noHashesConstraint = versionConstraint(">= 0.3.0, <= 0.3.6 || >= 0.4.0, <= 0.4.11")

	// compactFormatConstraint matches compilers which accept the 'compact-format' output option.
	compactFormatConstraint = versionConstraint(">= 0.4.12, <= 0.4.26 || >= 0.5.0, <= 0.5.17 || >= 0.6.0, <= 0.6.12 || >= 0.7.0, <= 0.7.6 || >= 0.8.0, <= 0.8.9")

	// metadataConstraint matches compilers which accept the 'metadata' output option.
	metadataConstraint = versionConstraint(">= 0.4.7")
)

// CombinedJSONOutputOptions determines which combined-json output options should be requested from a compiler of
// the provided version.
func CombinedJSONOutputOptions(v *semver.Version) string {
	options := []string{"abi", "bin", "bin-runtime", "userdoc", "devdoc"}
	if !noHashesConstraint.Check(v) {
		options = append(options, "hashes")
	}
	if metadataConstraint.Check(v) {
		options = append(options, "metadata")
	}
	if compactFormatConstraint.Check(v) {
		options = append(options, "compact-format")
	}
	return strings.Join(options, ",")
}

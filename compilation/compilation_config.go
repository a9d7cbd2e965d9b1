package compilation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/crytic/solbuild/compilation/platforms"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
)

// InvocationMode describes how the compiler is invoked.
type InvocationMode string

const (
	// StandardJSONMode compiles every source in a single standard-json invocation.
	StandardJSONMode InvocationMode = "standard-json"

	// CombinedJSONMode compiles each source in its own combined-json invocation.
	CombinedJSONMode InvocationMode = "combined-json"
)

const (
	// SolidityFileExtension is the extension of files collected from source directories.
	SolidityFileExtension = ".sol"

	// DependencyRoot is the directory, relative to the working directory, where installed dependencies live.
	DependencyRoot = "node_modules"

	// BuildCacheRoot is the directory, relative to the working directory, where intermediate build files live.
	BuildCacheRoot = ".solbuild"
)

// CompilationConfig describes the configuration options used to compile a set of Solidity sources into artifacts.
type CompilationConfig struct {
	// Sources describes the files, directories, or glob patterns to compile. Directories are searched recursively for
	// Solidity files.
	Sources []string `json:"sources"`

	// SourceDirectories describes the directory prefixes which are removed from source paths to produce artifact
	// filenames. The first matching prefix is removed.
	SourceDirectories []string `json:"sourceDirectories"`

	// Remappings describes import remappings, in "prefix=target" notation, applied to every source.
	Remappings []string `json:"remappings"`

	// Optimizer indicates whether the compiler optimizer is enabled.
	Optimizer bool `json:"optimizer"`

	// OptimizerRuns describes how many runs the optimizer tunes for.
	OptimizerRuns int `json:"optimizerRuns"`

	// MinimumVersion describes the oldest compiler version which may be used. If empty, any version is accepted.
	MinimumVersion string `json:"minimumVersion"`

	// Compiler describes the compiler executable to use.
	Compiler string `json:"compiler"`

	// FallbackCompiler describes a compiler executable to use when Compiler is older than MinimumVersion. If empty,
	// no fallback is attempted.
	FallbackCompiler string `json:"fallbackCompiler"`

	// InvocationMode describes how the compiler is invoked.
	InvocationMode InvocationMode `json:"invocationMode"`

	// Timeout describes the maximum number of seconds a compiler invocation may run for. Zero disables the timeout.
	Timeout int `json:"timeout"`

	// AllowedPathRoots describes directories, relative to the working directory, from which the compiler may read
	// imported files in addition to the directories of the sources themselves.
	AllowedPathRoots []string `json:"allowedPathRoots"`

	// BuildDirectory describes where build outputs are written.
	BuildDirectory string `json:"buildDirectory"`

	// EmitBinaries indicates whether each contract's creation bytecode is written to <BuildDirectory>/<Name>.bin once
	// output is finalized.
	EmitBinaries bool `json:"emitBinaries"`

	// ArtifactDatabase indicates whether artifacts are persisted to a database in BuildDirectory.
	ArtifactDatabase bool `json:"artifactDatabase"`
}

// NewDefaultCompilationConfig returns a CompilationConfig with default values.
func NewDefaultCompilationConfig() *CompilationConfig {
	return &CompilationConfig{
		Sources:           []string{"contracts"},
		SourceDirectories: []string{"contracts/"},
		Remappings:        []string{},
		Optimizer:         true,
		OptimizerRuns:     200,
		MinimumVersion:    "0.4.10",
		Compiler:          platforms.DefaultSolcBinary,
		FallbackCompiler:  "",
		InvocationMode:    StandardJSONMode,
		Timeout:           300,
		AllowedPathRoots:  []string{DependencyRoot, BuildCacheRoot},
		BuildDirectory:    "build",
		EmitBinaries:      true,
		ArtifactDatabase:  true,
	}
}

// Validate ensures the configuration is usable.
func (c *CompilationConfig) Validate() error {
	switch c.InvocationMode {
	case StandardJSONMode, CombinedJSONMode:
	default:
		return fmt.Errorf("invalid invocation mode '%s', expected '%s' or '%s'", c.InvocationMode, StandardJSONMode, CombinedJSONMode)
	}
	if c.OptimizerRuns < 0 {
		return errors.New("optimizer runs cannot be negative")
	}
	if c.Timeout < 0 {
		return errors.New("compiler timeout cannot be negative")
	}
	if c.MinimumVersion != "" {
		if _, err := semver.NewVersion(c.MinimumVersion); err != nil {
			return errors.Wrapf(err, "invalid minimum compiler version '%s'", c.MinimumVersion)
		}
	}
	if _, err := types.ParseRemappings(c.Remappings); err != nil {
		return err
	}
	if c.EmitBinaries && c.BuildDirectory == "" {
		return errors.New("a build directory must be provided to emit binaries")
	}
	if c.ArtifactDatabase && c.BuildDirectory == "" {
		return errors.New("a build directory must be provided to store artifacts")
	}
	return nil
}

// TimeoutDuration returns the compiler timeout as a duration. Zero indicates no timeout.
func (c *CompilationConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RequiredVersion returns the parsed minimum compiler version, or nil if none is configured.
func (c *CompilationConfig) RequiredVersion() (*semver.Version, error) {
	if c.MinimumVersion == "" {
		return nil, nil
	}
	return semver.NewVersion(c.MinimumVersion)
}

// SourceFiles expands Sources into source files relative to the provided directory. Paths are collected in the order
// Sources lists them, and duplicates are dropped.
func (c *CompilationConfig) SourceFiles(workingDirectory string) ([]*types.SourceFile, error) {
	remappings, err := types.ParseRemappings(c.Remappings)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0)
	for _, source := range c.Sources {
		pattern := source
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(workingDirectory, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid source pattern '%s'", source)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source '%s' did not match any files", source)
		}
		for _, match := range matches {
			found, err := collectSolidityFiles(match)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
		}
	}

	paths = utils.SliceDeduplicate(paths)
	files := make([]*types.SourceFile, 0, len(paths))
	for _, p := range paths {
		filename := p
		if rel, err := filepath.Rel(workingDirectory, p); err == nil && !strings.HasPrefix(rel, "..") {
			filename = rel
		}
		file := types.NewSourceFileFromPath(p, remappings...)
		file.Filename = filepath.ToSlash(filename)
		files = append(files, file)
	}
	return files, nil
}

// collectSolidityFiles returns the path itself if it is a file, or every Solidity file beneath it if it is a
// directory, in lexical order.
func collectSolidityFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	files := make([]string, 0)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == SolidityFileExtension {
			files = append(files, p)
		}
		return nil
	})
	return files, errors.WithStack(err)
}

package types

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ContentResolver produces the source text of a file on demand.
type ContentResolver func(ctx context.Context) (string, error)

// Remapping describes an import path prefix substitution passed to the compiler so that it can resolve imports which
// live outside the literal source tree.
type Remapping struct {
	// Prefix is the import path prefix to be replaced. It may carry a solc context, i.e. "context:prefix".
	Prefix string `json:"prefix"`

	// Target is the path which replaces Prefix.
	Target string `json:"target"`
}

// String renders the remapping in solc's "prefix=target" notation.
func (r Remapping) String() string {
	return r.Prefix + "=" + r.Target
}

// ParseRemapping parses a remapping in "prefix=target" notation.
func ParseRemapping(s string) (Remapping, error) {
	prefix, target, ok := strings.Cut(s, "=")
	if !ok || prefix == "" || target == "" {
		return Remapping{}, fmt.Errorf("invalid remapping '%s', expected the form 'prefix=target'", s)
	}
	return Remapping{Prefix: prefix, Target: target}, nil
}

// ParseRemappings parses every provided remapping string, returning an error for the first malformed entry.
func ParseRemappings(values []string) ([]Remapping, error) {
	remappings := make([]Remapping, 0, len(values))
	for _, value := range values {
		remapping, err := ParseRemapping(value)
		if err != nil {
			return nil, err
		}
		remappings = append(remappings, remapping)
	}
	return remappings, nil
}

// SourceFile describes a single Solidity source file handed to the compiler. It is owned by the caller and is
// read-only to the compilation pipeline.
type SourceFile struct {
	// Filename is the name used to identify the file within the compilation, typically a project-relative path.
	Filename string

	// Path is the storage path of the file on disk.
	Path string

	// PluginPath is an optional prefix which qualifies Filename when the file is provided by a plugin.
	PluginPath string

	// Content resolves the source text. If nil, the file at Path is read from disk.
	Content ContentResolver

	// Remappings describes the import remappings this file requires.
	Remappings []Remapping
}

// NewSourceFileFromPath creates a SourceFile whose name is derived from the provided path and whose content is read
// from disk when resolved.
func NewSourceFileFromPath(filePath string, remappings ...Remapping) *SourceFile {
	return &SourceFile{
		Filename:   filepath.ToSlash(filePath),
		Path:       filePath,
		Remappings: remappings,
	}
}

// SourceKey returns the key this file is registered under in a compiler input document: the filename qualified by the
// plugin path, if one exists.
func (f *SourceFile) SourceKey() string {
	if f.PluginPath == "" {
		return f.Filename
	}
	return path.Join(filepath.ToSlash(f.PluginPath), f.Filename)
}

// ResolveContent obtains the source text of the file.
func (f *SourceFile) ResolveContent(ctx context.Context) (string, error) {
	if f.Content != nil {
		return f.Content(ctx)
	}
	if f.Path == "" {
		return "", fmt.Errorf("source file '%s' has neither a content resolver nor a storage path", f.Filename)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(b), nil
}

// NormalizeLineEndings converts CRLF and lone CR line endings to LF.
func NormalizeLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

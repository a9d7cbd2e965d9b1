package types

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseRemapping verifies remapping notation is parsed and rendered.
func TestParseRemapping(t *testing.T) {
	remapping, err := ParseRemapping("@oz/=node_modules/@openzeppelin/")
	require.NoError(t, err)
	assert.EqualValues(t, Remapping{Prefix: "@oz/", Target: "node_modules/@openzeppelin/"}, remapping)
	assert.EqualValues(t, "@oz/=node_modules/@openzeppelin/", remapping.String())

	for _, invalid := range []string{"", "noequals", "=target", "prefix="} {
		_, err = ParseRemapping(invalid)
		assert.Error(t, err, invalid)
	}

	_, err = ParseRemappings([]string{"a=b", "broken"})
	assert.Error(t, err)
}

// TestSourceKey verifies plugin paths qualify the filename.
func TestSourceKey(t *testing.T) {
	assert.EqualValues(t, "A.sol", (&SourceFile{Filename: "A.sol"}).SourceKey())
	assert.EqualValues(t, "plugins/x/A.sol", (&SourceFile{Filename: "A.sol", PluginPath: "plugins/x"}).SourceKey())
}

// TestResolveContent verifies content is taken from the resolver, or from disk otherwise.
func TestResolveContent(t *testing.T) {
	inline := &SourceFile{Filename: "A.sol", Content: func(ctx context.Context) (string, error) {
		return "contract A {}", nil
	}}
	content, err := inline.ResolveContent(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, "contract A {}", content)

	filePath := filepath.Join(t.TempDir(), "B.sol")
	require.NoError(t, os.WriteFile(filePath, []byte("contract B {}"), 0644))
	content, err = NewSourceFileFromPath(filePath).ResolveContent(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, "contract B {}", content)

	_, err = NewSourceFileFromPath(filepath.Join(t.TempDir(), "missing.sol")).ResolveContent(context.Background())
	assert.Error(t, err)

	_, err = (&SourceFile{Filename: "C.sol"}).ResolveContent(context.Background())
	assert.Error(t, err)
}

// TestNormalizeLineEndings verifies CRLF and CR are converted to LF.
func TestNormalizeLineEndings(t *testing.T) {
	assert.EqualValues(t, "a\nb\nc\n", NormalizeLineEndings("a\r\nb\rc\n"))
}

// TestNewCompilerInput verifies the input document carries sources, settings, and the fixed output selection.
func TestNewCompilerInput(t *testing.T) {
	input := NewCompilerInput(
		map[string]string{"A.sol": "contract A {}"},
		OptimizerSettings{Enabled: true, Runs: 200},
		[]Remapping{{Prefix: "@x/", Target: "lib/x/"}},
	)
	assert.EqualValues(t, SolidityLanguage, input.Language)
	assert.EqualValues(t, "contract A {}", input.Sources["A.sol"].Content)
	assert.EqualValues(t, []string{"@x/=lib/x/"}, input.Settings.Remappings)
	assert.True(t, input.Settings.Optimizer.Enabled)
	assert.EqualValues(t, DefaultOutputSelection, input.Settings.OutputSelection["*"]["*"])
}

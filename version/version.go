// Package version reports the solbuild release and the VCS state it was built from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// These may be overridden with -ldflags "-X github.com/crytic/solbuild/version.<Name>=<value>". Empty values are
// filled from the build info the Go toolchain embeds.
var (
	// Version is the semantic version of the release.
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from.
	GitCommit = ""

	// GitCommitTime is the RFC 3339 timestamp of GitCommit.
	GitCommitTime = ""

	// GitTreeDirty is "true" if the working tree had uncommitted changes at build time.
	GitTreeDirty = ""
)

// Info describes the release and build of the running binary.
type Info struct {
	Version    string
	GitCommit  string
	CommitTime time.Time
	Dirty      bool
	GoVersion  string
}

var (
	info     Info
	infoOnce sync.Once
)

// GetInfo returns the release and build information of the running binary.
func GetInfo() Info {
	infoOnce.Do(func() {
		settings := map[string]string{}
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range buildInfo.Settings {
				settings[setting.Key] = setting.Value
			}
		}
		info = newInfo(settings)
	})
	return info
}

// newInfo builds Info from the ldflags variables, falling back to the provided VCS build settings.
func newInfo(settings map[string]string) Info {
	pick := func(override string, key string) string {
		if override != "" {
			return override
		}
		return settings[key]
	}

	result := Info{
		Version:   Version,
		GitCommit: pick(GitCommit, "vcs.revision"),
		Dirty:     pick(GitTreeDirty, "vcs.modified") == "true",
		GoVersion: runtime.Version(),
	}
	if t, err := time.Parse(time.RFC3339, pick(GitCommitTime, "vcs.time")); err == nil {
		result.CommitTime = t
	}
	return result
}

// ShortCommit returns the abbreviated commit hash, suffixed with "-dirty" if the tree was modified.
func (i Info) ShortCommit() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.Dirty {
		commit += "-dirty"
	}
	return commit
}

// String returns a multi-line description of the build.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "solbuild version %s\n", i.Version)
	if commit := i.ShortCommit(); commit != "" {
		fmt.Fprintf(&sb, "  Commit:     %s\n", commit)
	}
	if !i.CommitTime.IsZero() {
		fmt.Fprintf(&sb, "  Built:      %s\n", i.CommitTime.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}

// Short returns a single-line version such as "0.1.0+abc1234-dirty".
func (i Info) Short() string {
	if commit := i.ShortCommit(); commit != "" {
		return i.Version + "+" + commit
	}
	return i.Version
}

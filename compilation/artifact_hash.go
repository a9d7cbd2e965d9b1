package compilation

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ArtifactHashCacheFileName is the name of the file, within the build directory, holding the hash of the last build.
const ArtifactHashCacheFileName = ".solbuild-artifact-hash"

// ArtifactHashCache records the bytecode hashes of a build so the next build can report what changed.
type ArtifactHashCache struct {
	// Hash is the SHA-256 hash over every contract's bytecode.
	Hash string `json:"hash"`

	// Contracts maps each contract name to the SHA-256 hash of its own bytecode.
	Contracts map[string]string `json:"contracts,omitempty"`

	// Timestamp is when the build was hashed.
	Timestamp time.Time `json:"timestamp"`
}

// hashArtifact writes the fields identifying an artifact's output into the hash. Each field is prefixed with its length
// so that adjacent fields cannot be confused.
func hashArtifact(hasher io.Writer, name string, artifact *types.Artifact) {
	for _, field := range []string{name, artifact.Code, artifact.RuntimeBytecode} {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(field)))
		_, _ = hasher.Write(length[:])
		_, _ = hasher.Write([]byte(field))
	}
}

// ComputeArtifactHash computes a SHA-256 hash over the bytecode of every artifact, in name order.
func ComputeArtifactHash(artifacts types.Artifacts) string {
	hasher := sha256.New()
	for _, name := range artifacts.Names() {
		hashArtifact(hasher, name, artifacts[name])
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// ComputeContractHashes computes the SHA-256 hash of each artifact's bytecode, keyed by contract name.
func ComputeContractHashes(artifacts types.Artifacts) map[string]string {
	hashes := make(map[string]string, len(artifacts))
	for name, artifact := range artifacts {
		hasher := sha256.New()
		hashArtifact(hasher, name, artifact)
		hashes[name] = hex.EncodeToString(hasher.Sum(nil))
	}
	return hashes
}

// ChangedContracts returns the sorted names of contracts which were added, removed or whose hash differs between the
// two sets of contract hashes.
func ChangedContracts(previous map[string]string, current map[string]string) []string {
	changed := make([]string, 0)
	for name, hash := range current {
		if previousHash, ok := previous[name]; !ok || previousHash != hash {
			changed = append(changed, name)
		}
	}
	for name := range previous {
		if _, ok := current[name]; !ok {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)
	return changed
}

// LoadArtifactHashCache loads the artifact hash cache from the provided directory.
// Returns nil if the cache file does not exist or cannot be parsed.
func LoadArtifactHashCache(directory string) *ArtifactHashCache {
	data, err := os.ReadFile(filepath.Join(directory, ArtifactHashCacheFileName))
	if err != nil {
		return nil
	}

	var cache ArtifactHashCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	return &cache
}

// SaveArtifactHashCache saves the artifact hash cache to the provided directory, creating it if needed.
func SaveArtifactHashCache(directory string, cache *ArtifactHashCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal artifact hash cache")
	}
	return errors.Wrap(utils.WriteFile(directory, ArtifactHashCacheFileName, data), "failed to write artifact hash cache")
}

// NotifyArtifactHashStatus compares the artifacts against the hash cache in cacheDirectory, logs whether they are new
// or unchanged since the previous build, and updates the cache. Returns true if the artifacts changed.
func NotifyArtifactHashStatus(artifacts types.Artifacts, cacheDirectory string, logger *logging.Logger) bool {
	if len(artifacts) == 0 {
		return false
	}

	current := &ArtifactHashCache{
		Hash:      ComputeArtifactHash(artifacts),
		Contracts: ComputeContractHashes(artifacts),
		Timestamp: time.Now(),
	}
	previous := LoadArtifactHashCache(cacheDirectory)

	changed := previous == nil || previous.Hash != current.Hash
	if changed {
		logger.Info(
			colors.Bold, "artifacts: ", colors.Reset,
			"built a ", colors.GreenBold, "new", colors.Reset, " set of artifacts",
		)
		// Caches written without per-contract hashes cannot say which contracts changed.
		if previous != nil && len(previous.Contracts) > 0 {
			logger.Debug("Changed contracts: ", strings.Join(ChangedContracts(previous.Contracts, current.Contracts), ", "))
		}
	} else {
		logger.Warn(
			colors.Bold, "artifacts: ", colors.Reset,
			"built the ", colors.YellowBold, "same", colors.Reset,
			" artifacts as previously (last build: ", formatDuration(time.Since(previous.Timestamp)), " ago)",
		)
	}

	if err := SaveArtifactHashCache(cacheDirectory, current); err != nil {
		logger.Warn("Failed to save artifact hash cache", err)
	}
	return changed
}

// durationUnits lists the units formatDuration reports in, largest first.
var durationUnits = []struct {
	name string
	size time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
}

// formatDuration formats a duration in its largest whole unit, e.g. "3 hours".
func formatDuration(d time.Duration) string {
	for _, unit := range durationUnits {
		if d < unit.size {
			continue
		}
		count := int(d / unit.size)
		if count == 1 {
			return "1 " + unit.name
		}
		return fmt.Sprintf("%d %ss", count, unit.name)
	}
	return fmt.Sprintf("%d seconds", int(d.Seconds()))
}

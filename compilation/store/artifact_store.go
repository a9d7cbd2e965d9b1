package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	// DatabaseFileName is the name of the artifact database file within the build directory.
	DatabaseFileName = "artifacts.db"

	// artifactsBucket is the bucket holding artifacts keyed by contract name.
	artifactsBucket = "artifacts"
)

// ErrArtifactNotFound indicates no artifact is stored under the requested contract name.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists artifacts to a database on disk, keyed by contract name.
type ArtifactStore struct {
	db *bbolt.DB

	closeOnce sync.Once
	closeErr  error

	// closed is closed by Close, which stops the goroutine watching the context.
	closed chan struct{}

	// watcherDone is closed once the goroutine watching the context has exited.
	watcherDone chan struct{}

	logger *logging.Logger
}

// Open opens, or creates, the artifact database within the provided build directory. The database is closed when the
// context is cancelled or Close is called.
func Open(ctx context.Context, buildDirectory string) (*ArtifactStore, error) {
	if err := utils.MakeDirectory(buildDirectory); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(buildDirectory, DatabaseFileName)
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open artifact database %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}

	s := &ArtifactStore{
		db:          db,
		closed:      make(chan struct{}),
		watcherDone: make(chan struct{}),
		logger:      logging.GlobalLogger.NewSubLogger("module", logging.STORE_SERVICE),
	}

	go func() {
		defer close(s.watcherDone)
		select {
		case <-ctx.Done():
			if err := s.Close(); err != nil {
				s.logger.Error("Failed to close artifact database", err)
			}
		case <-s.closed:
		}
	}()

	return s, nil
}

// PutAll writes every artifact in a single transaction, replacing any stored artifact with the same contract name.
func (s *ArtifactStore) PutAll(artifacts types.Artifacts) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(artifactsBucket))
		for _, name := range artifacts.Names() {
			data, err := json.Marshal(artifacts[name])
			if err != nil {
				return err
			}
			if err = bucket.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "could not store artifacts")
	}
	s.logger.Debug("Stored ", len(artifacts), " artifact(s)")
	return nil
}

// Get returns the artifact stored under the provided contract name, or ErrArtifactNotFound.
func (s *ArtifactStore) Get(name string) (*types.Artifact, error) {
	var artifact *types.Artifact
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(artifactsBucket)).Get([]byte(name))
		if data == nil {
			return nil
		}
		artifact = &types.Artifact{}
		return json.Unmarshal(data, artifact)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not read artifact '%s'", name)
	}
	if artifact == nil {
		return nil, errors.Wrapf(ErrArtifactNotFound, "'%s'", name)
	}
	artifact.EmbeddedMetadata = types.ExtractContractMetadataFromHex(artifact.RuntimeBytecode)
	return artifact, nil
}

// Names returns the stored contract names in sorted order.
func (s *ArtifactStore) Names() ([]string, error) {
	names := make([]string, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return names, nil
}

// Close closes the database. It is safe to call more than once.
func (s *ArtifactStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// ArtifactStore owns the backup directory: it resolves artifact paths and
// answers existence/size queries. It never deletes anything; retention is
// external tooling's job.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the backup directory if absent. A directory that
// cannot be created surfaces as a storage engine error.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewStorageError(fmt.Sprintf("failed to create backup directory %s", dir), err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the backup directory root.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// ResolveBackupPath builds the deterministic artifact path for one backup:
// <database>_<scope>_<timestamp>.sql<ext>. Timestamp plus scope keeps
// concurrent operations on distinct filenames.
func (s *ArtifactStore) ResolveBackupPath(ts time.Time, database string, schemas []string, ext string) string {
	filename := fmt.Sprintf("%s_%s_%s.sql%s",
		database,
		domain.ScopeMarker(schemas),
		ts.Format("20060102_150405"),
		ext,
	)
	return filepath.Join(s.dir, filename)
}

// Exists reports whether path names an existing regular file.
func (s *ArtifactStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the file size in bytes.
func (s *ArtifactStore) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, domain.NewStorageError(fmt.Sprintf("failed to stat %s", path), err)
	}
	return info.Size(), nil
}

// List returns the artifacts currently stored in the backup directory,
// newest first.
func (s *ArtifactStore) List() ([]domain.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewStorageError(fmt.Sprintf("failed to read backup directory %s", s.dir), err)
	}

	var artifacts []domain.Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, domain.Artifact{
			Path:      filepath.Join(s.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

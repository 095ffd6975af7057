package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// Logger is the minimal logging surface the orchestrators need.
type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// ToolKit builds the dump/restore tool invocations.
type ToolKit interface {
	DumpCommand(schemas, tables []string, out io.Writer) domain.Command
	RestoreCommand(schemas, tables []string, in io.Reader) domain.Command
}

// Preflight covers the checks run before a dump subprocess is started.
type Preflight interface {
	Ping(ctx context.Context) error
	CheckVersionCompatibility(ctx context.Context) error
}

// ArtifactStore is the slice of the storage adapter the orchestrators use.
type ArtifactStore interface {
	ResolveBackupPath(ts time.Time, database string, schemas []string, ext string) string
	Size(path string) (int64, error)
}

// UploadTarget is one remote destination for verified artifacts.
type UploadTarget struct {
	Name     string
	Uploader domain.Uploader
}

// Backup orchestrates one backup operation: validate, dump through the
// codec into the artifact store, verify, then fan out uploads. Any failure
// removes the partial artifact so a broken file never looks like a backup.
type Backup struct {
	database  string
	store     ArtifactStore
	runner    domain.ProcessRunner
	tools     ToolKit
	codec     domain.Codec
	verifier  *Verifier
	preflight Preflight
	uploads   []UploadTarget
	logger    Logger
}

func NewBackup(
	database string,
	store ArtifactStore,
	runner domain.ProcessRunner,
	tools ToolKit,
	codec domain.Codec,
	verifier *Verifier,
	preflight Preflight,
	uploads []UploadTarget,
	logger Logger,
) *Backup {
	return &Backup{
		database:  database,
		store:     store,
		runner:    runner,
		tools:     tools,
		codec:     codec,
		verifier:  verifier,
		preflight: preflight,
		uploads:   uploads,
		logger:    logger,
	}
}

func (uc *Backup) Execute(ctx context.Context, req domain.BackupRequest) *domain.OperationResult {
	start := time.Now()
	var diags []string

	fail := func(err error, exitCode *int) *domain.OperationResult {
		uc.logger.Errorf("[%s] Backup failed: %v", uc.database, err)
		return &domain.OperationResult{
			Success:     false,
			Diagnostics: append(diags, err.Error()),
			ExitCode:    exitCode,
			Err:         err,
		}
	}

	schemas, err := domain.NormalizeSchemas(req.Schemas)
	if err != nil {
		return fail(err, nil)
	}
	tables, err := domain.NormalizeTables(req.Tables)
	if err != nil {
		return fail(err, nil)
	}
	uc.logger.Infof("[%s] Starting backup, scope: %s", uc.database, domain.ScopeMarker(schemas))
	if len(tables) > 0 {
		uc.logger.Infof("[%s] Restricting dump to %d table(s)", uc.database, len(tables))
	}

	if uc.preflight != nil {
		if err := uc.preflight.Ping(ctx); err != nil {
			return fail(err, nil)
		}
		if err := uc.preflight.CheckVersionCompatibility(ctx); err != nil {
			return fail(err, nil)
		}
	}

	requestedAt := req.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = time.Now()
	}

	path := uc.store.ResolveBackupPath(requestedAt, uc.database, schemas, uc.codec.Extension())
	diags = append(diags, fmt.Sprintf("artifact path: %s", path))

	file, err := os.Create(path)
	if err != nil {
		return fail(domain.NewStorageError(fmt.Sprintf("failed to create artifact %s", path), err), nil)
	}

	discard := func() {
		file.Close()
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			uc.logger.Warnf("[%s] Failed to remove partial artifact %s: %v", uc.database, path, rmErr)
		}
	}

	compressed, err := uc.codec.NewWriter(file)
	if err != nil {
		discard()
		return fail(err, nil)
	}

	res, runErr := uc.runner.Run(ctx, uc.tools.DumpCommand(schemas, tables, compressed))
	closeErr := compressed.Close()

	if runErr != nil {
		discard()
		return fail(runErr, nil)
	}
	if res.Stderr != "" {
		diags = append(diags, res.Stderr)
	}
	if res.ExitCode != 0 {
		discard()
		return fail(domain.NewToolError(
			fmt.Sprintf("pg_dump exited with code %d", res.ExitCode), res.ExitCode, res.Stderr),
			&res.ExitCode)
	}
	if closeErr != nil {
		discard()
		return fail(domain.NewCompressionError("failed to finalize compressed artifact", closeErr), &res.ExitCode)
	}
	if err := file.Close(); err != nil {
		discard()
		return fail(domain.NewStorageError(fmt.Sprintf("failed to close artifact %s", path), err), &res.ExitCode)
	}

	size, err := uc.store.Size(path)
	if err != nil {
		return fail(err, &res.ExitCode)
	}

	artifact := &domain.Artifact{
		Path:      path,
		Format:    uc.codec.Name(),
		Size:      size,
		CreatedAt: requestedAt,
	}
	uc.logger.Infof("[%s] Dump complete, size: %.2f MB", uc.database, float64(size)/(1024*1024))

	if err := uc.verifier.Verify(artifact); err != nil {
		discard()
		return fail(err, &res.ExitCode)
	}
	diags = append(diags, "artifact verified")

	diags = append(diags, uc.uploadArtifact(ctx, artifact)...)

	uc.logger.Infof("[%s] Backup completed in %s: %s",
		uc.database, time.Since(start).Round(time.Second), path)

	return &domain.OperationResult{
		Success:     true,
		Artifact:    artifact,
		Diagnostics: diags,
		ExitCode:    &res.ExitCode,
	}
}

// uploadArtifact fans the verified artifact out to every configured target.
// Upload failures are diagnostics, never retroactive backup failures.
func (uc *Backup) uploadArtifact(ctx context.Context, artifact *domain.Artifact) []string {
	if len(uc.uploads) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		notes []string
		wg    sync.WaitGroup
	)
	remoteName := filepath.Base(artifact.Path)

	for _, target := range uc.uploads {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			uc.logger.Infof("[%s] Uploading to %s...", uc.database, t.Name)
			err := t.Uploader.Upload(ctx, artifact.Path, remoteName)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uc.logger.Errorf("[%s] Failed to upload to %s: %v", uc.database, t.Name, err)
				notes = append(notes, fmt.Sprintf("upload to %s failed: %v", t.Name, err))
			} else {
				uc.logger.Infof("[%s] Successfully uploaded to %s", uc.database, t.Name)
				notes = append(notes, fmt.Sprintf("uploaded to %s", t.Name))
			}
		}(target)
	}

	wg.Wait()
	return notes
}

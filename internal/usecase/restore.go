package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// Restore orchestrates one restore operation. The artifact is structurally
// verified before the restore subprocess is ever started, so corrupt input
// fails fast instead of leaving the target database half-restored.
type Restore struct {
	database string
	runner   domain.ProcessRunner
	tools    ToolKit
	resolve  CodecResolver
	verifier *Verifier
	logger   Logger
}

func NewRestore(
	database string,
	runner domain.ProcessRunner,
	tools ToolKit,
	resolve CodecResolver,
	verifier *Verifier,
	logger Logger,
) *Restore {
	return &Restore{
		database: database,
		runner:   runner,
		tools:    tools,
		resolve:  resolve,
		verifier: verifier,
		logger:   logger,
	}
}

func (uc *Restore) Execute(ctx context.Context, req domain.RestoreRequest) *domain.OperationResult {
	start := time.Now()
	var diags []string

	fail := func(err error, exitCode *int) *domain.OperationResult {
		uc.logger.Errorf("[%s] Restore failed: %v", uc.database, err)
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

	info, err := os.Stat(req.ArtifactPath)
	if err != nil || info.IsDir() {
		return fail(domain.NewValidationError(
			fmt.Sprintf("artifact %s does not exist or is not a file", req.ArtifactPath), err), nil)
	}

	artifact := &domain.Artifact{
		Path:      req.ArtifactPath,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}
	uc.logger.Infof("[%s] Starting restore from %s, scope: %s",
		uc.database, req.ArtifactPath, domain.ScopeMarker(schemas))

	if err := uc.verifier.Verify(artifact); err != nil {
		return fail(err, nil)
	}
	diags = append(diags, "artifact verified")

	codec, err := uc.resolve(req.ArtifactPath)
	if err != nil {
		return fail(err, nil)
	}

	file, err := os.Open(req.ArtifactPath)
	if err != nil {
		return fail(domain.NewValidationError(
			fmt.Sprintf("artifact %s is not readable", req.ArtifactPath), err), nil)
	}
	defer file.Close()

	stream, err := codec.NewReader(file)
	if err != nil {
		return fail(err, nil)
	}
	defer stream.Close()

	res, runErr := uc.runner.Run(ctx, uc.tools.RestoreCommand(schemas, tables, stream))
	if runErr != nil {
		return fail(runErr, nil)
	}
	if res.Stderr != "" {
		diags = append(diags, res.Stderr)
	}
	if res.ExitCode != 0 {
		return fail(domain.NewToolError(
			fmt.Sprintf("restore tool exited with code %d", res.ExitCode), res.ExitCode, res.Stderr),
			&res.ExitCode)
	}

	uc.logger.Infof("[%s] Restore completed in %s", uc.database, time.Since(start).Round(time.Second))

	return &domain.OperationResult{
		Success:     true,
		Artifact:    artifact,
		Diagnostics: diags,
		ExitCode:    &res.ExitCode,
	}
}

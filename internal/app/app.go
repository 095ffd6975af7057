package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvault/pgvault/internal/adapter/compressor"
	"github.com/pgvault/pgvault/internal/adapter/postgres"
	"github.com/pgvault/pgvault/internal/adapter/storage"
	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/domain"
	"github.com/pgvault/pgvault/internal/infrastructure/logger"
	"github.com/pgvault/pgvault/internal/infrastructure/scheduler"
	"github.com/pgvault/pgvault/internal/usecase"
)

// App wires the engine together for one process: adapters, orchestrators
// and the optional scheduled mode. All state flows in through the explicit
// config; nothing is process-global.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	store      *storage.ArtifactStore
	verifier   *usecase.Verifier
	backupUC   *usecase.Backup
	restoreUC  *usecase.Restore
	transferUC *usecase.CSVTransfer
	notifiers  []Notifier
}

// Notifier receives out-of-band alerts about failed operations.
type Notifier interface {
	Notify(message string) error
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.NewArtifactStore(cfg.Backup.Dir)
	if err != nil {
		return nil, err
	}

	codec, err := compressor.ForFormat(cfg.Backup.Compression)
	if err != nil {
		return nil, err
	}

	runner := postgres.NewRunner(cfg.Backup.Timeout)
	tools := postgres.NewTools(&cfg.Database)
	client := postgres.NewClient(runner, tools)

	resolve := func(path string) (domain.Codec, error) {
		return compressor.ForPath(path, cfg.Backup.Compression)
	}
	verifier := usecase.NewVerifier(resolve)

	uploads, notifiers := initializeUploadTargets(cfg, log)

	return &App{
		config:    cfg,
		logger:    log,
		store:     store,
		verifier:  verifier,
		notifiers: notifiers,
		backupUC: usecase.NewBackup(
			cfg.Database.Database, store, runner, tools, codec, verifier, client, uploads, log),
		restoreUC: usecase.NewRestore(
			cfg.Database.Database, runner, tools, resolve, verifier, log),
		transferUC: usecase.NewCSVTransfer(runner, tools, client, store.Dir(), log),
	}, nil
}

func initializeUploadTargets(cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, []Notifier) {
	var targets []usecase.UploadTarget
	var notifiers []Notifier

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var uploader domain.Uploader
		var err error

		switch targetCfg.Type {
		case "s3":
			uploader, err = storage.NewS3(&targetCfg)
		case "gdrive":
			uploader, err = storage.NewGDrive(&targetCfg)
		case "telegram":
			telegram, tgErr := storage.NewTelegram(&targetCfg)
			if tgErr == nil {
				notifiers = append(notifiers, telegram)
			}
			uploader, err = telegram, tgErr
		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}
		if err != nil {
			log.Errorf("Failed to initialize %s target: %v", targetCfg.Type, err)
			continue
		}

		log.Infof("✓ %s upload enabled", targetCfg.Type)
		targets = append(targets, usecase.UploadTarget{
			Name:     targetCfg.Type,
			Uploader: uploader,
		})
	}

	return targets, notifiers
}

// alertFailure pushes a failure alert to every configured notifier.
func (a *App) alertFailure(operation string, err error) {
	if len(a.notifiers) == 0 {
		return
	}
	message := fmt.Sprintf("❌ %s failed for %s\n\n%v", operation, a.config.Database.Database, err)
	for _, notifier := range a.notifiers {
		if notifyErr := notifier.Notify(message); notifyErr != nil {
			a.logger.Errorf("Failed to send failure alert: %v", notifyErr)
		}
	}
}

// Backup runs one backup operation for the given schema and table scope.
func (a *App) Backup(ctx context.Context, schemas, tables []string) *domain.OperationResult {
	result := a.backupUC.Execute(ctx, domain.BackupRequest{
		Schemas:     schemas,
		Tables:      tables,
		RequestedAt: time.Now(),
	})
	if !result.Success {
		a.alertFailure("Backup", result.Err)
	}
	return result
}

// Restore runs one restore operation from the given artifact.
func (a *App) Restore(ctx context.Context, artifactPath string, schemas, tables []string) *domain.OperationResult {
	result := a.restoreUC.Execute(ctx, domain.RestoreRequest{
		ArtifactPath: artifactPath,
		Schemas:      schemas,
		Tables:       tables,
	})
	if !result.Success {
		a.alertFailure("Restore", result.Err)
	}
	return result
}

// Verify structurally checks an existing artifact.
func (a *App) Verify(artifactPath string) error {
	if !a.store.Exists(artifactPath) {
		return domain.NewValidationError(
			fmt.Sprintf("artifact %s does not exist", artifactPath), nil)
	}
	return a.verifier.Verify(&domain.Artifact{Path: artifactPath})
}

// ListArtifacts returns the stored artifacts, newest first.
func (a *App) ListArtifacts() ([]domain.Artifact, error) {
	return a.store.List()
}

// ExportCSV exports the given tables (all user tables when empty) as CSV.
func (a *App) ExportCSV(ctx context.Context, tables []string, outDir string) error {
	return a.transferUC.Export(ctx, tables, outDir)
}

// ImportCSV imports CSV files into their tables.
func (a *App) ImportCSV(ctx context.Context, files []string, inputDir string, truncate bool) error {
	return a.transferUC.Import(ctx, files, inputDir, truncate)
}

// RunScheduled runs full backups on the configured cron expression until
// ctx is cancelled.
func (a *App) RunScheduled(ctx context.Context) error {
	if a.config.Schedule == "" {
		return fmt.Errorf("schedule is not configured")
	}

	sched := scheduler.New(ctx, a.logger)
	err := sched.AddJob("backup", a.config.Schedule, func(ctx context.Context) error {
		result := a.backupUC.Execute(ctx, domain.BackupRequest{RequestedAt: time.Now()})
		if !result.Success {
			a.alertFailure("Scheduled backup", result.Err)
			return result.Err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	sched.Start()
	a.logger.Infof("Scheduled backups running: %s", a.config.Schedule)

	<-ctx.Done()
	sched.Stop()
	return nil
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

func (a *App) Shutdown() {
	a.logger.Close()
}

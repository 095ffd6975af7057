package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgvault/pgvault/internal/domain"
)

// CopyToolKit builds the per-table \COPY invocations.
type CopyToolKit interface {
	CopyOutCommand(table string, out io.Writer) domain.Command
	CopyInCommand(table string, in io.Reader) domain.Command
	TruncateCommand(table string) domain.Command
}

// TableLister enumerates user tables as "schema.table".
type TableLister interface {
	ListTables(ctx context.Context) ([]string, error)
}

// CSVTransfer exports tables to per-table CSV files and imports them back,
// streaming through psql \COPY. One failing table does not abort the rest;
// all failures are reported together.
type CSVTransfer struct {
	runner domain.ProcessRunner
	tools  CopyToolKit
	lister TableLister
	outDir string
	logger Logger
}

func NewCSVTransfer(
	runner domain.ProcessRunner,
	tools CopyToolKit,
	lister TableLister,
	outDir string,
	logger Logger,
) *CSVTransfer {
	return &CSVTransfer{
		runner: runner,
		tools:  tools,
		lister: lister,
		outDir: outDir,
		logger: logger,
	}
}

// Export writes each table as <schema>.<table>.csv under outDir (the backup
// directory when outDir is empty). An empty table list means every user
// table.
func (uc *CSVTransfer) Export(ctx context.Context, tables []string, outDir string) error {
	if outDir == "" {
		outDir = uc.outDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return domain.NewStorageError(fmt.Sprintf("failed to create output directory %s", outDir), err)
	}

	if len(tables) == 0 {
		var err error
		tables, err = uc.lister.ListTables(ctx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return domain.NewValidationError("no tables found to export", nil)
		}
		uc.logger.Infof("Found %d table(s) to export", len(tables))
	}

	var failures []error
	for _, table := range tables {
		if err := validTableName(table); err != nil {
			failures = append(failures, err)
			continue
		}
		if err := uc.exportTable(ctx, table, outDir); err != nil {
			uc.logger.Errorf("Failed to export %s: %v", table, err)
			failures = append(failures, fmt.Errorf("export %s: %w", table, err))
			continue
		}
		uc.logger.Infof("Exported %s", table)
	}
	return errors.Join(failures...)
}

func (uc *CSVTransfer) exportTable(ctx context.Context, table, outDir string) error {
	outPath := filepath.Join(outDir, table+".csv")
	file, err := os.Create(outPath)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("failed to create %s", outPath), err)
	}
	defer file.Close()

	res, err := uc.runner.Run(ctx, uc.tools.CopyOutCommand(table, file))
	if err != nil {
		os.Remove(outPath)
		return err
	}
	if res.ExitCode != 0 {
		os.Remove(outPath)
		return domain.NewToolError(
			fmt.Sprintf("copy out exited with code %d", res.ExitCode), res.ExitCode, res.Stderr)
	}
	return nil
}

// Import loads CSV files into their tables, deriving the table from the
// <schema>.<table>.csv filename. Either explicit files or a directory of
// *.csv must be given. With truncate, each table is emptied first.
func (uc *CSVTransfer) Import(ctx context.Context, files []string, inputDir string, truncate bool) error {
	if len(files) == 0 {
		if inputDir == "" {
			return domain.NewValidationError("either csv files or an input directory is required", nil)
		}
		matches, err := filepath.Glob(filepath.Join(inputDir, "*.csv"))
		if err != nil || len(matches) == 0 {
			return domain.NewValidationError(fmt.Sprintf("no csv files found in %s", inputDir), err)
		}
		files = matches
		uc.logger.Infof("Found %d csv file(s) to import", len(files))
	}

	var failures []error
	for _, path := range files {
		table, err := tableFromFilename(path)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if err := uc.importTable(ctx, table, path, truncate); err != nil {
			uc.logger.Errorf("Failed to import %s: %v", path, err)
			failures = append(failures, fmt.Errorf("import %s: %w", path, err))
			continue
		}
		uc.logger.Infof("Imported %s into %s", path, table)
	}
	return errors.Join(failures...)
}

func (uc *CSVTransfer) importTable(ctx context.Context, table, path string, truncate bool) error {
	if truncate {
		res, err := uc.runner.Run(ctx, uc.tools.TruncateCommand(table))
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return domain.NewToolError(
				fmt.Sprintf("truncate exited with code %d", res.ExitCode), res.ExitCode, res.Stderr)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError(fmt.Sprintf("csv file %s is not readable", path), err)
	}
	defer file.Close()

	res, err := uc.runner.Run(ctx, uc.tools.CopyInCommand(table, file))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return domain.NewToolError(
			fmt.Sprintf("copy in exited with code %d", res.ExitCode), res.ExitCode, res.Stderr)
	}
	return nil
}

// validTableName checks a "schema.table" reference against the identifier
// allow-list; both parts are passed into SQL text, so nothing outside the
// pattern gets through.
func validTableName(table string) error {
	if !domain.ValidTableName(table) {
		return domain.NewValidationError(
			fmt.Sprintf("invalid table reference %q: expected schema.table", table), nil)
	}
	return nil
}

func tableFromFilename(path string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(path), ".csv")
	if err := validTableName(stem); err != nil {
		return "", err
	}
	return stem, nil
}

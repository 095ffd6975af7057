package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Artifact is a compressed dump file produced by a backup and consumed,
// never mutated, by restore and verify.
type Artifact struct {
	Path      string
	Format    string
	Size      int64
	CreatedAt time.Time
}

// BackupRequest describes one backup operation. An empty Schemas set means
// the whole database; Tables optionally narrows the dump to specific
// "schema.table" references.
type BackupRequest struct {
	Schemas     []string
	Tables      []string
	RequestedAt time.Time
}

// RestoreRequest describes one restore operation. An empty Schemas set means
// a full restore; Tables optionally narrows it to specific "schema.table"
// references.
type RestoreRequest struct {
	ArtifactPath string
	Schemas      []string
	Tables       []string
}

// OperationResult is the sole return value of an orchestrated operation.
// ExitCode is nil when no subprocess was ever launched.
type OperationResult struct {
	Success     bool
	Artifact    *Artifact
	Diagnostics []string
	ExitCode    *int
	Err         error
}

// schemaNamePattern is the identifier allow-list for schema names passed to
// the dump/restore tools. 63 is PostgreSQL's NAMEDATALEN-1. Names are passed
// as separate argv elements, never through a shell, so this check is the
// only quoting layer needed.
var schemaNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)

// ValidSchemaName reports whether name is an acceptable schema identifier.
func ValidSchemaName(name string) bool {
	return schemaNamePattern.MatchString(name)
}

// NormalizeSchemas validates the requested schema names, collapses
// duplicates and returns them sorted. An empty input stays empty, meaning
// "all schemas".
func NormalizeSchemas(schemas []string) ([]string, error) {
	if len(schemas) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(schemas))
	out := make([]string, 0, len(schemas))
	for _, name := range schemas {
		if !ValidSchemaName(name) {
			return nil, NewValidationError(fmt.Sprintf("invalid schema name %q: must match [A-Za-z0-9_]{1,63}", name), nil)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	sort.Strings(out)
	return out, nil
}

// ValidTableName reports whether table is an acceptable "schema.table"
// reference. Both parts follow the schema identifier allow-list.
func ValidTableName(table string) bool {
	schema, name, ok := strings.Cut(table, ".")
	return ok && ValidSchemaName(schema) && ValidSchemaName(name)
}

// NormalizeTables validates the requested "schema.table" references,
// collapses duplicates and returns them sorted. An empty input stays empty,
// meaning no table filter.
func NormalizeTables(tables []string) ([]string, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, table := range tables {
		if !ValidTableName(table) {
			return nil, NewValidationError(fmt.Sprintf("invalid table reference %q: expected schema.table", table), nil)
		}
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		out = append(out, table)
	}

	sort.Strings(out)
	return out, nil
}

// ScopeMarker returns the schema-scope fragment embedded in artifact
// filenames: "full" for a whole-database operation, otherwise the sorted
// schema names joined with '-'.
func ScopeMarker(schemas []string) string {
	if len(schemas) == 0 {
		return "full"
	}
	return strings.Join(schemas, "-")
}

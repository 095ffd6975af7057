package postgres

import (
	"fmt"
	"io"
	"os"

	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/domain"
)

// Tools builds pg_dump/psql invocations for one connection profile. Schema
// names arrive pre-validated and are passed as separate argv elements, never
// through a shell.
type Tools struct {
	cfg *config.DatabaseConfig
}

func NewTools(cfg *config.DatabaseConfig) *Tools {
	return &Tools{cfg: cfg}
}

// env is the complete child environment: PATH for binary helpers plus the
// connection/authentication variables. Nothing else leaks from the parent.
func (t *Tools) env() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"PGPASSWORD=" + t.cfg.Password,
	}
	if t.cfg.SSLMode != "" {
		env = append(env, "PGSSLMODE="+t.cfg.SSLMode)
	}
	return env
}

func (t *Tools) connectionArgs() []string {
	return []string{
		fmt.Sprintf("--host=%s", t.cfg.Host),
		fmt.Sprintf("--port=%d", t.cfg.Port),
		fmt.Sprintf("--username=%s", t.cfg.Username),
		fmt.Sprintf("--dbname=%s", t.cfg.Database),
		"--no-password",
	}
}

// DumpCommand emits a plain-format dump on stdout, optionally restricted to
// the given schemas and "schema.table" references.
func (t *Tools) DumpCommand(schemas, tables []string, out io.Writer) domain.Command {
	args := append(t.connectionArgs(), "--format=plain")
	for _, schema := range schemas {
		args = append(args, "--schema="+schema)
	}
	for _, table := range tables {
		args = append(args, "--table="+table)
	}
	return domain.Command{Path: "pg_dump", Args: args, Env: t.env(), Stdout: out}
}

// RestoreCommand feeds a plain-format dump from stdin into psql, stopping at
// the first error so a broken dump cannot half-apply silently. Schema and
// table restrictions mirror the dump-side flags.
func (t *Tools) RestoreCommand(schemas, tables []string, in io.Reader) domain.Command {
	args := append(t.connectionArgs(), "--set=ON_ERROR_STOP=1", "--quiet")
	for _, schema := range schemas {
		args = append(args, "-n", schema)
	}
	for _, table := range tables {
		args = append(args, "-t", table)
	}
	return domain.Command{Path: "psql", Args: args, Env: t.env(), Stdin: in}
}

// QueryCommand runs a single SQL statement through psql with unaligned,
// tuples-only output captured into out.
func (t *Tools) QueryCommand(sql string, out io.Writer) domain.Command {
	args := append(t.connectionArgs(), "--tuples-only", "--no-align", "--command", sql)
	return domain.Command{Path: "psql", Args: args, Env: t.env(), Stdout: out}
}

// PingCommand checks connectivity against the configured database.
func (t *Tools) PingCommand() domain.Command {
	args := append(t.connectionArgs(), "--command", "SELECT 1")
	return domain.Command{Path: "psql", Args: args, Env: t.env()}
}

// DumpVersionCommand reports the pg_dump client version.
func (t *Tools) DumpVersionCommand(out io.Writer) domain.Command {
	return domain.Command{
		Path:   "pg_dump",
		Args:   []string{"--version"},
		Env:    []string{"PATH=" + os.Getenv("PATH")},
		Stdout: out,
	}
}

// CopyOutCommand streams one table as CSV (with header) to out.
func (t *Tools) CopyOutCommand(table string, out io.Writer) domain.Command {
	copySQL := fmt.Sprintf(`\COPY %s TO STDOUT WITH CSV HEADER`, table)
	args := append(t.connectionArgs(), "--command", copySQL)
	return domain.Command{Path: "psql", Args: args, Env: t.env(), Stdout: out}
}

// CopyInCommand loads CSV rows (with header) for one table from in.
func (t *Tools) CopyInCommand(table string, in io.Reader) domain.Command {
	copySQL := fmt.Sprintf(`\COPY %s FROM STDIN WITH CSV HEADER`, table)
	args := append(t.connectionArgs(), "--set=ON_ERROR_STOP=1", "--command", copySQL)
	return domain.Command{Path: "psql", Args: args, Env: t.env(), Stdin: in}
}

// TruncateCommand empties one table ahead of a CSV import.
func (t *Tools) TruncateCommand(table string) domain.Command {
	args := append(t.connectionArgs(), "--set=ON_ERROR_STOP=1", "--command",
		fmt.Sprintf("TRUNCATE TABLE %s", table))
	return domain.Command{Path: "psql", Args: args, Env: t.env()}
}

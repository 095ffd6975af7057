package postgres

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvault/pgvault/internal/domain"
)

// Client answers pre-flight questions about the server and the client
// tooling through the same runner the engine uses for dumps.
type Client struct {
	runner domain.ProcessRunner
	tools  *Tools
}

func NewClient(runner domain.ProcessRunner, tools *Tools) *Client {
	return &Client{runner: runner, tools: tools}
}

// Ping verifies connectivity to the configured database.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.runner.Run(ctx, c.tools.PingCommand())
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return domain.NewToolError("database ping failed", res.ExitCode, res.Stderr)
	}
	return nil
}

// ServerVersion reports the server version string, e.g. "16.4".
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var out bytes.Buffer
	res, err := c.runner.Run(ctx, c.tools.QueryCommand("SHOW server_version", &out))
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", domain.NewToolError("failed to query server version", res.ExitCode, res.Stderr)
	}

	version := strings.Fields(strings.TrimSpace(out.String()))
	if len(version) == 0 {
		return "", fmt.Errorf("empty server version response")
	}
	return version[0], nil
}

// DumpToolVersion reports the pg_dump client version, e.g. "16.4".
func (c *Client) DumpToolVersion(ctx context.Context) (string, error) {
	var out bytes.Buffer
	res, err := c.runner.Run(ctx, c.tools.DumpVersionCommand(&out))
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", domain.NewToolError("failed to query pg_dump version", res.ExitCode, res.Stderr)
	}

	// pg_dump prints "pg_dump (PostgreSQL) 16.4".
	fields := strings.Fields(strings.TrimSpace(out.String()))
	if len(fields) < 3 {
		return "", fmt.Errorf("unexpected pg_dump version output %q", out.String())
	}
	return fields[2], nil
}

// CheckVersionCompatibility fails when pg_dump is older than the server's
// major version; such dumps can silently miss newer catalog objects.
func (c *Client) CheckVersionCompatibility(ctx context.Context) error {
	serverVersion, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}
	dumpVersion, err := c.DumpToolVersion(ctx)
	if err != nil {
		return err
	}

	serverMajor, err := majorVersion(serverVersion)
	if err != nil {
		return err
	}
	dumpMajor, err := majorVersion(dumpVersion)
	if err != nil {
		return err
	}

	if dumpMajor < serverMajor {
		return domain.NewValidationError(fmt.Sprintf(
			"pg_dump %s is older than server %s: update pg_dump to version %d or newer",
			dumpVersion, serverVersion, serverMajor), nil)
	}
	return nil
}

// ListTables returns all user tables as "schema.table", ordered.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	const query = `SELECT schemaname || '.' || tablename
		FROM pg_tables
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schemaname, tablename`

	var out bytes.Buffer
	res, err := c.runner.Run(ctx, c.tools.QueryCommand(query, &out))
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, domain.NewToolError("failed to list tables", res.ExitCode, res.Stderr)
	}

	var tables []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tables = append(tables, line)
		}
	}
	return tables, nil
}

func majorVersion(version string) (int, error) {
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("unparseable PostgreSQL version %q", version)
	}
	return n, nil
}

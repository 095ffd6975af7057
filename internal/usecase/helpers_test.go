package usecase

import (
	"context"
	"io"
	"os"

	"github.com/pgvault/pgvault/internal/adapter/compressor"
	"github.com/pgvault/pgvault/internal/domain"
)

const sampleDump = `--
-- PostgreSQL database dump
--

CREATE TABLE public.orders (id integer PRIMARY KEY);
INSERT INTO public.orders VALUES (1);

--
-- PostgreSQL database dump complete
--
`

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// fakeRunner stands in for the subprocess layer: it writes canned bytes to
// the command's stdout sink and drains its stdin.
type fakeRunner struct {
	stdout   []byte
	exitCode int
	stderr   string
	err      error

	invoked  int
	lastCmd  domain.Command
	consumed []byte
}

func (r *fakeRunner) Run(_ context.Context, cmd domain.Command) (*domain.ProcessResult, error) {
	r.invoked++
	r.lastCmd = cmd
	if r.err != nil {
		return nil, r.err
	}
	if cmd.Stdout != nil && len(r.stdout) > 0 {
		if _, err := cmd.Stdout.Write(r.stdout); err != nil {
			return nil, err
		}
	}
	if cmd.Stdin != nil {
		consumed, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return nil, err
		}
		r.consumed = consumed
	}
	return &domain.ProcessResult{ExitCode: r.exitCode, Stderr: r.stderr}, nil
}

type fakeToolKit struct{}

func (fakeToolKit) DumpCommand(schemas, tables []string, out io.Writer) domain.Command {
	args := make([]string, 0, len(schemas)+len(tables))
	for _, schema := range schemas {
		args = append(args, "--schema="+schema)
	}
	for _, table := range tables {
		args = append(args, "--table="+table)
	}
	return domain.Command{Path: "pg_dump", Args: args, Stdout: out}
}

func (fakeToolKit) RestoreCommand(schemas, tables []string, in io.Reader) domain.Command {
	args := make([]string, 0, 2*(len(schemas)+len(tables)))
	for _, schema := range schemas {
		args = append(args, "-n", schema)
	}
	for _, table := range tables {
		args = append(args, "-t", table)
	}
	return domain.Command{Path: "psql", Args: args, Stdin: in}
}

func resolveByExtension(path string) (domain.Codec, error) {
	return compressor.ForPath(path, "gzip")
}

// writeArtifact compresses payload into a fresh artifact at path.
func writeArtifact(path string, payload []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	codec, err := resolveByExtension(path)
	if err != nil {
		return err
	}
	w, err := codec.NewWriter(file)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Close()
}

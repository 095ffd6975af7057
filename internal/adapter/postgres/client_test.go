package postgres

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pgvault/pgvault/internal/domain"
)

// scriptedRunner returns canned output per binary path instead of launching
// anything.
type scriptedRunner struct {
	stdout   map[string]string
	exitCode int
	stderr   string
	invoked  []string
}

func (r *scriptedRunner) Run(_ context.Context, spec domain.Command) (*domain.ProcessResult, error) {
	r.invoked = append(r.invoked, spec.Path)
	if spec.Stdout != nil {
		if out, ok := r.stdout[spec.Path]; ok {
			if _, err := spec.Stdout.Write([]byte(out)); err != nil {
				return nil, err
			}
		}
	}
	return &domain.ProcessResult{ExitCode: r.exitCode, Stderr: r.stderr}, nil
}

func TestClient(t *testing.T) {
	Convey("Given a pre-flight client", t, func() {
		ctx := context.Background()
		tools := testTools()

		Convey("Ping", func() {
			Convey("When the database answers", func() {
				runner := &scriptedRunner{}
				client := NewClient(runner, tools)

				So(client.Ping(ctx), ShouldBeNil)
				So(runner.invoked, ShouldResemble, []string{"psql"})
			})

			Convey("When psql exits non-zero", func() {
				runner := &scriptedRunner{exitCode: 2, stderr: "could not connect to server"}
				client := NewClient(runner, tools)

				err := client.Ping(ctx)

				So(domain.KindOf(err), ShouldEqual, domain.ErrTool)

				var engineErr *domain.EngineError
				So(err, ShouldHaveSameTypeAs, engineErr)
				So(err.(*domain.EngineError).Stderr, ShouldContainSubstring, "could not connect")
			})
		})

		Convey("ServerVersion", func() {
			runner := &scriptedRunner{stdout: map[string]string{"psql": "16.4 (Debian 16.4-1)\n"}}
			client := NewClient(runner, tools)

			version, err := client.ServerVersion(ctx)

			So(err, ShouldBeNil)
			So(version, ShouldEqual, "16.4")
		})

		Convey("DumpToolVersion", func() {
			runner := &scriptedRunner{stdout: map[string]string{"pg_dump": "pg_dump (PostgreSQL) 16.2\n"}}
			client := NewClient(runner, tools)

			version, err := client.DumpToolVersion(ctx)

			So(err, ShouldBeNil)
			So(version, ShouldEqual, "16.2")

			Convey("Malformed output should be rejected", func() {
				runner.stdout["pg_dump"] = "garbage"

				_, err := client.DumpToolVersion(ctx)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("CheckVersionCompatibility", func() {
			Convey("When pg_dump matches the server major", func() {
				runner := &scriptedRunner{stdout: map[string]string{
					"psql":    "16.4\n",
					"pg_dump": "pg_dump (PostgreSQL) 16.2\n",
				}}
				client := NewClient(runner, tools)

				So(client.CheckVersionCompatibility(ctx), ShouldBeNil)
			})

			Convey("When pg_dump is newer than the server", func() {
				runner := &scriptedRunner{stdout: map[string]string{
					"psql":    "15.7\n",
					"pg_dump": "pg_dump (PostgreSQL) 16.2\n",
				}}
				client := NewClient(runner, tools)

				So(client.CheckVersionCompatibility(ctx), ShouldBeNil)
			})

			Convey("When pg_dump is older than the server major", func() {
				runner := &scriptedRunner{stdout: map[string]string{
					"psql":    "16.4\n",
					"pg_dump": "pg_dump (PostgreSQL) 14.11\n",
				}}
				client := NewClient(runner, tools)

				err := client.CheckVersionCompatibility(ctx)

				So(domain.KindOf(err), ShouldEqual, domain.ErrValidation)
				So(err.Error(), ShouldContainSubstring, "older than server")
			})
		})

		Convey("ListTables", func() {
			runner := &scriptedRunner{stdout: map[string]string{
				"psql": "public.orders\npublic.users\nsales.invoices\n\n",
			}}
			client := NewClient(runner, tools)

			tables, err := client.ListTables(ctx)

			So(err, ShouldBeNil)
			So(tables, ShouldResemble, []string{"public.orders", "public.users", "sales.invoices"})
		})
	})
}

package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pgvault/pgvault/internal/adapter/compressor"
	"github.com/pgvault/pgvault/internal/adapter/storage"
	"github.com/pgvault/pgvault/internal/domain"
)

type fakePreflight struct {
	pingErr    error
	versionErr error
	pings      int
}

func (p *fakePreflight) Ping(context.Context) error {
	p.pings++
	return p.pingErr
}

func (p *fakePreflight) CheckVersionCompatibility(context.Context) error {
	return p.versionErr
}

type fakeUploader struct {
	uploads []string
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, _ string, remoteName string) error {
	u.uploads = append(u.uploads, remoteName)
	return u.err
}

func TestBackup(t *testing.T) {
	Convey("Given a backup orchestrator", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		store, err := storage.NewArtifactStore(tempDir)
		So(err, ShouldBeNil)

		verifier := NewVerifier(resolveByExtension)
		ctx := context.Background()

		newBackup := func(runner domain.ProcessRunner, preflight Preflight, uploads []UploadTarget) *Backup {
			return NewBackup("shop", store, runner, fakeToolKit{}, &compressor.GzipCodec{},
				verifier, preflight, uploads, nopLogger{})
		}

		Convey("When the dump succeeds", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}

			result := newBackup(runner, nil, nil).Execute(ctx,
				domain.BackupRequest{Schemas: []string{"sales", "public"}})

			Convey("The operation should produce a verified artifact", func() {
				So(result.Success, ShouldBeTrue)
				So(result.Err, ShouldBeNil)
				So(result.ExitCode, ShouldNotBeNil)
				So(*result.ExitCode, ShouldEqual, 0)

				So(result.Artifact, ShouldNotBeNil)
				So(result.Artifact.Format, ShouldEqual, "gzip")
				So(result.Artifact.Size, ShouldBeGreaterThan, 0)
				So(filepath.Base(result.Artifact.Path), ShouldContainSubstring, "shop_public-sales_")

				info, err := os.Stat(result.Artifact.Path)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, result.Artifact.Size)
			})

			Convey("The scope should reach pg_dump as normalized argv", func() {
				So(runner.invoked, ShouldEqual, 1)
				So(runner.lastCmd.Args, ShouldResemble, []string{"--schema=public", "--schema=sales"})
			})

			Convey("The diagnostics should record the verification", func() {
				So(result.Diagnostics, ShouldContain, "artifact verified")
			})
		})

		Convey("When the request is table-scoped", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}

			result := newBackup(runner, nil, nil).Execute(ctx,
				domain.BackupRequest{Tables: []string{"sales.invoices", "public.orders"}})

			Convey("The normalized references should reach pg_dump as --table flags", func() {
				So(result.Success, ShouldBeTrue)
				So(runner.lastCmd.Args, ShouldResemble,
					[]string{"--table=public.orders", "--table=sales.invoices"})
			})
		})

		Convey("When a table reference fails validation", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}

			result := newBackup(runner, nil, nil).Execute(ctx,
				domain.BackupRequest{Tables: []string{"orders"}})

			Convey("The operation should fail before any subprocess is launched", func() {
				So(result.Success, ShouldBeFalse)
				So(domain.KindOf(result.Err), ShouldEqual, domain.ErrValidation)
				So(result.ExitCode, ShouldBeNil)
				So(runner.invoked, ShouldEqual, 0)
			})
		})

		Convey("When a schema name fails validation", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}

			result := newBackup(runner, nil, nil).Execute(ctx,
				domain.BackupRequest{Schemas: []string{"public", "bad;name"}})

			Convey("The operation should fail before any subprocess is launched", func() {
				So(result.Success, ShouldBeFalse)
				So(domain.KindOf(result.Err), ShouldEqual, domain.ErrValidation)
				So(result.ExitCode, ShouldBeNil)
				So(runner.invoked, ShouldEqual, 0)
			})
		})

		Convey("When the pre-flight ping fails", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}
			preflight := &fakePreflight{pingErr: domain.NewToolError("database ping failed", 2, "")}

			result := newBackup(runner, preflight, nil).Execute(ctx, domain.BackupRequest{})

			So(result.Success, ShouldBeFalse)
			So(preflight.pings, ShouldEqual, 1)
			So(runner.invoked, ShouldEqual, 0)
		})

		Convey("When pg_dump exits non-zero", func() {
			runner := &fakeRunner{stdout: []byte("partial"), exitCode: 1, stderr: "pg_dump: error"}

			result := newBackup(runner, nil, nil).Execute(ctx, domain.BackupRequest{})

			Convey("The operation should fail with a tool error and no artifact left behind", func() {
				So(result.Success, ShouldBeFalse)
				So(domain.KindOf(result.Err), ShouldEqual, domain.ErrTool)
				So(result.ExitCode, ShouldNotBeNil)
				So(*result.ExitCode, ShouldEqual, 1)

				leftover, err := store.List()
				So(err, ShouldBeNil)
				So(leftover, ShouldBeEmpty)
			})
		})

		Convey("When the dump output fails verification", func() {
			runner := &fakeRunner{stdout: []byte("not a dump at all")}

			result := newBackup(runner, nil, nil).Execute(ctx, domain.BackupRequest{})

			Convey("The partial artifact should be discarded", func() {
				So(result.Success, ShouldBeFalse)
				So(domain.KindOf(result.Err), ShouldEqual, domain.ErrCorruption)

				leftover, err := store.List()
				So(err, ShouldBeNil)
				So(leftover, ShouldBeEmpty)
			})
		})

		Convey("When the runner itself errors", func() {
			runner := &fakeRunner{err: domain.NewTimeoutError("pg_dump exceeded deadline", nil)}

			result := newBackup(runner, nil, nil).Execute(ctx, domain.BackupRequest{})

			So(result.Success, ShouldBeFalse)
			So(domain.KindOf(result.Err), ShouldEqual, domain.ErrTimeout)
		})

		Convey("When upload targets are configured", func() {
			runner := &fakeRunner{stdout: []byte(sampleDump)}
			good := &fakeUploader{}
			bad := &fakeUploader{err: errors.New("bucket unreachable")}
			uploads := []UploadTarget{
				{Name: "s3", Uploader: good},
				{Name: "gdrive", Uploader: bad},
			}

			result := newBackup(runner, nil, uploads).Execute(ctx, domain.BackupRequest{})

			Convey("A failed upload should not fail the backup", func() {
				So(result.Success, ShouldBeTrue)
				So(len(good.uploads), ShouldEqual, 1)
				So(good.uploads[0], ShouldEqual, filepath.Base(result.Artifact.Path))

				So(result.Diagnostics, ShouldContain, "uploaded to s3")

				var noted bool
				for _, diag := range result.Diagnostics {
					if diag == "upload to gdrive failed: bucket unreachable" {
						noted = true
					}
				}
				So(noted, ShouldBeTrue)
			})
		})
	})
}

package compressor

import (
	"bytes"
	"io"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pgvault/pgvault/internal/domain"
)

func roundtrip(codec domain.Codec, payload []byte) ([]byte, error) {
	var compressed bytes.Buffer
	w, err := codec.NewWriter(&compressed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	r, err := codec.NewReader(bytes.NewReader(compressed.Bytes()))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func TestCodecs(t *testing.T) {
	Convey("Given the codec registry", t, func() {
		codecs := []domain.Codec{&GzipCodec{}, &ZstdCodec{}, &LZ4Codec{}}

		Convey("Every codec should roundtrip arbitrary payloads", func() {
			payload := []byte(strings.Repeat("-- PostgreSQL database dump\nINSERT INTO t VALUES (1);\n", 500))

			for _, codec := range codecs {
				out, err := roundtrip(codec, payload)
				So(err, ShouldBeNil)
				So(out, ShouldResemble, payload)
			}
		})

		Convey("Every codec should roundtrip the empty sequence", func() {
			for _, codec := range codecs {
				out, err := roundtrip(codec, []byte{})
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 0)
			}
		})

		Convey("Extensions should be distinct and dotted", func() {
			seen := map[string]bool{}
			for _, codec := range codecs {
				So(codec.Extension(), ShouldStartWith, ".")
				So(seen[codec.Extension()], ShouldBeFalse)
				seen[codec.Extension()] = true
			}
		})
	})
}

func TestForFormat(t *testing.T) {
	Convey("Given ForFormat", t, func() {
		Convey("When asking for known formats", func() {
			for format, name := range map[string]string{
				"gzip": "gzip", "gz": "gzip",
				"zstd": "zstd", "zst": "zstd",
				"lz4": "lz4",
				"GZIP": "gzip",
			} {
				codec, err := ForFormat(format)
				So(err, ShouldBeNil)
				So(codec.Name(), ShouldEqual, name)
			}
		})

		Convey("When asking for an unrecognized format", func() {
			codec, err := ForFormat("brotli")

			Convey("It should fail with a compression error", func() {
				So(codec, ShouldBeNil)
				So(domain.KindOf(err), ShouldEqual, domain.ErrCompression)
				So(err.Error(), ShouldContainSubstring, "brotli")
			})
		})
	})
}

func TestForPath(t *testing.T) {
	Convey("Given ForPath", t, func() {
		Convey("It should pick the codec from the artifact extension", func() {
			for path, name := range map[string]string{
				"db_full_20240101_010101.sql.gz":  "gzip",
				"db_full_20240101_010101.sql.zst": "zstd",
				"db_full_20240101_010101.sql.lz4": "lz4",
			} {
				codec, err := ForPath(path, "gzip")
				So(err, ShouldBeNil)
				So(codec.Name(), ShouldEqual, name)
			}
		})

		Convey("It should fall back to the default format for unknown extensions", func() {
			codec, err := ForPath("backup.sql", "zstd")
			So(err, ShouldBeNil)
			So(codec.Name(), ShouldEqual, "zstd")
		})
	})
}

func TestMalformedStreams(t *testing.T) {
	Convey("Given malformed compressed input", t, func() {
		garbage := []byte("this is not a compressed stream at all")

		Convey("The gzip reader should reject a bad header", func() {
			r, err := (&GzipCodec{}).NewReader(bytes.NewReader(garbage))

			So(r, ShouldBeNil)
			So(domain.KindOf(err), ShouldEqual, domain.ErrCompression)
		})

		Convey("A truncated gzip stream should fail mid-read", func() {
			var compressed bytes.Buffer
			w, err := (&GzipCodec{}).NewWriter(&compressed)
			So(err, ShouldBeNil)
			_, err = w.Write([]byte(strings.Repeat("payload ", 4096)))
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			truncated := compressed.Bytes()[:compressed.Len()/2]
			r, err := (&GzipCodec{}).NewReader(bytes.NewReader(truncated))
			So(err, ShouldBeNil)

			_, err = io.ReadAll(r)
			So(err, ShouldNotBeNil)
		})
	})
}

// Package compressor provides the streaming codecs artifacts are written
// and read through. Codecs are selected by the configured format identifier
// or, for existing artifacts, by file extension.
package compressor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pgvault/pgvault/internal/domain"
)

// ForFormat returns the codec registered under the given format identifier.
func ForFormat(format string) (domain.Codec, error) {
	switch strings.ToLower(format) {
	case "gzip", "gz":
		return &GzipCodec{}, nil
	case "zstd", "zst":
		return &ZstdCodec{}, nil
	case "lz4":
		return &LZ4Codec{}, nil
	default:
		return nil, domain.NewCompressionError(fmt.Sprintf("unrecognized compression format %q", format), nil)
	}
}

// ForPath picks a codec from the artifact's file extension so restore and
// verify work on self-describing files. Falls back to the given default
// format when the extension is not one of ours.
func ForPath(path, defaultFormat string) (domain.Codec, error) {
	switch filepath.Ext(path) {
	case ".gz":
		return &GzipCodec{}, nil
	case ".zst":
		return &ZstdCodec{}, nil
	case ".lz4":
		return &LZ4Codec{}, nil
	default:
		return ForFormat(defaultFormat)
	}
}

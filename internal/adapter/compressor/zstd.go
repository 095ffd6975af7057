package compressor

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/pgvault/pgvault/internal/domain"
)

type ZstdCodec struct{}

func (z *ZstdCodec) Name() string { return "zstd" }

func (z *ZstdCodec) Extension() string { return ".zst" }

func (z *ZstdCodec) NewWriter(sink io.Writer) (io.WriteCloser, error) {
	w, err := zstd.NewWriter(sink, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, domain.NewCompressionError("failed to create zstd encoder", err)
	}
	return w, nil
}

func (z *ZstdCodec) NewReader(source io.Reader) (io.ReadCloser, error) {
	r, err := zstd.NewReader(source)
	if err != nil {
		return nil, domain.NewCompressionError("failed to create zstd decoder", err)
	}
	return r.IOReadCloser(), nil
}

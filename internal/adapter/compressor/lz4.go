package compressor

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

type LZ4Codec struct{}

func (l *LZ4Codec) Name() string { return "lz4" }

func (l *LZ4Codec) Extension() string { return ".lz4" }

func (l *LZ4Codec) NewWriter(sink io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(sink), nil
}

func (l *LZ4Codec) NewReader(source io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(source)), nil
}

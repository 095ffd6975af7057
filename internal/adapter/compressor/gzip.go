package compressor

import (
	"compress/gzip"
	"io"

	"github.com/pgvault/pgvault/internal/domain"
)

type GzipCodec struct{}

func (g *GzipCodec) Name() string { return "gzip" }

func (g *GzipCodec) Extension() string { return ".gz" }

func (g *GzipCodec) NewWriter(sink io.Writer) (io.WriteCloser, error) {
	w, err := gzip.NewWriterLevel(sink, gzip.BestCompression)
	if err != nil {
		return nil, domain.NewCompressionError("failed to create gzip writer", err)
	}
	return w, nil
}

func (g *GzipCodec) NewReader(source io.Reader) (io.ReadCloser, error) {
	r, err := gzip.NewReader(source)
	if err != nil {
		return nil, domain.NewCompressionError("failed to create gzip reader", err)
	}
	return r, nil
}

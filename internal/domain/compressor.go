package domain

import "io"

// Codec is a symmetric streaming compression transform: for every byte
// sequence, reading back what the writer produced yields the original
// bytes. Implementations process data in bounded chunks and never buffer a
// whole payload.
type Codec interface {
	// Name is the configured format identifier (e.g. "gzip").
	Name() string
	// Extension is the filename suffix for artifacts of this format,
	// including the leading dot.
	Extension() string
	// NewWriter wraps sink in a compressing writer. The returned writer
	// must be closed to flush the stream trailer.
	NewWriter(sink io.Writer) (io.WriteCloser, error)
	// NewReader wraps source in a decompressing reader. A malformed
	// stream surfaces as a read error.
	NewReader(source io.Reader) (io.ReadCloser, error)
}

package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pgvault/pgvault/internal/domain"
)

const (
	dumpHeaderMarker  = "-- PostgreSQL database dump"
	dumpTrailerMarker = "PostgreSQL database dump complete"

	// verifyWindow is how far into the decompressed stream the header must
	// appear, and how much of the tail is scanned for the trailer.
	verifyWindow = 4 * 1024

	verifyChunkSize = 32 * 1024
)

// CodecResolver picks the codec for an existing artifact path.
type CodecResolver func(path string) (domain.Codec, error)

// Verifier performs the structural integrity check on artifacts: the
// decompressed stream must carry the pg_dump plain-format header near the
// start and the completion trailer at the end. It reads in bounded chunks
// and never mutates the artifact.
type Verifier struct {
	resolve CodecResolver
}

func NewVerifier(resolve CodecResolver) *Verifier {
	return &Verifier{resolve: resolve}
}

func (v *Verifier) Verify(artifact *domain.Artifact) error {
	info, err := os.Stat(artifact.Path)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("failed to stat artifact %s", artifact.Path), err)
	}
	if info.Size() == 0 {
		return domain.NewCorruptionError("artifact is empty", nil)
	}

	file, err := os.Open(artifact.Path)
	if err != nil {
		return domain.NewStorageError(fmt.Sprintf("failed to open artifact %s", artifact.Path), err)
	}
	defer file.Close()

	codec, err := v.resolve(artifact.Path)
	if err != nil {
		return err
	}

	stream, err := codec.NewReader(file)
	if err != nil {
		return domain.NewCorruptionError(
			fmt.Sprintf("artifact is not a valid %s stream", codec.Name()), err)
	}
	defer stream.Close()

	head := make([]byte, verifyWindow)
	n, err := io.ReadFull(stream, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.NewCorruptionError("failed to decompress artifact", err)
	}
	head = head[:n]

	if n == 0 {
		return domain.NewCorruptionError("artifact decompresses to an empty stream", nil)
	}
	if !bytes.Contains(head, []byte(dumpHeaderMarker)) {
		return domain.NewCorruptionError("decompressed stream is missing the dump header", nil)
	}

	// Scan to the end keeping only the last verifyWindow bytes.
	tail := append(make([]byte, 0, verifyWindow+verifyChunkSize), head...)
	chunk := make([]byte, verifyChunkSize)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			tail = append(tail, chunk[:n]...)
			if len(tail) > verifyWindow {
				tail = append(tail[:0], tail[len(tail)-verifyWindow:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.NewCorruptionError("artifact stream is truncated or corrupt", err)
		}
	}

	if !bytes.Contains(tail, []byte(dumpTrailerMarker)) {
		return domain.NewCorruptionError("decompressed stream is missing the dump completion trailer", nil)
	}

	return nil
}

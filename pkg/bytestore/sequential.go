package bytestore

import (
	"io"

	"github.com/pkg/errors"
)

// ReaderSource adapts an io.Reader to SequentialSource, chunking reads into
// fixed-size buffers. This is how cmd/patchly feeds source and target bytes
// into the builder from a plain os.File or stdin.
type ReaderSource struct {
	reader    io.Reader
	chunkSize int
	buffer    []byte
	done      bool
}

// NewReaderSource wraps reader as a SequentialSource that yields chunks of
// at most chunkSize bytes.
func NewReaderSource(reader io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &ReaderSource{reader: reader, chunkSize: chunkSize, buffer: make([]byte, chunkSize)}
}

// ReadNext implements SequentialSource.ReadNext.
func (s *ReaderSource) ReadNext() ([]byte, bool, error) {
	if s.done {
		return nil, false, errors.New("read past end of sequential source")
	}

	n, err := io.ReadFull(s.reader, s.buffer)
	switch {
	case err == nil:
		return s.buffer[:n], true, nil
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		s.done = true
		return s.buffer[:n], false, nil
	default:
		s.done = true
		return nil, false, errors.Wrap(err, "unable to read from source")
	}
}

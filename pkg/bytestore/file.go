package bytestore

import (
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hutomosaktikartiko/patchly/pkg/encoding"
)

// FileStore is a RandomAccess implementation backed by an on-disk file. It
// is safe for concurrent use, though the engine core itself never calls it
// concurrently — the host serializes all access to a single operation.
type FileStore struct {
	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenFile opens (creating if necessary) the file at path as a FileStore.
// If the file already has content, its existing bytes are treated as
// already-appended data (Size reflects the file's current length).
func OpenFile(path string) (*FileStore, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "unable to stat file")
	}
	return &FileStore{file: file, size: info.Size()}, nil
}

// CreateTemp creates a new, empty FileStore in directory, named prefix plus
// "-" plus the base62 encoding of a random UUID, so that concurrent
// operations never collide on a staging filename.
func CreateTemp(directory, prefix string) (*FileStore, error) {
	id := uuid.New()
	name := prefix + "-" + encoding.EncodeBase62(id[:])
	file, err := os.OpenFile(directory+string(os.PathSeparator)+name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create temporary file")
	}
	return &FileStore{file: file}, nil
}

// ReadAt implements RandomAccess.ReadAt.
func (f *FileStore) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off < 0 || off > f.size {
		return 0, errors.New("read offset out of range")
	}
	n, err := f.file.ReadAt(p, off)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// WriteAppend implements RandomAccess.WriteAppend.
func (f *FileStore) WriteAppend(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.file.WriteAt(p, f.size)
	f.size += int64(n)
	if err != nil {
		return n, errors.Wrap(err, "unable to append to file")
	}
	return n, nil
}

// Size implements RandomAccess.Size.
func (f *FileStore) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Close implements RandomAccess.Close.
func (f *FileStore) Close() error {
	return f.file.Close()
}

// Name returns the path backing this store, for callers that need to rename
// or remove a staging file after the fact (e.g. promoting a temporary output
// store to its final destination, or discarding one after a failed apply).
func (f *FileStore) Name() string {
	return f.file.Name()
}

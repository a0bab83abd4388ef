// Package bytestore defines the byte-store abstraction the core diff/patch
// engine consumes from its host, and provides a concrete file-backed
// implementation. Per the engine's scope, how stores are backed (on-disk
// temp files, a sandboxed filesystem, mmap) is a host choice; this package
// supplies the on-disk choice so that the rest of the module is runnable.
package bytestore

import (
	"io"
)

// SequentialSource is an ordered, finite producer of byte chunks. It models
// a forward-only read over the target (or, during build, the source)
// without requiring the whole stream to be resident in memory.
type SequentialSource interface {
	// ReadNext returns the next chunk of data. more is false exactly when
	// this call returned the final chunk (which may itself be empty on a
	// zero-length source). Once more is false, ReadNext must not be called
	// again.
	ReadNext() (chunk []byte, more bool, err error)
}

// RandomAccess is a host-supplied positional byte store supporting reads
// anywhere within its current bounds and append-only writes. The source
// store, the patch store, and the output store are all instances of this
// interface during a build or apply operation.
type RandomAccess interface {
	// ReadAt reads len(p) bytes starting at byte offset off. off and
	// off+len(p) must lie within [0, Size()]; a read that runs past Size()
	// returns io.ErrUnexpectedEOF along with whatever bytes were available.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAppend appends p to the store and returns the number of bytes
	// written. Writes are always at the current end of the store — there is
	// no positional write.
	WriteAppend(p []byte) (int, error)
	// Size returns the current size of the store in bytes.
	Size() int64
	// Close releases any resources held by the store. After Close, no
	// other method may be called.
	Close() error
}

// Writer adapts a RandomAccess store to io.Writer by way of WriteAppend, for
// interoperating with stdlib helpers that expect io.Writer.
type Writer struct {
	Store RandomAccess
}

// Write implements io.Writer.
func (w Writer) Write(p []byte) (int, error) {
	return w.Store.WriteAppend(p)
}

var _ io.Writer = Writer{}

// Package builder implements the build-operation facade from spec.md §6: it
// wires the block index, streaming differ, and patch container encoder
// together behind the ordered call sequence a host drives a build through.
//
// There is no single teacher file this mirrors structurally — mutagen's
// synchronization controller wires a comparable pipeline (scan source,
// build signature, stream operations) but does so across goroutines and
// protobuf-typed messages rather than one façade type with an ordered
// method contract. The ordering rules here (source must finalize before a
// target size is set; a target size must be set before target chunks
// arrive) are spec.md §6's resolution of its own stated Open Question.
package builder

import (
	"github.com/hutomosaktikartiko/patchly/pkg/blockindex"
	"github.com/hutomosaktikartiko/patchly/pkg/bytestore"
	"github.com/hutomosaktikartiko/patchly/pkg/checkdigest"
	"github.com/hutomosaktikartiko/patchly/pkg/container"
	"github.com/hutomosaktikartiko/patchly/pkg/differ"
	"github.com/hutomosaktikartiko/patchly/pkg/errs"
)

// DefaultBlockSize is the block size used when a caller doesn't specify one.
const DefaultBlockSize = 4096

// Builder drives one build operation. Its methods must be called in the
// order: zero or more AddSourceChunk, FinalizeSource, SetTargetSize, zero
// or more AddTargetChunk (interleaved with FlushOutput as needed),
// FinalizeTarget.
type Builder struct {
	blockSize  uint64
	bucketCap  int
	maxLiteral int

	sourceStore     bytestore.RandomAccess
	index           *blockindex.Index
	sourceDigest    checkdigest.Digest
	sourceFinalized bool

	targetDigest    checkdigest.Digest
	targetSizeKnown bool
	targetSize      uint64

	encoder *container.Encoder
	diff    *differ.Differ

	identical bool
	finalized bool
}

// New constructs a Builder that retains ingested source bytes in
// sourceStore (a host-supplied, append-only random-access store — e.g. a
// temporary file) so that the differ can read back arbitrary source offsets
// for match extension despite the sequential AddSourceChunk ingestion API.
// A blockSize or bucketCap of 0 uses its package default.
func New(sourceStore bytestore.RandomAccess, blockSize uint64, bucketCap int, maxLiteral int) *Builder {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	return &Builder{
		blockSize:    blockSize,
		bucketCap:    bucketCap,
		maxLiteral:   maxLiteral,
		sourceStore:  sourceStore,
		index:        blockindex.New(blockSize, bucketCap),
		sourceDigest: checkdigest.New(),
		targetDigest: checkdigest.New(),
		encoder:      container.NewEncoder(),
	}
}

// AddSourceChunk ingests the next chunk of source bytes.
func (b *Builder) AddSourceChunk(chunk []byte) error {
	if b.sourceFinalized {
		return errs.Misuse("source chunk added after source was finalized")
	}
	if _, err := b.sourceStore.WriteAppend(chunk); err != nil {
		return errs.ResourceFailure("unable to append source bytes", err)
	}
	b.index.AddChunk(chunk)
	b.sourceDigest = b.sourceDigest.Write(chunk)
	return nil
}

// FinalizeSource completes source ingestion, dropping any unindexed tail
// per the block index's contract.
func (b *Builder) FinalizeSource() error {
	if b.sourceFinalized {
		return errs.Misuse("source already finalized")
	}
	b.index.Finalize()
	b.sourceFinalized = true
	return nil
}

// SetTargetSize records the target's total size and opens the patch
// container (the header can now be fully written, since source_size and
// source_digest are known). It must be called exactly once, after
// FinalizeSource and before any AddTargetChunk.
func (b *Builder) SetTargetSize(size uint64) error {
	if !b.sourceFinalized {
		return errs.Misuse("target size set before source was finalized")
	}
	if b.targetSizeKnown {
		return errs.Misuse("target size already set")
	}
	b.targetSizeKnown = true
	b.targetSize = size

	header := container.Header{
		SourceSize:   uint64(b.sourceStore.Size()),
		SourceDigest: b.sourceDigest.Sum64(),
		TargetSize:   size,
	}
	if err := b.encoder.Begin(header); err != nil {
		return err
	}
	b.diff = differ.New(b.index, b.sourceStore, b.encoder, b.maxLiteral)
	return nil
}

// AddTargetChunk ingests the next chunk of target bytes, driving the
// differ and emitting whatever instructions the newly available data
// allows.
func (b *Builder) AddTargetChunk(chunk []byte) error {
	if !b.targetSizeKnown {
		return errs.Misuse("target chunk added before target size was set")
	}
	b.targetDigest = b.targetDigest.Write(chunk)
	return b.diff.AddChunk(chunk)
}

// FinalizeTarget completes target ingestion: it flushes any trailing
// literal bytes as a final INSERT, closes the container, and evaluates the
// identical-file fast path.
func (b *Builder) FinalizeTarget() error {
	if !b.targetSizeKnown {
		return errs.Misuse("finalize target called before target size was set")
	}
	if b.finalized {
		return nil
	}

	if b.targetSize == uint64(b.sourceStore.Size()) && b.targetDigest.Sum64() == b.sourceDigest.Sum64() {
		b.identical = true
	}

	if err := b.diff.Finalize(); err != nil {
		return err
	}
	if err := b.encoder.End(); err != nil {
		return err
	}
	b.finalized = true
	return nil
}

// AreFilesIdentical reports whether the source and target were detected as
// byte-identical. Per spec.md §4.4, this is a distinct terminal state, not
// an error — callers should not emit the (degenerate, all-COPY) patch in
// this case. Valid only after FinalizeTarget.
func (b *Builder) AreFilesIdentical() bool {
	return b.identical
}

// HasOutput reports whether there is buffered, unflushed patch output.
func (b *Builder) HasOutput() bool {
	return b.encoder.HasOutput()
}

// FlushOutput drains up to maxBytes of buffered patch output.
func (b *Builder) FlushOutput(maxBytes int) []byte {
	return b.encoder.FlushOutput(maxBytes)
}

// PendingOutputSize returns the number of unflushed patch bytes queued.
func (b *Builder) PendingOutputSize() int {
	return b.encoder.PendingOutputSize()
}

// SourceSize returns the number of source bytes ingested so far.
func (b *Builder) SourceSize() uint64 {
	return uint64(b.sourceStore.Size())
}

// TargetSize returns the target size set via SetTargetSize, or 0 if not yet
// set.
func (b *Builder) TargetSize() uint64 {
	return b.targetSize
}

// Reset discards all build state and reinitializes the Builder against a
// fresh sourceStore, as if newly constructed with New.
func (b *Builder) Reset(sourceStore bytestore.RandomAccess) {
	*b = *New(sourceStore, b.blockSize, b.bucketCap, b.maxLiteral)
}

// Package blockindex implements the memory-bounded map from a source block's
// rolling-hash fingerprint to the list of source offsets sharing that
// fingerprint, plus the parallel per-block check-digest table used to
// disambiguate collisions in O(1).
//
// Construction is grounded on original_source/rust/src/diff/block_index.rs's
// add_chunk/finalize split (buffer partial blocks across ingestion calls,
// only index complete aligned blocks, drop the unindexed tail at finalize),
// generalized with an absolute per-bucket cap that block_index.rs does not
// enforce, per spec.md §4.3's memory-bound requirement.
package blockindex

import (
	"github.com/hutomosaktikartiko/patchly/pkg/checkdigest"
	"github.com/hutomosaktikartiko/patchly/pkg/rollinghash"
)

// DefaultBucketCap is the default absolute cap on the number of offsets
// retained per fingerprint bucket, truncating pathological collisions so
// differ lookups stay O(1) amortized.
const DefaultBucketCap = 8

// Index maps a 32-bit rolling-hash fingerprint to the source offsets of
// blocks that produced it, in ascending-offset (insertion) order, capped per
// bucket. A parallel digest table records the 64-bit check digest of every
// indexed block for O(1) collision verification.
type Index struct {
	blockSize uint64
	bucketCap int

	buckets map[uint32][]uint64
	digests map[uint64]uint64 // offset -> check digest

	pending      []byte
	bytesIndexed uint64
	bytesSeen    uint64
}

// New constructs an empty Index for the given block size and per-bucket
// cap. A bucketCap of 0 uses DefaultBucketCap.
func New(blockSize uint64, bucketCap int) *Index {
	if bucketCap <= 0 {
		bucketCap = DefaultBucketCap
	}
	return &Index{
		blockSize: blockSize,
		bucketCap: bucketCap,
		buckets:   make(map[uint32][]uint64),
		digests:   make(map[uint64]uint64),
	}
}

// AddChunk ingests the next chunk of source bytes, indexing every complete,
// aligned block it can assemble from the accumulated pending bytes plus the
// new chunk. Chunks need not be block-aligned; partial blocks are buffered
// across calls.
func (idx *Index) AddChunk(chunk []byte) {
	idx.bytesSeen += uint64(len(chunk))
	idx.pending = append(idx.pending, chunk...)

	for uint64(len(idx.pending)) >= idx.blockSize {
		block := idx.pending[:idx.blockSize]
		idx.indexBlock(block)
		idx.pending = idx.pending[idx.blockSize:]
	}
}

// indexBlock computes the fingerprint and check digest of a single aligned
// block and records it. Blocks are indexed strictly in ascending offset
// order because AddChunk consumes pending bytes in order, so ascending
// insertion order is automatic and requires no explicit sort.
func (idx *Index) indexBlock(block []byte) {
	offset := idx.bytesIndexed
	fingerprint := rollinghash.Init(block).Fingerprint()
	digest := checkdigest.Sum64(block)

	bucket := idx.buckets[fingerprint]
	if len(bucket) < idx.bucketCap {
		idx.buckets[fingerprint] = append(bucket, offset)
	}
	idx.digests[offset] = digest

	idx.bytesIndexed += idx.blockSize
}

// Finalize completes ingestion. Any bytes left in the pending buffer form an
// unindexed short tail (per spec.md §3, "the final partial block ... is not
// indexed: short-tail bytes are reachable only through INSERT") and are
// discarded.
func (idx *Index) Finalize() {
	idx.pending = nil
}

// Lookup returns the recorded offsets for fingerprint in ascending
// (insertion) order, or nil if no indexed block produced that fingerprint.
func (idx *Index) Lookup(fingerprint uint32) []uint64 {
	return idx.buckets[fingerprint]
}

// DigestAt returns the check digest recorded for the block at the given
// source offset. ok is false if no block was indexed at that offset.
func (idx *Index) DigestAt(offset uint64) (digest uint64, ok bool) {
	digest, ok = idx.digests[offset]
	return
}

// BlockSize returns the block size this index was constructed with.
func (idx *Index) BlockSize() uint64 {
	return idx.blockSize
}

// BytesIndexed returns the number of source bytes folded into indexed,
// complete blocks (a multiple of BlockSize).
func (idx *Index) BytesIndexed() uint64 {
	return idx.bytesIndexed
}

// BytesSeen returns the total number of source bytes ingested via AddChunk,
// including any unindexed tail.
func (idx *Index) BytesSeen() uint64 {
	return idx.bytesSeen
}

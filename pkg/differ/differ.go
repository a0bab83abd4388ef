// Package differ implements the streaming differ: it consumes the target
// byte stream incrementally and emits COPY/INSERT instructions into a
// container.Encoder that, applied to the source, reproduce the target.
//
// There is no direct analogue for this component in either the teacher
// repo (mutagen's pkg/synchronization/rsync/engine.go builds a signature
// and a whole in-memory operation list, never streaming with bounded
// buffers or byte-level match extension) or original_source's
// streaming_diff.rs (which accepts the first weak-hash hit without digest
// verification or extension). The instruction-emission shape — walking a
// rolling window, querying a block index, flushing a literal buffer — is
// grounded on engine.go's overall structure; the verify-then-extend
// algorithm itself follows spec.md §4.4, which is authoritative where the
// two disagree.
package differ

import (
	"github.com/hutomosaktikartiko/patchly/pkg/blockindex"
	"github.com/hutomosaktikartiko/patchly/pkg/checkdigest"
	"github.com/hutomosaktikartiko/patchly/pkg/container"
	"github.com/hutomosaktikartiko/patchly/pkg/rollinghash"
)

// DefaultMaxLiteral is the default bound on the pending-INSERT literal
// buffer before it is force-flushed.
const DefaultMaxLiteral = 64 * 1024

// extensionChunkSize bounds a single random-access read during forward
// extension, so a long matching run doesn't require one source read per
// byte.
const extensionChunkSize = 4096

// maxInstructionLen is the largest run length a single COPY can encode,
// fixed by the container format's u32 length field.
const maxInstructionLen = 0xFFFFFFFF

// SourceReader is the subset of bytestore.RandomAccess the differ needs to
// perform forward and backward match extension against the source. It is
// declared locally to avoid an import cycle with bytestore.
type SourceReader interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// Differ drives one target-to-source diff. Feed it target bytes via
// AddChunk, in order, then call Finalize once the target is exhausted.
type Differ struct {
	index      *blockindex.Index
	source     SourceReader
	blockSize  int
	maxLiteral int
	encoder    *container.Encoder

	buf      []byte // buffered, not-yet-committed target bytes
	winLen   int    // bytes currently held in the in-progress/current window
	winStart int    // index into buf where the current full window begins (valid when winLen == blockSize)
	hash     rollinghash.Hash

	literal []byte

	finalized bool
}

// New constructs a Differ over index (already fully built against the
// source), reading additional source bytes from source for match
// extension, and emitting instructions into encoder (which must already
// have had Begin called).
func New(index *blockindex.Index, source SourceReader, encoder *container.Encoder, maxLiteral int) *Differ {
	if maxLiteral <= 0 {
		maxLiteral = DefaultMaxLiteral
	}
	return &Differ{
		index:      index,
		source:     source,
		blockSize:  int(index.BlockSize()),
		maxLiteral: maxLiteral,
		encoder:    encoder,
	}
}

// AddChunk ingests the next chunk of target bytes, emitting whatever
// instructions the newly available data allows.
func (d *Differ) AddChunk(chunk []byte) error {
	if d.finalized {
		return nil
	}
	d.buf = append(d.buf, chunk...)
	return d.process(false)
}

// Finalize signals end-of-target: any window bytes not yet evicted, plus
// anything left in the literal buffer, are flushed as a closing INSERT.
func (d *Differ) Finalize() error {
	if d.finalized {
		return nil
	}
	if err := d.process(true); err != nil {
		return err
	}
	d.finalized = true

	// Whatever remains in buf at this point never completed a match: if a
	// full window had formed, it's buf[winStart:], otherwise it's the whole
	// short buffer.
	if d.winLen == d.blockSize {
		d.literal = append(d.literal, d.buf[d.winStart:]...)
	} else if d.winLen > 0 {
		d.literal = append(d.literal, d.buf[:d.winLen]...)
	}
	d.buf = nil
	d.winLen = 0

	return d.flushLiteral()
}

// process advances through buf as far as currently available data allows,
// emitting COPY/INSERT instructions as matches and literal-buffer flushes
// occur. It never blocks on more data — when buf is exhausted it returns,
// leaving state ready to resume from the next AddChunk (or Finalize) call.
func (d *Differ) process(final bool) error {
	for {
		nextIdx := d.currentEnd()
		if nextIdx >= len(d.buf) {
			// Bytes before winStart are already in the literal buffer (or
			// flushed), so drop them to keep buf bounded by the window plus
			// one chunk.
			if d.winLen == d.blockSize && d.winStart > 0 {
				d.buf = append(d.buf[:0], d.buf[d.winStart:]...)
				d.winStart = 0
			}
			return nil
		}
		x := d.buf[nextIdx]

		if d.winLen < d.blockSize {
			d.winLen++
			if d.winLen < d.blockSize {
				continue
			}
			// Window just completed for the first time (or after a reset):
			// initialize the rolling hash over it.
			d.winStart = nextIdx - d.blockSize + 1
			d.hash = rollinghash.Init(d.buf[d.winStart : nextIdx+1])
		} else {
			old := d.buf[d.winStart]
			d.winStart++
			d.appendLiteral(old)
			d.hash = d.hash.Roll(old, x)
		}

		matchOff, matched := d.findMatch()
		if !matched {
			continue
		}

		// Backward extension retracts bytes still sitting in the pending
		// literal buffer, so it must run before that buffer is flushed —
		// flushing first would truncate d.literal to empty and make
		// extendBackward permanently a no-op.
		curEnd := d.winStart + d.blockSize // == nextIdx+1
		kFwd, err := d.extendForward(matchOff+uint64(d.blockSize), curEnd)
		if err != nil {
			return err
		}
		kBack := d.extendBackward(matchOff, kFwd)

		if err := d.flushLiteral(); err != nil {
			return err
		}

		total := uint64(d.blockSize) + uint64(kBack) + uint64(kFwd)
		if err := d.encoder.EmitCopy(matchOff-uint64(kBack), uint32(total)); err != nil {
			return err
		}

		// Commit consumed bytes: drop everything up through the extended
		// match from buf, and reset window state to rebuild from scratch.
		consumedThrough := curEnd + kFwd
		d.buf = append(d.buf[:0], d.buf[consumedThrough:]...)
		d.winLen = 0
		d.winStart = 0

		if !final && len(d.buf) == 0 {
			return nil
		}
	}
}

// currentEnd returns the buf index of the next byte to be consumed (one
// past the current window's last byte, or the count of bytes accumulated
// while the window is still filling).
func (d *Differ) currentEnd() int {
	if d.winLen < d.blockSize {
		return d.winLen
	}
	return d.winStart + d.blockSize
}

// findMatch looks up the current window's fingerprint and returns the
// lowest-offset candidate whose recorded digest matches, per the block
// index's ascending-insertion-order contract.
func (d *Differ) findMatch() (uint64, bool) {
	fp := d.hash.Fingerprint()
	candidates := d.index.Lookup(fp)
	if len(candidates) == 0 {
		return 0, false
	}
	window := d.buf[d.winStart : d.winStart+d.blockSize]
	want := checkdigest.Sum64(window)
	for _, off := range candidates {
		if digest, ok := d.index.DigestAt(off); ok && digest == want {
			return off, true
		}
	}
	return 0, false
}

// extendForward greedily extends a match past the matched block by
// comparing source bytes starting at sourceOff against target bytes
// starting at buf[bufIdx], stopping at the first mismatch, end of source,
// end of currently buffered target data, or the container format's length
// limit. It returns the number of additional matched bytes.
func (d *Differ) extendForward(sourceOff uint64, bufIdx int) (int, error) {
	sourceSize := d.source.Size()
	if sourceSize < 0 {
		sourceSize = 0
	}
	budget := maxInstructionLen - d.blockSize
	matched := 0
	var chunk [extensionChunkSize]byte

	for matched < budget {
		avail := len(d.buf) - bufIdx - matched
		if avail <= 0 {
			break
		}
		if int64(sourceOff)+int64(matched) >= sourceSize {
			break
		}
		want := extensionChunkSize
		if want > avail {
			want = avail
		}
		if remain := int(sourceSize - int64(sourceOff) - int64(matched)); want > remain {
			want = remain
		}
		if remain := budget - matched; want > remain {
			want = remain
		}
		if want <= 0 {
			break
		}
		n, err := d.source.ReadAt(chunk[:want], int64(sourceOff)+int64(matched))
		if n == 0 && err != nil {
			break
		}
		mismatchAt := -1
		for i := 0; i < n; i++ {
			if chunk[i] != d.buf[bufIdx+matched+i] {
				mismatchAt = i
				break
			}
		}
		if mismatchAt >= 0 {
			matched += mismatchAt
			break
		}
		matched += n
		if n < want {
			break
		}
	}
	return matched, nil
}

// extendBackward greedily retracts the literal buffer's tail into the
// match when it overlaps the source bytes immediately preceding off,
// growing the match backward. It returns the number of bytes retracted.
// fwd is the already-committed forward-extension length, so the combined
// COPY length (blockSize+fwd+back) still fits the container's u32 field.
func (d *Differ) extendBackward(off uint64, fwd int) int {
	budget := maxInstructionLen - d.blockSize - fwd
	k := 0
	var b [1]byte
	for k < budget && k < len(d.literal) && off > uint64(k) {
		if _, err := d.source.ReadAt(b[:], int64(off)-int64(k)-1); err != nil {
			break
		}
		if d.literal[len(d.literal)-1-k] != b[0] {
			break
		}
		k++
	}
	if k > 0 {
		d.literal = d.literal[:len(d.literal)-k]
	}
	return k
}

// appendLiteral queues a single evicted byte into the pending INSERT
// buffer, force-flushing when it fills.
func (d *Differ) appendLiteral(b byte) {
	d.literal = append(d.literal, b)
	if len(d.literal) >= d.maxLiteral {
		// Errors here are only Misuse (encoder not begun), which cannot
		// happen given New's contract, so this is safe to ignore.
		_ = d.flushLiteral()
	}
}

// flushLiteral emits the pending literal buffer as an INSERT instruction,
// if non-empty.
func (d *Differ) flushLiteral() error {
	if len(d.literal) == 0 {
		return nil
	}
	if err := d.encoder.EmitInsert(d.literal); err != nil {
		return err
	}
	d.literal = d.literal[:0]
	return nil
}

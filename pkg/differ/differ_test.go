package differ

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/hutomosaktikartiko/patchly/pkg/blockindex"
	"github.com/hutomosaktikartiko/patchly/pkg/container"
)

// memSource is a minimal in-memory SourceReader for testing.
type memSource struct {
	data []byte
}

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, bytes.ErrTooLarge
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memSource) Size() int64 { return int64(len(m.data)) }

// diffToInstructions runs source through a block index, target through the
// differ, and decodes the resulting container into a flat instruction list.
func diffToInstructions(t *testing.T, blockSize uint64, source, target []byte) []container.Instruction {
	t.Helper()

	idx := blockindex.New(blockSize, 0)
	idx.AddChunk(source)
	idx.Finalize()

	src := &memSource{data: source}
	enc := container.NewEncoder()
	if err := enc.Begin(container.Header{SourceSize: uint64(len(source)), TargetSize: uint64(len(target))}); err != nil {
		t.Fatalf("begin: %v", err)
	}

	d := New(idx, src, enc, DefaultMaxLiteral)
	if err := d.AddChunk(target); err != nil {
		t.Fatalf("add chunk: %v", err)
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := enc.End(); err != nil {
		t.Fatalf("end: %v", err)
	}

	var out []byte
	for enc.HasOutput() {
		out = append(out, enc.FlushOutput(4096)...)
	}

	// The instruction stream starts after the fixed header.
	patch := &memSource{data: out}
	var instrs []container.Instruction
	cursor := int64(container.HeaderSize)
	for cursor < int64(len(out)) {
		inst, next, err := container.NextInstruction(patch, cursor)
		if err != nil {
			t.Fatalf("decode instruction at %d: %v", cursor, err)
		}
		instrs = append(instrs, inst)
		cursor = next
	}
	return instrs
}

func runRoundTrip(t *testing.T, blockSize uint64, source, target []byte) {
	t.Helper()

	idx := blockindex.New(blockSize, 0)
	idx.AddChunk(source)
	idx.Finalize()

	src := &memSource{data: source}
	enc := container.NewEncoder()
	if err := enc.Begin(container.Header{SourceSize: uint64(len(source)), TargetSize: uint64(len(target))}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	d := New(idx, src, enc, DefaultMaxLiteral)
	if err := d.AddChunk(target); err != nil {
		t.Fatalf("add chunk: %v", err)
	}
	if err := d.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	enc.End()

	var out []byte
	for enc.HasOutput() {
		out = append(out, enc.FlushOutput(4096)...)
	}

	patch := &memSource{data: out}
	var result []byte
	cursor := int64(container.HeaderSize)
	for cursor < int64(len(out)) {
		inst, next, err := container.NextInstruction(patch, cursor)
		if err != nil {
			t.Fatalf("decode instruction: %v", err)
		}
		switch inst.Op {
		case container.OpCopy:
			result = append(result, source[inst.CopyOffset:inst.CopyOffset+uint64(inst.CopyLength)]...)
		case container.OpInsert:
			result = append(result, out[inst.DataOffset:inst.DataOffset+int64(inst.DataLength)]...)
		}
		cursor = next
	}

	if !bytes.Equal(result, target) {
		t.Fatalf("round-trip mismatch: got %d bytes, want %d bytes", len(result), len(target))
	}
}

func TestRoundTripIdenticalFiles(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
	runRoundTrip(t, 64, data, data)
}

func TestRoundTripAppendedTail(t *testing.T) {
	source := bytes.Repeat([]byte("abcdefgh"), 500)
	target := append(append([]byte{}, source...), []byte("some new trailing content that was never in the source")...)
	runRoundTrip(t, 32, source, target)
}

func TestRoundTripPrependedHead(t *testing.T) {
	source := bytes.Repeat([]byte("abcdefgh"), 500)
	target := append([]byte("brand new content prefixed before everything else"), source...)
	runRoundTrip(t, 32, source, target)
}

func TestRoundTripInsertedMiddle(t *testing.T) {
	source := bytes.Repeat([]byte("0123456789"), 400)
	mid := len(source) / 2
	target := append(append(append([]byte{}, source[:mid]...), []byte("--INSERTED--")...), source[mid:]...)
	runRoundTrip(t, 16, source, target)
}

func TestRoundTripUnalignedMatch(t *testing.T) {
	// A match that begins one byte off from any source block boundary,
	// exercising the rolling hash's ability to find matches at arbitrary
	// offsets rather than only at block-aligned ones.
	source := bytes.Repeat([]byte("ABCDEFGHIJKLMNOP"), 100)
	target := append([]byte("X"), source[1:]...)
	runRoundTrip(t, 16, source, target)
}

func TestRoundTripRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	source := make([]byte, 20000)
	rng.Read(source)

	target := append([]byte{}, source...)
	// Splice in a few random edits.
	for i := 0; i < 5; i++ {
		at := rng.Intn(len(target))
		insertion := make([]byte, 50+rng.Intn(200))
		rng.Read(insertion)
		target = append(target[:at:at], append(insertion, target[at:]...)...)
	}

	runRoundTrip(t, 64, source, target)
}

func TestEmptyTargetProducesNoInstructions(t *testing.T) {
	source := bytes.Repeat([]byte("x"), 100)
	instrs := diffToInstructions(t, 16, source, nil)
	if len(instrs) != 0 {
		t.Fatalf("expected no instructions for empty target, got %d", len(instrs))
	}
}

// TestBackwardExtensionRetractsLiteralIntoMatch exercises spec.md §4.4 step
// 5 directly: a matched block is immediately preceded, in both source and
// target, by bytes that were evicted into the pending literal buffer before
// the match was found. Backward extension must retract those bytes out of
// the literal and into the COPY, rather than leaving them stuck as an
// insert merely because they were seen before the match was confirmed.
func TestBackwardExtensionRetractsLiteralIntoMatch(t *testing.T) {
	const blockSize = 16
	blockA := bytes.Repeat([]byte("A"), blockSize) // source[0:16]
	blockB := bytes.Repeat([]byte("B"), blockSize) // source[16:32]
	source := append(append([]byte{}, blockA...), blockB...)

	// "XYZ123" never appears in source; "AAA" is a true suffix of blockA
	// that precedes the blockB match in target, exactly as it does in
	// source, so backward extension should reclaim it.
	target := append([]byte("XYZ123AAA"), blockB...)

	instrs := diffToInstructions(t, blockSize, source, target)
	if len(instrs) != 2 {
		t.Fatalf("expected exactly 2 instructions (insert + extended copy), got %d: %+v", len(instrs), instrs)
	}
	if instrs[0].Op != container.OpInsert || instrs[0].DataLength != 6 {
		t.Fatalf("expected a 6-byte insert for the unmatched prefix, got %+v", instrs[0])
	}
	if instrs[1].Op != container.OpCopy {
		t.Fatalf("expected the second instruction to be a copy, got %+v", instrs[1])
	}
	if instrs[1].CopyOffset != 13 || instrs[1].CopyLength != 19 {
		t.Fatalf("expected backward-extended copy at offset 13 length 19 (block+3 retracted bytes), got offset=%d length=%d",
			instrs[1].CopyOffset, instrs[1].CopyLength)
	}

	runRoundTrip(t, blockSize, source, target)
}

func TestNoMatchesProducesSingleInsert(t *testing.T) {
	source := bytes.Repeat([]byte("a"), 100)
	target := bytes.Repeat([]byte("z"), 100)
	instrs := diffToInstructions(t, 16, source, target)
	if len(instrs) != 1 || instrs[0].Op != container.OpInsert {
		t.Fatalf("expected exactly one INSERT for wholly unmatched target, got %+v", instrs)
	}
}

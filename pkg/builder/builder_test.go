package builder

import (
	"bytes"
	"testing"

	"github.com/hutomosaktikartiko/patchly/pkg/applier"
	"github.com/hutomosaktikartiko/patchly/pkg/container"
	"github.com/hutomosaktikartiko/patchly/pkg/errs"
)

// memRandomAccess is a minimal in-memory bytestore.RandomAccess for testing,
// so builder tests don't need a real filesystem.
type memRandomAccess struct{ data []byte }

func (m *memRandomAccess) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, bytes.ErrTooLarge
	}
	n := copy(p, m.data[off:])
	return n, nil
}
func (m *memRandomAccess) WriteAppend(p []byte) (int, error) {
	m.data = append(m.data, p...)
	return len(p), nil
}
func (m *memRandomAccess) Size() int64 { return int64(len(m.data)) }
func (m *memRandomAccess) Close() error { return nil }

func drain(b *Builder) []byte {
	var out []byte
	for b.HasOutput() {
		out = append(out, b.FlushOutput(4096)...)
	}
	return out
}

func buildAndApply(t *testing.T, source, target []byte) (patchBytes []byte, identical bool) {
	t.Helper()

	b := New(&memRandomAccess{}, 32, 0, 0)
	if err := b.AddSourceChunk(source); err != nil {
		t.Fatalf("add source chunk: %v", err)
	}
	if err := b.FinalizeSource(); err != nil {
		t.Fatalf("finalize source: %v", err)
	}
	if err := b.SetTargetSize(uint64(len(target))); err != nil {
		t.Fatalf("set target size: %v", err)
	}
	if err := b.AddTargetChunk(target); err != nil {
		t.Fatalf("add target chunk: %v", err)
	}
	if err := b.FinalizeTarget(); err != nil {
		t.Fatalf("finalize target: %v", err)
	}

	return drain(b), b.AreFilesIdentical()
}

func TestBuilderRoundTripThroughApplier(t *testing.T) {
	source := bytes.Repeat([]byte("the quick brown fox "), 300)
	target := append(append([]byte{}, source[:1000]...), []byte("an edit spliced into the middle of things")...)
	target = append(target, source[1000:]...)

	patchBytes, identical := buildAndApply(t, source, target)
	if identical {
		t.Fatal("expected files not to be identical")
	}

	a := applier.New()
	if err := a.SetPatch(&memRandomAccess{data: patchBytes}); err != nil {
		t.Fatalf("set patch: %v", err)
	}
	if err := a.ValidateSource(&memRandomAccess{data: source}); err != nil {
		t.Fatalf("validate source: %v", err)
	}
	out := &memRandomAccess{}
	if err := a.ApplyTo(out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !bytes.Equal(out.data, target) {
		t.Fatalf("applied output does not match target (got %d bytes, want %d)", len(out.data), len(target))
	}
}

func TestBuilderDetectsIdenticalFiles(t *testing.T) {
	data := bytes.Repeat([]byte("identical content here "), 100)
	_, identical := buildAndApply(t, data, data)
	if !identical {
		t.Fatal("expected identical files to be detected")
	}
}

func TestBuilderRejectsTargetChunkBeforeTargetSize(t *testing.T) {
	b := New(&memRandomAccess{}, 32, 0, 0)
	b.AddSourceChunk([]byte("hello"))
	b.FinalizeSource()

	err := b.AddTargetChunk([]byte("world"))
	if !errs.Is(err, errs.Usage) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

func TestBuilderRejectsSourceChunkAfterFinalize(t *testing.T) {
	b := New(&memRandomAccess{}, 32, 0, 0)
	b.AddSourceChunk([]byte("hello"))
	b.FinalizeSource()

	err := b.AddSourceChunk([]byte("more"))
	if !errs.Is(err, errs.Usage) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

func TestBuilderRejectsTargetSizeBeforeSourceFinalized(t *testing.T) {
	b := New(&memRandomAccess{}, 32, 0, 0)
	err := b.SetTargetSize(10)
	if !errs.Is(err, errs.Usage) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

// TestTwoIndependentBuildsAreByteIdentical resolves the determinism Open
// Question from spec.md §9: building the same source/target pair through
// two entirely independent Builder instances (distinct indexes, encoders,
// and stores) must produce bit-identical patch bytes, since nothing in the
// build pipeline (map iteration order, timestamps, randomness) should be
// allowed to leak into the wire output.
func TestTwoIndependentBuildsAreByteIdentical(t *testing.T) {
	source := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, "), 400)
	target := append(append([]byte{}, source[:2000]...), []byte("a deterministic splice")...)
	target = append(target, source[2000:]...)

	first, identicalFirst := buildAndApply(t, source, target)
	second, identicalSecond := buildAndApply(t, source, target)

	if identicalFirst != identicalSecond {
		t.Fatalf("identical-file detection disagreed between builds: %v vs %v", identicalFirst, identicalSecond)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("two independent builds over the same source/target produced different patch bytes (%d vs %d bytes)",
			len(first), len(second))
	}
}

func TestBuilderEmitsValidHeader(t *testing.T) {
	source := []byte("0123456789")
	patchBytes, _ := buildAndApply(t, source, []byte("0123456789-more"))

	header, err := container.ParseHeader(patchBytes)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if header.SourceSize != uint64(len(source)) {
		t.Fatalf("unexpected source size: %d", header.SourceSize)
	}
	if header.TargetSize != uint64(len("0123456789-more")) {
		t.Fatalf("unexpected target size: %d", header.TargetSize)
	}
}

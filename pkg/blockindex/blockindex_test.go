package blockindex

import (
	"bytes"
	"testing"

	"github.com/hutomosaktikartiko/patchly/pkg/checkdigest"
	"github.com/hutomosaktikartiko/patchly/pkg/rollinghash"
)

func TestLookupFindsIndexedBlock(t *testing.T) {
	const blockSize = 8
	block := bytes.Repeat([]byte{'x'}, blockSize)

	idx := New(blockSize, 0)
	idx.AddChunk(block)
	idx.Finalize()

	fp := rollinghash.Init(block).Fingerprint()
	offsets := idx.Lookup(fp)
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Fatalf("expected single offset 0, got %v", offsets)
	}

	digest, ok := idx.DigestAt(0)
	if !ok {
		t.Fatal("expected digest recorded at offset 0")
	}
	if digest != checkdigest.Sum64(block) {
		t.Fatal("recorded digest does not match block contents")
	}
}

func TestUnindexedTailIsDropped(t *testing.T) {
	const blockSize = 8
	idx := New(blockSize, 0)
	idx.AddChunk(bytes.Repeat([]byte{'y'}, blockSize+3))
	idx.Finalize()

	if idx.BytesIndexed() != blockSize {
		t.Fatalf("expected only one full block indexed, got %d bytes indexed", idx.BytesIndexed())
	}
	if idx.BytesSeen() != blockSize+3 {
		t.Fatalf("expected all ingested bytes counted as seen, got %d", idx.BytesSeen())
	}
}

func TestBucketCapTruncatesCollisions(t *testing.T) {
	const blockSize = 4
	idx := New(blockSize, 2)

	// Four distinct blocks engineered to collide is impractical to construct
	// directly; instead verify the cap mechanically by inserting the same
	// block repeated, which necessarily shares one fingerprint bucket.
	block := []byte{1, 2, 3, 4}
	for i := 0; i < 5; i++ {
		idx.AddChunk(block)
	}
	idx.Finalize()

	fp := rollinghash.Init(block).Fingerprint()
	offsets := idx.Lookup(fp)
	if len(offsets) != 2 {
		t.Fatalf("expected bucket capped at 2 offsets, got %d", len(offsets))
	}
	if offsets[0] != 0 || offsets[1] != blockSize {
		t.Fatalf("expected ascending offsets [0, %d], got %v", blockSize, offsets)
	}
}

func TestChunksNeedNotBeBlockAligned(t *testing.T) {
	const blockSize = 8
	data := bytes.Repeat([]byte{'z'}, blockSize*3)

	idx := New(blockSize, 0)
	// Feed in odd-sized chunks that don't align with block boundaries.
	idx.AddChunk(data[:5])
	idx.AddChunk(data[5:11])
	idx.AddChunk(data[11:])
	idx.Finalize()

	if idx.BytesIndexed() != blockSize*3 {
		t.Fatalf("expected all 3 blocks indexed regardless of chunk alignment, got %d bytes", idx.BytesIndexed())
	}
}

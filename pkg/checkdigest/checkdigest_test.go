package checkdigest

import (
	"math/rand"
	"testing"
)

func TestUpdateMatchesSum64(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	data := make([]byte, 10000)
	r.Read(data)

	streaming := New()
	for _, b := range data {
		streaming = streaming.Update(b)
	}

	if got, want := streaming.Sum64(), Sum64(data); got != want {
		t.Fatalf("streaming digest %d != one-shot digest %d", got, want)
	}
}

func TestWriteMatchesUpdate(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	var byByte Digest = New()
	for _, b := range data {
		byByte = byByte.Update(b)
	}

	byWrite := New().Write(data)

	if byByte.Sum64() != byWrite.Sum64() {
		t.Fatalf("Write digest disagrees with per-byte Update digest")
	}
}

func TestEmptyInputIsOffsetBasis(t *testing.T) {
	if got := Sum64(nil); got != Offset {
		t.Fatalf("digest of empty input = %d, want offset basis %d", got, Offset)
	}
}

func TestDifferentInputsTypicallyDiffer(t *testing.T) {
	if Sum64([]byte("a")) == Sum64([]byte("b")) {
		t.Fatal("expected distinct digests for distinct single-byte inputs")
	}
}

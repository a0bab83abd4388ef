// Package rollinghash implements the 32-bit weak rolling hash used by the
// differ to identify candidate matching windows in the target stream without
// rehashing the full window on every byte.
package rollinghash

// Modulus is the modulus applied to both hash components. It is the largest
// prime less than 2^16, matching the classical rsync weak-hash construction.
const Modulus = 65521

// Hash is a rolling fingerprint over a fixed-size window of bytes. Its zero
// value is not valid; construct one with Init.
type Hash struct {
	a, b uint32
	size uint32
}

// Init computes the hash of a fresh window. window must be exactly the
// window size the caller intends to use for every subsequent Roll call;
// mixing window sizes on a single Hash produces meaningless fingerprints.
func Init(window []byte) Hash {
	var a, b uint64
	n := uint32(len(window))
	for i, w := range window {
		a += uint64(w)
		b += uint64(n-uint32(i)) * uint64(w)
	}
	return Hash{
		a:    uint32((a + 1) % Modulus),
		b:    uint32(b % Modulus),
		size: n,
	}
}

// Roll slides the window forward by one byte: old leaves the window (at its
// front) and next enters it (at its back). It returns the updated hash.
//
// Contract: for any byte sequence s and any i >= size, the fingerprint
// obtained by Init(s[i-size:i]) equals the fingerprint obtained by
// Init(s[0:size]) followed by (i-size) calls to Roll with the appropriate
// evicted/admitted bytes. This must hold for arbitrary byte values, including
// wraparound of the modular arithmetic.
func (h Hash) Roll(old, next byte) Hash {
	size := h.size
	a := (h.a + uint32(next) + Modulus - uint32(old)) % Modulus
	// a carries Init's +1 offset; b accumulates the plain byte sum, so the
	// offset is taken back out before adding a into b.
	b := (h.b + a + Modulus - 1 + Modulus - (size*uint32(old))%Modulus) % Modulus
	return Hash{a: a, b: b, size: size}
}

// Fingerprint returns the 32-bit fingerprint of the current window.
func (h Hash) Fingerprint() uint32 {
	return (h.b << 16) | h.a
}

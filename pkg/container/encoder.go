package container

import (
	"bytes"

	"github.com/hutomosaktikartiko/patchly/pkg/errs"
)

// Encoder assembles a patch container incrementally: begin, then any
// interleaving of EmitCopy/EmitInsert, then End. Encoded bytes accumulate in
// an internal queue that the host drains via FlushOutput, so the encoder
// itself never holds more than one bounded batch of unflushed output at a
// time in a well-behaved caller (spec.md §5's cooperative-suspension model —
// the encoder does no I/O and never blocks; the host decides when to drain).
type Encoder struct {
	out   bytes.Buffer
	begun bool
	ended bool
}

// NewEncoder constructs an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Begin writes the container header. It must be called exactly once, before
// any EmitCopy/EmitInsert/End call.
func (e *Encoder) Begin(h Header) error {
	if e.begun {
		return errs.Misuse("container already begun")
	}
	e.begun = true
	header := EncodeHeader(h)
	e.out.Write(header[:])
	return nil
}

// EmitCopy appends a COPY instruction.
func (e *Encoder) EmitCopy(off uint64, length uint32) error {
	if !e.begun || e.ended {
		return errs.Misuse("emit called outside an open container")
	}
	if length == 0 {
		return nil
	}
	instr := EncodeCopy(off, length)
	e.out.Write(instr[:])
	return nil
}

// EmitInsert appends an INSERT instruction carrying data verbatim.
func (e *Encoder) EmitInsert(data []byte) error {
	if !e.begun || e.ended {
		return errs.Misuse("emit called outside an open container")
	}
	if len(data) == 0 {
		return nil
	}
	header := EncodeInsertHeader(uint32(len(data)))
	e.out.Write(header[:])
	e.out.Write(data)
	return nil
}

// End marks the container complete. No instructions may be emitted
// afterward, though buffered output may still need to be drained via
// FlushOutput.
func (e *Encoder) End() error {
	if !e.begun {
		return errs.Misuse("container never begun")
	}
	if e.ended {
		return errs.Misuse("container already ended")
	}
	e.ended = true
	return nil
}

// HasOutput reports whether there is any buffered, unflushed output.
func (e *Encoder) HasOutput() bool {
	return e.out.Len() > 0
}

// PendingOutputSize returns the number of unflushed bytes currently queued.
func (e *Encoder) PendingOutputSize() int {
	return e.out.Len()
}

// FlushOutput drains up to maxBytes of buffered output, or fewer if less is
// queued. It returns an empty slice, never nil, when nothing is queued.
func (e *Encoder) FlushOutput(maxBytes int) []byte {
	if maxBytes <= 0 || e.out.Len() == 0 {
		return []byte{}
	}
	n := maxBytes
	if n > e.out.Len() {
		n = e.out.Len()
	}
	return e.out.Next(n)
}

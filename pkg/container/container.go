// Package container implements the bit-exact patch container wire format: a
// fixed 33-byte header followed by a concatenation of COPY and INSERT
// instructions, terminated by end of stream.
//
// Layout (all multi-byte integers little-endian):
//
//	Offset  Size  Field
//	0       4     magic          'P','T','C','H'
//	4       1     version        0x01
//	5       8     source_size    u64
//	13      8     source_digest  u64 (FNV-1a over source bytes)
//	21      8     target_size    u64
//	29      4     reserved       0x00000000
//	33      …     instructions   COPY (13 bytes) | INSERT (5+len bytes)
//
// Structurally grounded on original_source/rust/src/format/patch_format.rs's
// split between an owned Instruction type and zero-copy header parsing;
// the byte layout itself follows spec.md §6 exactly, which differs from
// original_source (no chunk_size field, an explicit reserved field instead).
package container

import (
	"encoding/binary"

	"github.com/hutomosaktikartiko/patchly/pkg/errs"
	"github.com/hutomosaktikartiko/patchly/pkg/patchly"
)

// Magic is the literal 4-byte magic that opens every patch container.
var Magic = [4]byte{'P', 'T', 'C', 'H'}

const (
	// HeaderSize is the fixed size, in bytes, of the patch container header.
	HeaderSize = 33

	// OpCopy tags a COPY instruction.
	OpCopy byte = 0x01
	// OpInsert tags an INSERT instruction.
	OpInsert byte = 0x02

	// copyInstructionSize is the fixed encoded size of a COPY instruction:
	// 1 opcode + 8 offset + 4 length.
	copyInstructionSize = 13
	// insertHeaderSize is the fixed encoded size of an INSERT instruction's
	// header (opcode + length), preceding its variable-length payload.
	insertHeaderSize = 5
)

// Header is the parsed, fixed-size prefix of a patch container.
type Header struct {
	SourceSize   uint64
	SourceDigest uint64
	TargetSize   uint64
}

// EncodeHeader writes the 33-byte header for the given sizes and digest.
func EncodeHeader(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:4], Magic[:])
	buf[4] = patchly.ContainerFormatVersion
	binary.LittleEndian.PutUint64(buf[5:13], h.SourceSize)
	binary.LittleEndian.PutUint64(buf[13:21], h.SourceDigest)
	binary.LittleEndian.PutUint64(buf[21:29], h.TargetSize)
	// buf[29:33] is the reserved field, left zero.
	return buf
}

// ParseHeader decodes the first HeaderSize bytes of a patch container. It
// can be called independently of an apply operation (e.g. for an "inspect"
// command that reports header fields without validating the source),
// mirroring original_source's parse_patch_header_only.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.TruncatedInstruction()
	}
	if string(data[0:4]) != string(Magic[:]) {
		return Header{}, errs.BadMagic()
	}
	version := data[4]
	if version != patchly.ContainerFormatVersion {
		return Header{}, errs.UnsupportedVersion(version)
	}
	return Header{
		SourceSize:   binary.LittleEndian.Uint64(data[5:13]),
		SourceDigest: binary.LittleEndian.Uint64(data[13:21]),
		TargetSize:   binary.LittleEndian.Uint64(data[21:29]),
	}, nil
}

// EncodeCopy writes a 13-byte COPY instruction: opcode, source offset, run
// length.
func EncodeCopy(off uint64, length uint32) [copyInstructionSize]byte {
	var buf [copyInstructionSize]byte
	buf[0] = OpCopy
	binary.LittleEndian.PutUint64(buf[1:9], off)
	binary.LittleEndian.PutUint32(buf[9:13], length)
	return buf
}

// EncodeInsertHeader writes the 5-byte INSERT instruction header (opcode,
// length); the caller appends length literal bytes immediately after.
func EncodeInsertHeader(length uint32) [insertHeaderSize]byte {
	var buf [insertHeaderSize]byte
	buf[0] = OpInsert
	binary.LittleEndian.PutUint32(buf[1:5], length)
	return buf
}

// Instruction is a decoded COPY or INSERT, as returned by NextInstruction.
// For an INSERT, the literal bytes are not read eagerly — DataOffset names
// where they live in the patch store, so a caller can stream them in
// whatever chunk size it likes instead of allocating the full payload.
type Instruction struct {
	Op byte

	// Valid when Op == OpCopy.
	CopyOffset uint64
	CopyLength uint32

	// Valid when Op == OpInsert.
	DataOffset int64
	DataLength uint32
}

// store is the minimal read interface NextInstruction needs; it matches
// bytestore.RandomAccess without importing that package, avoiding a
// dependency cycle (bytestore need not depend on container).
type store interface {
	ReadAt(p []byte, off int64) (int, error)
}

// NextInstruction decodes one instruction starting at cursor and returns it
// along with the cursor position immediately following it. A cursor at or
// past the store's logical end-of-instructions should not be passed in;
// callers detect end-of-stream by comparing cursor against the patch store's
// total size before calling NextInstruction again.
func NextInstruction(s store, cursor int64) (Instruction, int64, error) {
	var opcode [1]byte
	if _, err := s.ReadAt(opcode[:], cursor); err != nil {
		return Instruction{}, cursor, errs.TruncatedInstruction()
	}

	switch opcode[0] {
	case OpCopy:
		var body [copyInstructionSize - 1]byte
		if _, err := s.ReadAt(body[:], cursor+1); err != nil {
			return Instruction{}, cursor, errs.TruncatedInstruction()
		}
		inst := Instruction{
			Op:         OpCopy,
			CopyOffset: binary.LittleEndian.Uint64(body[0:8]),
			CopyLength: binary.LittleEndian.Uint32(body[8:12]),
		}
		return inst, cursor + copyInstructionSize, nil
	case OpInsert:
		var body [insertHeaderSize - 1]byte
		if _, err := s.ReadAt(body[:], cursor+1); err != nil {
			return Instruction{}, cursor, errs.TruncatedInstruction()
		}
		length := binary.LittleEndian.Uint32(body[:])
		inst := Instruction{
			Op:         OpInsert,
			DataOffset: cursor + insertHeaderSize,
			DataLength: length,
		}
		return inst, cursor + int64(insertHeaderSize) + int64(length), nil
	default:
		return Instruction{}, cursor, errs.UnknownOpcode(opcode[0])
	}
}

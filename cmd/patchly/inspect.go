package main

import (
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	appcmd "github.com/hutomosaktikartiko/patchly/cmd"
	"github.com/hutomosaktikartiko/patchly/pkg/bytestore"
	"github.com/hutomosaktikartiko/patchly/pkg/container"
	"github.com/hutomosaktikartiko/patchly/pkg/encoding"
	"github.com/hutomosaktikartiko/patchly/pkg/must"
)

var flagHeaderOnly bool

var inspectCommand = &cobra.Command{
	Use:   "inspect <patch>",
	Short: "Report a patch's header fields and instruction statistics",
	Args:  cobra.ExactArgs(1),
	Run:   appcmd.Mainify(runInspect),
}

func init() {
	inspectCommand.Flags().BoolVar(&flagHeaderOnly, "header-only", false, "report only the header, without scanning instructions")
}

// stats summarizes a patch's instruction stream, mirroring
// original_source's Patch::stats() feature (dropped from the distilled
// specification but reinstated here as a supplemented feature).
type stats struct {
	copyCount    int
	insertCount  int
	copyBytes    uint64
	insertBytes  uint64
	instructions int
}

func runInspect(_ *cobra.Command, arguments []string) error {
	patchPath := arguments[0]

	patchStore, err := bytestore.OpenFile(patchPath)
	if err != nil {
		return fmt.Errorf("unable to open patch: %w", err)
	}
	defer must.Close(patchStore, appLogger)

	var headerBytes [container.HeaderSize]byte
	if _, err := patchStore.ReadAt(headerBytes[:], 0); err != nil {
		return fmt.Errorf("unable to read patch header: %w", err)
	}
	header, err := container.ParseHeader(headerBytes[:])
	if err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}

	var digestBytes [8]byte
	binary.LittleEndian.PutUint64(digestBytes[:], header.SourceDigest)

	fmt.Printf("Source size:   %s (%d bytes)\n", humanize.Bytes(header.SourceSize), header.SourceSize)
	fmt.Printf("Source digest: %016x\n", header.SourceDigest)
	fmt.Printf("Source ID:     %s\n", encoding.EncodeBase64(digestBytes[:]))
	fmt.Printf("Target size:   %s (%d bytes)\n", humanize.Bytes(header.TargetSize), header.TargetSize)

	if flagHeaderOnly {
		return nil
	}

	s, err := scanInstructions(patchStore)
	if err != nil {
		return fmt.Errorf("unable to scan instructions: %w", err)
	}

	fmt.Printf("Instructions:  %d (%d copy, %d insert)\n", s.instructions, s.copyCount, s.insertCount)
	fmt.Printf("Copy bytes:    %s\n", humanize.Bytes(s.copyBytes))
	fmt.Printf("Insert bytes:  %s\n", humanize.Bytes(s.insertBytes))
	if header.TargetSize > 0 {
		ratio := float64(s.insertBytes) / float64(header.TargetSize) * 100
		fmt.Printf("Literal ratio: %.2f%%\n", ratio)
	}
	return nil
}

func scanInstructions(patchStore *bytestore.FileStore) (stats, error) {
	var s stats
	cursor := int64(container.HeaderSize)
	size := patchStore.Size()

	for cursor < size {
		inst, next, err := container.NextInstruction(patchStore, cursor)
		if err != nil {
			return s, err
		}
		s.instructions++
		switch inst.Op {
		case container.OpCopy:
			s.copyCount++
			s.copyBytes += uint64(inst.CopyLength)
		case container.OpInsert:
			s.insertCount++
			s.insertBytes += uint64(inst.DataLength)
		}
		cursor = next
	}
	return s, nil
}

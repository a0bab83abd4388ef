package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	appcmd "github.com/hutomosaktikartiko/patchly/cmd"
	"github.com/hutomosaktikartiko/patchly/pkg/builder"
	"github.com/hutomosaktikartiko/patchly/pkg/bytestore"
	"github.com/hutomosaktikartiko/patchly/pkg/must"
)

var generateCommand = &cobra.Command{
	Use:   "generate <source> <target> <patch>",
	Short: "Generate a patch that transforms source into target",
	Args:  cobra.ExactArgs(3),
	Run:   appcmd.Mainify(runGenerate),
}

func runGenerate(_ *cobra.Command, arguments []string) error {
	sourcePath, targetPath, patchPath := arguments[0], arguments[1], arguments[2]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	appLogger.Debugf("Generating patch from %s to %s", sourcePath, targetPath)

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer must.Close(sourceFile, appLogger)

	targetFile, err := os.Open(targetPath)
	if err != nil {
		return fmt.Errorf("unable to open target: %w", err)
	}
	defer must.Close(targetFile, appLogger)

	targetInfo, err := targetFile.Stat()
	if err != nil {
		return fmt.Errorf("unable to stat target: %w", err)
	}

	// The builder needs random-access reads over the source for match
	// extension, so it's staged into its own temporary, append-only store
	// as it's ingested, mirroring how a non-file (e.g. network) source
	// would be staged by a real host.
	sourceStore, err := bytestore.CreateTemp(os.TempDir(), "patchly-generate-source")
	if err != nil {
		return fmt.Errorf("unable to create staging store: %w", err)
	}
	defer func() {
		name := sourceStore.Name()
		must.Close(sourceStore, appLogger)
		must.OSRemove(name, appLogger)
	}()

	appLogger.Debugf("Indexing source with block size %d, bucket cap %d", cfg.BlockSize, cfg.BucketCap)
	b := builder.New(sourceStore, cfg.BlockSize, cfg.BucketCap, cfg.MaxLiteral)

	sourceReader := bytestore.NewReaderSource(sourceFile, cfg.ChunkSize)
	for {
		chunk, more, err := sourceReader.ReadNext()
		if err != nil {
			return fmt.Errorf("unable to read source: %w", err)
		}
		if err := b.AddSourceChunk(chunk); err != nil {
			return fmt.Errorf("unable to index source: %w", err)
		}
		if !more {
			break
		}
	}
	if err := b.FinalizeSource(); err != nil {
		return fmt.Errorf("unable to finalize source: %w", err)
	}

	if err := b.SetTargetSize(uint64(targetInfo.Size())); err != nil {
		return fmt.Errorf("unable to set target size: %w", err)
	}

	patchFile, err := os.Create(patchPath)
	if err != nil {
		return fmt.Errorf("unable to create patch file: %w", err)
	}
	defer must.Close(patchFile, appLogger)

	printer := &appcmd.StatusLinePrinter{}

	targetReader := bytestore.NewReaderSource(targetFile, cfg.ChunkSize)
	var targetBytesSeen uint64
	for {
		chunk, more, err := targetReader.ReadNext()
		if err != nil {
			return fmt.Errorf("unable to read target: %w", err)
		}
		if err := b.AddTargetChunk(chunk); err != nil {
			return fmt.Errorf("unable to diff target: %w", err)
		}
		targetBytesSeen += uint64(len(chunk))
		if !flagQuiet {
			printer.Print(fmt.Sprintf("Diffing... %s / %s", humanize.Bytes(targetBytesSeen), humanize.Bytes(uint64(targetInfo.Size()))))
		}
		if err := drainToFile(b, patchFile); err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if !flagQuiet {
		printer.Clear()
	}

	if err := b.FinalizeTarget(); err != nil {
		return fmt.Errorf("unable to finalize target: %w", err)
	}
	if err := drainToFile(b, patchFile); err != nil {
		return err
	}

	if b.AreFilesIdentical() {
		appcmd.Warning("source and target are identical; the generated patch is degenerate")
	}

	fmt.Printf("Wrote patch to %s\n", patchPath)
	return nil
}

// drainToFile flushes all currently buffered patch output to file in
// bounded batches, keeping the builder's internal encoder buffer from
// growing unboundedly during a long diff.
func drainToFile(b *builder.Builder, file *os.File) error {
	for b.HasOutput() {
		chunk := b.FlushOutput(1024 * 1024)
		if len(chunk) == 0 {
			break
		}
		if _, err := file.Write(chunk); err != nil {
			return fmt.Errorf("unable to write patch output: %w", err)
		}
	}
	return nil
}

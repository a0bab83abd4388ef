package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appcmd "github.com/hutomosaktikartiko/patchly/cmd"
	"github.com/hutomosaktikartiko/patchly/pkg/applier"
	"github.com/hutomosaktikartiko/patchly/pkg/bytestore"
	"github.com/hutomosaktikartiko/patchly/pkg/must"
)

var applyCommand = &cobra.Command{
	Use:   "apply <source> <patch> <output>",
	Short: "Apply a patch to source, producing output",
	Args:  cobra.ExactArgs(3),
	Run:   appcmd.Mainify(runApply),
}

func runApply(_ *cobra.Command, arguments []string) error {
	sourcePath, patchPath, outputPath := arguments[0], arguments[1], arguments[2]

	appLogger.Debugf("Applying patch %s to %s", patchPath, sourcePath)

	sourceStore, err := bytestore.OpenFile(sourcePath)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer must.Close(sourceStore, appLogger)

	patchStore, err := bytestore.OpenFile(patchPath)
	if err != nil {
		return fmt.Errorf("unable to open patch: %w", err)
	}
	defer must.Close(patchStore, appLogger)

	a := applier.New()
	if err := a.SetPatch(patchStore); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	if err := a.ValidateSource(sourceStore); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}

	outputStore, err := bytestore.CreateTemp(tempDirFor(outputPath), "patchly-apply-output")
	if err != nil {
		return fmt.Errorf("unable to create staging output: %w", err)
	}
	stagingPath := outputStore.Name()
	appLogger.Debugf("Staging output at %s", stagingPath)

	if err := a.ApplyTo(outputStore); err != nil {
		must.Close(outputStore, appLogger)
		must.OSRemove(stagingPath, appLogger)
		return fmt.Errorf("apply failed: %w", err)
	}
	if err := outputStore.Close(); err != nil {
		must.OSRemove(stagingPath, appLogger)
		return fmt.Errorf("unable to close output: %w", err)
	}

	if err := os.Rename(stagingPath, outputPath); err != nil {
		must.OSRemove(stagingPath, appLogger)
		return fmt.Errorf("unable to move output into place: %w", err)
	}

	fmt.Printf("Wrote %s\n", outputPath)
	return nil
}

// tempDirFor returns the directory that should hold a staging file for path,
// so the final rename into place is same-filesystem (and thus atomic).
func tempDirFor(path string) string {
	if dir := parentDir(path); dir != "" {
		return dir
	}
	return os.TempDir()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i]
		}
	}
	return "."
}

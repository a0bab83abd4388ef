package encoding

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// loadAndUnmarshal provides the underlying loading and unmarshaling
// functionality for the encoding package. It reads the data at the specified
// path and then invokes the specified unmarshaling callback (usually a
// closure) to decode the data.
func loadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return errors.Wrap(err, "unable to load file")
	}

	if err := unmarshal(data); err != nil {
		return errors.Wrap(err, "unable to unmarshal data")
	}

	return nil
}

// marshalAndSave provides the underlying marshaling and saving functionality
// for the encoding package. It invokes the specified marshaling callback
// (usually a closure) and writes the result atomically to the specified path
// by writing to a temporary file in the same directory and renaming it into
// place, so that a concurrent reader never observes a partially written
// configuration file. The data is saved with read/write permissions for the
// user only.
func marshalAndSave(path string, marshal func() ([]byte, error)) error {
	data, err := marshal()
	if err != nil {
		return errors.Wrap(err, "unable to marshal message")
	}

	directory := filepath.Dir(path)
	temporary, err := os.CreateTemp(directory, ".patchly-encoding-*")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return errors.Wrap(err, "unable to write message data")
	}
	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return errors.Wrap(err, "unable to set file permissions")
	}
	if err := temporary.Close(); err != nil {
		return errors.Wrap(err, "unable to close temporary file")
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		return errors.Wrap(err, "unable to rename file into place")
	}

	return nil
}

package encoding

import (
	"gopkg.in/yaml.v3"
)

// LoadAndUnmarshalYAML loads data from the specified path and decodes it into
// the specified structure. Used for the patchly CLI's configuration file
// (index block size, literal buffer cap, bucket cap overrides).
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return loadAndUnmarshal(path, func(data []byte) error {
		return yaml.Unmarshal(data, value)
	})
}

// MarshalAndSaveYAML marshals value as YAML and saves it atomically to path.
func MarshalAndSaveYAML(path string, value interface{}) error {
	return marshalAndSave(path, func() ([]byte, error) {
		return yaml.Marshal(value)
	})
}

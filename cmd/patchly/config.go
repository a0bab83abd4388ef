package main

import (
	"os"
	"path/filepath"

	"github.com/hutomosaktikartiko/patchly/pkg/builder"
	"github.com/hutomosaktikartiko/patchly/pkg/differ"
	"github.com/hutomosaktikartiko/patchly/pkg/encoding"
)

// config holds the tunables an operator can override via ~/.patchly.yaml:
// the block index granularity, its per-bucket collision cap, and the
// differ's literal-buffer bound. Zero values fall back to their package
// defaults.
type config struct {
	BlockSize  uint64 `yaml:"blockSize"`
	BucketCap  int    `yaml:"bucketCap"`
	MaxLiteral int    `yaml:"maxLiteral"`
	ChunkSize  int    `yaml:"chunkSize"`
}

func defaultConfig() *config {
	return &config{
		BlockSize:  builder.DefaultBlockSize,
		BucketCap:  0, // blockindex.DefaultBucketCap
		MaxLiteral: differ.DefaultMaxLiteral,
		ChunkSize:  64 * 1024,
	}
}

// loadConfig reads ~/.patchly.yaml if present, overlaying its fields onto
// the defaults. A missing file is not an error.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	var loaded config
	path := filepath.Join(home, ".patchly.yaml")
	if err := encoding.LoadAndUnmarshalYAML(path, &loaded); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if loaded.BlockSize != 0 {
		cfg.BlockSize = loaded.BlockSize
	}
	if loaded.BucketCap != 0 {
		cfg.BucketCap = loaded.BucketCap
	}
	if loaded.MaxLiteral != 0 {
		cfg.MaxLiteral = loaded.MaxLiteral
	}
	if loaded.ChunkSize != 0 {
		cfg.ChunkSize = loaded.ChunkSize
	}
	return cfg, nil
}

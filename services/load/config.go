package load

import (
	"path/filepath"

	"github.com/pkg/errors"
)

const functionsDir = "functions"

type Config struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func NewConfig() Config {
	return Config{
		Enabled: false,
		Dir:     "./load",
	}
}

// Validate verifies that the directory is an absolute path when loading is
// enabled. Definitions are read from its functions subdirectory.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !filepath.IsAbs(c.Dir) {
		return errors.New("dir must be an absolute path")
	}
	return nil
}

func (c Config) functionsDir() string {
	return filepath.Join(c.Dir, functionsDir)
}

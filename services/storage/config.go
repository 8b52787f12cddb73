package storage

import "github.com/pkg/errors"

type Config struct {
	// Path to a boltdb database file.
	BoltDBPath string `toml:"boltdb"`
}

func NewConfig() Config {
	return Config{
		BoltDBPath: "./fengine.db",
	}
}

func (c Config) Validate() error {
	if c.BoltDBPath == "" {
		return errors.New("must specify storage 'boltdb' path")
	}
	return nil
}

package run

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/datamelt/fengine/server"
	"github.com/pkg/errors"
)

// Locations searched for a configuration file, in order.
var defaultConfigPaths = []string{
	"${HOME}/.fengine/fengine.conf",
	"/etc/fengine/fengine.conf",
}

// FindConfigPath resolves the configuration file to use: configPath when
// given, then $FENGINE_CONFIG_PATH, then the first non empty file of
// ~/.fengine/fengine.conf and /etc/fengine/fengine.conf. An empty result,
// or configPath set to os.DevNull, selects the built-in defaults.
func FindConfigPath(configPath string) string {
	switch {
	case configPath == os.DevNull:
		return ""
	case configPath != "":
		return configPath
	}
	if env := os.Getenv("FENGINE_CONFIG_PATH"); env != "" {
		return env
	}
	for _, p := range defaultConfigPaths {
		p = os.ExpandEnv(p)
		if fi, err := os.Stat(p); err == nil && fi.Size() != 0 {
			return p
		}
	}
	return ""
}

// loadConfig decodes the file at path over the demo configuration and
// applies the FENGINE_* environment overrides.
func loadConfig(path string) (*server.Config, error) {
	config, err := server.NewDemoConfig()
	if err != nil {
		config = server.NewConfig()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := config.ApplyEnvOverrides(); err != nil {
		return nil, errors.Wrap(err, "apply env config")
	}
	return config, nil
}

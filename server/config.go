package server

import (
	"encoding"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/datamelt/fengine/services/httpd"
	"github.com/datamelt/fengine/services/load"
	"github.com/datamelt/fengine/services/logging"
	"github.com/datamelt/fengine/services/registry"
	"github.com/datamelt/fengine/services/storage"
	"github.com/pkg/errors"
)

// Config represents the configuration format for the fengined binary.
type Config struct {
	HTTP    httpd.Config   `toml:"http"`
	Storage storage.Config `toml:"storage"`
	Logging logging.Config `toml:"logging"`
	Load    load.Config    `toml:"load"`

	Hostname string `toml:"hostname"`
	DataDir  string `toml:"data_dir"`
	// SampleWorkers bounds the goroutines sampling one function, zero uses GOMAXPROCS.
	SampleWorkers int `toml:"sample-workers"`
	// MaxPoints bounds the points one request may evaluate, zero disables the limit.
	MaxPoints int `toml:"max-points"`
}

// NewConfig returns an instance of Config with reasonable defaults.
func NewConfig() *Config {
	c := &Config{
		Hostname:  "localhost",
		DataDir:   ".",
		MaxPoints: registry.DefaultMaxPoints,
	}

	c.HTTP = httpd.NewConfig()
	c.Storage = storage.NewConfig()
	c.Logging = logging.NewConfig()
	c.Load = load.NewConfig()

	return c
}

// NewDemoConfig returns the config that runs when no config is specified.
func NewDemoConfig() (*Config, error) {
	c := NewConfig()

	var homeDir string
	// By default, store data files in current users home directory
	u, err := user.Current()
	if err == nil {
		homeDir = u.HomeDir
	} else if os.Getenv("HOME") != "" {
		homeDir = os.Getenv("HOME")
	} else {
		return nil, fmt.Errorf("failed to determine current user for storage")
	}

	c.Storage.BoltDBPath = filepath.Join(homeDir, ".fengine", c.Storage.BoltDBPath)
	c.DataDir = filepath.Join(homeDir, ".fengine", c.DataDir)
	c.Load.Dir = filepath.Join(homeDir, ".fengine", c.Load.Dir)

	return c, nil
}

// Validate returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("must configure valid hostname")
	}
	if c.DataDir == "" {
		return fmt.Errorf("must configure valid data dir")
	}
	if c.SampleWorkers < 0 {
		return fmt.Errorf("sample-workers must not be negative")
	}
	if c.MaxPoints < 0 {
		return fmt.Errorf("max-points must not be negative")
	}
	if err := c.Storage.Validate(); err != nil {
		return errors.Wrap(err, "storage")
	}
	if err := c.HTTP.Validate(); err != nil {
		return errors.Wrap(err, "http")
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Wrap(err, "logging")
	}
	if err := c.Load.Validate(); err != nil {
		return errors.Wrap(err, "load")
	}
	return nil
}

// ApplyEnvOverrides sets fields from FENGINE_<SECTION>_<KEY> variables,
// keys are the upper cased toml names with hyphens replaced by underscores.
func (c *Config) ApplyEnvOverrides() error {
	return applyEnv(os.LookupEnv, "FENGINE", reflect.ValueOf(c).Elem())
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// applyEnv walks the toml tagged fields of v, naming each field by its
// path of tags joined with underscores under prefix.
func applyEnv(lookup func(string) (string, bool), prefix string, v reflect.Value) error {
	if v.Kind() == reflect.Struct && !reflect.PtrTo(v.Type()).Implements(textUnmarshalerType) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("toml")
			if tag == "" || tag == "-" || !v.Field(i).CanSet() {
				continue
			}
			key := prefix + "_" + strings.ToUpper(strings.Replace(tag, "-", "_", -1))
			if err := applyEnv(lookup, key, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}

	value, ok := lookup(prefix)
	if !ok || value == "" {
		return nil
	}
	if err := setValue(v, value); err != nil {
		return errors.Wrapf(err, "failed to apply %s using type %s and value %q", prefix, v.Type(), value)
	}
	return nil
}

func setValue(v reflect.Value, value string) error {
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText([]byte(value))
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 0, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return errors.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}

package httpd

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultBindAddress     = ":9094"
	DefaultShutdownTimeout = Duration(time.Second * 10)
)

// Duration is a time.Duration read from TOML strings such as "10s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type Config struct {
	BindAddress     string   `toml:"bind-address"`
	LogEnabled      bool     `toml:"log-enabled"`
	ShutdownTimeout Duration `toml:"shutdown-timeout"`
}

func NewConfig() Config {
	return Config{
		BindAddress:     DefaultBindAddress,
		LogEnabled:      true,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c Config) Validate() error {
	if _, err := c.Port(); err != nil {
		return err
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown-timeout must not be negative")
	}
	return nil
}

// Port returns the port of the bind address.
func (c Config) Port() (int, error) {
	_, port, err := net.SplitHostPort(c.BindAddress)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid bind-address %q", c.BindAddress)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid port in bind-address %q", c.BindAddress)
	}
	return p, nil
}

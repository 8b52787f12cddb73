package server_test

import (
	"os"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/datamelt/fengine/server"
	"github.com/datamelt/fengine/services/httpd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure the configuration can be parsed.
func TestConfig_Parse(t *testing.T) {
	// Parse configuration.
	c := server.NewConfig()
	if _, err := toml.Decode(`
hostname = "fengine.local"
data_dir = "/var/lib/fengine"
sample-workers = 4
max-points = 5000

[storage]
boltdb = "/tmp/fengine.db"

[http]
bind-address = ":9999"
shutdown-timeout = "3s"

[logging]
level = "debug"
encoding = "json"

[load]
enabled = true
dir = "/etc/fengine/load"
`, c); err != nil {
		t.Fatal(err)
	}

	// Validate configuration.
	require.NoError(t, c.Validate())
	assert.Equal(t, "fengine.local", c.Hostname)
	assert.Equal(t, "/var/lib/fengine", c.DataDir)
	assert.Equal(t, 4, c.SampleWorkers)
	assert.Equal(t, 5000, c.MaxPoints)
	assert.Equal(t, "/tmp/fengine.db", c.Storage.BoltDBPath)
	assert.Equal(t, ":9999", c.HTTP.BindAddress)
	assert.Equal(t, httpd.Duration(3*time.Second), c.HTTP.ShutdownTimeout)
	assert.True(t, c.HTTP.LogEnabled)
	assert.Equal(t, "json", c.Logging.Encoding)
	assert.True(t, c.Load.Enabled)
	assert.Equal(t, "/etc/fengine/load", c.Load.Dir)
}

// Ensure the configuration can be parsed.
func TestConfig_Parse_EnvOverride(t *testing.T) {
	// Parse configuration.
	c := server.NewConfig()
	if _, err := toml.Decode(`
[storage]
boltdb = "/tmp/fengine.db"
`, c); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		"FENGINE_STORAGE_BOLTDB":        "/var/lib/fengine/fengine.db",
		"FENGINE_HTTP_BIND_ADDRESS":     ":9192",
		"FENGINE_HTTP_LOG_ENABLED":      "false",
		"FENGINE_HTTP_SHUTDOWN_TIMEOUT": "1m",
		"FENGINE_LOAD_ENABLED":          "true",
		"FENGINE_LOAD_DIR":              "/var/lib/fengine/load",
		"FENGINE_SAMPLE_WORKERS":        "8",
		"FENGINE_MAX_POINTS":            "0",
		"FENGINE_DATA_DIR":              "/var/lib/fengine",
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("failed to set env var: %v", err)
		}
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	if err := c.ApplyEnvOverrides(); err != nil {
		t.Fatalf("failed to apply env overrides: %v", err)
	}

	// Validate configuration.
	require.NoError(t, c.Validate())
	assert.Equal(t, "/var/lib/fengine/fengine.db", c.Storage.BoltDBPath)
	assert.Equal(t, ":9192", c.HTTP.BindAddress)
	assert.False(t, c.HTTP.LogEnabled)
	assert.Equal(t, httpd.Duration(time.Minute), c.HTTP.ShutdownTimeout)
	assert.True(t, c.Load.Enabled)
	assert.Equal(t, "/var/lib/fengine/load", c.Load.Dir)
	assert.Equal(t, 8, c.SampleWorkers)
	assert.Equal(t, 0, c.MaxPoints)
	assert.Equal(t, "/var/lib/fengine", c.DataDir)
}

func TestConfig_Parse_EnvOverride_Invalid(t *testing.T) {
	testCases := map[string]string{
		"FENGINE_SAMPLE_WORKERS":        "many",
		"FENGINE_HTTP_LOG_ENABLED":      "maybe",
		"FENGINE_HTTP_SHUTDOWN_TIMEOUT": "soon",
	}
	for k, v := range testCases {
		t.Run(k, func(t *testing.T) {
			os.Setenv(k, v)
			defer os.Unsetenv(k)
			assert.Error(t, server.NewConfig().ApplyEnvOverrides())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *server.Config)
	}{
		{name: "hostname", modify: func(c *server.Config) { c.Hostname = "" }},
		{name: "data dir", modify: func(c *server.Config) { c.DataDir = "" }},
		{name: "workers", modify: func(c *server.Config) { c.SampleWorkers = -1 }},
		{name: "max points", modify: func(c *server.Config) { c.MaxPoints = -1 }},
		{name: "storage", modify: func(c *server.Config) { c.Storage.BoltDBPath = "" }},
		{name: "http", modify: func(c *server.Config) { c.HTTP.BindAddress = "nowhere" }},
		{name: "logging", modify: func(c *server.Config) { c.Logging.Level = "LOUD" }},
		{
			name: "load",
			modify: func(c *server.Config) {
				c.Load.Enabled = true
				c.Load.Dir = "relative"
			},
		},
	}
	require.NoError(t, server.NewConfig().Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := server.NewConfig()
			tc.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}

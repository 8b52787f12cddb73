package server_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/datamelt/fengine/server"
	"github.com/datamelt/fengine/services/diagnostic"
	"github.com/datamelt/fengine/services/logging/loggingtest"
	"github.com/datamelt/fengine/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T) *server.Config {
	dir := t.TempDir()
	c := server.NewConfig()
	c.DataDir = filepath.Join(dir, "data")
	c.Storage.BoltDBPath = filepath.Join(dir, "fengine.db")
	c.HTTP.BindAddress = "127.0.0.1:0"
	c.Load.Enabled = true
	c.Load.Dir = filepath.Join(dir, "load")
	return c
}

func TestServer_OpenClose(t *testing.T) {
	c := newConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(c.Load.Dir, "functions"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(c.Load.Dir, "functions", "square.yaml"),
		[]byte("expression: x^2\nx_max: 2\npoints: 5\n"),
		0600,
	))

	l, logs := loggingtest.New()
	s, err := server.New(c, server.BuildInfo{Version: "test"}, diagnostic.NewService(l))
	require.NoError(t, err)
	require.NoError(t, s.Open())

	resp, err := http.Get(s.HTTPDService.URL() + "/functions/square")
	require.NoError(t, err)
	var info registry.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", resp.Header.Get("X-FENGINE-Version"))
	assert.Equal(t, "x^2", info.Expression)
	assert.True(t, info.Parsed)

	resp, err = http.Get("http://" + s.HTTPDService.Addr().String() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	serverID := s.ServerID
	require.NoError(t, s.Close())
	assert.NotZero(t, logs.FilterMessage("opened database").Len())

	// the server ID and the functions survive a restart
	s, err = server.New(c, server.BuildInfo{Version: "test"}, diagnostic.NewService(nil))
	require.NoError(t, err)
	assert.Equal(t, serverID, s.ServerID)
	require.NoError(t, s.Open())
	defer s.Close()
	info2, err := s.RegistryService.Get("square")
	require.NoError(t, err)
	assert.Equal(t, info.ID, info2.ID)
}

func TestServer_InvalidConfig(t *testing.T) {
	c := newConfig(t)
	c.Hostname = ""
	_, err := server.New(c, server.BuildInfo{}, diagnostic.NewService(nil))
	assert.Error(t, err)
}

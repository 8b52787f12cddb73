package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datamelt/fengine/services/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_JSON(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	c := logging.NewConfig()
	c.File = "STDOUT"
	c.Encoding = "json"
	require.NoError(t, c.Validate())

	s := logging.NewService(c, stdout, stderr)
	require.NoError(t, s.Open())
	defer s.Close()

	s.Root().Debug("hidden")
	s.Root().Info("visible")
	require.Empty(t, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1)
	entry := make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "info", entry["lvl"])

	require.NoError(t, s.SetLevel("debug"))
	s.Root().Debug("now visible")
	assert.Contains(t, stdout.String(), "now visible")

	assert.Error(t, s.SetLevel("verbose"))
}

func TestService_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fengine.log")
	c := logging.NewConfig()
	c.File = path

	s := logging.NewService(c, nil, nil)
	require.NoError(t, s.Open())
	s.Root().Error("written")
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}

func TestConfig_Validate(t *testing.T) {
	c := logging.NewConfig()
	assert.NoError(t, c.Validate())

	c.Level = "loud"
	assert.Error(t, c.Validate())

	c = logging.NewConfig()
	c.Encoding = "xml"
	assert.Error(t, c.Validate())

	c = logging.NewConfig()
	c.File = ""
	assert.Error(t, c.Validate())
}

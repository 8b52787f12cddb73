package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandName(t *testing.T) {
	testCases := []struct {
		args     []string
		name     string
		expected []string
	}{
		{args: nil, name: "", expected: nil},
		{args: []string{"-config", "a.conf"}, name: "", expected: []string{"-config", "a.conf"}},
		{args: []string{"run", "-config", "a.conf"}, name: "run", expected: []string{"-config", "a.conf"}},
		{args: []string{"-h"}, name: "help", expected: []string{}},
		{args: []string{"help", "config"}, name: "config", expected: []string{"-h"}},
		{args: []string{"version"}, name: "version", expected: []string{}},
	}
	for _, tc := range testCases {
		name, args := ParseCommandName(tc.args)
		assert.Equal(t, tc.name, name)
		assert.Equal(t, tc.expected, args)
	}
}

func TestMain_Version(t *testing.T) {
	var stdout bytes.Buffer
	m := NewMain()
	m.Stdout = &stdout
	require.NoError(t, m.Run("version"))
	assert.Equal(t, "fengined unknown (git: unknown unknown)\n", stdout.String())
}

func TestMain_Help(t *testing.T) {
	var stdout bytes.Buffer
	m := NewMain()
	m.Stdout = &stdout
	require.NoError(t, m.Run("help"))
	assert.Contains(t, stdout.String(), "fengined [[command] [arguments]]")
}

func TestMain_Unknown(t *testing.T) {
	err := NewMain().Run("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "bogus"`)
}

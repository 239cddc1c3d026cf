package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "projektbot v"), out.String())
}

func TestSetup_LogLevelOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROJEKTBOT_STORE_DATA_DIR", t.TempDir())

	logLevel = "debug"
	t.Cleanup(func() { logLevel = "" })

	cfg, log, err := setup()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NotNil(t, log)
}

func TestSetup_RejectsUnknownLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())

	logLevel = "loud"
	t.Cleanup(func() { logLevel = "" })

	_, _, err := setup()
	assert.ErrorContains(t, err, "--log-level")
}

func TestServe_RequiresToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROJEKTBOT_DISCORD_TOKEN", "")
	t.Setenv("TOKEN", "")

	err := runServe(nil, nil)
	assert.ErrorContains(t, err, "discord token missing")
}

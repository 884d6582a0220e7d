package main

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beelogical.com/chat-portal/internal/config"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env.test")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := loadConfig(&flags{backendURL: "https://flag.test/", port: "7000", logLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.test", cfg.BackendURL)
	assert.Equal(t, "7000", cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, cfg, config.AppConfig)
}

func TestLoadConfigRejectsBadPortFlag(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env.test")

	_, err := loadConfig(&flags{port: "http"})
	require.Error(t, err)
}

func TestLoadConfigFlagFixesInvalidEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "not a url")
	t.Setenv("HTTP_PORT", "eighty")

	cfg, err := loadConfig(&flags{backendURL: "http://ok.test", port: "8080"})
	require.NoError(t, err)
	assert.Equal(t, "http://ok.test", cfg.BackendURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoadConfigRejectsInvalidEnvWithoutFlags(t *testing.T) {
	t.Setenv("BACKEND_URL", "not a url")

	_, err := loadConfig(&flags{})
	require.Error(t, err)
}

func TestSetupLoggingLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogging(config.Config{LogLevel: "WARN", LogFormat: "json"}, io.Discard)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	setupLogging(config.Config{LogLevel: "nonsense"}, io.Discard)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "tui"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("backend-url"))
	assert.NotNil(t, root.PersistentFlags().Lookup("port"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

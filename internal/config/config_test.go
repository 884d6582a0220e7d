package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "BEECHAT_TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "BEECHAT_TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envValue)
			assert.Equal(t, tc.expected, getEnv(tc.key, tc.defaultVal))
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("BEECHAT_TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("BEECHAT_TEST_INT", 10))

	t.Setenv("BEECHAT_TEST_INT", "abc")
	assert.Equal(t, 10, getEnvAsInt("BEECHAT_TEST_INT", 10))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("BEECHAT_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("BEECHAT_TEST_DUR", time.Minute))

	t.Setenv("BEECHAT_TEST_DUR", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("BEECHAT_TEST_DUR", time.Minute))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"BACKEND_URL", "HTTP_PORT", "LOG_LEVEL", "BACKEND_TIMEOUT", "SCREEN_IDLE_TTL"} {
		t.Setenv(key, "")
	}

	require.NoError(t, LoadConfig())
	assert.Equal(t, "http://localhost:8000", AppConfig.BackendURL)
	assert.Equal(t, "5173", AppConfig.HTTPPort)
	assert.Equal(t, time.Duration(0), AppConfig.BackendTimeout)
	assert.Equal(t, 30*time.Minute, AppConfig.ScreenIdleTTL)
}

func TestLoadConfigTrimsBackendSlash(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com/")
	require.NoError(t, LoadConfig())
	assert.Equal(t, "https://api.example.com", AppConfig.BackendURL)
}

func TestValidate(t *testing.T) {
	base := Config{BackendURL: "http://localhost:8000", HTTPPort: "5173"}
	require.NoError(t, base.Validate())

	relative := base
	relative.BackendURL = "/api"
	require.Error(t, relative.Validate())

	badPort := base
	badPort.HTTPPort = "http"
	require.Error(t, badPort.Validate())

	negative := base
	negative.RateLimitPerMinute = -1
	require.Error(t, negative.Validate())
}

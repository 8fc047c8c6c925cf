package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port          int           `env:"TEST_CFG_PORT" envDefault:"8080" validate:"gte=1,lte=65535"`
	BaseURL       string        `env:"TEST_CFG_BASE_URL" envDefault:"http://localhost:9000" validate:"required,url"`
	Timeout       time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"10s"`
	NotifyFailure bool          `env:"TEST_CFG_NOTIFY" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.NotifyFailure)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BASE_URL", "https://shop.example.com")
	t.Setenv("TEST_CFG_TIMEOUT", "250ms")
	t.Setenv("TEST_CFG_NOTIFY", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.NotifyFailure)
}

type requiredConfig struct {
	RemoteURL string `env:"TEST_CFG_REMOTE_URL,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "70000")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
	assert.Contains(t, err.Error(), "Port")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaults(t *testing.T) {
	c, err := Load(viper.New(), "", noDotenv(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.PageURL)
	assert.Equal(t, time.Second, c.RetryDelay)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
	assert.Equal(t, int64(1<<20), c.ReadLimit)
	assert.Equal(t, 64, c.SendBuffer)
	assert.Equal(t, "livetrace.status", c.NatsSubject)
	assert.Empty(t, c.NatsURL)
	assert.Equal(t, 35.6892, c.Sim.Lat)
	assert.Equal(t, time.Second, c.Sim.Interval)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LIVETRACE_PAGE_URL", "https://maps.example.com")
	t.Setenv("LIVETRACE_RETRY_DELAY", "250ms")
	t.Setenv("LIVETRACE_SIM_LAT", "-33.86")

	c, err := Load(viper.New(), "", noDotenv(t))
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example.com", c.PageURL)
	assert.Equal(t, 250*time.Millisecond, c.RetryDelay)
	assert.Equal(t, -33.86, c.Sim.Lat)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "livetrace.yaml")
	require.NoError(t, os.WriteFile(file, []byte("page_url: https://a.example\nsend_buffer: 8\nsim:\n  spread: 0.5\n"), 0o600))

	c, err := Load(viper.New(), file, noDotenv(t))
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", c.PageURL)
	assert.Equal(t, 8, c.SendBuffer)
	assert.Equal(t, 0.5, c.Sim.Spread)
	assert.Equal(t, 51.3890, c.Sim.Lng)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"), noDotenv(t))
	assert.Error(t, err)
}

func TestDotenv(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("LIVETRACE_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LIVETRACE_LOG_LEVEL") })

	c, err := Load(viper.New(), "", env)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestInvalid(t *testing.T) {
	v := viper.New()
	v.Set("retry_delay", "0s")
	_, err := Load(v, "", noDotenv(t))
	assert.ErrorIs(t, err, ErrInvalid)

	v = viper.New()
	v.Set("log_level", "loud")
	_, err = Load(v, "", noDotenv(t))
	assert.ErrorIs(t, err, ErrInvalid)

	v = viper.New()
	v.Set("sim.lat", 123.0)
	_, err = Load(v, "", noDotenv(t))
	assert.ErrorIs(t, err, ErrInvalid)
}

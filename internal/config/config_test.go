package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ATALAYA_BACKEND_URL", "https://prtg.example.com")
	t.Setenv("ATALAYA_TOKEN", "tok")
	t.Setenv("ATALAYA_SUBGROUPS", "Infra,Red")
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ATALAYA_VERIFY_SSL", "true")
	t.Setenv("ATALAYA_CACHE_TTL", "30s")
	t.Setenv("ATALAYA_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://prtg.example.com", cfg.BackendURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, []string{"Infra", "Red"}, cfg.Subgroups)
	assert.True(t, cfg.VerifySSL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 55*time.Second, cfg.CacheTTL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.VerifySSL)
	assert.Equal(t, ":8008", cfg.ListenAddr)
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atalaya.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
backendUrl: https://file.example.com
token: filetok
subgroups:
  - Infra
  - Respaldo
logLevel: warn
`), 0o600))

	t.Setenv("ATALAYA_CONFIG", path)
	t.Setenv("ATALAYA_TOKEN", "envtok") // env beats file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.BackendURL)
	assert.Equal(t, "envtok", cfg.Token)
	assert.Equal(t, []string{"Infra", "Respaldo"}, cfg.Subgroups)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Defaults()
		c.BackendURL = "https://x"
		c.Token = "t"
		c.Subgroups = []string{"Infra"}
		return c
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.BackendURL = " "
	assert.Error(t, c.Validate())

	c = base()
	c.Token = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Subgroups = nil
	assert.Error(t, c.Validate())

	c = base()
	c.CacheTTL = 0
	assert.Error(t, c.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b ,, "))
	assert.Empty(t, splitList(""))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atalaya.yml")
	write := func(subgroups string) {
		require.NoError(t, os.WriteFile(path, []byte(`
backendUrl: https://x
token: t
subgroups: [`+subgroups+`]
`), 0o600))
	}
	write("Infra")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	write("Infra, Red")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, []string{"Infra", "Red"}, cfg.Subgroups)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the config change")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atalaya.yml")
	require.NoError(t, os.WriteFile(path, []byte("backendUrl: https://x\ntoken: t\nsubgroups: [Infra]\n"), 0o600))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	// token removed: reload must be rejected, callback never fired
	require.NoError(t, os.WriteFile(path, []byte("backendUrl: https://x\nsubgroups: [Infra]\n"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not reach the reload callback")
	case <-time.After(1500 * time.Millisecond):
	}
}

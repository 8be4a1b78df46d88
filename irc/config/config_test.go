package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "goircd.local", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0:6667", cfg.ListenAddr())
	assert.Equal(t, 5, cfg.Limits.NickTries)
	assert.Equal(t, 60*time.Second, cfg.KeepaliveInterval())
	assert.True(t, cfg.Channels.AutoPrune)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  name: irc.example.org
  port: 7000
limits:
  nick_tries: 3
channels:
  auto_prune: false
motd:
  - line one
  - line two
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "irc.example.org", cfg.Server.Name)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Limits.NickTries)
	assert.False(t, cfg.Channels.AutoPrune)
	assert.Equal(t, []string{"line one", "line two"}, cfg.MOTD)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
name = "irc.example.org"
port = 7000
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "irc.example.org", cfg.Server.Name)
	assert.Equal(t, 7000, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Limits.NickTries)
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644))

	t.Setenv("IRCD_PORT", "7001")
	t.Setenv("IRCD_SERVER_NAME", "env.example.org")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "env.example.org", cfg.Server.Name)
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: before.example.org\n  port: 7000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "before.example.org", cfg.Server.Name)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: after.example.org\n  port: 7001\n"), 0644))
	require.NoError(t, cfg.Reload(""))
	assert.Equal(t, "after.example.org", cfg.Server.Name)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, path, cfg.Source)

	// A reload that fails validation leaves the running config alone.
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0644))
	assert.Error(t, cfg.Reload(""))
	assert.Equal(t, "after.example.org", cfg.Server.Name)

	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("server:\n  name: other.example.org\n"), 0644))
	require.NoError(t, cfg.Reload(other))
	assert.Equal(t, "other.example.org", cfg.Server.Name)
	assert.Equal(t, other, cfg.Source)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.CheckPassword(""), "no configured password admits everything")
	assert.True(t, cfg.CheckPassword("anything"))

	cfg.Server.Password = "sekrit"
	assert.True(t, cfg.CheckPassword("sekrit"))
	assert.False(t, cfg.CheckPassword("wrong"))
	assert.False(t, cfg.CheckPassword(""))
}

func TestCheckPasswordBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := Default()
	cfg.Server.Password = string(hash)
	assert.True(t, cfg.CheckPassword("sekrit"))
	assert.False(t, cfg.CheckPassword("wrong"))
}

func TestListenAddresses(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "10.0.0.1"
	cfg.Server.Port = 6667
	cfg.TLS.Port = 6697
	cfg.Admin.Host = "127.0.0.1"
	cfg.Admin.Port = 6680

	assert.Equal(t, "10.0.0.1:6667", cfg.ListenAddr())
	assert.Equal(t, "10.0.0.1:6697", cfg.TLSListenAddr())
	assert.Equal(t, "127.0.0.1:6680", cfg.AdminListenAddr())
}

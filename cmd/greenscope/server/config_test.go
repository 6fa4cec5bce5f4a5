package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `
certConfig:
  cert: /etc/ssl/server.crt
  key: /etc/ssl/server.key
database:
  path: /var/lib/greenscope/greenscope.db
auth:
  secret: config-secret
  accessExpiryMinutes: 15
  refreshExpiryHours: 72
evidence:
  dir: /var/lib/greenscope/evidence
  maxUploadMB: 25
backup:
  dir: /var/lib/greenscope/backups
  keep: 5
`))
		require.NoError(t, err)
		assert.Equal(t, "/etc/ssl/server.crt", cfg.Certificate.PublicKey)
		assert.Equal(t, "config-secret", cfg.Auth.Secret)
		assert.Equal(t, 15, cfg.Auth.AccessExpiryMins)
		assert.Equal(t, int64(25), cfg.Evidence.MaxUploadMB)
		assert.Equal(t, 5, cfg.Backup.Keep)
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, "auth:\n  secret: config-secret\n"))
		require.NoError(t, err)
		assert.Equal(t, "./data/greenscope.db", cfg.Database.Path)
		assert.Equal(t, "./data/evidence", cfg.Evidence.Dir)
		assert.Equal(t, "./data/backups", cfg.Backup.Dir)
	})

	t.Run("env overrides secret", func(t *testing.T) {
		t.Setenv("GREENSCOPE_JWT_SECRET", "env-secret")
		cfg, err := LoadConfig(writeConfig(t, "auth:\n  secret: config-secret\n"))
		require.NoError(t, err)
		assert.Equal(t, "env-secret", cfg.Auth.Secret)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "database:\n  path: /tmp/db\n"))
		assert.ErrorContains(t, err, "auth.secret")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "auth: [secret\n"))
		assert.Error(t, err)
	})
}

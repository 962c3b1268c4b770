package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HUETTE_TEST_HRS_KEY", "secret-key")

	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "db", "huette.db")+`
hrs:
  enabled: true
  base_url: https://hrs.example.org
  api_key: ${HUETTE_TEST_HRS_KEY}
  hut_id: 42
telegram:
  chat_ids: [1, 2]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.HRS.APIKey)
	assert.Equal(t, 42, cfg.HRS.HutID)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.ChatIDs)
	assert.DirExists(t, filepath.Join(dir, "db"))

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, 135, cfg.ReportTarget())
	assert.Equal(t, 31, cfg.ReportWindowDays())
	assert.Equal(t, 366, cfg.ReportMaxDays())
	assert.Equal(t, "0 */2 * * *", cfg.HRSSchedule())
	assert.Equal(t, 90, cfg.HRSWindowDays())
	assert.Equal(t, 10*time.Second, cfg.HRSTimeout())
	assert.Equal(t, time.Duration(0), cfg.HRSCacheTTL())
	assert.Equal(t, "0 3 * * *", cfg.BackupSchedule())
	assert.Equal(t, "0 7 * * *", cfg.DigestSchedule())
	assert.Equal(t, "data/backups", cfg.Backup.StoragePath)
}

func TestLoad_ExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
http:
  address: 127.0.0.1:9000
database:
  path: `+filepath.Join(dir, "huette.db")+`
report:
  default_target: 120
  window_days: 14
hrs:
  cache_ttl_seconds: 60
  timeout_seconds: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddress())
	assert.Equal(t, 120, cfg.ReportTarget())
	assert.Equal(t, 14, cfg.ReportWindowDays())
	assert.Equal(t, time.Minute, cfg.HRSCacheTTL())
	assert.Equal(t, 3*time.Second, cfg.HRSTimeout())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http: [unclosed"))
	assert.Error(t, err)
}

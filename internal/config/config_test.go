package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bbrctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/etc/sysctl.conf.bak", cfg.NetworkFile().BackupPath)
	assert.Equal(t, "/etc/security/limits.conf", cfg.LimitsFile().Path)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
[files]
sysctl_conf = "/etc/sysctl.d/99-bbr.conf"
backup_suffix = ".orig"

[kernel]
command_timeout = "10s"

[congestion]
qdisc = "fq_codel"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/sysctl.d/99-bbr.conf", cfg.Files.SysctlConf)
	assert.Equal(t, "/etc/sysctl.d/99-bbr.conf.orig", cfg.NetworkFile().BackupPath)
	assert.Equal(t, "/etc/security/limits.conf", cfg.Files.LimitsConf)
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout())
	assert.Equal(t, "fq_codel", cfg.Congestion.Qdisc)
	assert.Equal(t, "bbr", cfg.Congestion.Algorithm)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "[files]\nsysctl = \"/etc/sysctl.conf\"\n"},
		{name: "syntax", content: "[files\n"},
		{name: "relative path", content: "[files]\nlimits_conf = \"limits.conf\"\n"},
		{name: "bad duration", content: "[kernel]\ncommand_timeout = \"soon\"\n"},
		{name: "algorithm with space", content: "[congestion]\nalgorithm = \"bbr v3\"\n"},
		{name: "fallback equals algorithm", content: "[congestion]\nfallback_algorithm = \"bbr\"\n"},
		{name: "same file twice", content: "[files]\nlimits_conf = \"/etc/sysctl.conf\"\n"},
		{name: "suffix with slash", content: "[files]\nbackup_suffix = \"/bak\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(ConfigEnvVar, "/tmp/from-env.toml")
	assert.Equal(t, "/tmp/flag.toml", ResolvePath(" /tmp/flag.toml "))
	assert.Equal(t, "/tmp/from-env.toml", ResolvePath(""))
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, Default(), cfg)
}

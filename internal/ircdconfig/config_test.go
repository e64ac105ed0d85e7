package ircdconfig

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate(cfg), "default config should validate")
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modernd.yaml")
	contents := "server_name: chat.example\nopers:\n  root: hunter2\ndcc_port_min: 50000\ndcc_port_max: 50010\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "chat.example", cfg.ServerName, "expected overridden server name")
	require.Equal(t, "hunter2", cfg.Opers["root"], "expected opers map to be set")
	require.Equal(t, ":6667", cfg.ListenAddress, "expected default listen address preserved")
	require.Equal(t, 50000, cfg.DCCPortMin)
	require.Equal(t, 50010, cfg.DCCPortMax)
}

func TestLoadRejectsInvertedPortRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("dcc_port_min: 60000\ndcc_port_max: 50000\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err, "expected validation error for inverted DCC port range")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "does-not-exist-modernd.yaml"))
	require.Error(t, err, "expected error for missing config file")
}

package snekconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snekc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assembler: clang\nno_color: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "clang", cfg.Assembler)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, Default().RuntimeSource, cfg.RuntimeSource)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snekc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::not yaml"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

package brimdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PathAccessors(t *testing.T) {
	d := New("/home/user/.config/brim")

	assert.Equal(t, "/home/user/.config/brim", d.Root())
	assert.Equal(t, "/home/user/.config/brim/config.yaml", d.ConfigPath())
	assert.Equal(t, "/home/user/.config/brim/rules.json", d.RulesPath())
	assert.Equal(t, "/home/user/.config/brim/.env", d.EnvPath())
	assert.Equal(t, "/home/user/.config/brim/local", d.LocalDir())
	assert.Equal(t, "/home/user/.config/brim/local/brim.log", d.LogPath())
	assert.Equal(t, "/home/user/.config/brim/local/profile", d.ProfileDir())
}

func TestNew_Relative(t *testing.T) {
	d := New("rel")
	assert.True(t, filepath.IsAbs(d.Root()))
}

func TestResolve(t *testing.T) {
	d, err := Resolve("/tmp/explicit")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit", d.Root())

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	d, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Name, filepath.Base(d.Root()))
}

func TestDir_Exists(t *testing.T) {
	tmp := t.TempDir()

	d := New(filepath.Join(tmp, "missing"))
	assert.False(t, d.Exists())

	d = New(tmp)
	assert.True(t, d.Exists())
}

func TestDir_HasRules(t *testing.T) {
	d := New(t.TempDir())
	assert.False(t, d.HasRules())

	require.NoError(t, os.WriteFile(d.RulesPath(), []byte("[]"), 0o600))
	assert.True(t, d.HasRules())
}

func TestEnsureStructure(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "brim"))
	require.NoError(t, EnsureStructure(d))

	info, err := os.Stat(d.LocalDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, EnsureStructure(d))
}

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogxManager_PerNodeFiles(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, "debug")

	lg := m.Logger("val0")
	assert.Same(t, lg, m.Logger("val0"))

	lg.Info("hello info")
	lg.Error("hello error")
	lg.Debug("hello debug")
	require.NoError(t, m.Close())

	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(base, "val0", name))
		require.NoError(t, err)
		return string(b)
	}
	assert.Contains(t, read("info.log"), "hello info")
	assert.NotContains(t, read("info.log"), "hello error")
	assert.Contains(t, read("error.log"), "hello error")
	assert.Contains(t, read("debug.log"), "hello debug")
}

func TestLogxManager_LevelFilter(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, "error")
	lg := m.Logger("wat3")
	lg.Info("dropped")
	lg.Error("kept")
	require.NoError(t, m.Close())

	info, err := os.ReadFile(filepath.Join(base, "wat3", "info.log"))
	require.NoError(t, err)
	assert.Empty(t, info)
	errs, err := os.ReadFile(filepath.Join(base, "wat3", "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "kept")
}

func TestLogxManager_ConsoleWhenNoBase(t *testing.T) {
	m := NewManager("", "bogus")
	assert.NotNil(t, m.Logger("val1"))
	assert.NoError(t, m.Close())
}

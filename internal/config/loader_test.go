package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/domain"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("empty path returns nil", func(t *testing.T) {
		env, err := LoadEnvFile("")
		assert.NoError(t, err)
		assert.Nil(t, env)
	})

	t.Run("loads env file", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("FOO=bar\nBAZ=qux"), 0644))

		env, err := LoadEnvFile(envPath)
		require.NoError(t, err)
		assert.Equal(t, "bar", env["FOO"])
		assert.Equal(t, "qux", env["BAZ"])
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadEnvFile("nonexistent.env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestMergeEnv(t *testing.T) {
	t.Run("later maps win", func(t *testing.T) {
		result := MergeEnv(
			map[string]string{"A": "1", "B": "2"},
			map[string]string{"B": "3", "C": "4"},
			map[string]string{"C": "5"},
		)
		assert.Equal(t, map[string]string{"A": "1", "B": "3", "C": "5"}, result)
	})

	t.Run("handles nil maps", func(t *testing.T) {
		result := MergeEnv(nil, map[string]string{"A": "1"}, nil)
		assert.Equal(t, "1", result["A"])
	})
}

func TestLoadProcessEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FILE=1\nSHARED=file"), 0644))

	t.Run("inline overrides file", func(t *testing.T) {
		env, err := LoadProcessEnv(".env", map[string]string{"INLINE": "2", "SHARED": "inline"}, dir)
		require.NoError(t, err)
		assert.Equal(t, "1", env["FILE"])
		assert.Equal(t, "2", env["INLINE"])
		assert.Equal(t, "inline", env["SHARED"])
	})

	t.Run("absolute path ignores base dir", func(t *testing.T) {
		env, err := LoadProcessEnv(filepath.Join(dir, ".env"), nil, "/elsewhere")
		require.NoError(t, err)
		assert.Equal(t, "1", env["FILE"])
	})

	t.Run("missing env file", func(t *testing.T) {
		_, err := LoadProcessEnv("nonexistent.env", nil, dir)
		require.Error(t, err)
	})

	t.Run("no sources", func(t *testing.T) {
		env, err := LoadProcessEnv("", nil, dir)
		require.NoError(t, err)
		assert.Empty(t, env)
	})
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(oldDir) }()

	t.Run("returns error when no config found", func(t *testing.T) {
		_, err := FindConfigFile()
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	t.Run("finds hidden file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(".respawn.yml", []byte("target: x"), 0644))

		path, err := FindConfigFile()
		require.NoError(t, err)
		assert.Equal(t, ".respawn.yml", path)
	})

	t.Run("prefers respawn.yaml", func(t *testing.T) {
		require.NoError(t, os.WriteFile("respawn.yaml", []byte("target: x"), 0644))

		path, err := FindConfigFile()
		require.NoError(t, err)
		assert.Equal(t, "respawn.yaml", path)
	})
}

func TestCheckFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respawn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.NoError(t, CheckFilePermissions(path))

	require.NoError(t, os.Chmod(path, 0646))
	assert.Error(t, CheckFilePermissions(path))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"mock": [{"prefix": "/api", "file": "a.lua"}],
		"tunnel": {"mappings": [{"port": 9000, "dest_host": "127.0.0.1", "dest_port": 9999}]}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Mock, 1)
	assert.Equal(t, "/api", cfg.Mock[0].Prefix)
	assert.True(t, cfg.Mock[0].StripOrDefault())
	require.Len(t, cfg.Tunnel.Mappings, 1)
	assert.Equal(t, 9000, cfg.Tunnel.Mappings[0].Port)
}

func TestLoadConfig_StripFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"mock":[{"prefix":"/a","file":"a.lua","strip":false}]}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Mock[0].StripOrDefault())
}

func TestLoadConfig_MissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"mock":[{"prefix":"/a"}]}`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_TunnelMissingField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"tunnel":{"mappings":[{"port":9000,"dest_host":"127.0.0.1"}]}}`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestNormalizePath_OutsideCwdRewrittenToDot(t *testing.T) {
	assert.Equal(t, ".", NormalizePath("/etc/passwd"))
}

func TestNormalizePath_InsideCwd(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	target := filepath.Join(cwd, "x", "y.lua")
	assert.Equal(t, filepath.Join("x", "y.lua"), NormalizePath(target))
}

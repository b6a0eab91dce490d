package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "html", cfg.EmbedDir)
	assert.Equal(t, "inlineh", cfg.TagName)
	assert.True(t, cfg.Watch)
	assert.Equal(t, CommandBuild, cfg.Command)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{"-s", dir})
	require.NoError(t, err)

	assert.Equal(t, CommandBuild, cfg.Command)
	assert.Equal(t, dir, cfg.Source)
	assert.Equal(t, filepath.Join(dir, "_site"), cfg.Destination)
	assert.Equal(t, "_site", cfg.DestinationRel())
	assert.Equal(t, filepath.Join(dir, FileName), cfg.GetConfigFilePath())
}

func TestLoad_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	content := "title: Patterns\nembed_dir: code\nstyle: github\nport: 9000\nwatch: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load([]string{"serve", "-source", dir, "-port", "9999", "-tag", "embed"})
	require.NoError(t, err)

	assert.Equal(t, CommandServe, cfg.Command)
	assert.Equal(t, "Patterns", cfg.Title)
	assert.Equal(t, "code", cfg.EmbedDir, "file value kept")
	assert.Equal(t, "github", cfg.Style, "file value kept")
	assert.False(t, cfg.Watch, "unset flag must not override file")
	assert.Equal(t, 9999, cfg.Port, "flag overrides file")
	assert.Equal(t, "embed", cfg.TagName)
}

func TestLoad_ExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("source: docs\ndestination: out\n"), 0o644))

	cfg, err := Load([]string{"-config", cfgFile})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs"), cfg.Source)
	assert.Equal(t, filepath.Join(dir, "docs", "out"), cfg.Destination)

	_, err = Load([]string{"-config", filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err, "explicit missing config file must fail")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		desc string
		args []string
	}{
		{"unknown command", []string{"deploy"}},
		{"unknown flag", []string{"-nope"}},
		{"extra args", []string{"build", "-s", dir, "extra"}},
		{"bad tag", []string{"-s", dir, "-tag", "two words"}},
		{"bad port", []string{"-s", dir, "-port", "70000"}},
		{"same dirs", []string{"-s", dir, "-d", dir}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsExcluded("/path/to/.git"))
	assert.True(t, cfg.IsExcluded("/path/to/_site"))
	assert.True(t, cfg.IsExcluded("/path/to/node_modules"))
	assert.False(t, cfg.IsExcluded("/path/to/README.md"))
	assert.False(t, cfg.IsExcluded("html"), "embed dir must be built")
}

func TestIsMarkdownFile(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsMarkdownFile("docs/observer.md"))
	assert.False(t, cfg.IsMarkdownFile("html/observer.py"))
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Source = dir
	cfg.Destination = filepath.Join(dir, "public")
	cfg.configPath = filepath.Join(dir, FileName)
	cfg.Port = 9999
	cfg.Style = "dracula"

	require.NoError(t, cfg.Save())

	cfg2 := &Config{}
	require.NoError(t, cfg2.loadFromFile(cfg.configPath))

	assert.Equal(t, 9999, cfg2.Port)
	assert.Equal(t, "dracula", cfg2.Style)
	assert.Equal(t, "public", cfg2.Destination, "destination saved relative to source")
}

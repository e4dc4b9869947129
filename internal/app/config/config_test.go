package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "log_level: -4\n")

		cfg, err := LoadConfig(path, "does-not-exist.env")
		require.NoError(t, err)
		assert.Equal(t, -4, cfg.LogLevel)
		assert.Equal(t, "soffice", cfg.Editor.Command)
		assert.Equal(t, BackendEML, cfg.Mail.Backend)
		assert.Equal(t, ".", cfg.Mail.EML.Dir)
	})

	t.Run("imap backend with env expansion", func(t *testing.T) {
		t.Setenv("IMAP_PASSWORD", "hunter2")
		path := writeFile(t, "config.yaml", `
mail:
  backend: imap
  imap:
    address: mail.example.com:993
    login: me@example.com
    password: ${IMAP_PASSWORD}
`)

		cfg, err := LoadConfig(path, "does-not-exist.env")
		require.NoError(t, err)
		assert.Equal(t, BackendIMAP, cfg.Mail.Backend)
		assert.Equal(t, "hunter2", cfg.Mail.IMAP.Password)
	})

	t.Run("unknown backend", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "mail:\n  backend: pigeon\n")
		_, err := LoadConfig(path, "does-not-exist.env")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), "does-not-exist.env")
		require.Error(t, err)
	})

	t.Run("template values file merged under inline values", func(t *testing.T) {
		valuesPath := writeFile(t, "values.yaml", "Name: FromFile\nCity: Berlin\n")
		path := writeFile(t, "config.yaml", `
template:
  values:
    Name: Inline
  values_file: `+valuesPath+"\n")

		cfg, err := LoadConfig(path, "does-not-exist.env")
		require.NoError(t, err)
		assert.Equal(t, "Inline", cfg.Template.Values["Name"])
		assert.Equal(t, "Berlin", cfg.Template.Values["City"])
	})
}

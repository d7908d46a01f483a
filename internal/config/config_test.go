package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
default_database      = "city"
default_export_format = "cbor"

database "city" {
  path = "/var/lib/mmdb/city.mmdb"
}

database "asn" {
  path = "/var/lib/mmdb/asn.mmdb"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "city", cfg.DefaultDatabase)
	assert.Equal(t, "cbor", cfg.ExportFormat("jsonl"))
	require.Len(t, cfg.Databases, 2)
	assert.Equal(t, "asn", cfg.Databases[1].Name)
	assert.Equal(t, "/var/lib/mmdb/asn.mmdb", cfg.Databases[1].Path)
}

func TestLoad_DuplicateName(t *testing.T) {
	path := writeConfig(t, `
database "city" {
  path = "/a.mmdb"
}

database "city" {
  path = "/b.mmdb"
}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate database "city"`)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, `database "city" {`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestLoadDefault(t *testing.T) {
	path := writeConfig(t, `
database "test" {
  path = "/tmp/test.mmdb"
}
`)
	t.Setenv("MMDB_CONFIG", path)
	cfg, err := LoadDefault("")
	require.NoError(t, err)
	require.Len(t, cfg.Databases, 1)

	// A missing default file yields an empty config, not an error.
	t.Setenv("MMDB_CONFIG", filepath.Join(t.TempDir(), "nope.hcl"))
	cfg, err = LoadDefault("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Databases)

	// An explicit override must exist.
	_, err = LoadDefault(filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := &Config{
		DefaultDatabase: "city",
		Databases: []Database{
			{Name: "city", Path: "/var/lib/mmdb/city.mmdb"},
			{Name: "asn", Path: "/var/lib/mmdb/asn.mmdb"},
		},
	}

	p, err := cfg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mmdb/city.mmdb", p)

	p, err = cfg.Resolve("asn")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mmdb/asn.mmdb", p)

	p, err = cfg.Resolve("/direct/path.mmdb")
	require.NoError(t, err)
	assert.Equal(t, "/direct/path.mmdb", p)
}

func TestResolve_NoSelection(t *testing.T) {
	_, err := (&Config{}).Resolve("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database selected")

	_, err = (&Config{DefaultDatabase: "ghost"}).Resolve("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default_database "ghost"`)
}

func TestExportFormat_Fallback(t *testing.T) {
	assert.Equal(t, "jsonl", (&Config{}).ExportFormat("jsonl"))
}

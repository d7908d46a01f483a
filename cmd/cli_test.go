package cmd

import (
	"bytes"
	"database/sql"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/mmdbtest"
)

// writeTestDB builds a small database on disk and returns its path.
func writeTestDB(t *testing.T) string {
	t.Helper()
	img, err := mmdbtest.Build(mmdbtest.Options{DatabaseType: "Test-DB"}, []mmdbtest.Network{
		{Prefix: netip.MustParsePrefix("1.0.0.0/24"), Record: decode.Mapping(map[string]decode.Value{
			"name":       decode.String("alpha"),
			"population": decode.Uint32(1000),
		})},
		{Prefix: netip.MustParsePrefix("8.8.8.0/24"), Record: decode.Mapping(map[string]decode.Value{
			"name": decode.String("beta"),
		})},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.mmdb")
	require.NoError(t, os.WriteFile(path, img.Bytes, 0o644))
	return path
}

// resetFlags restores flag globals between Execute calls; cobra keeps
// parsed values across runs.
func resetFlags() {
	dbFlag, configFlag = "", ""
	lookupPath, lookupPretty = "", false
	metadataPretty = false
	exportFormat, exportOut = "jsonl", ""
	networksRecords, networksAliased = false, false
	mountListOnly = false
}

// runCommand executes the root command and captures stdout. MMDB_CONFIG
// points at a missing file so a developer's own config cannot leak in.
func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags()
	t.Setenv("MMDB_CONFIG", filepath.Join(t.TempDir(), "no-config.hcl"))

	old := os.Stdout
	rp, wp, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = wp
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rp)
		done <- buf.String()
	}()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	_ = wp.Close()
	os.Stdout = old
	out := <-done
	require.NoError(t, execErr)
	return out
}

func TestLookupCommand(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "lookup", "--db", db, "1.0.0.5")
	assert.Equal(t, `{"name":"alpha","population":1000}`, strings.TrimSpace(out))
}

func TestLookupCommand_Path(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "lookup", "--db", db, "--path", "$.name", "1.0.0.5")
	assert.Equal(t, `"alpha"`, strings.TrimSpace(out))
}

func TestLookupCommand_InvalidIP(t *testing.T) {
	db := writeTestDB(t)
	resetFlags()
	t.Setenv("MMDB_CONFIG", filepath.Join(t.TempDir(), "no-config.hcl"))

	rootCmd.SetArgs([]string{"lookup", "--db", db, "not-an-ip"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid IP address")
}

func TestMetadataCommand(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "metadata", "--db", db)
	assert.Contains(t, out, `"database_type":"Test-DB"`)
	assert.Contains(t, out, `"record_size":28`)
}

func TestVerifyCommand(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "verify", "--db", db)
	assert.Contains(t, out, `"networks": 2`)
	assert.Contains(t, out, `"distinct_entries": 2`)
}

func TestNetworksCommand(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "networks", "--db", db)
	assert.Equal(t, []string{"1.0.0.0/24", "8.8.8.0/24"},
		strings.Fields(out))
}

func TestNetworksCommand_Records(t *testing.T) {
	db := writeTestDB(t)

	out := runCommand(t, "networks", "--db", db, "--records")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"network":"1.0.0.0/24"`)
	assert.Contains(t, lines[0], `"name":"alpha"`)
}

func TestExportCommand_JSONLToFile(t *testing.T) {
	db := writeTestDB(t)
	out := filepath.Join(t.TempDir(), "networks.jsonl")

	stdout := runCommand(t, "export", "--db", db, "--format", "jsonl", "--out", out)
	assert.Contains(t, stdout, "Exported 2 networks")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestExportCommand_SQLite(t *testing.T) {
	db := writeTestDB(t)
	out := filepath.Join(t.TempDir(), "export.db")

	stdout := runCommand(t, "export", "--db", db, "--format", "sqlite", "--out", out)
	assert.Contains(t, stdout, "Exported 2 networks")

	sq, err := sql.Open("sqlite", out)
	require.NoError(t, err)
	defer func() { _ = sq.Close() }()
	var count int
	require.NoError(t, sq.QueryRow(`SELECT COUNT(*) FROM networks`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestExportCommand_SQLiteNeedsOut(t *testing.T) {
	db := writeTestDB(t)
	resetFlags()
	t.Setenv("MMDB_CONFIG", filepath.Join(t.TempDir(), "no-config.hcl"))

	rootCmd.SetArgs([]string{"export", "--db", db, "--format", "sqlite"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs --out")
}

func TestConfigResolution(t *testing.T) {
	db := writeTestDB(t)
	cfgPath := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"default_database = \"test\"\n\ndatabase \"test\" {\n  path = \""+db+"\"\n}\n"), 0o644))

	out := runCommand(t, "lookup", "--config", cfgPath, "--db", "test", "8.8.8.8")
	assert.Equal(t, `{"name":"beta"}`, strings.TrimSpace(out))

	// default_database applies when --db is absent.
	out = runCommand(t, "metadata", "--config", cfgPath)
	assert.Contains(t, out, `"database_type":"Test-DB"`)
}

func TestLookupCommand_UnknownDatabase(t *testing.T) {
	resetFlags()
	t.Setenv("MMDB_CONFIG", filepath.Join(t.TempDir(), "no-config.hcl"))

	rootCmd.SetArgs([]string{"lookup", "--db", "/no/such/file.mmdb", "1.0.0.5"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database")
}

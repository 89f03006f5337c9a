package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestParseWhere(t *testing.T) {
	got, err := parseWhere([]string{"country=US", "age=42", "score=1.5", "zip='01234'", "note = a=b "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"country": "US",
		"age":     int64(42),
		"score":   1.5,
		"zip":     "01234",
		"note":    "a=b",
	}, got)

	got, err = parseWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseWhere([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseWhere([]string{"=x"})
	assert.Error(t, err)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateShowSample(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.sqlite")

	db, err := sql.Open("sqlite", srcPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT, region TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		status := "paid"
		if i == 0 {
			status = "refunded"
		}
		_, err = db.Exec(`INSERT INTO orders(status, region) VALUES (?, ?)`, status, "EU")
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "tabledict.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
source:
  driver: sqlite
  dsn: %q
storage:
  backend: file
  path: %q
  compress: true
logging:
  level: error
`, srcPath, filepath.Join(dir, "cache"))), 0o644))

	out, err := run(t, "--config", cfgPath, "generate", "orders", "status", "region", "--where", "region=EU")
	require.NoError(t, err)
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "90.00%")

	_, err = os.Stat(filepath.Join(dir, "cache", "table_dictionary", "orders.txt"))
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "show", "orders", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "refunded")

	out, err = run(t, "--config", cfgPath, "sample", "orders", "status", "-n", "5", "--seed", "9")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 5)
	for _, l := range lines {
		assert.Contains(t, []string{"paid", "refunded"}, l)
	}

	_, err = run(t, "--config", cfgPath, "show", "orders", "missing")
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/internal/storage"
)

func writeTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "smartsearch.db")
	cfgPath = filepath.Join(dir, "test.yaml")
	body := "database:\n  path: " + dbPath + "\n" +
		"embedding:\n  provider: local\n  dimensions: 64\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configPath, envName = "", ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "Build Mode: "+storage.BuildMode)
	assert.Contains(t, out, "Schema Version: "+storage.CurrentSchemaVersion)
}

func TestImportThenReindex(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)

	out, err := execute(t, "import", "../../internal/catalog/testdata/catalog.yaml", "--config", cfgPath, "--env", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 categories, 1 shops, 2 items")

	store, err := storage.NewSQLiteStorage(dbPath, 64)
	require.NoError(t, err)
	status, err := store.GetStatus(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var embedded int
	for _, ts := range status.Types {
		embedded += ts.Embedded
	}
	assert.Equal(t, 5, embedded)

	out, err = execute(t, "reindex", "--type", "item", "--config", cfgPath, "--env", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 item entities")
}

func TestReindexRejectsUnknownType(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	_, err := execute(t, "reindex", "--type", "orders", "--config", cfgPath, "--env", "test")
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	configPath, envName = cfgPath, "test"
	t.Cleanup(func() { configPath, envName = "", "" })

	cfg, env, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", env)
	assert.Equal(t, dbPath, cfg.Database.Path)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

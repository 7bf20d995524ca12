package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/history"
)

func TestBuildContainerFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "contexts_dir: " + filepath.Join(dir, "contexts") + "\n" +
		"history:\n  enabled: true\n  path: " + filepath.Join(dir, "history.jsonl") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contexts"), c.Workspace.Root())
	assert.Equal(t, DefaultContext, c.Options.Context)
	assert.IsType(t, &history.FileStore{}, c.HistoryStore)
	assert.Equal(t, domain.DefaultSymbols(), c.Config.Symbols)
	assert.NotNil(t, c.DoctorService.ConfigProvider)
	assert.NotNil(t, c.Recipes.Graph)
	assert.NotNil(t, c.Recipes.Features)
	assert.NotNil(t, c.Recipes.Decode)
}

func TestBuildContainerRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contexts_dir: "+dir+"\nlog_level: loud\n"), 0o600))

	_, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestHistoryBackendSelection(t *testing.T) {
	dir := t.TempDir()
	assert.IsType(t, history.Noop{}, newHistoryStore(domain.HistorySettings{}))
	assert.IsType(t, &history.FileStore{}, newHistoryStore(domain.HistorySettings{Enabled: true, Path: filepath.Join(dir, "h.JSONL")}))
	assert.IsType(t, &history.SQLiteStore{}, newHistoryStore(domain.HistorySettings{Enabled: true, Path: filepath.Join(dir, "h.db")}))
}

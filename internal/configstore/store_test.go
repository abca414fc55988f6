// Package configstore_test tests the provider configuration store.
package configstore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satielang/audiogen-service/internal/configstore"
)

func storePath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), configstore.DefaultFileName)
}

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	t.Parallel()

	path := storePath(t)

	store, err := configstore.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "audioldm2", store.DefaultProvider())

	// The defaults were persisted to disk.
	raw, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	var onDisk map[string]any

	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Contains(t, onDisk, "elevenlabs")
	assert.Contains(t, onDisk, "audioldm2")
}

func TestLoadReadsExistingFile(t *testing.T) {
	t.Parallel()

	path := storePath(t)
	content := `{"default_provider": "test", "elevenlabs": {"api_key": "k-123"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := configstore.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", store.DefaultProvider())
	assert.Equal(t, "k-123", store.StringOption("elevenlabs", "api_key", ""))
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := configstore.Load("")
	require.ErrorIs(t, err, configstore.ErrPathEmpty)
}

func TestUpdateMergesShallowlyAndPersists(t *testing.T) {
	t.Parallel()

	path := storePath(t)

	store, err := configstore.Load(path)
	require.NoError(t, err)

	updated, updateErr := store.Update(map[string]any{
		"default_provider": "elevenlabs",
		"elevenlabs":       map[string]any{"api_key": "k-456"},
	})
	require.NoError(t, updateErr)

	assert.Equal(t, "elevenlabs", updated["default_provider"])
	assert.Equal(t, "elevenlabs", store.DefaultProvider())

	// The merge is shallow: the elevenlabs section was replaced wholesale,
	// so the default duration is gone.
	options := store.ProviderOptions("elevenlabs")
	assert.Equal(t, "k-456", options["api_key"])
	assert.NotContains(t, options, "duration_seconds")

	// Untouched top-level sections survive.
	assert.InEpsilon(t, 200.0, store.FloatOption("audioldm2", "num_inference_steps", 0), 1e-9)

	// A fresh load observes the persisted update.
	reloaded, reloadErr := configstore.Load(path)
	require.NoError(t, reloadErr)
	assert.Equal(t, "elevenlabs", reloaded.DefaultProvider())
	assert.Equal(t, "k-456", reloaded.StringOption("elevenlabs", "api_key", ""))
}

func TestOptionFallbacks(t *testing.T) {
	t.Parallel()

	store, err := configstore.Load(storePath(t))
	require.NoError(t, err)

	assert.InEpsilon(t, 0.3, store.FloatOption("elevenlabs", "prompt_influence", 0), 1e-9)
	assert.InEpsilon(t, 7.5, store.FloatOption("elevenlabs", "no_such_option", 7.5), 1e-9)
	assert.Equal(t, "fallback", store.StringOption("nope", "model_id", "fallback"))
	assert.Empty(t, store.ProviderOptions("default_provider"))
}

func TestSnapshotDoesNotAliasStore(t *testing.T) {
	t.Parallel()

	store, err := configstore.Load(storePath(t))
	require.NoError(t, err)

	snapshot := store.Snapshot()

	section, ok := snapshot["elevenlabs"].(map[string]any)
	require.True(t, ok)

	section["api_key"] = "mutated"

	assert.Empty(t, store.StringOption("elevenlabs", "api_key", ""))
}

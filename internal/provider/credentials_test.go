package provider_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satielang/audiogen-service/internal/core"
	"github.com/satielang/audiogen-service/internal/provider"
)

func staticKey(key string) provider.KeySource {
	return provider.KeySourceFunc(func() (string, error) {
		return key, nil
	})
}

func writeCredentialFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "satie_api_keys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestKeyChainStopsAtFirstHit(t *testing.T) {
	t.Parallel()

	chain := provider.NewKeyChain(staticKey(""), staticKey("second"), staticKey("third"))

	key, err := chain.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "second", key)
	assert.True(t, chain.Configured())
}

func TestKeyChainAllEmpty(t *testing.T) {
	t.Parallel()

	chain := provider.NewKeyChain(staticKey(""), staticKey(""))

	_, err := chain.Resolve()
	require.ErrorIs(t, err, core.ErrMissingCredential)
	assert.False(t, chain.Configured())
}

func TestFileKeySourceDecodesB64(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte("sk-elevenlabs-test"))
	path := writeCredentialFile(t,
		`{"keys": [{"provider": 0, "key": "other"}, {"provider": 1, "key": "B64:`+encoded+`"}]}`)

	key, err := provider.FileKeySource(path).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "sk-elevenlabs-test", key)
}

func TestFileKeySourceSkipsEncryptedEntries(t *testing.T) {
	t.Parallel()

	path := writeCredentialFile(t, `{"keys": [{"provider": 1, "key": "AES:opaque"}]}`)

	key, err := provider.FileKeySource(path).Resolve()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestFileKeySourceMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	key, err := provider.FileKeySource(filepath.Join(t.TempDir(), "nope.json")).Resolve()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestFileKeySourceMalformedJSON(t *testing.T) {
	t.Parallel()

	path := writeCredentialFile(t, `{not json`)

	_, err := provider.FileKeySource(path).Resolve()
	require.Error(t, err)
}

func TestKeyChainSkipsFailingSources(t *testing.T) {
	t.Parallel()

	path := writeCredentialFile(t, `broken`)
	chain := provider.NewKeyChain(provider.FileKeySource(path), staticKey("fallback"))

	key, err := chain.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "fallback", key)
}

func TestEnvKeySource(t *testing.T) {
	t.Setenv(provider.EnvAPIKey, "from-env")

	key, err := provider.EnvKeySource().Resolve()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

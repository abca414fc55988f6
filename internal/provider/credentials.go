package provider

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/satielang/audiogen-service/internal/core"
)

// Credential file constants. The editor integration stores API keys in a
// per-OS application-data file; base64 values carry a "B64:" prefix.
const (
	credentialFileName    = "satie_api_keys.json"
	credentialAppDir      = "DefaultCompany/SatieLang"
	base64KeyPrefix       = "B64:"
	elevenLabsProviderTag = 1

	// EnvAPIKey is the environment variable consulted as the last rung of
	// the resolution chain. A .env file loaded at startup feeds it too.
	EnvAPIKey = "ELEVENLABS_API_KEY"
)

// KeySource resolves an API key from one location. An empty string with a
// nil error means the source has nothing to offer and the chain moves on.
type KeySource interface {
	Resolve() (string, error)
}

// KeySourceFunc adapts a plain function to the KeySource interface.
type KeySourceFunc func() (string, error)

// Resolve calls the wrapped function.
func (f KeySourceFunc) Resolve() (string, error) {
	return f()
}

// KeyChain tries an ordered list of sources and stops at the first
// non-empty key. Resolution failure of an individual source is not fatal;
// the chain simply moves on.
type KeyChain struct {
	sources []KeySource
}

// NewKeyChain builds a chain over the given sources, tried in order.
func NewKeyChain(sources ...KeySource) *KeyChain {
	return &KeyChain{sources: sources}
}

// Resolve returns the first key any source offers. When every source comes
// up empty it returns core.ErrMissingCredential.
func (c *KeyChain) Resolve() (string, error) {
	for _, source := range c.sources {
		key, err := source.Resolve()
		if err != nil {
			continue
		}

		if key != "" {
			return key, nil
		}
	}

	return "", core.ErrMissingCredential
}

// Configured reports whether any source currently offers a key, without
// treating an empty chain as an error.
func (c *KeyChain) Configured() bool {
	key, err := c.Resolve()

	return err == nil && key != ""
}

// EnvKeySource reads the API key from the process environment.
func EnvKeySource() KeySource {
	return KeySourceFunc(func() (string, error) {
		return os.Getenv(EnvAPIKey), nil
	})
}

// FileKeySource reads the API key from the platform credential file. The
// default path depends on the OS; tests inject their own path.
func FileKeySource(path string) KeySource {
	return KeySourceFunc(func() (string, error) {
		return readCredentialFile(path)
	})
}

// DefaultCredentialPath returns the per-OS location of the credential file,
// or an empty string when the platform has no known location.
func DefaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support", credentialAppDir, credentialFileName)
	case "windows":
		return filepath.Join(home, "AppData/LocalLow", credentialAppDir, credentialFileName)
	case "linux":
		return filepath.Join(home, ".config/unity3d", credentialAppDir, credentialFileName)
	default:
		return ""
	}
}

// credentialFile mirrors the on-disk layout of the shared key store.
type credentialFile struct {
	Keys []credentialEntry `json:"keys"`
}

type credentialEntry struct {
	Provider int    `json:"provider"`
	Key      string `json:"key"`
}

// readCredentialFile extracts the ElevenLabs key from the credential file.
// Only "B64:"-prefixed values can be decoded; other encodings are skipped.
func readCredentialFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return "", nil
		}

		return "", fmt.Errorf("failed to read credential file: %w", readErr)
	}

	var parsed credentialFile

	unmarshalErr := json.Unmarshal(raw, &parsed)
	if unmarshalErr != nil {
		return "", fmt.Errorf("failed to parse credential file %s: %w", path, unmarshalErr)
	}

	for _, entry := range parsed.Keys {
		if entry.Provider != elevenLabsProviderTag {
			continue
		}

		if !strings.HasPrefix(entry.Key, base64KeyPrefix) {
			// Encrypted entries cannot be decoded here; the chain
			// falls through to the next source.
			return "", nil
		}

		decoded, decodeErr := base64.StdEncoding.DecodeString(
			strings.TrimPrefix(entry.Key, base64KeyPrefix),
		)
		if decodeErr != nil {
			return "", fmt.Errorf("failed to decode credential: %w", decodeErr)
		}

		return string(decoded), nil
	}

	return "", nil
}

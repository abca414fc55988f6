// Package configstore manages the mutable provider configuration: a JSON
// document mapping provider names to option defaults, auto-created on first
// load and persisted on every update.
package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

const (
	// DefaultFileName is the config file created in the working directory
	// when no explicit path is configured.
	DefaultFileName = "audio_config.json"

	filePermissions = 0o600

	jsonIndent = "  "
)

// Keys of the top-level configuration document.
const (
	KeyDefaultProvider = "default_provider"
	KeyAPIKey          = "api_key"
)

// ErrPathEmpty indicates that the store was created without a file path.
var ErrPathEmpty = errors.New("config path cannot be empty")

// Store holds the process-wide provider configuration. All access goes
// through the store so concurrent handlers observe a consistent document.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// Defaults returns the hard-coded configuration written on first run.
func Defaults() map[string]any {
	return map[string]any{
		KeyDefaultProvider: "audioldm2",
		"elevenlabs": map[string]any{
			KeyAPIKey:          "",
			"duration_seconds": 10.0,
			"prompt_influence": 0.3,
		},
		"audioldm2": map[string]any{
			"model_id":            "cvssp/audioldm2",
			"use_float16":         true,
			"num_inference_steps": 200.0,
			"audio_length_in_s":   10.0,
		},
	}
}

// Load reads the JSON configuration file at path, or writes and returns the
// hard-coded defaults when the file does not exist yet.
func Load(path string) (*Store, error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	store := &Store{
		mu:   sync.RWMutex{},
		path: path,
		data: nil,
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if !errors.Is(readErr, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}

		store.data = Defaults()

		writeErr := store.persistLocked()
		if writeErr != nil {
			return nil, writeErr
		}

		return store, nil
	}

	var data map[string]any

	unmarshalErr := json.Unmarshal(raw, &data)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, unmarshalErr)
	}

	store.data = data

	return store, nil
}

// Snapshot returns a deep copy of the current configuration document.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return deepCopy(s.data)
}

// Update merges the given top-level keys shallowly into the in-memory
// document, persists the result to disk, and returns the updated snapshot.
// Option values are not validated here; malformed values surface later as
// adapter failures.
func (s *Store) Update(partial map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range partial {
		s.data[key] = value
	}

	persistErr := s.persistLocked()
	if persistErr != nil {
		return nil, persistErr
	}

	return deepCopy(s.data), nil
}

// DefaultProvider returns the configured default provider tag, or an empty
// string when none is set.
func (s *Store) DefaultProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, _ := s.data[KeyDefaultProvider].(string)

	return name
}

// ProviderOptions returns the option map configured for a provider. A
// missing or malformed section yields an empty map.
func (s *Store) ProviderOptions(provider string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	section, ok := s.data[provider].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	copied, _ := deepCopy(map[string]any{provider: section})[provider].(map[string]any)

	return copied
}

// FloatOption reads a numeric option for a provider, falling back to the
// given default when the option is absent or not a number.
func (s *Store) FloatOption(provider, key string, fallback float64) float64 {
	options := s.ProviderOptions(provider)

	value, ok := options[key].(float64)
	if !ok {
		return fallback
	}

	return value
}

// StringOption reads a string option for a provider, falling back to the
// given default when the option is absent or not a string.
func (s *Store) StringOption(provider, key, fallback string) string {
	options := s.ProviderOptions(provider)

	value, ok := options[key].(string)
	if !ok || value == "" {
		return fallback
	}

	return value
}

// persistLocked writes the current document to disk. Callers must hold the
// write lock (or be the only owner, as during Load).
func (s *Store) persistLocked() error {
	encoded, marshalErr := json.MarshalIndent(s.data, "", jsonIndent)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal config: %w", marshalErr)
	}

	writeErr := os.WriteFile(s.path, encoded, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write config file %s: %w", s.path, writeErr)
	}

	return nil
}

// deepCopy clones a JSON-shaped document so snapshots cannot alias the
// store's internal state.
func deepCopy(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))

	for key, value := range src {
		nested, ok := value.(map[string]any)
		if ok {
			dst[key] = deepCopy(nested)

			continue
		}

		dst[key] = value
	}

	return dst
}

// Package config_test tests the configuration loading for the audiogen-service.
package config_test

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satielang/audiogen-service/internal/config"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
host = "0.0.0.0"
port = 5001
read_timeout_seconds = 30
write_timeout_seconds = 300

[audioldm2]
binary_path = "/usr/local/bin/audioldm2-infer"
timeout_seconds = 600

[elevenlabs]
base_url = "https://api.elevenlabs.io"
timeout_seconds = 120

[paths]
base_logs_dir = "/var/log/audiogen"
provider_config_path = "audio_config.json"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, 300, cfg.Server.WriteTimeoutSeconds)
	assert.Equal(t, "/usr/local/bin/audioldm2-infer", cfg.AudioLDM2.BinaryPath)
	assert.Equal(t, 600, cfg.AudioLDM2.TimeoutSeconds)
	assert.Equal(t, "https://api.elevenlabs.io", cfg.ElevenLabs.BaseURL)
	assert.Equal(t, 120, cfg.ElevenLabs.TimeoutSeconds)
	assert.Equal(t, "/var/log/audiogen", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "audio_config.json", cfg.Paths.ProviderConfigPath)
	assert.Equal(t, "0.0.0.0:5001", cfg.ListenAddress())
}

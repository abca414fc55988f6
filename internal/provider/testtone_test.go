// Package provider_test tests the generation adapters.
package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satielang/audiogen-service/internal/audio"
	"github.com/satielang/audiogen-service/internal/core"
	"github.com/satielang/audiogen-service/internal/provider"
)

func TestBaseFrequencyKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt string
		seed   int
		want   float64
	}{
		{name: "river", prompt: "gentle river sounds", seed: 2, want: 300},
		{name: "water", prompt: "Dripping WATER", seed: 0, want: 200},
		{name: "ocean", prompt: "ocean waves crashing", seed: 1, want: 180},
		{name: "bird", prompt: "bird chirping in a forest", seed: 1, want: 1200},
		{name: "wind", prompt: "howling wind", seed: 3, want: 420},
		{name: "default", prompt: "a jazz trumpet", seed: 1, want: 540},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := provider.BaseFrequency(testCase.prompt, testCase.seed)
			assert.InDelta(t, testCase.want, got, 1e-9)
		})
	}
}

func TestTestToneGenerate(t *testing.T) {
	t.Parallel()

	tone := provider.NewTestTone()

	clip, err := tone.Generate(context.Background(), core.Request{
		Prompt:     "gentle river sounds",
		Provider:   core.ProviderTest,
		Seed:       2,
		SampleRate: 44100,
	})
	require.NoError(t, err)

	// 3.0 seconds at the requested rate, synthesized natively.
	assert.Equal(t, 44100, clip.Rate)
	assert.Len(t, clip.Samples, 3*44100)
	assert.InDelta(t, 3.0, clip.Duration(), 1e-9)

	// Peak is normalized just below full scale.
	assert.InDelta(t, 0.9, audio.Peak(clip.Samples), 1e-9)

	// Fade envelope starts and ends at silence.
	assert.InDelta(t, 0.0, clip.Samples[0], 1e-6)
	assert.InDelta(t, 0.0, clip.Samples[len(clip.Samples)-1], 1e-3)
}

func TestTestToneDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	tone := provider.NewTestTone()
	req := core.Request{Prompt: "bird song", Provider: core.ProviderTest, Seed: 1, SampleRate: 8000}

	first, err := tone.Generate(context.Background(), req)
	require.NoError(t, err)

	second, err := tone.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Samples, second.Samples)

	req.Seed = 2

	other, err := tone.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Samples, other.Samples)
}

func TestTestToneDefaultsRate(t *testing.T) {
	t.Parallel()

	tone := provider.NewTestTone()

	clip, err := tone.Generate(context.Background(), core.Request{
		Prompt:   "anything",
		Provider: core.ProviderTest,
	})
	require.NoError(t, err)
	assert.Equal(t, 44100, clip.Rate)
}

func TestTestToneRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	tone := provider.NewTestTone()

	_, err := tone.Generate(context.Background(), core.Request{Provider: core.ProviderTest})
	require.ErrorIs(t, err, core.ErrPromptEmpty)
}

func TestTestToneStatus(t *testing.T) {
	t.Parallel()

	status := provider.NewTestTone().Status()
	assert.True(t, status.Available)
	assert.True(t, status.Initialized)
}

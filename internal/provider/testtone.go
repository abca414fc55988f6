// Package provider implements the three generation backends behind the
// core.Generator capability: the local AudioLDM2 diffusion model, the
// ElevenLabs sound-generation API, and a deterministic test synthesizer.
package provider

import (
	"context"
	"math"
	"math/rand"
	"strings"

	"github.com/satielang/audiogen-service/internal/audio"
	"github.com/satielang/audiogen-service/internal/core"
)

// Test tone synthesis parameters, matching the sound palette the service
// has always shipped for offline testing.
const (
	testToneDurationSeconds = 3.0
	testToneFadeSeconds     = 0.1
	testTonePeak            = 0.9

	fundamentalGain = 0.3
	harmonicGain    = 0.1
	subharmonicGain = 0.1
	noiseSigma      = 0.01

	defaultTestRate = 44100
)

// keywordPitch maps a prompt keyword to a base frequency ramp. The first
// matching entry wins; seed widens the pitch so variations stay audibly
// distinct.
type keywordPitch struct {
	keywords []string
	base     float64
	perSeed  float64
}

var testPitchTable = []keywordPitch{
	{keywords: []string{"river", "water"}, base: 200, perSeed: 50},
	{keywords: []string{"ocean", "wave"}, base: 150, perSeed: 30},
	{keywords: []string{"bird", "chirp"}, base: 1000, perSeed: 200},
	{keywords: []string{"wind"}, base: 300, perSeed: 40},
}

// Fallback pitch when no keyword matches: A4 plus a per-seed offset.
const (
	defaultPitchBase    = 440
	defaultPitchPerSeed = 100
)

// TestTone is a dependency-free stand-in for the real backends. It
// synthesizes a fixed-duration composite waveform whose pitch is derived
// from prompt keywords, deterministic per seed.
type TestTone struct{}

// NewTestTone creates the synthetic test generator.
func NewTestTone() *TestTone {
	return &TestTone{}
}

// Status reports the test generator as always ready.
func (t *TestTone) Status() core.Status {
	return core.Status{Available: true, Initialized: true}
}

// Generate synthesizes the test waveform directly at the requested sample
// rate, so no resampling happens downstream.
func (t *TestTone) Generate(_ context.Context, req core.Request) (core.Clip, error) {
	if req.Prompt == "" {
		return core.Clip{}, core.ErrPromptEmpty
	}

	rate := req.SampleRate
	if rate <= 0 {
		rate = defaultTestRate
	}

	frequency := BaseFrequency(req.Prompt, req.Seed)
	sampleCount := int(testToneDurationSeconds * float64(rate))
	samples := make([]float64, sampleCount)

	rng := rand.New(rand.NewSource(int64(req.Seed)))

	for i := range samples {
		phase := 2 * math.Pi * frequency * float64(i) / float64(rate)
		samples[i] = fundamentalGain*math.Sin(phase) +
			harmonicGain*math.Sin(2*phase) +
			subharmonicGain*math.Sin(phase/2) +
			rng.NormFloat64()*noiseSigma
	}

	fadeLen := int(testToneFadeSeconds * float64(rate))
	samples = audio.FadeEnvelope(samples, fadeLen)
	samples = audio.Normalize(samples, testTonePeak)

	return core.Clip{Samples: samples, Rate: rate}, nil
}

// BaseFrequency picks the synthesis pitch for a prompt and seed. Exported
// so callers can predict what a given request will sound like.
func BaseFrequency(prompt string, seed int) float64 {
	lowered := strings.ToLower(prompt)

	for _, entry := range testPitchTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.base + float64(seed)*entry.perSeed
			}
		}
	}

	return defaultPitchBase + float64(seed)*defaultPitchPerSeed
}

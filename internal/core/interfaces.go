// Package core defines the provider contract and shared types for the
// audio generation service.
package core

import (
	"context"
	"errors"
	"fmt"
)

// Static errors shared across the service. Handlers classify these with
// errors.Is to pick the HTTP status code.
var (
	// ErrPromptEmpty indicates that the request carried no prompt text.
	ErrPromptEmpty = errors.New("prompt cannot be empty")
	// ErrUnknownProvider indicates that the provider tag is not one of the
	// supported backends.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNotInitialized indicates that the local model has not been loaded yet.
	ErrNotInitialized = errors.New("model not initialized")
	// ErrMissingCredential indicates that no API key could be resolved from
	// any configured source.
	ErrMissingCredential = errors.New("API key not configured")
	// ErrEmptyAudio indicates that a backend returned no audio data.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// Provider identifies one of the supported generation backends.
type Provider string

// Supported providers.
const (
	ProviderAudioLDM2  Provider = "audioldm2"
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderTest       Provider = "test"
)

// ParseProvider validates a provider tag at the boundary. Unknown tags are
// rejected rather than silently defaulted.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderAudioLDM2, ProviderElevenLabs, ProviderTest:
		return Provider(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Options carries the provider-specific generation parameters. Zero values
// mean "use the configured default" and are filled in by the dispatcher.
type Options struct {
	// NumInferenceSteps is the diffusion sampling step count (audioldm2).
	NumInferenceSteps int
	// AudioLengthSeconds is the target clip length in seconds (audioldm2).
	AudioLengthSeconds float64
	// DurationSeconds is the requested sound length in seconds (elevenlabs).
	DurationSeconds float64
	// PromptInfluence controls how literally the remote API follows the
	// prompt, in [0.0, 1.0] (elevenlabs).
	PromptInfluence float64
	// Loop requests a join-seam crossfade for seamless repeat playback
	// (elevenlabs).
	Loop bool
	// APIKeyOverride replaces the configured remote API key for this
	// request only.
	APIKeyOverride string
}

// Request describes a single generation job. One instance is constructed
// per HTTP call.
type Request struct {
	Prompt     string
	Provider   Provider
	Seed       int
	SampleRate int
	Options    Options
}

// Clip is the raw result of a provider call: mono float64 samples at the
// backend's native rate. The producing adapter owns the slice until it is
// handed to the post-processor.
type Clip struct {
	Samples []float64
	Rate    int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.Rate <= 0 {
		return 0
	}

	return float64(len(c.Samples)) / float64(c.Rate)
}

// Generator is the common capability implemented by every provider adapter.
type Generator interface {
	Generate(ctx context.Context, req Request) (Clip, error)
}

// Status reports a provider's availability for the health endpoint.
type Status struct {
	Available   bool `json:"available"`
	Initialized bool `json:"initialized"`
}

// StatusReporter is implemented by adapters that can describe their own
// readiness. Adapters without lazy state report as always ready.
type StatusReporter interface {
	Status() Status
}

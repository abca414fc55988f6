// Package generation orchestrates audio generation: it resolves the
// provider for a request, fills configured defaults, invokes the matching
// adapter, and runs the post-processing pipeline that turns raw samples
// into WAV bytes.
package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/satielang/audiogen-service/internal/audio"
	"github.com/satielang/audiogen-service/internal/configstore"
	"github.com/satielang/audiogen-service/internal/core"
)

// Post-processing and variation constants.
const (
	// PeakCeiling is the maximum peak amplitude allowed into the encoder.
	// Adapters may shape quieter output; anything louder is scaled down.
	PeakCeiling = 0.95

	// influenceStep is how much the ElevenLabs prompt influence grows per
	// variation in a multi-generate batch, capped at maxInfluence.
	influenceStep = 0.1
	maxInfluence  = 1.0

	// DefaultVariations is the batch size when the request omits one.
	DefaultVariations = 3
)

// Log formats.
const (
	logFmtGenerated       = "Audio generated: provider=%s seed=%d samples=%d rate=%d"
	logFmtVariationDone   = "Generated option %d/%d"
	errFmtVariationFailed = "variation %d failed: %w"
	errFmtProviderMissing = "%w: no adapter registered for %q"
	errFmtPostProcess     = "post-processing failed: %w"
)

// ErrInvalidVariationCount indicates a non-positive num_options value.
var ErrInvalidVariationCount = errors.New("num_options must be positive")

// Service dispatches generation requests to provider adapters. One instance
// serves the whole process; it holds no per-request state.
type Service struct {
	providers map[core.Provider]core.Generator
	store     *configstore.Store
	log       *logger.Logger
}

// New creates the dispatcher over the given adapters and provider config.
func New(
	providers map[core.Provider]core.Generator,
	store *configstore.Store,
	log *logger.Logger,
) *Service {
	return &Service{
		providers: providers,
		store:     store,
		log:       log,
	}
}

// GenerateOne produces a single WAV byte buffer for the request. It
// validates the prompt, resolves the provider (falling back to the
// configured default), fills option defaults, invokes the adapter, and
// post-processes the clip. A failure at any stage aborts the request.
func (s *Service) GenerateOne(ctx context.Context, req core.Request) ([]byte, error) {
	resolved, resolveErr := s.prepareRequest(req)
	if resolveErr != nil {
		return nil, resolveErr
	}

	generator, ok := s.providers[resolved.Provider]
	if !ok {
		return nil, fmt.Errorf(errFmtProviderMissing, core.ErrUnknownProvider, resolved.Provider)
	}

	clip, genErr := generator.Generate(ctx, resolved)
	if genErr != nil {
		return nil, genErr
	}

	s.log.Info(logFmtGenerated, resolved.Provider, resolved.Seed, len(clip.Samples), clip.Rate)

	wavData, postErr := postProcess(clip, resolved.SampleRate)
	if postErr != nil {
		return nil, fmt.Errorf(errFmtPostProcess, postErr)
	}

	return wavData, nil
}

// GenerateMany produces count variations of the request, one per seed in
// 0..count-1, each base64-encoded for embedding in a JSON response. For the
// remote provider the prompt influence rises with each variation so the
// options stay distinct. The first failure aborts the batch.
func (s *Service) GenerateMany(
	ctx context.Context,
	req core.Request,
	count int,
) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVariationCount, count)
	}

	baseInfluence := req.Options.PromptInfluence
	if baseInfluence <= 0 {
		baseInfluence = s.store.FloatOption(
			string(core.ProviderElevenLabs), "prompt_influence", 0,
		)
	}

	encoded := make([]string, 0, count)

	for i := range count {
		variation := req
		variation.Seed = i

		if variation.Provider == core.ProviderElevenLabs && baseInfluence > 0 {
			influence := baseInfluence + float64(i)*influenceStep
			if influence > maxInfluence {
				influence = maxInfluence
			}

			variation.Options.PromptInfluence = influence
		}

		wavData, genErr := s.GenerateOne(ctx, variation)
		if genErr != nil {
			return nil, fmt.Errorf(errFmtVariationFailed, i, genErr)
		}

		encoded = append(encoded, base64.StdEncoding.EncodeToString(wavData))
		s.log.Info(logFmtVariationDone, i+1, count)
	}

	return encoded, nil
}

// ResolveProvider maps a request tag to a provider, falling back to the
// configured default when the tag is empty. Unknown tags are rejected.
func (s *Service) ResolveProvider(name string) (core.Provider, error) {
	if name == "" {
		name = s.store.DefaultProvider()
	}

	return core.ParseProvider(name)
}

// Health reports per-provider availability plus the configured default.
func (s *Service) Health() (map[string]core.Status, string) {
	statuses := make(map[string]core.Status, len(s.providers))

	for name, generator := range s.providers {
		reporter, ok := generator.(core.StatusReporter)
		if !ok {
			statuses[string(name)] = core.Status{Available: true, Initialized: true}

			continue
		}

		statuses[string(name)] = reporter.Status()
	}

	return statuses, s.store.DefaultProvider()
}

// prepareRequest validates the prompt, resolves the provider, and fills
// option defaults from the provider config store.
func (s *Service) prepareRequest(req core.Request) (core.Request, error) {
	if req.Prompt == "" {
		return core.Request{}, core.ErrPromptEmpty
	}

	provider, providerErr := s.ResolveProvider(string(req.Provider))
	if providerErr != nil {
		return core.Request{}, providerErr
	}

	req.Provider = provider
	s.fillDefaults(&req)

	return req, nil
}

// fillDefaults replaces zero-valued options with the configured defaults
// for the resolved provider.
func (s *Service) fillDefaults(req *core.Request) {
	name := string(req.Provider)

	switch req.Provider {
	case core.ProviderAudioLDM2:
		if req.Options.NumInferenceSteps <= 0 {
			req.Options.NumInferenceSteps = int(
				s.store.FloatOption(name, "num_inference_steps", 0),
			)
		}

		if req.Options.AudioLengthSeconds <= 0 {
			req.Options.AudioLengthSeconds = s.store.FloatOption(
				name, "audio_length_in_s", 0,
			)
		}
	case core.ProviderElevenLabs:
		if req.Options.DurationSeconds <= 0 {
			req.Options.DurationSeconds = s.store.FloatOption(
				name, "duration_seconds", 0,
			)
		}

		if req.Options.PromptInfluence <= 0 {
			req.Options.PromptInfluence = s.store.FloatOption(
				name, "prompt_influence", 0,
			)
		}
	case core.ProviderTest:
		// The test synthesizer needs no configured defaults.
	}
}

// postProcess clamps the peak amplitude, resamples to the requested rate
// when it differs from the clip's native rate, and encodes the WAV
// container. The header rate always matches the rate the samples were
// encoded at.
func postProcess(clip core.Clip, requestedRate int) ([]byte, error) {
	samples := clip.Samples

	if audio.Peak(samples) > PeakCeiling {
		samples = audio.Normalize(samples, PeakCeiling)
	}

	rate := clip.Rate

	if requestedRate > 0 && requestedRate != clip.Rate {
		resampled, resampleErr := audio.Resample(samples, clip.Rate, requestedRate)
		if resampleErr != nil {
			return nil, resampleErr
		}

		samples = resampled
		rate = requestedRate
	}

	wavData, encodeErr := audio.EncodeWAV(samples, rate)
	if encodeErr != nil {
		return nil, encodeErr
	}

	return wavData, nil
}

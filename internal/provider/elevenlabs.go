package provider

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/hajimehoshi/go-mp3"

	"github.com/satielang/audiogen-service/internal/audio"
	"github.com/satielang/audiogen-service/internal/core"
)

// API endpoint and headers for the ElevenLabs sound-generation service.
const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io"

	apiSoundGeneration = "/v1/sound-generation"

	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAPIKey      = "xi-api-key"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Default generation parameters applied when neither the request nor the
// provider config supplies a value.
const (
	defaultDurationSeconds = 10.0
	defaultPromptInfluence = 0.3

	// Loop playback crossfades a quarter second of the seam, never more
	// than a third of the clip.
	loopFadeSeconds     = 0.25
	loopFadeMaxFraction = 3
)

// Error formats.
const (
	errFmtRemoteStatus = "ElevenLabs API error: %s - %s"
)

// mp3 frames decode to interleaved 16-bit stereo, four bytes per frame.
const (
	mp3FrameBytes   = 4
	mp3ChannelCount = 2
	int16FullScale  = 32768.0
)

// ElevenLabs generates sound effects through the remote sound-generation
// API and decodes the compressed response into PCM samples.
type ElevenLabs struct {
	httpClient *http.Client
	baseURL    string
	keys       *KeyChain
	log        *logger.Logger
}

// soundGenerationRequest is the JSON payload of the sound-generation call.
type soundGenerationRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	PromptInfluence float64 `json:"prompt_influence"`
}

// NewElevenLabs creates the remote adapter. The baseURL should include the
// protocol (e.g. "https://api.elevenlabs.io"); tests point it at a local
// server. The key chain is consulted on every request that carries no
// explicit override.
func NewElevenLabs(
	baseURL string,
	timeout time.Duration,
	keys *KeyChain,
	log *logger.Logger,
) *ElevenLabs {
	if baseURL == "" {
		baseURL = DefaultElevenLabsBaseURL
	}

	return &ElevenLabs{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		keys:       keys,
		log:        log,
	}
}

// Status reports whether a key is currently resolvable. The adapter itself
// holds no lazy state.
func (e *ElevenLabs) Status() core.Status {
	configured := e.keys.Configured()

	return core.Status{Available: configured, Initialized: configured}
}

// Generate requests a sound effect for the prompt and returns mono samples
// at the MP3 stream's native rate. No resolvable API key aborts the request
// before any network call is attempted.
func (e *ElevenLabs) Generate(ctx context.Context, req core.Request) (core.Clip, error) {
	if req.Prompt == "" {
		return core.Clip{}, core.ErrPromptEmpty
	}

	apiKey, keyErr := e.resolveKey(req.Options.APIKeyOverride)
	if keyErr != nil {
		return core.Clip{}, keyErr
	}

	mp3Data, callErr := e.callSoundGeneration(ctx, req, apiKey)
	if callErr != nil {
		return core.Clip{}, callErr
	}

	samples, rate, decodeErr := decodeMP3(mp3Data)
	if decodeErr != nil {
		return core.Clip{}, decodeErr
	}

	if req.Options.Loop {
		fadeLen := int(loopFadeSeconds * float64(rate))
		if fadeLen > len(samples)/loopFadeMaxFraction {
			fadeLen = len(samples) / loopFadeMaxFraction
		}

		samples = audio.LoopCrossfade(samples, fadeLen)
	}

	return core.Clip{Samples: samples, Rate: rate}, nil
}

func (e *ElevenLabs) resolveKey(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	key, err := e.keys.Resolve()
	if err != nil {
		return "", fmt.Errorf("ElevenLabs: %w", err)
	}

	return key, nil
}

// callSoundGeneration performs the remote API call and returns the raw MP3
// payload. Non-200 responses and empty payloads are adapter failures.
func (e *ElevenLabs) callSoundGeneration(
	ctx context.Context,
	req core.Request,
	apiKey string,
) ([]byte, error) {
	duration := req.Options.DurationSeconds
	if duration <= 0 {
		duration = defaultDurationSeconds
	}

	influence := req.Options.PromptInfluence
	if influence <= 0 {
		influence = defaultPromptInfluence
	}

	payload := soundGenerationRequest{
		Text:            req.Prompt,
		DurationSeconds: duration,
		PromptInfluence: influence,
	}

	requestBody, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	url := e.baseURL + apiSoundGeneration

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)
	httpReq.Header.Set(headerAPIKey, apiKey)

	resp, doErr := e.httpClient.Do(httpReq)
	if doErr != nil {
		return nil, fmt.Errorf(
			"failed to send request to ElevenLabs at %s: %w",
			e.baseURL,
			doErr,
		)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtRemoteStatus, resp.Status, string(body))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("ElevenLabs: %w", core.ErrEmptyAudio)
	}

	return body, nil
}

// decodeMP3 converts an MP3 payload into mono float64 samples. The decoder
// always yields interleaved 16-bit stereo; channels are averaged.
func decodeMP3(data []byte) ([]float64, int, error) {
	decoder, newErr := mp3.NewDecoder(bytes.NewReader(data))
	if newErr != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3 response: %w", newErr)
	}

	pcm, readErr := io.ReadAll(decoder)
	if readErr != nil {
		return nil, 0, fmt.Errorf("failed to read decoded PCM: %w", readErr)
	}

	frameCount := len(pcm) / mp3FrameBytes
	if frameCount == 0 {
		return nil, 0, fmt.Errorf("ElevenLabs: %w", core.ErrEmptyAudio)
	}

	samples := make([]float64, frameCount)

	for i := range frameCount {
		left := int16(binary.LittleEndian.Uint16(pcm[i*mp3FrameBytes : i*mp3FrameBytes+2]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*mp3FrameBytes+2 : i*mp3FrameBytes+4]))
		samples[i] = (float64(left) + float64(right)) / (mp3ChannelCount * int16FullScale)
	}

	return samples, decoder.SampleRate(), nil
}

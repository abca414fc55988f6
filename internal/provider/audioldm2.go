package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/satielang/audiogen-service/internal/audio"
	"github.com/satielang/audiogen-service/internal/core"
)

// AudioLDM2 inference defaults. The model synthesizes at a fixed native
// rate; the post-processor resamples when a different rate is requested.
const (
	// NativeRate is the sample rate AudioLDM2 always generates at.
	NativeRate = 16000

	defaultInferenceSteps = 200
	defaultAudioLengthS   = 10.0

	tempFilePattern = "audiogen-%s.wav"
)

// ErrBinaryPathEmpty indicates that no inference binary was configured.
var ErrBinaryPathEmpty = errors.New("inference binary path cannot be empty")

// AudioLDM2Settings configures the local diffusion adapter.
type AudioLDM2Settings struct {
	// BinaryPath names the inference executable that wraps the diffusion
	// pipeline (prompt in, WAV out).
	BinaryPath string
	// ModelID selects the pretrained checkpoint the binary loads.
	ModelID string
}

// AudioLDM2 runs the local diffusion text-to-audio model through an
// external inference binary. The pipeline is expensive to load, so the
// adapter initializes lazily on first use; concurrent first callers
// serialize on a single guard, and a failed initialization is retried on
// the next call.
type AudioLDM2 struct {
	settings AudioLDM2Settings
	log      *logger.Logger

	mu    sync.Mutex
	ready bool
}

// NewAudioLDM2 creates the local-model adapter. No model state is loaded
// until the first generation request (or an explicit EnsureReady).
func NewAudioLDM2(settings AudioLDM2Settings, log *logger.Logger) *AudioLDM2 {
	return &AudioLDM2{
		settings: settings,
		log:      log,
		mu:       sync.Mutex{},
		ready:    false,
	}
}

// EnsureReady verifies the inference binary is runnable. It is idempotent:
// once initialization succeeds the check is never repeated, and after a
// failure the next caller retries.
func (a *AudioLDM2) EnsureReady(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ready {
		return nil
	}

	if a.settings.BinaryPath == "" {
		return fmt.Errorf("%w: %s", core.ErrNotInitialized, ErrBinaryPathEmpty)
	}

	_, lookErr := exec.LookPath(a.settings.BinaryPath)
	if lookErr != nil {
		return fmt.Errorf("%w: %v", core.ErrNotInitialized, lookErr)
	}

	a.ready = true
	a.log.Info("AudioLDM2 pipeline ready (binary: %s, model: %s)",
		a.settings.BinaryPath, a.settings.ModelID)

	return nil
}

// Status reports whether the pipeline has been initialized yet.
func (a *AudioLDM2) Status() core.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return core.Status{
		Available:   a.settings.BinaryPath != "",
		Initialized: a.ready,
	}
}

// Generate runs one diffusion sampling pass for the prompt. The seed is
// forwarded to the binary, so output is deterministic per seed. Samples
// come back at the model's native 16 kHz.
func (a *AudioLDM2) Generate(ctx context.Context, req core.Request) (core.Clip, error) {
	if req.Prompt == "" {
		return core.Clip{}, core.ErrPromptEmpty
	}

	readyErr := a.EnsureReady(ctx)
	if readyErr != nil {
		return core.Clip{}, readyErr
	}

	steps := req.Options.NumInferenceSteps
	if steps <= 0 {
		steps = defaultInferenceSteps
	}

	length := req.Options.AudioLengthSeconds
	if length <= 0 {
		length = defaultAudioLengthS
	}

	outputPath := filepath.Join(
		os.TempDir(),
		fmt.Sprintf(tempFilePattern, uuid.NewString()),
	)

	defer func() {
		removeErr := os.Remove(outputPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			a.log.Warn("Failed to remove temp file '%s': %v", outputPath, removeErr)
		}
	}()

	args := []string{
		"--model", a.settings.ModelID,
		"--prompt", req.Prompt,
		"--steps", strconv.Itoa(steps),
		"--duration", fmt.Sprintf("%.2f", length),
		"--seed", strconv.Itoa(req.Seed),
		"--output", outputPath,
	}

	// #nosec G204 -- the binary path comes from service configuration
	cmd := exec.CommandContext(ctx, a.settings.BinaryPath, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return core.Clip{}, fmt.Errorf(
			"inference binary execution failed: %w - output: %s",
			runErr, string(output),
		)
	}

	wavData, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return core.Clip{}, fmt.Errorf("failed to read generated audio: %w", readErr)
	}

	samples, rate, decodeErr := audio.DecodeWAV(wavData)
	if decodeErr != nil {
		return core.Clip{}, fmt.Errorf("failed to decode generated audio: %w", decodeErr)
	}

	if rate <= 0 {
		rate = NativeRate
	}

	return core.Clip{Samples: samples, Rate: rate}, nil
}

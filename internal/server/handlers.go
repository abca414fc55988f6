package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/satielang/audiogen-service/internal/core"
	"github.com/satielang/audiogen-service/internal/generation"
)

// API descriptor values returned by the index endpoint.
const (
	serviceName    = "Multi-Provider Audio Generation Server"
	serviceVersion = "2.0.0"
)

// HTTP headers and content types.
const (
	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	headerElevenLabsKey      = "X-ElevenLabs-Key"
	contentTypeJSON          = "application/json"
	contentTypeWAV           = "audio/wav"

	attachmentFormat = `attachment; filename="generated_%s_%d.wav"`
)

// Default response field when the request leaves the rate unset.
const defaultReportedRate = 44100

// generateRequest is the JSON body accepted by the generation endpoints.
// Provider-specific options are flattened into the same object, mirroring
// what the editor integration sends.
type generateRequest struct {
	Prompt            string  `json:"prompt"`
	Provider          string  `json:"provider,omitempty"`
	Seed              int     `json:"seed,omitempty"`
	SampleRate        int     `json:"sample_rate,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	AudioLengthInS    float64 `json:"audio_length_in_s,omitempty"`
	DurationSeconds   float64 `json:"duration_seconds,omitempty"`
	PromptInfluence   float64 `json:"prompt_influence,omitempty"`
	Loop              bool    `json:"loop,omitempty"`
	NumOptions        int     `json:"num_options,omitempty"`
}

// multiResponse is the JSON body of a successful multi-generate call.
type multiResponse struct {
	Prompt     string   `json:"prompt"`
	Provider   string   `json:"provider"`
	AudioFiles []string `json:"audio_files"`
	SampleRate int      `json:"sample_rate"`
}

// healthResponse is the JSON body of the health endpoint.
type healthResponse struct {
	Status          string                 `json:"status"`
	Providers       map[string]core.Status `json:"providers"`
	DefaultProvider string                 `json:"default_provider"`
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != routeIndex {
		http.NotFound(w, r)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"version": serviceVersion,
		"providers": []string{
			string(core.ProviderAudioLDM2),
			string(core.ProviderElevenLabs),
			string(core.ProviderTest),
		},
		"endpoints": map[string]string{
			routeHealth:           "Health check and provider status",
			routeGenerate:         "Generate single audio from prompt",
			routeGenerateMultiple: "Generate multiple audio variations",
			routeConfig:           "Get or update server configuration",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses, defaultProvider := s.service.Health()

	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Providers:       statuses,
		DefaultProvider: defaultProvider,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))

		return
	}

	req, decodeErr := decodeGenerateRequest(r)
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, decodeErr)

		return
	}

	coreReq := req.toCore(r.Header.Get(headerElevenLabsKey))

	provider, providerErr := s.service.ResolveProvider(req.Provider)
	if providerErr != nil {
		s.writeFailure(w, providerErr)

		return
	}

	wavData, genErr := s.service.GenerateOne(r.Context(), coreReq)
	if genErr != nil {
		s.writeFailure(w, genErr)

		return
	}

	w.Header().Set(headerContentType, contentTypeWAV)
	w.Header().Set(
		headerContentDisposition,
		fmt.Sprintf(attachmentFormat, provider, coreReq.Seed),
	)
	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(wavData)
	if writeErr != nil {
		s.log.Error("Failed to write WAV response: %v", writeErr)
	}
}

func (s *Server) handleGenerateMultiple(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))

		return
	}

	req, decodeErr := decodeGenerateRequest(r)
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, decodeErr)

		return
	}

	count := req.NumOptions
	if count == 0 {
		count = generation.DefaultVariations
	}

	coreReq := req.toCore(r.Header.Get(headerElevenLabsKey))

	provider, providerErr := s.service.ResolveProvider(req.Provider)
	if providerErr != nil {
		s.writeFailure(w, providerErr)

		return
	}

	coreReq.Provider = provider

	audioFiles, genErr := s.service.GenerateMany(r.Context(), coreReq, count)
	if genErr != nil {
		s.writeFailure(w, genErr)

		return
	}

	reportedRate := req.SampleRate
	if reportedRate == 0 {
		reportedRate = defaultReportedRate
	}

	writeJSON(w, http.StatusOK, multiResponse{
		Prompt:     req.Prompt,
		Provider:   string(provider),
		AudioFiles: audioFiles,
		SampleRate: reportedRate,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Snapshot())
	case http.MethodPost:
		var partial map[string]any

		decodeErr := json.NewDecoder(r.Body).Decode(&partial)
		if decodeErr != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid configuration body: %w", decodeErr))

			return
		}

		updated, updateErr := s.store.Update(partial)
		if updateErr != nil {
			s.writeFailure(w, updateErr)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "Configuration updated",
			"config": updated,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// decodeGenerateRequest parses and minimally validates a generation body.
// Semantic validation (prompt, provider) happens in the dispatcher so the
// CLI and HTTP surfaces share it.
func decodeGenerateRequest(r *http.Request) (generateRequest, error) {
	var req generateRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&req)
	if decodeErr != nil {
		return generateRequest{}, fmt.Errorf("invalid request body: %w", decodeErr)
	}

	return req, nil
}

// toCore converts the wire request into the dispatcher's request type. The
// provider tag stays as-is; the dispatcher resolves and validates it.
func (g generateRequest) toCore(keyOverride string) core.Request {
	return core.Request{
		Prompt:     g.Prompt,
		Provider:   core.Provider(g.Provider),
		Seed:       g.Seed,
		SampleRate: g.SampleRate,
		Options: core.Options{
			NumInferenceSteps:  g.NumInferenceSteps,
			AudioLengthSeconds: g.AudioLengthInS,
			DurationSeconds:    g.DurationSeconds,
			PromptInfluence:    g.PromptInfluence,
			Loop:               g.Loop,
			APIKeyOverride:     keyOverride,
		},
	}
}

// writeFailure maps a pipeline error onto the HTTP status contract:
// validation problems are 400, an unready model is 503, and everything
// else (credentials, remote failures, decode errors) is 500.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	s.log.Error("Request failed: %v", err)

	switch {
	case errors.Is(err, core.ErrPromptEmpty),
		errors.Is(err, core.ErrUnknownProvider),
		errors.Is(err, generation.ErrInvalidVariationCount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, core.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	// The status line is already written; an encode failure here can only
	// be dropped.
	_ = json.NewEncoder(w).Encode(body)
}

// Command audiogen-client is a small CLI for the audio generation HTTP API.
// It can probe service health, download a single generated WAV, or request
// several variations at once.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Flag names.
const (
	flagServer   = "server"
	flagPrompt   = "prompt"
	flagProvider = "provider"
	flagSeed     = "seed"
	flagRate     = "rate"
	flagCount    = "count"
	flagOutput   = "output"
	flagHealth   = "health"
)

// Flag descriptions.
const (
	flagServerDesc   = "Base URL of the audio generation service"
	flagPromptDesc   = "Text prompt describing the sound to generate"
	flagProviderDesc = "Provider to use (audioldm2, elevenlabs, test)"
	flagSeedDesc     = "Generation seed"
	flagRateDesc     = "Requested output sample rate in Hz"
	flagCountDesc    = "Number of variations (uses /generate_multiple when > 1)"
	flagOutputDesc   = "Output file path (.wav); numbered when count > 1"
	flagHealthDesc   = "Check service health and exit"
)

// Defaults.
const (
	defaultServerURL  = "http://localhost:5001"
	defaultOutputFile = "output.wav"
	requestTimeout    = 120 * time.Second

	filePermissions = 0o600

	variationFileFormat = "%s_%02d.wav"
)

// ErrPromptRequired indicates that no prompt was supplied.
var ErrPromptRequired = errors.New("--prompt is required")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server   string
	prompt   string
	provider string
	seed     int
	rate     int
	count    int
	output   string
	health   bool
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	client := &http.Client{Timeout: requestTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if flags.health {
		return checkHealth(ctx, client, flags.server)
	}

	if flags.prompt == "" {
		flag.Usage()

		return ErrPromptRequired
	}

	if flags.count > 1 {
		return generateMultiple(ctx, client, flags)
	}

	return generateSingle(ctx, client, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, flagServer, defaultServerURL, flagServerDesc)
	flag.StringVar(&flags.prompt, flagPrompt, "", flagPromptDesc)
	flag.StringVar(&flags.provider, flagProvider, "", flagProviderDesc)
	flag.IntVar(&flags.seed, flagSeed, 0, flagSeedDesc)
	flag.IntVar(&flags.rate, flagRate, 0, flagRateDesc)
	flag.IntVar(&flags.count, flagCount, 1, flagCountDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

// checkHealth probes the health endpoint and prints the raw JSON status.
func checkHealth(ctx context.Context, client *http.Client, serverURL string) error {
	req, reqErr := http.NewRequestWithContext(
		ctx, http.MethodGet, serverURL+"/health", http.NoBody,
	)
	if reqErr != nil {
		return fmt.Errorf("failed to create health request: %w", reqErr)
	}

	resp, doErr := client.Do(req)
	if doErr != nil {
		return fmt.Errorf("health check failed for %s: %w", serverURL, doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("failed to read health response: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service is not healthy: %s - %s", resp.Status, string(body))
	}

	fmt.Println(string(body))

	return nil
}

// buildRequestBody assembles the generation payload shared by both modes.
func buildRequestBody(flags appFlags) map[string]any {
	body := map[string]any{"prompt": flags.prompt, "seed": flags.seed}

	if flags.provider != "" {
		body["provider"] = flags.provider
	}

	if flags.rate > 0 {
		body["sample_rate"] = flags.rate
	}

	if flags.count > 1 {
		body["num_options"] = flags.count
	}

	return body
}

func postJSON(
	ctx context.Context,
	client *http.Client,
	url string,
	body map[string]any,
) (*http.Response, error) {
	encoded, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(encoded),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, doErr := client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, doErr)
	}

	return resp, nil
}

// generateSingle downloads one WAV file from the generate endpoint.
func generateSingle(ctx context.Context, client *http.Client, flags appFlags) error {
	resp, postErr := postJSON(
		ctx, client, flags.server+"/generate", buildRequestBody(flags),
	)
	if postErr != nil {
		return postErr
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("failed to read response: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation failed: %s - %s", resp.Status, string(body))
	}

	writeErr := os.WriteFile(flags.output, body, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	fmt.Printf("Generated: %s (%d bytes)\n", flags.output, len(body))

	return nil
}

// generateMultiple requests several variations and writes each decoded WAV
// to a numbered file next to the requested output path.
func generateMultiple(ctx context.Context, client *http.Client, flags appFlags) error {
	resp, postErr := postJSON(
		ctx, client, flags.server+"/generate_multiple", buildRequestBody(flags),
	)
	if postErr != nil {
		return postErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("generation failed: %s - %s", resp.Status, string(body))
	}

	var parsed struct {
		AudioFiles []string `json:"audio_files"`
	}

	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	base := flags.output
	if ext := ".wav"; len(base) > len(ext) && base[len(base)-len(ext):] == ext {
		base = base[:len(base)-len(ext)]
	}

	for i, encoded := range parsed.AudioFiles {
		wavData, b64Err := base64.StdEncoding.DecodeString(encoded)
		if b64Err != nil {
			return fmt.Errorf("failed to decode variation %d: %w", i, b64Err)
		}

		path := fmt.Sprintf(variationFileFormat, base, i)

		writeErr := os.WriteFile(path, wavData, filePermissions)
		if writeErr != nil {
			return fmt.Errorf("failed to write %s: %w", path, writeErr)
		}

		fmt.Printf("Generated: %s (%d bytes)\n", path, len(wavData))
	}

	return nil
}

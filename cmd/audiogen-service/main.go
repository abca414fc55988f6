// main package for the audiogen-service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"

	"github.com/satielang/audiogen-service/internal/config"
	"github.com/satielang/audiogen-service/internal/configstore"
	"github.com/satielang/audiogen-service/internal/core"
	"github.com/satielang/audiogen-service/internal/generation"
	"github.com/satielang/audiogen-service/internal/provider"
	"github.com/satielang/audiogen-service/internal/server"
)

const logFileName = "audiogen-service.log"

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A temporary logger covers the bootstrap phase until the configured
	// logs directory is known.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// A .env file feeds the credential chain's environment fallback;
	// missing files are fine.
	dotenvErr := godotenv.Load()
	if dotenvErr != nil {
		bootstrapLog.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve wires the provider config store, the adapters, the dispatcher, and
// the HTTP server, then blocks until shutdown.
func serve(cfg *config.Config, log *logger.Logger) error {
	storePath := cfg.Paths.ProviderConfigPath
	if storePath == "" {
		storePath = configstore.DefaultFileName
	}

	store, storeErr := configstore.Load(storePath)
	if storeErr != nil {
		return fmt.Errorf("failed to load provider config: %w", storeErr)
	}

	log.Info("Provider configuration loaded from %s", storePath)

	service := generation.New(buildProviders(cfg, store, log), store, log)

	srv := server.New(server.Options{
		Address:      cfg.ListenAddress(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}, service, store, log)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	runErr := srv.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("server stopped with error: %w", runErr)
	}

	return nil
}

// buildProviders constructs the three adapters behind the dispatch table.
func buildProviders(
	cfg *config.Config,
	store *configstore.Store,
	log *logger.Logger,
) map[core.Provider]core.Generator {
	elevenLabsName := string(core.ProviderElevenLabs)

	keys := provider.NewKeyChain(
		provider.KeySourceFunc(func() (string, error) {
			return store.StringOption(elevenLabsName, configstore.KeyAPIKey, ""), nil
		}),
		provider.FileKeySource(provider.DefaultCredentialPath()),
		provider.EnvKeySource(),
	)

	audioldm2 := provider.NewAudioLDM2(provider.AudioLDM2Settings{
		BinaryPath: cfg.AudioLDM2.BinaryPath,
		ModelID: store.StringOption(
			string(core.ProviderAudioLDM2), "model_id", "cvssp/audioldm2",
		),
	}, log)

	elevenlabs := provider.NewElevenLabs(
		cfg.ElevenLabs.BaseURL,
		time.Duration(cfg.ElevenLabs.TimeoutSeconds)*time.Second,
		keys,
		log,
	)

	return map[core.Provider]core.Generator{
		core.ProviderAudioLDM2:  audioldm2,
		core.ProviderElevenLabs: elevenlabs,
		core.ProviderTest:       provider.NewTestTone(),
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}

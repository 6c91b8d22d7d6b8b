package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/discord-ollama-bot/pkg/auth"
	"github.com/dskvich/discord-ollama-bot/pkg/conversation"
	"github.com/dskvich/discord-ollama-bot/pkg/discord"
	"github.com/dskvich/discord-ollama-bot/pkg/discord/handlers"
	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
	"github.com/dskvich/discord-ollama-bot/pkg/ollama"
	"github.com/dskvich/discord-ollama-bot/pkg/repository"
	"github.com/dskvich/discord-ollama-bot/pkg/services"
	"github.com/dskvich/discord-ollama-bot/pkg/workers"
)

type Config struct {
	DiscordAppToken   string        `env:"DISCORD_APP_TOKEN,required,notEmpty"`
	OllamaAPIURL      string        `env:"OLLAMA_API_URL,required,notEmpty"`
	OllamaAPIKey      string        `env:"OLLAMA_API_KEY" envDefault:"ollama"`
	SettingsPath      string        `env:"SETTINGS_PATH" envDefault:"./data/settings.json"`
	AttachmentWorkers int           `env:"ATTACHMENT_WORKERS" envDefault:"4"`
	ModelCacheTTL     time.Duration `env:"MODEL_CACHE_TTL" envDefault:"10s"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogNoColor        bool          `env:"LOG_NO_COLOR" envDefault:"false"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	opts := *logger.DefaultOptions
	opts.Level = logger.ParseLevel(cfg.LogLevel)
	opts.NoColor = cfg.LogNoColor
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))

	workerGroup, err := setupWorkers(cfg)
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func parseConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}

func setupWorkers(cfg Config) (workers.Group, error) {
	var worker workers.Worker
	var workerGroup workers.Group

	settingsStore := repository.NewSettingsStore(cfg.SettingsPath)
	settingsStore.Load()

	discordClient, err := discord.NewClient(cfg.DiscordAppToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord client: %w", err)
	}

	ollamaClient, err := ollama.NewClient(cfg.OllamaAPIURL, cfg.OllamaAPIKey, cfg.ModelCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	authenticator := auth.NewAuthenticator(settingsStore)
	assembler := conversation.NewAssembler(discordClient, cfg.AttachmentWorkers)

	responseCh := make(chan domain.Response)

	replyService := services.NewReplyService(
		settingsStore,
		discordClient,
		assembler,
		ollamaClient,
		responseCh,
	)

	router := discord.NewRouter(authenticator, ollamaClient,
		discord.Route{Path: "model set", Handler: handlers.SetModel(settingsStore)},
		discord.Route{Path: "model get", Handler: handlers.GetModel(settingsStore)},
		discord.Route{Path: "model list", Handler: handlers.ListModels(ollamaClient), Deferred: true},
		discord.Route{Path: "prompt set", Handler: handlers.SetSystemPrompt(settingsStore)},
		discord.Route{Path: "prompt get", Handler: handlers.GetSystemPrompt(settingsStore)},
		discord.Route{Path: "role set", Handler: handlers.SetRequiredRole(settingsStore)},
		discord.Route{Path: "role get", Handler: handlers.GetRequiredRole(settingsStore)},
		discord.Route{Path: "history set", Handler: handlers.SetHistory(settingsStore)},
		discord.Route{Path: "history get", Handler: handlers.GetHistory(settingsStore)},
	)

	handler := discord.NewHandler(replyService, router)

	if worker, err = workers.
		NewDiscordGateway(
			discordClient.Session(),
			handler,
			discordClient,
			responseCh,
		); err == nil {
		workerGroup = append(workerGroup, worker)
	} else {
		return nil, err
	}

	return workerGroup, nil
}

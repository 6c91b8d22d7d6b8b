package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

type SetModelSettingsProvider interface {
	SetModel(guildID uint64, model string) domain.GuildSettings
}

type SettingsGetter interface {
	Get(guildID uint64) domain.GuildSettings
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

func SetModel(provider SetModelSettingsProvider) HandlerFunc {
	return func(ctx context.Context, req Request) string {
		model, ok := req.String("model")
		model = strings.TrimSpace(model)
		if !ok || model == "" {
			return missingOption("model")
		}

		provider.SetModel(req.GuildID, model)
		slog.InfoContext(ctx, "Model updated", "guildID", req.GuildID, "model", model)

		return "Model set for this guild."
	}
}

func GetModel(getter SettingsGetter) HandlerFunc {
	return func(_ context.Context, req Request) string {
		return fmt.Sprintf("Current model for this guild: `%s`", getter.Get(req.GuildID).Model)
	}
}

func ListModels(lister ModelLister) HandlerFunc {
	return func(ctx context.Context, _ Request) string {
		models, err := lister.ListModels(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list models", logger.Err(err))
			return fmt.Sprintf("Failed to retrieve models: %v", err)
		}
		if len(models) == 0 {
			return "No models available."
		}

		lines := lo.Map(models, func(m string, _ int) string { return "- `" + m + "`" })
		text := "Available models:"
		for _, line := range lines {
			if !domain.FitsInline(text + "\n" + line) {
				break
			}
			text += "\n" + line
		}
		return text
	}
}

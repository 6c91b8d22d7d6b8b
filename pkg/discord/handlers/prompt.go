package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

type SetSystemPromptSettingsProvider interface {
	SetSystemPrompt(guildID uint64, prompt string) domain.GuildSettings
}

func SetSystemPrompt(provider SetSystemPromptSettingsProvider) HandlerFunc {
	return func(ctx context.Context, req Request) string {
		prompt, ok := req.String("prompt")
		if !ok || strings.TrimSpace(prompt) == "" {
			return missingOption("prompt")
		}

		provider.SetSystemPrompt(req.GuildID, prompt)
		slog.InfoContext(ctx, "System prompt updated", "guildID", req.GuildID)

		return "System prompt set for this guild."
	}
}

func GetSystemPrompt(getter SettingsGetter) HandlerFunc {
	return func(_ context.Context, req Request) string {
		return fmt.Sprintf("Current system prompt for this guild: `%s`", getter.Get(req.GuildID).SystemPrompt)
	}
}

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

type SetHistorySettingsProvider interface {
	SetHistory(guildID uint64, replyHistory, messageHistory int) domain.GuildSettings
}

// SetHistory changes both history limits. An omitted limit falls back to
// its default.
func SetHistory(provider SetHistorySettingsProvider) HandlerFunc {
	return func(ctx context.Context, req Request) string {
		replyHistory, ok := req.Int("reply_history")
		if !ok {
			replyHistory = domain.DefaultReplyHistory
		}
		messageHistory, ok := req.Int("message_history")
		if !ok {
			messageHistory = domain.DefaultMessageHistory
		}

		gs := provider.SetHistory(req.GuildID, replyHistory, messageHistory)
		slog.InfoContext(ctx, "History limits updated",
			"guildID", req.GuildID,
			"replyHistory", gs.ReplyHistory,
			"messageHistory", gs.MessageHistory,
		)

		return "Message history set for this guild."
	}
}

func GetHistory(getter SettingsGetter) HandlerFunc {
	return func(_ context.Context, req Request) string {
		gs := getter.Get(req.GuildID)
		return fmt.Sprintf("Message history settings for this guild:\n- Reply History: `%d`\n- Message History: `%d`",
			gs.ReplyHistory, gs.MessageHistory)
	}
}

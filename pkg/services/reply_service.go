package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dskvich/discord-ollama-bot/pkg/conversation"
	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

type SettingsProvider interface {
	Get(guildID uint64) domain.GuildSettings
}

type Transport interface {
	conversation.MessageFetcher
	HistoryBefore(ctx context.Context, channelID, beforeID string, limit int) ([]domain.Message, error)
	StartTyping(ctx context.Context, channelID string)
}

type ContextAssembler interface {
	Assemble(ctx context.Context, botUserID string, trigger domain.Message, replyChain, history []domain.Message) []domain.ContextEntry
}

type ChatClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type replyService struct {
	settings   SettingsProvider
	transport  Transport
	assembler  ContextAssembler
	chatClient ChatClient
	responseCh chan<- domain.Response
}

func NewReplyService(
	settings SettingsProvider,
	transport Transport,
	assembler ContextAssembler,
	chatClient ChatClient,
	responseCh chan<- domain.Response,
) *replyService {
	return &replyService{
		settings:   settings,
		transport:  transport,
		assembler:  assembler,
		chatClient: chatClient,
		responseCh: responseCh,
	}
}

// ShouldReply reports whether msg is addressed to the bot. Replying to the
// bot puts it in the mentions as well.
func ShouldReply(botUserID string, msg domain.Message) bool {
	if botUserID == "" || msg.AuthorID == botUserID {
		return false
	}
	return lo.Contains(msg.MentionIDs, botUserID)
}

// Reply answers msg with a model completion over its conversation context.
func (r *replyService) Reply(ctx context.Context, botUserID string, msg domain.Message) {
	if !ShouldReply(botUserID, msg) {
		return
	}

	guildID, err := strconv.ParseUint(msg.GuildID, 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "Guild is not defined, ignoring message", "messageID", msg.ID, "guildID", msg.GuildID)
		return
	}

	r.transport.StartTyping(ctx, msg.ChannelID)

	settings := r.settings.Get(guildID)

	slog.InfoContext(ctx, "Building conversation context",
		"guildID", guildID,
		"channelID", msg.ChannelID,
		"replyHistory", settings.ReplyHistory,
		"messageHistory", settings.MessageHistory,
	)

	replyChain, history := r.fetchContext(ctx, msg, settings)
	entries := r.assembler.Assemble(ctx, botUserID, msg, replyChain, history)
	messages := BuildMessages(settings, entries)

	slog.InfoContext(ctx, "Calling model for chat completion", "model", settings.Model, "messagesCount", len(messages))

	text, err := r.chatClient.Chat(ctx, settings.Model, messages)
	if err != nil {
		slog.ErrorContext(ctx, "Error generating response", "model", settings.Model, logger.Err(err))
		text = fmt.Sprintf("Error generating response: %v", err)
	}

	r.send(ctx, domain.NewReply(msg.ChannelID, msg.ID, text))
}

// fetchContext walks the reply chain and reads the channel history at the
// same time. A failing source contributes what it resolved before failing.
func (r *replyService) fetchContext(ctx context.Context, msg domain.Message, settings domain.GuildSettings) (replyChain, history []domain.Message) {
	var g errgroup.Group

	g.Go(func() error {
		replyChain = conversation.WalkReplies(r.transport, msg, settings.ReplyHistory).Collect(ctx)
		return nil
	})

	g.Go(func() error {
		if settings.MessageHistory <= 0 {
			return nil
		}
		var err error
		history, err = r.transport.HistoryBefore(ctx, msg.ChannelID, msg.ID, settings.MessageHistory)
		if err != nil {
			slog.DebugContext(ctx, "History window truncated", "channelID", msg.ChannelID, "messages", len(history), logger.Err(err))
		}
		return nil
	})

	_ = g.Wait()

	slog.DebugContext(ctx, "Conversation context fetched", "replyChain", len(replyChain), "history", len(history))
	return replyChain, history
}

func (r *replyService) send(ctx context.Context, response domain.Response) {
	select {
	case r.responseCh <- response:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Dropping reply, shutting down", "channelID", response.ChannelID, logger.Err(ctx.Err()))
	}
}

package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

type ReplyService interface {
	Reply(ctx context.Context, botUserID string, msg domain.Message)
}

type InteractionRouter interface {
	Handle(ctx context.Context, s InteractionResponder, i *discordgo.InteractionCreate)
}

type handler struct {
	replyService ReplyService
	router       InteractionRouter
}

func NewHandler(replyService ReplyService, router InteractionRouter) *handler {
	return &handler{
		replyService: replyService,
		router:       router,
	}
}

// HandleReady registers the slash commands for the connected application.
func (h *handler) HandleReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready) {
	slog.InfoContext(ctx, "Connected to Discord", "user", r.User.String(), "guilds", len(r.Guilds))

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", Commands, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to register commands", logger.Err(err))
		return
	}
	slog.InfoContext(ctx, "Commands registered", "count", len(Commands))
}

func (h *handler) HandleMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || s.State.User == nil {
		return
	}
	h.replyService.Reply(ctx, s.State.User.ID, ToDomainMessage(m.Message))
}

func (h *handler) HandleInteractionCreate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.router.Handle(ctx, s, i)
}

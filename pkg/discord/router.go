package discord

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/discord/handlers"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

const (
	notInGuildText   = "This command can only be used in a server."
	forbiddenText    = "You don't have permission to use this command."
	unknownRouteText = "Unknown command."
)

type Authenticator interface {
	IsAuthorized(guildID uint64, memberRoleIDs []string) bool
}

type ModelSuggester interface {
	SuggestModels(ctx context.Context, query string) []string
}

// InteractionResponder is the part of the Discord session used to answer
// interactions.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Route binds a settings subcommand such as "model set" to its handler.
// Deferred routes acknowledge first because the handler calls out to Ollama.
type Route struct {
	Path     string
	Handler  handlers.HandlerFunc
	Deferred bool
}

type router struct {
	authenticator Authenticator
	suggester     ModelSuggester
	routes        map[string]Route
}

func NewRouter(authenticator Authenticator, suggester ModelSuggester, routes ...Route) *router {
	return &router{
		authenticator: authenticator,
		suggester:     suggester,
		routes:        lo.KeyBy(routes, func(r Route) string { return r.Path }),
	}
}

func (r *router) Handle(ctx context.Context, s InteractionResponder, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(ctx, s, i.Interaction)
	case discordgo.InteractionApplicationCommandAutocomplete:
		r.handleAutocomplete(ctx, s, i.Interaction)
	}
}

func (r *router) handleCommand(ctx context.Context, s InteractionResponder, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	path, options := resolveCommand(data)

	route, ok := r.routes[path]
	if data.Name != SettingsCommandName || !ok {
		slog.WarnContext(ctx, "No handler found for command", "command", data.Name, "path", path)
		r.respond(ctx, s, i, unknownRouteText)
		return
	}

	guildID, err := strconv.ParseUint(i.GuildID, 10, 64)
	if err != nil || i.Member == nil {
		r.respond(ctx, s, i, notInGuildText)
		return
	}

	if !r.authenticator.IsAuthorized(guildID, i.Member.Roles) {
		slog.WarnContext(ctx, "Unauthorized access attempt", "guildID", guildID, "userID", memberID(i.Member), "path", path)
		r.respond(ctx, s, i, forbiddenText)
		return
	}

	slog.InfoContext(ctx, "Calling handler", "path", path, "guildID", guildID)

	req := handlers.NewRequest(guildID, options)

	if !route.Deferred {
		r.respond(ctx, s, i, route.Handler(ctx, req))
		return
	}

	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to defer interaction", logger.Err(err))
		return
	}

	text := route.Handler(ctx, req)
	if _, err := s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to send followup", logger.Err(err))
	}
}

func (r *router) handleAutocomplete(ctx context.Context, s InteractionResponder, i *discordgo.Interaction) {
	path, options := resolveCommand(i.ApplicationCommandData())

	focused, ok := lo.Find(options, func(o *discordgo.ApplicationCommandInteractionDataOption) bool { return o.Focused })
	if !ok || path != "model set" || focused.Name != "model" {
		return
	}

	query, _ := focused.Value.(string)
	choices := lo.Map(r.suggester.SuggestModels(ctx, query), func(m string, _ int) *discordgo.ApplicationCommandOptionChoice {
		return &discordgo.ApplicationCommandOptionChoice{Name: m, Value: m}
	})

	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to answer autocomplete", logger.Err(err))
	}
}

func (r *router) respond(ctx context.Context, s InteractionResponder, i *discordgo.Interaction, text string) {
	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to respond to interaction", logger.Err(err))
	}
}

// resolveCommand flattens "/settings <group> <subcommand>" into the path
// "<group> <subcommand>" and the subcommand options.
func resolveCommand(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommandGroup {
		return "", nil
	}
	group := data.Options[0]

	if len(group.Options) == 0 || group.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return group.Name, nil
	}
	sub := group.Options[0]

	return group.Name + " " + sub.Name, sub.Options
}

func memberID(m *discordgo.Member) string {
	if m.User == nil {
		return ""
	}
	return m.User.ID
}

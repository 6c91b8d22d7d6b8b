package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

const SettingsCommandName = "settings"

// Commands is the slash command set registered once the gateway is ready.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:         SettingsCommandName,
		Description:  "Manage bot settings for this server.",
		DMPermission: lo.ToPtr(false),
		Options: []*discordgo.ApplicationCommandOption{
			group("model", "Manage the Ollama model.",
				subcommand("set", "Set the model for this server.", &discordgo.ApplicationCommandOption{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "model",
					Description:  "Model name",
					Required:     true,
					Autocomplete: true,
				}),
				subcommand("get", "Show the model of this server."),
				subcommand("list", "List the models available on the Ollama server."),
			),
			group("prompt", "Manage the system prompt.",
				subcommand("set", "Set the system prompt for this server.", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "System prompt",
					Required:    true,
				}),
				subcommand("get", "Show the system prompt of this server."),
			),
			group("role", "Manage the role allowed to change settings.",
				subcommand("set", "Set the required role. Leave empty to allow everyone.", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Required role",
				}),
				subcommand("get", "Show the required role of this server."),
			),
			group("history", "Manage how much conversation is sent to the model.",
				subcommand("set", "Set the history limits for this server.",
					historyOption("reply_history", "Replies to follow up the chain", domain.DefaultReplyHistory),
					historyOption("message_history", "Channel messages to include", domain.DefaultMessageHistory),
				),
				subcommand("get", "Show the history limits of this server."),
			),
		},
	},
}

func group(name, description string, subcommands ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     subcommands,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func historyOption(name, description string, def int) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: fmt.Sprintf("%s (default %d)", description, def),
		MinValue:    lo.ToPtr(0.0),
	}
}

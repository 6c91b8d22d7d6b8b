package handlers

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc answers one settings command with the text to show the caller.
type HandlerFunc func(ctx context.Context, req Request) string

// Request is a resolved settings subcommand.
type Request struct {
	GuildID uint64
	Options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func NewRequest(guildID uint64, options []*discordgo.ApplicationCommandInteractionDataOption) Request {
	req := Request{
		GuildID: guildID,
		Options: make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options)),
	}
	for _, opt := range options {
		req.Options[opt.Name] = opt
	}
	return req
}

func (r Request) String(name string) (string, bool) {
	opt, ok := r.Options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return opt.StringValue(), true
}

func (r Request) Int(name string) (int, bool) {
	opt, ok := r.Options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(opt.IntValue()), true
}

// RoleID returns the id of a role option. Role options carry the snowflake
// as a string value.
func (r Request) RoleID(name string) (uint64, bool) {
	opt, ok := r.Options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionRole {
		return 0, false
	}
	id, ok := opt.Value.(string)
	if !ok {
		return 0, false
	}
	roleID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return roleID, true
}

func missingOption(name string) string {
	return "Missing option: " + name
}

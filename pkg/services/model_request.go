package services

import (
	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

// BaseSystemPrompt tells the model how user turns are formatted. The guild
// system prompt is appended to it.
const BaseSystemPrompt = "You are in a discord server. " +
	"Every user message is prefixed with their username, colon and space '<@USERID>: ' this is metadata. " +
	"When referring to a user, use their username '<@USERID>'. Example: 'Hello <@123456789012345678>!'."

// BuildMessages prepends the system prompt to the assembled conversation.
func BuildMessages(settings domain.GuildSettings, entries []domain.ContextEntry) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(entries)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.ChatMessageRoleSystem,
		Content: BaseSystemPrompt + "\n" + settings.SystemPrompt,
	})

	return append(messages, lo.Map(entries, func(e domain.ContextEntry, _ int) domain.ChatMessage {
		return domain.ChatMessage{Role: e.Role, Content: e.Content, Images: e.Images}
	})...)
}

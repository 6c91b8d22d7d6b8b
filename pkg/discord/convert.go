package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

// ToDomainMessage normalizes a gateway or REST message. A referenced message
// resolved by Discord is carried along so the reply chain can skip a fetch.
func ToDomainMessage(m *discordgo.Message) domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Timestamp: m.Timestamp,
		Content:   m.Content,
		IsReply:   m.Type == discordgo.MessageTypeReply,
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorMention = m.Author.Mention()
	}

	if m.MessageReference != nil {
		msg.ReplyToID = m.MessageReference.MessageID
	}
	if m.ReferencedMessage != nil {
		parent := ToDomainMessage(m.ReferencedMessage)
		if parent.ChannelID == "" {
			parent.ChannelID = m.ChannelID
		}
		msg.ReplyTo = &parent
	}

	attachments := lo.Filter(m.Attachments, func(a *discordgo.MessageAttachment, _ int) bool { return a != nil })
	msg.Attachments = lo.Map(attachments, func(a *discordgo.MessageAttachment, _ int) domain.Attachment {
		return domain.Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			URL:         a.URL,
		}
	})

	mentions := lo.Filter(m.Mentions, func(u *discordgo.User, _ int) bool { return u != nil })
	msg.MentionIDs = lo.Map(mentions, func(u *discordgo.User, _ int) string { return u.ID })

	return msg
}

package domain

import "time"

const (
	ChatMessageRoleSystem    = "system"
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// Message is a chat platform message normalized for the conversation pipeline.
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	Timestamp     time.Time
	AuthorID      string
	AuthorMention string
	Content       string
	Attachments   []Attachment
	MentionIDs    []string

	// IsReply is set for reply-typed messages. ReplyToID is the referenced
	// message, ReplyTo holds it when the gateway already resolved it.
	IsReply   bool
	ReplyToID string
	ReplyTo   *Message
}

type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	URL         string
}

// ContextEntry is one role-tagged turn of an assembled conversation.
type ContextEntry struct {
	MessageID string
	Role      string
	Content   string
	Images    []Image
}

// ChatMessage is a message sent to the model.
type ChatMessage struct {
	Role    string
	Content string
	Images  []Image
}

type Image struct {
	ContentType string
	Data        []byte
}

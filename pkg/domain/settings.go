package domain

const (
	DefaultSystemPrompt   = "You are a helpful assistant."
	DefaultModel          = "llama3"
	DefaultReplyHistory   = 10
	DefaultMessageHistory = 10
)

// GuildSettings is the per-guild configuration of the bot.
// RequiredRoleID is nil when every member may run the settings commands.
type GuildSettings struct {
	GuildID        uint64
	SystemPrompt   string
	Model          string
	RequiredRoleID *uint64
	ReplyHistory   int
	MessageHistory int
}

func NewGuildSettings(guildID uint64) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		SystemPrompt:   DefaultSystemPrompt,
		Model:          DefaultModel,
		ReplyHistory:   DefaultReplyHistory,
		MessageHistory: DefaultMessageHistory,
	}
}

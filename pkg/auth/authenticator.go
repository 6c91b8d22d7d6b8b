package auth

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

type SettingsProvider interface {
	Get(guildID uint64) domain.GuildSettings
}

type authenticator struct {
	settings SettingsProvider
}

func NewAuthenticator(settings SettingsProvider) *authenticator {
	return &authenticator{
		settings: settings,
	}
}

// IsAuthorized reports whether a member holding memberRoleIDs may change the
// guild settings. Guilds without a required role allow everyone.
func (a *authenticator) IsAuthorized(guildID uint64, memberRoleIDs []string) bool {
	required := a.settings.Get(guildID).RequiredRoleID
	if required == nil {
		return true
	}
	return lo.Contains(memberRoleIDs, strconv.FormatUint(*required, 10))
}

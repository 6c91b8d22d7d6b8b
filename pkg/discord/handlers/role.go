package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

type SetRequiredRoleSettingsProvider interface {
	SetRequiredRole(guildID uint64, roleID *uint64) domain.GuildSettings
}

// SetRequiredRole restricts the settings commands to a role. Without a role
// option the restriction is lifted.
func SetRequiredRole(provider SetRequiredRoleSettingsProvider) HandlerFunc {
	return func(ctx context.Context, req Request) string {
		roleID, ok := req.RoleID("role")
		if !ok {
			provider.SetRequiredRole(req.GuildID, nil)
			slog.InfoContext(ctx, "Required role cleared", "guildID", req.GuildID)
			return "Required role cleared for this guild."
		}

		provider.SetRequiredRole(req.GuildID, lo.ToPtr(roleID))
		slog.InfoContext(ctx, "Required role updated", "guildID", req.GuildID, "roleID", roleID)

		return "Required role set for this guild."
	}
}

func GetRequiredRole(getter SettingsGetter) HandlerFunc {
	return func(_ context.Context, req Request) string {
		roleID := getter.Get(req.GuildID).RequiredRoleID
		if roleID == nil {
			return "No required role is currently set."
		}
		return fmt.Sprintf("Current required role for this guild: <@&%d>", *roleID)
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

type fakeSettings struct {
	settings map[uint64]*domain.GuildSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: make(map[uint64]*domain.GuildSettings)}
}

func (f *fakeSettings) lookup(guildID uint64) *domain.GuildSettings {
	gs, ok := f.settings[guildID]
	if !ok {
		gs = domain.NewGuildSettings(guildID)
		f.settings[guildID] = gs
	}
	return gs
}

func (f *fakeSettings) Get(guildID uint64) domain.GuildSettings { return *f.lookup(guildID) }

func (f *fakeSettings) SetModel(guildID uint64, model string) domain.GuildSettings {
	f.lookup(guildID).Model = model
	return f.Get(guildID)
}

func (f *fakeSettings) SetSystemPrompt(guildID uint64, prompt string) domain.GuildSettings {
	f.lookup(guildID).SystemPrompt = prompt
	return f.Get(guildID)
}

func (f *fakeSettings) SetRequiredRole(guildID uint64, roleID *uint64) domain.GuildSettings {
	f.lookup(guildID).RequiredRoleID = roleID
	return f.Get(guildID)
}

func (f *fakeSettings) SetHistory(guildID uint64, replyHistory, messageHistory int) domain.GuildSettings {
	gs := f.lookup(guildID)
	gs.ReplyHistory, gs.MessageHistory = replyHistory, messageHistory
	return *gs
}

type fakeLister struct {
	models []string
	err    error
}

func (f fakeLister) ListModels(context.Context) ([]string, error) { return f.models, f.err }

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// Discord delivers numbers as JSON floats.
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func roleOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: id}
}

func TestModelHandlers(t *testing.T) {
	settings := newFakeSettings()
	ctx := context.Background()

	if got := SetModel(settings)(ctx, NewRequest(1, nil)); got != "Missing option: model" {
		t.Errorf("unexpected reply without option: %q", got)
	}

	if got := SetModel(settings)(ctx, NewRequest(1, []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("model", " mistral ")})); got != "Model set for this guild." {
		t.Errorf("unexpected reply: %q", got)
	}
	if settings.Get(1).Model != "mistral" {
		t.Errorf("expected model mistral, got %q", settings.Get(1).Model)
	}

	if got := GetModel(settings)(ctx, NewRequest(1, nil)); got != "Current model for this guild: `mistral`" {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestListModels(t *testing.T) {
	many := make([]string, 300)
	for i := range many {
		many[i] = fmt.Sprintf("model-%03d:latest", i)
	}

	tests := []struct {
		name   string
		lister fakeLister
		want   string
	}{
		{"models", fakeLister{models: []string{"llama3", "phi3"}}, "Available models:\n- `llama3`\n- `phi3`"},
		{"empty", fakeLister{}, "No models available."},
		{"failure", fakeLister{err: errors.New("connection refused")}, "Failed to retrieve models: connection refused"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ListModels(test.lister)(context.Background(), Request{}); got != test.want {
				t.Errorf("expected %q, got %q", test.want, got)
			}
		})
	}

	t.Run("long list is cut to one message", func(t *testing.T) {
		got := ListModels(fakeLister{models: many})(context.Background(), Request{})
		if !domain.FitsInline(got) || !strings.HasPrefix(got, "Available models:\n- `model-000:latest`") {
			t.Errorf("unexpected listing of %d chars", len(got))
		}
	})
}

func TestSystemPromptHandlers(t *testing.T) {
	settings := newFakeSettings()
	ctx := context.Background()

	if got := SetSystemPrompt(settings)(ctx, NewRequest(2, []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("prompt", "  ")})); got != "Missing option: prompt" {
		t.Errorf("unexpected reply for blank prompt: %q", got)
	}

	SetSystemPrompt(settings)(ctx, NewRequest(2, []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("prompt", "Answer in French.")}))

	if got := GetSystemPrompt(settings)(ctx, NewRequest(2, nil)); got != "Current system prompt for this guild: `Answer in French.`" {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestRequiredRoleHandlers(t *testing.T) {
	settings := newFakeSettings()
	ctx := context.Background()

	if got := GetRequiredRole(settings)(ctx, NewRequest(3, nil)); got != "No required role is currently set." {
		t.Errorf("unexpected reply: %q", got)
	}

	if got := SetRequiredRole(settings)(ctx, NewRequest(3, []*discordgo.ApplicationCommandInteractionDataOption{roleOpt("role", "123456789012345678")})); got != "Required role set for this guild." {
		t.Errorf("unexpected reply: %q", got)
	}
	if got := GetRequiredRole(settings)(ctx, NewRequest(3, nil)); got != "Current required role for this guild: <@&123456789012345678>" {
		t.Errorf("unexpected reply: %q", got)
	}

	if got := SetRequiredRole(settings)(ctx, NewRequest(3, nil)); got != "Required role cleared for this guild." {
		t.Errorf("unexpected reply: %q", got)
	}
	if settings.Get(3).RequiredRoleID != nil {
		t.Errorf("expected role to be cleared")
	}
}

func TestHistoryHandlers(t *testing.T) {
	tests := []struct {
		name        string
		options     []*discordgo.ApplicationCommandInteractionDataOption
		wantReply   int
		wantMessage int
	}{
		{"both", []*discordgo.ApplicationCommandInteractionDataOption{intOpt("reply_history", 3), intOpt("message_history", 0)}, 3, 0},
		{"reply only", []*discordgo.ApplicationCommandInteractionDataOption{intOpt("reply_history", 5)}, 5, domain.DefaultMessageHistory},
		{"none", nil, domain.DefaultReplyHistory, domain.DefaultMessageHistory},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			settings := newFakeSettings()
			settings.SetHistory(4, 1, 1)

			if got := SetHistory(settings)(context.Background(), NewRequest(4, test.options)); got != "Message history set for this guild." {
				t.Errorf("unexpected reply: %q", got)
			}

			want := fmt.Sprintf("Message history settings for this guild:\n- Reply History: `%d`\n- Message History: `%d`", test.wantReply, test.wantMessage)
			if got := GetHistory(settings)(context.Background(), NewRequest(4, nil)); got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	}
}

func TestRequestIgnoresMistypedOptions(t *testing.T) {
	req := NewRequest(1, []*discordgo.ApplicationCommandInteractionDataOption{
		intOpt("model", 3),
		stringOpt("reply_history", "4"),
		roleOpt("role", "not-a-snowflake"),
	})

	if _, ok := req.String("model"); ok {
		t.Errorf("integer option read as string")
	}
	if _, ok := req.Int("reply_history"); ok {
		t.Errorf("string option read as integer")
	}
	if _, ok := req.RoleID("role"); ok {
		t.Errorf("invalid role id accepted")
	}
}

package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

// maxHistoryPage is the largest page the channel messages endpoint returns.
const maxHistoryPage = 100

type client struct {
	session *discordgo.Session
}

func NewClient(token string) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	return &client{session: session}, nil
}

func (c *client) Session() *discordgo.Session {
	return c.session
}

func (c *client) FetchMessage(ctx context.Context, channelID, messageID string) (*domain.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", messageID, err)
	}

	msg := ToDomainMessage(m)
	return &msg, nil
}

// HistoryBefore returns up to limit messages preceding beforeID, newest first.
// On failure the pages read so far are returned with the error.
func (c *client) HistoryBefore(ctx context.Context, channelID, beforeID string, limit int) ([]domain.Message, error) {
	var history []domain.Message

	for limit > 0 {
		pageSize := min(limit, maxHistoryPage)
		page, err := c.session.ChannelMessages(channelID, pageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return history, fmt.Errorf("fetching channel history: %w", err)
		}

		for _, m := range page {
			history = append(history, ToDomainMessage(m))
		}
		if len(page) < pageSize {
			break
		}

		beforeID = page[len(page)-1].ID
		limit -= len(page)
	}

	return history, nil
}

func (c *client) ReadAttachment(ctx context.Context, attachment domain.Attachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.session.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if closeErr := Body.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "closing body", logger.Err(closeErr))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}

func (c *client) StartTyping(ctx context.Context, channelID string) {
	if err := c.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		slog.WarnContext(ctx, "Failed to start typing", "channelID", channelID, logger.Err(err))
	}
}

// SendResponse posts a response as a reply, with its file attached if any.
func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	send := &discordgo.MessageSend{Content: response.Text}

	if response.ReplyToID != "" {
		send.Reference = &discordgo.MessageReference{
			MessageID: response.ReplyToID,
			ChannelID: response.ChannelID,
		}
	}

	if f := response.File; f != nil {
		send.Files = []*discordgo.File{{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		}}
	}

	if _, err := c.session.ChannelMessageSendComplex(response.ChannelID, send, discordgo.WithContext(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "channelID", response.ChannelID, logger.Err(err))
	}
}

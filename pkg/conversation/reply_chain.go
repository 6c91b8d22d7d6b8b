package conversation

import (
	"context"
	"log/slog"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

type MessageFetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (*domain.Message, error)
}

// ReplyChain iterates over the messages a message replies to, nearest first.
// It is single use: once Next reports false it stays exhausted.
type ReplyChain struct {
	fetcher MessageFetcher
	current domain.Message
	limit   int
	hops    int
	done    bool
}

// WalkReplies starts a reply chain at start that yields at most limit ancestors.
func WalkReplies(fetcher MessageFetcher, start domain.Message, limit int) *ReplyChain {
	return &ReplyChain{
		fetcher: fetcher,
		current: start,
		limit:   limit,
	}
}

// Next resolves the next ancestor. The chain ends at the hop limit, at a
// message that is not a reply, or when the referenced message can't be
// resolved.
func (r *ReplyChain) Next(ctx context.Context) (domain.Message, bool) {
	if r.done {
		return domain.Message{}, false
	}

	parent, ok := r.resolveParent(ctx)
	if !ok {
		r.done = true
		return domain.Message{}, false
	}

	r.hops++
	r.current = parent
	return parent, true
}

func (r *ReplyChain) resolveParent(ctx context.Context) (domain.Message, bool) {
	if r.hops >= r.limit {
		return domain.Message{}, false
	}

	cur := r.current
	if !cur.IsReply || cur.ReplyToID == "" {
		return domain.Message{}, false
	}

	if cur.ReplyTo != nil {
		return *cur.ReplyTo, true
	}

	if r.fetcher == nil {
		return domain.Message{}, false
	}

	parent, err := r.fetcher.FetchMessage(ctx, cur.ChannelID, cur.ReplyToID)
	if err != nil || parent == nil {
		slog.DebugContext(ctx, "Reply chain truncated", "messageID", cur.ID, "replyToID", cur.ReplyToID, logger.Err(err))
		return domain.Message{}, false
	}

	return *parent, true
}

// Collect drains the chain.
func (r *ReplyChain) Collect(ctx context.Context) []domain.Message {
	var messages []domain.Message
	for {
		msg, ok := r.Next(ctx)
		if !ok {
			return messages
		}
		messages = append(messages, msg)
	}
}

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

const defaultAttachmentWorkers = 4

type AttachmentReader interface {
	ReadAttachment(ctx context.Context, attachment domain.Attachment) ([]byte, error)
}

// Assembler merges the reply chain, the history window and the trigger
// message into one transcript ordered by time.
type Assembler struct {
	reader  AttachmentReader
	workers int
}

func NewAssembler(reader AttachmentReader, workers int) *Assembler {
	if workers <= 0 {
		workers = defaultAttachmentWorkers
	}
	return &Assembler{
		reader:  reader,
		workers: workers,
	}
}

// Assemble returns one entry per distinct message id, sorted by timestamp.
// Messages written by botUserID become assistant turns.
func (a *Assembler) Assemble(ctx context.Context, botUserID string, trigger domain.Message, replyChain, history []domain.Message) []domain.ContextEntry {
	candidates := make([]domain.Message, 0, len(replyChain)+len(history)+1)
	candidates = append(candidates, replyChain...)
	candidates = append(candidates, history...)
	candidates = append(candidates, trigger)

	messages := lo.UniqBy(candidates, func(m domain.Message) string { return m.ID })
	sort.SliceStable(messages, func(i, j int) bool { return messageBefore(messages[i], messages[j]) })

	entries := lo.Map(messages, func(m domain.Message, _ int) domain.ContextEntry {
		return toContextEntry(botUserID, m)
	})

	a.attachImages(ctx, messages, entries)

	return entries
}

// messageBefore orders by timestamp, then by snowflake id.
func messageBefore(a, b domain.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if len(a.ID) != len(b.ID) {
		return len(a.ID) < len(b.ID)
	}
	return a.ID < b.ID
}

func toContextEntry(botUserID string, m domain.Message) domain.ContextEntry {
	entry := domain.ContextEntry{MessageID: m.ID}

	if m.AuthorID == botUserID {
		entry.Role = domain.ChatMessageRoleAssistant
		entry.Content = m.Content
	} else {
		author, _ := lo.Coalesce(m.AuthorMention, Mention(m.AuthorID))
		entry.Role = domain.ChatMessageRoleUser
		entry.Content = author + ": " + m.Content
	}

	entry.Content = StripMention(entry.Content, botUserID)
	return entry
}

// Mention is the Discord mention token of a user.
func Mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// StripMention removes every mention of userID, including the legacy
// nickname form.
func StripMention(content, userID string) string {
	if userID == "" {
		return content
	}
	content = strings.ReplaceAll(content, Mention(userID), "")
	return strings.ReplaceAll(content, fmt.Sprintf("<@!%s>", userID), "")
}

func IsImage(attachment domain.Attachment) bool {
	return strings.HasPrefix(strings.ToLower(attachment.ContentType), "image/")
}

type imageJob struct {
	entry      int
	attachment domain.Attachment
}

// attachImages reads the image attachments of all messages concurrently.
// An attachment that can't be read is left out.
func (a *Assembler) attachImages(ctx context.Context, messages []domain.Message, entries []domain.ContextEntry) {
	if a.reader == nil {
		return
	}

	var jobs []imageJob
	for i, m := range messages {
		for _, attachment := range lo.Filter(m.Attachments, func(att domain.Attachment, _ int) bool { return IsImage(att) }) {
			jobs = append(jobs, imageJob{entry: i, attachment: attachment})
		}
	}
	if len(jobs) == 0 {
		return
	}

	results := make([][]byte, len(jobs))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, job := range jobs {
		g.Go(func() error {
			data, err := a.reader.ReadAttachment(ctx, job.attachment)
			if err != nil {
				slog.WarnContext(ctx, "Skipping unreadable attachment",
					"messageID", entries[job.entry].MessageID,
					"attachmentID", job.attachment.ID,
					logger.Err(err),
				)
				return nil
			}
			results[i] = data
			return nil
		})
	}
	_ = g.Wait()

	for i, job := range jobs {
		if results[i] == nil {
			continue
		}
		entries[job.entry].Images = append(entries[job.entry].Images, domain.Image{
			ContentType: job.attachment.ContentType,
			Data:        results[i],
		})
	}
}

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

const botID = "1000"

type fakeReader struct {
	mu       sync.Mutex
	data     map[string][]byte
	inFlight atomic.Int32
	peak     atomic.Int32
	reads    []string
}

func (f *fakeReader) ReadAttachment(_ context.Context, attachment domain.Attachment) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, attachment.ID)
	data, ok := f.data[attachment.ID]
	if !ok {
		return nil, errors.New("attachment gone")
	}
	return data, nil
}

func entryIDs(entries []domain.ContextEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.MessageID
	}
	return out
}

func TestAssembleReplyChainAndHistoryScenario(t *testing.T) {
	m1, m2, m3 := msg("M1", 1), msg("M2", 2), msg("M3", 3)
	m4 := reply("M4", 4, "M3")
	m5 := reply("M5", 5, "M4")
	f := &fakeFetcher{messages: map[string]domain.Message{"M3": m3, "M4": m4}}

	replyChain := WalkReplies(f, m5, 2).Collect(context.Background())
	history := []domain.Message{m1, m2, m3}

	entries := NewAssembler(nil, 0).Assemble(context.Background(), botID, m5, replyChain, history)

	if want := []string{"M1", "M2", "M3", "M4", "M5"}; !equalIDs(entryIDs(entries), want) {
		t.Errorf("expected %v, got %v", want, entryIDs(entries))
	}
}

func TestAssembleDeduplicatesAndSorts(t *testing.T) {
	m1, m2, m3 := msg("M1", 1), msg("M2", 2), msg("M3", 3)
	trigger := msg("M4", 4)

	entries := NewAssembler(nil, 0).Assemble(context.Background(), botID, trigger,
		[]domain.Message{m3, m2, m2},
		[]domain.Message{m3, m1, trigger, m1},
	)

	got := entryIDs(entries)
	if want := []string{"M1", "M2", "M3", "M4"}; !equalIDs(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAssembleBreaksTimestampTiesByID(t *testing.T) {
	a := msg("1234567890123", 1)
	b := msg("999999999999", 1)
	c := msg("1234567890124", 1)

	entries := NewAssembler(nil, 0).Assemble(context.Background(), botID, c, nil, []domain.Message{c, a, b})

	if want := []string{"999999999999", "1234567890123", "1234567890124"}; !equalIDs(entryIDs(entries), want) {
		t.Errorf("expected %v, got %v", want, entryIDs(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].MessageID == entries[i].MessageID {
			t.Errorf("duplicate id %s", entries[i].MessageID)
		}
	}
}

func TestAssembleRolesAndMentions(t *testing.T) {
	user := msg("M1", 1)
	user.AuthorID = "42"
	user.AuthorMention = "<@42>"
	user.Content = "<@1000> what is <@!1000> doing?"

	bot := msg("M2", 2)
	bot.AuthorID = botID
	bot.AuthorMention = "<@1000>"
	bot.Content = "I am <@1000>, hi <@42>"

	noMention := msg("M3", 3)
	noMention.AuthorID = "43"
	noMention.AuthorMention = ""

	entries := NewAssembler(nil, 0).Assemble(context.Background(), botID, noMention, nil, []domain.Message{bot, user})

	if entries[0].Role != domain.ChatMessageRoleUser || entries[0].Content != "<@42>:  what is  doing?" {
		t.Errorf("entry 0: got %s/%q", entries[0].Role, entries[0].Content)
	}
	if entries[1].Role != domain.ChatMessageRoleAssistant || entries[1].Content != "I am , hi <@42>" {
		t.Errorf("entry 1: got %s/%q", entries[1].Role, entries[1].Content)
	}
	if !strings.HasPrefix(entries[2].Content, "<@43>: ") {
		t.Errorf("entry 2: expected mention built from author id, got %q", entries[2].Content)
	}
}

func TestAssembleReadsImagesConcurrently(t *testing.T) {
	reader := &fakeReader{data: map[string][]byte{
		"a1": []byte("png-1"),
		"a2": []byte("png-2"),
		"b1": []byte("jpeg-1"),
		"t1": []byte("text"),
	}}

	first := msg("M1", 1)
	first.Attachments = []domain.Attachment{
		{ID: "a1", ContentType: "image/png"},
		{ID: "t1", ContentType: "text/plain"},
		{ID: "a2", ContentType: "IMAGE/PNG"},
		{ID: "gone", ContentType: "image/gif"},
	}
	second := msg("M2", 2)
	second.Attachments = []domain.Attachment{{ID: "b1", ContentType: "image/jpeg"}}

	entries := NewAssembler(reader, 2).Assemble(context.Background(), botID, second, nil, []domain.Message{first})

	if len(reader.reads) != 4 {
		t.Errorf("expected 4 image reads, got %v", reader.reads)
	}
	if peak := reader.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent reads, got %d", peak)
	}

	if len(entries[0].Images) != 2 {
		t.Fatalf("expected 2 images on first entry, got %d", len(entries[0].Images))
	}
	if string(entries[0].Images[0].Data) != "png-1" || string(entries[0].Images[1].Data) != "png-2" {
		t.Errorf("images out of attachment order: %q, %q", entries[0].Images[0].Data, entries[0].Images[1].Data)
	}
	if len(entries[1].Images) != 1 || entries[1].Images[0].ContentType != "image/jpeg" {
		t.Errorf("unexpected images on second entry: %+v", entries[1].Images)
	}
}

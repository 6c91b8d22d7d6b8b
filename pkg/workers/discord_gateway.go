package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

type Session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

type EventHandler interface {
	HandleReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready)
	HandleMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate)
	HandleInteractionCreate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate)
}

type ResponseSender interface {
	SendResponse(ctx context.Context, response *domain.Response)
}

type discordGateway struct {
	session    Session
	handler    EventHandler
	sender     ResponseSender
	responseCh <-chan domain.Response

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewDiscordGateway(
	session Session,
	handler EventHandler,
	sender ResponseSender,
	responseCh <-chan domain.Response,
) (*discordGateway, error) {
	return &discordGateway{
		session:    session,
		handler:    handler,
		sender:     sender,
		responseCh: responseCh,
	}, nil
}

func (g *discordGateway) Name() string { return "discord_gateway_worker" }

// Start connects to the gateway and forwards replies until ctx is done.
// Events arriving during shutdown are dropped and in-flight ones are awaited
// before the session closes.
func (g *discordGateway) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", g.Name())
	defer slog.Info("Worker stopped", "name", g.Name())

	removers := []func(){
		g.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			g.dispatch(ctx, func(ctx context.Context) { g.handler.HandleReady(ctx, s, r) })
		}),
		g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			g.dispatch(ctx, func(ctx context.Context) { g.handler.HandleMessageCreate(ctx, s, m) })
		}),
		g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			g.dispatch(ctx, func(ctx context.Context) { g.handler.HandleInteractionCreate(ctx, s, i) })
		}),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return nil
		case response := <-g.responseCh:
			g.sender.SendResponse(ctx, &response)
		}
	}
}

// dispatch runs fn on the calling event goroutine with its own request id.
func (g *discordGateway) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return
	}
	g.wg.Add(1)
	g.mu.Unlock()
	defer g.wg.Done()

	fn(logger.ContextWithRequestID(ctx, uuid.NewString()))
}

func (g *discordGateway) shutdown() {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	g.wg.Wait()

	if err := g.session.Close(); err != nil {
		slog.Error("Closing discord session", logger.Err(err))
	}
}

package ollama

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

// MaxSuggestions is the number of autocomplete choices Discord accepts.
const MaxSuggestions = 25

const defaultModelCacheTTL = 10 * time.Second

type listModelsFunc func(ctx context.Context) ([]string, error)

// modelCache holds the installed model names for autocomplete and refreshes
// them once they are older than ttl. A failed refresh caches an empty list.
type modelCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	fetchedAt time.Time
	models    []string

	list listModelsFunc
	now  func() time.Time
}

func newModelCache(ttl time.Duration, list listModelsFunc) *modelCache {
	if ttl <= 0 {
		ttl = defaultModelCacheTTL
	}
	return &modelCache{
		ttl:  ttl,
		list: list,
		now:  time.Now,
	}
}

func (m *modelCache) Models(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.fetchedAt.IsZero() || now.Sub(m.fetchedAt) > m.ttl {
		models, err := m.list(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Refreshing model cache", logger.Err(err))
			models = nil
		}
		m.models = models
		m.fetchedAt = now
	}

	return append([]string(nil), m.models...)
}

func (m *modelCache) Suggest(ctx context.Context, query string) []string {
	query = strings.ToLower(query)
	matches := lo.Filter(m.Models(ctx), func(model string, _ int) bool {
		return strings.Contains(strings.ToLower(model), query)
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	return matches
}

package ollama

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeLister struct {
	calls  int
	models []string
	err    error
}

func (f *fakeLister) list(context.Context) ([]string, error) {
	f.calls++
	return f.models, f.err
}

func newTestCache(ttl time.Duration, lister *fakeLister) (*modelCache, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newModelCache(ttl, lister.list)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestModelCacheRefreshesAfterTTL(t *testing.T) {
	lister := &fakeLister{models: []string{"llama3"}}
	cache, now := newTestCache(10*time.Second, lister)

	cache.Models(context.Background())
	*now = now.Add(10 * time.Second)
	cache.Models(context.Background())
	if lister.calls != 1 {
		t.Fatalf("expected cached result within ttl, got %d calls", lister.calls)
	}

	lister.models = []string{"llama3", "phi3"}
	*now = now.Add(time.Second)
	got := cache.Models(context.Background())
	if lister.calls != 2 || len(got) != 2 {
		t.Errorf("expected refresh after ttl, got %d calls and %v", lister.calls, got)
	}
}

func TestModelCacheCachesFailureAsEmpty(t *testing.T) {
	lister := &fakeLister{models: []string{"llama3"}}
	cache, now := newTestCache(10*time.Second, lister)
	cache.Models(context.Background())

	lister.err = errors.New("connection refused")
	*now = now.Add(11 * time.Second)
	if got := cache.Models(context.Background()); len(got) != 0 {
		t.Errorf("expected empty list after failed refresh, got %v", got)
	}

	lister.err = nil
	*now = now.Add(5 * time.Second)
	if got := cache.Models(context.Background()); len(got) != 0 || lister.calls != 2 {
		t.Errorf("expected failure to be cached for ttl, got %v after %d calls", got, lister.calls)
	}
}

func TestModelCacheSuggest(t *testing.T) {
	var models []string
	for i := 0; i < 30; i++ {
		models = append(models, fmt.Sprintf("Llama-%02d", i))
	}
	models = append(models, "mistral")
	cache, _ := newTestCache(time.Minute, &fakeLister{models: models})

	if got := cache.Suggest(context.Background(), "llama"); len(got) != MaxSuggestions {
		t.Errorf("expected %d suggestions, got %d", MaxSuggestions, len(got))
	}
	if got := cache.Suggest(context.Background(), "TRAL"); len(got) != 1 || got[0] != "mistral" {
		t.Errorf("unexpected suggestions %v", got)
	}
	if got := cache.Suggest(context.Background(), ""); len(got) != MaxSuggestions {
		t.Errorf("expected empty query to match everything, got %d", len(got))
	}
}

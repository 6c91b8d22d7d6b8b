package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
	"github.com/dskvich/discord-ollama-bot/pkg/logger"
)

// settingsEntry is the on-disk shape of one guild. Nil fields are omitted on
// save and fall back to defaults on load.
type settingsEntry struct {
	SystemPrompt   *string `json:"system_prompt,omitempty"`
	Model          *string `json:"model,omitempty"`
	RequiredRole   *uint64 `json:"required_role,omitempty"`
	ReplyHistory   *int    `json:"reply_history,omitempty"`
	MessageHistory *int    `json:"message_history,omitempty"`
}

// settingsStore keeps guild settings in memory and writes the whole set to a
// JSON file after every change.
type settingsStore struct {
	path string

	mu     sync.RWMutex
	guilds map[uint64]*domain.GuildSettings

	// saveMu serializes writers of the backing file.
	saveMu sync.Mutex
}

func NewSettingsStore(path string) *settingsStore {
	return &settingsStore{
		path:   path,
		guilds: make(map[uint64]*domain.GuildSettings),
	}
}

// Get returns a snapshot of the guild settings, creating the entry with
// defaults on first access.
func (s *settingsStore) Get(guildID uint64) domain.GuildSettings {
	s.mu.RLock()
	settings, ok := s.guilds[guildID]
	if ok {
		snapshot := copySettings(settings)
		s.mu.RUnlock()
		return snapshot
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	return copySettings(s.lookupLocked(guildID))
}

// Update applies fn to the live settings of the guild and persists the store.
// It returns the settings as they were written.
func (s *settingsStore) Update(guildID uint64, fn func(*domain.GuildSettings)) domain.GuildSettings {
	s.mu.Lock()
	settings := s.lookupLocked(guildID)
	fn(settings)
	settings.GuildID = guildID
	snapshot := copySettings(settings)
	s.mu.Unlock()

	_ = s.Save()

	return snapshot
}

func (s *settingsStore) SetSystemPrompt(guildID uint64, prompt string) domain.GuildSettings {
	return s.Update(guildID, func(gs *domain.GuildSettings) { gs.SystemPrompt = prompt })
}

func (s *settingsStore) SetModel(guildID uint64, model string) domain.GuildSettings {
	return s.Update(guildID, func(gs *domain.GuildSettings) { gs.Model = model })
}

// SetRequiredRole restricts the settings commands to roleID. A nil roleID
// lifts the restriction.
func (s *settingsStore) SetRequiredRole(guildID uint64, roleID *uint64) domain.GuildSettings {
	return s.Update(guildID, func(gs *domain.GuildSettings) { gs.RequiredRoleID = copyID(roleID) })
}

func (s *settingsStore) SetHistory(guildID uint64, replyHistory, messageHistory int) domain.GuildSettings {
	return s.Update(guildID, func(gs *domain.GuildSettings) {
		gs.ReplyHistory = max(replyHistory, 0)
		gs.MessageHistory = max(messageHistory, 0)
	})
}

func (s *settingsStore) lookupLocked(guildID uint64) *domain.GuildSettings {
	settings, ok := s.guilds[guildID]
	if !ok {
		settings = domain.NewGuildSettings(guildID)
		s.guilds[guildID] = settings
	}
	return settings
}

// Load replaces the in-memory settings with the content of the backing file.
// A missing file leaves the store empty, a malformed one resets it.
func (s *settingsStore) Load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Settings file not found", "path", s.path)
		return
	}
	if err != nil {
		s.reset()
		slog.Error("Reading settings file", "path", s.path, logger.Err(err))
		return
	}

	guilds, err := decodeSettings(data)
	if err != nil {
		s.reset()
		slog.Error("Loading settings", "path", s.path, logger.Err(err))
		return
	}

	s.mu.Lock()
	s.guilds = guilds
	s.mu.Unlock()

	slog.Debug("Settings loaded", "path", s.path, "guilds", len(guilds))
}

func (s *settingsStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guilds = make(map[uint64]*domain.GuildSettings)
}

// Save writes every guild to the backing file. The in-memory state is kept
// whether or not the write succeeds.
func (s *settingsStore) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := s.encode()
	if err != nil {
		slog.Error("Encoding settings", "path", s.path, logger.Err(err))
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		slog.Error("Saving settings", "path", s.path, logger.Err(err))
		return fmt.Errorf("saving settings: %w", err)
	}

	slog.Debug("Settings saved", "path", s.path)
	return nil
}

func (s *settingsStore) encode() ([]byte, error) {
	s.mu.RLock()
	entries := make(map[string]settingsEntry, len(s.guilds))
	for guildID, gs := range s.guilds {
		entries[strconv.FormatUint(guildID, 10)] = settingsEntry{
			SystemPrompt:   lo.ToPtr(gs.SystemPrompt),
			Model:          lo.ToPtr(gs.Model),
			RequiredRole:   copyID(gs.RequiredRoleID),
			ReplyHistory:   lo.ToPtr(gs.ReplyHistory),
			MessageHistory: lo.ToPtr(gs.MessageHistory),
		}
	}
	s.mu.RUnlock()

	return json.MarshalIndent(entries, "", "  ")
}

func decodeSettings(data []byte) (map[uint64]*domain.GuildSettings, error) {
	if err := validateSettings(data); err != nil {
		return nil, err
	}

	var entries map[string]settingsEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	guilds := make(map[uint64]*domain.GuildSettings, len(entries))
	for key, entry := range entries {
		guildID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing guild id %q: %w", key, err)
		}

		gs := domain.NewGuildSettings(guildID)
		gs.SystemPrompt = lo.FromPtrOr(entry.SystemPrompt, gs.SystemPrompt)
		gs.Model = lo.FromPtrOr(entry.Model, gs.Model)
		gs.RequiredRoleID = copyID(entry.RequiredRole)
		gs.ReplyHistory = lo.FromPtrOr(entry.ReplyHistory, gs.ReplyHistory)
		gs.MessageHistory = lo.FromPtrOr(entry.MessageHistory, gs.MessageHistory)
		guilds[guildID] = gs
	}

	return guilds, nil
}

// writeFileAtomic replaces path with data through a rename so readers never
// see a truncated file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directories for '%s': %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

func copySettings(gs *domain.GuildSettings) domain.GuildSettings {
	c := *gs
	c.RequiredRoleID = copyID(gs.RequiredRoleID)
	return c
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	return lo.ToPtr(*id)
}

package prefstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/AO-Miko/Discord-Bot/internal/faults"
)

// GuildPrefs are the per-guild notification settings.
type GuildPrefs struct {
	GuildID          string `json:"guild_id"`
	ChannelID        string `json:"channel_id,omitempty"`
	NotifyOutages    bool   `json:"notify_outages"`
	NotifyRecoveries bool   `json:"notify_recoveries"`
	MentionRole      string `json:"mention_role,omitempty"`
}

// Store persists guild preferences in a single JSON file. The first
// load is coalesced through a singleflight group so concurrent readers
// share one disk read; mutations hold the mutex across the whole
// read-modify-write, so a concurrent Set cannot lose a writer's update.
type Store struct {
	path   string
	logger *slog.Logger

	mutex     sync.Mutex
	loadGroup singleflight.Group
	loaded    bool
	prefs     map[string]GuildPrefs
}

func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		prefs:  make(map[string]GuildPrefs),
	}
}

// Get returns the preferences for guildID and whether any were set.
func (s *Store) Get(guildID string) (GuildPrefs, bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return GuildPrefs{}, false, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	prefs, ok := s.prefs[guildID]
	return prefs, ok, nil
}

// Set stores the preferences for guildID and writes the file.
func (s *Store) Set(guildID string, prefs GuildPrefs) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	prefs.GuildID = guildID

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.prefs[guildID] = prefs
	return s.saveLocked()
}

// Delete removes the preferences for guildID, if any, and writes the file.
func (s *Store) Delete(guildID string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.prefs[guildID]; !ok {
		return nil
	}
	delete(s.prefs, guildID)
	return s.saveLocked()
}

// Count returns the number of guilds with stored preferences.
func (s *Store) Count() (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.prefs), nil
}

// Reload drops the in-memory copy so the next access re-reads the file.
func (s *Store) Reload() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.loaded = false
	s.prefs = make(map[string]GuildPrefs)
}

func (s *Store) ensureLoaded() error {
	s.mutex.Lock()
	loaded := s.loaded
	s.mutex.Unlock()
	if loaded {
		return nil
	}

	_, err, _ := s.loadGroup.Do("load", func() (interface{}, error) {
		return nil, s.load()
	})
	return err
}

func (s *Store) load() error {
	prefs := make(map[string]GuildPrefs)

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("Preference file missing, starting empty",
			slog.String("path", s.path))
	case err != nil:
		return faults.Tag(faults.KindFilesystem, fmt.Errorf("reading %s: %w", s.path, err))
	default:
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return faults.Tag(faults.KindFilesystem, fmt.Errorf("parsing %s: %w", s.path, err))
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.loaded {
		s.prefs = prefs
		s.loaded = true
	}
	return nil
}

// saveLocked writes the file via a temp-file rename. Callers must hold
// the mutex.
func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return faults.Tag(faults.KindFilesystem, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return faults.Tag(faults.KindFilesystem, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return faults.Tag(faults.KindFilesystem, err)
	}
	return nil
}

// Package file persists the style profile as a single JSON document on disk.
//
// Writes go to a temporary file in the same directory followed by a rename,
// so readers observe either the previous profile or the new one. Loaded
// profiles are cached in memory; an fsnotify watcher on the parent directory
// drops the cache whenever the file is changed by another process.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.StyleProfileStore = (*Store)(nil)

// Store is a JSON file implementation of driven.StyleProfileStore.
type Store struct {
	path string

	mu     sync.RWMutex
	cached *domain.StyleProfile
	// gen counts invalidations. A file read only fills the cache when no
	// invalidation happened since it started.
	gen uint64

	// afterRead runs between reading the file and filling the cache.
	afterRead func()

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewStore creates a profile store writing to path.
// If path is empty, defaults to ./data/style_profile.json.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(domain.DefaultDataDir, domain.StyleProfileFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}

	s := &Store{
		path: path,
		done: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Profile cache disabled, cannot watch %s: %v", path, err)
		return s, nil
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		logger.Warn("Profile cache disabled, cannot watch %s: %v", path, err)
		return s, nil
	}

	s.watcher = watcher
	s.wg.Add(1)
	go s.watch()

	return s, nil
}

// Path returns the profile file location.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the profile file.
func (s *Store) Save(ctx context.Context, profile *domain.StyleProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: nil profile", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling profile: %w", err)
	}

	gen := s.generation()
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	s.fill(gen, profile)

	logger.Debug("Saved style profile to %s", s.path)
	return nil
}

// Load reads the profile. It returns domain.ErrNotFound when no profile has been saved.
func (s *Store) Load(ctx context.Context) (*domain.StyleProfile, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return copyProfile(cached), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen := s.generation()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var profile domain.StyleProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", s.path, err)
	}

	if s.afterRead != nil {
		s.afterRead()
	}
	s.fill(gen, &profile)

	return &profile, nil
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// fill caches profile unless the file changed after gen was taken.
func (s *Store) fill(gen uint64, profile *domain.StyleProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil && s.gen == gen {
		s.cached = copyProfile(profile)
	}
}

// Close stops the file watcher.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			s.closeErr = s.watcher.Close()
		}
		s.wg.Wait()
	})
	return s.closeErr
}

func (s *Store) watch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Profile watcher error: %v", err)
			s.invalidate()
		}
	}
}

// handleEvent drops the cache when the profile file itself changes.
// Chmod-only events are ignored.
func (s *Store) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	s.invalidate()
	return true
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
}

// writeFileAtomic writes data to a temp file next to path, then renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp profile: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp profile: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp profile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}

func copyProfile(p *domain.StyleProfile) *domain.StyleProfile {
	c := *p
	c.CommonPhrases = slices.Clone(p.CommonPhrases)
	return &c
}

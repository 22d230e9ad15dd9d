package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Store persists the requirements document at a fixed workspace path and
// keeps a parsed copy in memory. A filesystem watcher reloads the document
// when it is rewritten outside this process, so a document generated by one
// run is visible to agents in another.
type Store struct {
	path    string
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	mu  sync.RWMutex
	doc *Document
}

// NewStore creates a store for the document at path. The file does not need
// to exist yet; if it does, it is loaded immediately.
func NewStore(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("artifact: document path is required")
	}
	s := &Store{path: path, log: log}
	if _, err := os.Stat(path); err == nil {
		if _, err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the document's location on disk.
func (s *Store) Path() string { return s.path }

// Load reads and parses the document from disk, replacing the cached copy.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading requirements document: %w", err)
	}
	doc := Parse(string(data))

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return doc, nil
}

// Save writes content to disk and updates the cached document. The previous
// document, if any, is replaced.
func (s *Store) Save(content string) (*Document, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating document directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing requirements document: %w", err)
	}
	doc := Parse(content)

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.log.Info().Str("path", s.path).Int("requirements", len(doc.Requirements)).Msg("saved requirements document")
	return doc, nil
}

// Current returns the cached document, or nil when none has been loaded or
// saved yet.
func (s *Store) Current() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Watch starts reloading the document whenever the file changes on disk.
// Call Close to stop.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory rather than the file so replace-by-rename is
	// observed.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != s.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if _, err := s.Load(); err != nil {
					s.log.Warn().Err(err).Msg("failed to reload requirements document")
					continue
				}
				s.log.Debug().Str("path", s.path).Msg("reloaded requirements document")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("requirements watcher error")
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

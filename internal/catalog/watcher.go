// internal/catalog/watcher.go
package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads a catalog file into a Catalog whenever the file changes.
// A file that fails to load leaves the current table in place.
type Watcher struct {
	path    string
	catalog *Catalog
	watcher *fsnotify.Watcher
}

func NewWatcher(path string, c *Catalog) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, catalog: c, watcher: w}, nil
}

// Reload loads the file once and swaps the table.
func (w *Watcher) Reload() error {
	entries, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	w.catalog.Replace(entries)
	log.Info().Str("path", w.path).Int("foods", len(entries)).Msg("food catalog loaded")
	return nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				log.Warn().Err(err).Str("path", w.path).Msg("keeping previous food catalog")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("catalog watcher error")
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

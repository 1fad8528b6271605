// Package watcher ingests documents dropped into the input directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"document-qa/internal/parser"
)

// IngestFunc processes one settled file.
type IngestFunc func(ctx context.Context, path string) error

// Watcher waits for a file to stop changing for the settle delay before
// handing it to the ingest function. Only the top level of dir is watched.
type Watcher struct {
	dir    string
	settle time.Duration
	ingest IngestFunc
	fsw    *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile
	wg      sync.WaitGroup
}

// pendingFile is a file waiting out its settle delay.
type pendingFile struct {
	timer *time.Timer
}

func New(dir string, settle time.Duration, ingest IngestFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		ingest:  ingest,
		fsw:     fsw,
		pending: make(map[string]*pendingFile),
	}, nil
}

// Run processes events until ctx is cancelled, then waits for in-flight
// ingestion to finish.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().Str("dir", w.dir).Dur("settle", w.settle).Msg("Watching input directory")
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("dir", w.dir).Msg("Watcher error")
		}
	}
}

// handleEvent schedules ingestion for created or written documents and
// reports whether it did.
func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !parser.Supported(name) {
		return false
	}
	if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[ev.Name]; ok && p.timer.Stop() {
		p.timer.Reset(w.settle)
		return true
	}

	p := &pendingFile{}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[ev.Name] == p {
			delete(w.pending, ev.Name)
		}
		w.mu.Unlock()

		log.Info().Str("file", ev.Name).Msg("New file detected")
		if err := w.ingest(ctx, ev.Name); err != nil {
			log.Error().Err(err).Str("file", ev.Name).Msg("Automatic ingestion failed")
		}
	})
	w.pending[ev.Name] = p
	return true
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for name, p := range w.pending {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
	w.fsw.Close()
}

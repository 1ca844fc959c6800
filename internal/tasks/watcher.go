package tasks

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"pixelmorph/internal/fsutil"
)

// PairEvent reports a completed source/target pair dropped into a
// watched directory.
type PairEvent struct {
	Base       string // shared stem, e.g. "sunset" for sunset.source.png
	SourcePath string
	TargetPath string
}

// Watcher observes drop directories for image pairs. Files are named
// <base>.source.<ext> and <base>.target.<ext>; once both halves of a
// pair exist, a PairEvent is emitted on Events.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	Events chan PairEvent
	done   chan struct{}

	mu      sync.Mutex
	pending map[string]*PairEvent // base -> partially seen pair
}

// NewWatcher creates a watcher for the given directories.
func NewWatcher(logger *slog.Logger, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		logger:  logger,
		Events:  make(chan PairEvent, 16),
		done:    make(chan struct{}),
		pending: make(map[string]*PairEvent),
	}

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
		logger.Info("watching drop directory", "path", dir)
	}

	return w, nil
}

// Start launches the event loop.
func (w *Watcher) Start() {
	go w.processEvents()
}

// Stop shuts the watcher down. Events is closed after the loop exits.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) processEvents() {
	defer close(w.Events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleFile(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFile records one half of a pair and emits the PairEvent when
// the counterpart has already been seen.
func (w *Watcher) handleFile(path string) {
	if !fsutil.IsImageFile(path) {
		return
	}
	base, role, ok := splitPairName(path)
	if !ok {
		return
	}

	w.mu.Lock()
	ev, exists := w.pending[base]
	if !exists {
		ev = &PairEvent{Base: base}
		w.pending[base] = ev
	}
	switch role {
	case "source":
		ev.SourcePath = path
	case "target":
		ev.TargetPath = path
	}
	complete := ev.SourcePath != "" && ev.TargetPath != ""
	if complete {
		delete(w.pending, base)
	}
	w.mu.Unlock()

	if complete {
		w.logger.Info("image pair complete", "base", base)
		select {
		case w.Events <- *ev:
		case <-w.done:
		}
	}
}

// splitPairName parses "<base>.source.<ext>" or "<base>.target.<ext>".
// The base is keyed per directory so identically named pairs in
// different drop dirs do not collide.
func splitPairName(path string) (base, role string, ok bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	switch {
	case strings.HasSuffix(name, ".source"):
		role = "source"
	case strings.HasSuffix(name, ".target"):
		role = "target"
	default:
		return "", "", false
	}
	base = strings.TrimSuffix(name, "."+role)
	if base == "" {
		return "", "", false
	}
	return filepath.Join(filepath.Dir(path), base), role, true
}

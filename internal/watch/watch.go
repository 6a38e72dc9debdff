// Package watch triggers a handler for ticket files dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultExtensions are the ticket file types picked up by default.
var DefaultExtensions = []string{".txt", ".md", ".eml"}

// Handler processes one settled file. Errors are the handler's to report.
type Handler func(ctx context.Context, path string)

// Watcher calls a Handler once per file after writes to it have settled.
// Files already in the directory when Run starts are ignored.
type Watcher struct {
	dir      string
	handle   Handler
	exts     []string
	debounce time.Duration
	tick     time.Duration
	logger   *slog.Logger
}

type Option func(*Watcher)

// WithDebounce sets how long a file must go without events before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions replaces DefaultExtensions. Matching is case-insensitive.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.exts = exts }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func New(dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		handle:   handle,
		exts:     DefaultExtensions,
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.tick = w.debounce / 5
	if w.tick < 10*time.Millisecond {
		w.tick = 10 * time.Millisecond
	}
	return w
}

// Run blocks until ctx is done. Handlers run on the watch goroutine, one at
// a time, in the order their files settled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for tickets", slog.String("dir", w.dir), slog.Any("extensions", w.exts))

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.matches(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[ev.Name] = time.Now()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))

		case now := <-ticker.C:
			for _, path := range settled(pending, now, w.debounce) {
				delete(pending, path)
				w.handle(ctx, path)
			}
		}
	}
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// settled returns the pending paths quiet for at least d, oldest first.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var out []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if pending[out[i]].Equal(pending[out[j]]) {
			return out[i] < out[j]
		}
		return pending[out[i]].Before(pending[out[j]])
	})
	return out
}

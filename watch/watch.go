// Package watch sends files dropped into a directory to a fixed peer.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is sent.
const DefaultSettle = 500 * time.Millisecond

// FileSender is satisfied by *core.Client.
type FileSender interface {
	SendFile(ctx context.Context, addr, path string) error
}

// SenderFunc adapts a plain function to FileSender.
type SenderFunc func(ctx context.Context, addr, path string) error

func (f SenderFunc) SendFile(ctx context.Context, addr, path string) error {
	return f(ctx, addr, path)
}

type stamp struct {
	size    int64
	modTime time.Time
}

type Watcher struct {
	dir    string
	to     string
	sender FileSender
	log    logger.Logger

	// Settle defaults to DefaultSettle.
	Settle time.Duration
	// OnSent, when set, is called after every attempt.
	OnSent func(path string, err error)

	mu      sync.Mutex
	pending map[string]*time.Timer
	sent    map[string]stamp
}

func New(dir, to string, sender FileSender, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}

	return &Watcher{
		dir:     dir,
		to:      to,
		sender:  sender,
		log:     log.WithStr("dir", dir).WithStr("to", to),
		Settle:  DefaultSettle,
		pending: make(map[string]*time.Timer),
		sent:    make(map[string]stamp),
	}
}

// Run watches until ctx is cancelled. Files already in the directory are
// left alone; only files created or written after Run starts are sent, one
// at a time, once they have been quiet for Settle.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ready := make(chan string, 16)
	done := make(chan struct{})
	defer func() {
		close(done)
		w.stopPending()
	}()

	w.log.Info("watching")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event, ready, done)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithErr(err).Warn("watcher error")

		case path := <-ready:
			w.send(ctx, path)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, ready chan<- string, done <-chan struct{}) {
	if skip(event.Name) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		if t, ok := w.pending[event.Name]; ok {
			t.Stop()
			delete(w.pending, event.Name)
		}
		delete(w.sent, event.Name)
		w.mu.Unlock()
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[event.Name]; ok {
		t.Reset(w.Settle)
		return
	}

	path := event.Name
	w.pending[path] = time.AfterFunc(w.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-done:
		}
	})
}

func (w *Watcher) send(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	st := stamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	prev, seen := w.sent[path]
	w.mu.Unlock()
	if seen && prev.size == st.size && prev.modTime.Equal(st.modTime) {
		return
	}

	log := w.log.WithStr("file", filepath.Base(path))

	err = w.sender.SendFile(ctx, w.to, path)
	if err != nil {
		log.WithErr(err).Error("send failed")
	} else {
		log.Info("sent")
		w.mu.Lock()
		w.sent[path] = st
		w.mu.Unlock()
	}

	if w.OnSent != nil {
		w.OnSent(path, err)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// skip ignores dotfiles and editor droppings.
func skip(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".part")
}

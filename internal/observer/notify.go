package observer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// renamePairWindow bounds how long a Rename waits for the Create that
// names its destination. Unpaired renames are reported as deletions.
const renamePairWindow = 50 * time.Millisecond

type pendingRename struct {
	path  string
	isDir bool
}

// notifyBackend wraps fsnotify. fsnotify watches single directories, so
// recursive watches add every directory in the tree and follow new ones.
type notifyBackend struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// Touched only from start and then the run goroutine.
	dirs           map[string]bool
	recursiveRoots []string
	pending        *pendingRename
}

func newNotifyBackend(logger *slog.Logger) *notifyBackend {
	return &notifyBackend{
		logger: logger.With(slog.String("backend", "fsnotify")),
		dirs:   make(map[string]bool),
	}
}

func (b *notifyBackend) start(watches []*Watch) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	for _, watch := range watches {
		if watch.Recursive {
			b.recursiveRoots = append(b.recursiveRoots, watch.Path)
		}

		if err := b.addPath(w, watch.Path, watch.Recursive); err != nil {
			_ = w.Close()
			return err
		}
	}

	b.watcher = w

	return nil
}

func (b *notifyBackend) addPath(w *fsnotify.Watcher, root string, recursive bool) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	if !info.IsDir() || !recursive {
		if info.IsDir() {
			b.dirs[root] = true
		}

		if err := w.Add(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}

		return nil
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			b.logger.Warn("walk error", slog.String("path", p), slog.String("error", walkErr.Error()))
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}

		b.dirs[p] = true

		return nil
	})
}

func (b *notifyBackend) run(sctx *stopper.Context, emit func(fsevent.Event)) error {
	defer b.watcher.Close()

	var flush <-chan time.Time

	for {
		select {
		case <-sctx.Stopping():
			return nil

		case ev, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}

			b.handle(ev, emit)

			if b.pending != nil {
				flush = time.After(renamePairWindow)
			} else {
				flush = nil
			}

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}

			b.logger.Warn("filesystem watcher error", slog.String("error", err.Error()))

		case <-flush:
			b.flushPending(emit)
			flush = nil
		}
	}
}

func (b *notifyBackend) handle(ev fsnotify.Event, emit func(fsevent.Event)) {
	// Mode changes alone are not reported.
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		b.handleCreate(ev.Name, emit)

	case ev.Has(fsnotify.Write):
		b.flushPending(emit)
		emit(fsevent.Event{Type: fsevent.Modified, SrcPath: ev.Name, IsDir: b.dirs[ev.Name]})

	case ev.Has(fsnotify.Rename):
		b.flushPending(emit)
		b.pending = &pendingRename{path: ev.Name, isDir: b.dirs[ev.Name]}
		b.forget(ev.Name)

	case ev.Has(fsnotify.Remove):
		b.flushPending(emit)
		isDir := b.dirs[ev.Name]
		b.forget(ev.Name)
		emit(fsevent.Event{Type: fsevent.Deleted, SrcPath: ev.Name, IsDir: isDir})
	}
}

func (b *notifyBackend) handleCreate(name string, emit func(fsevent.Event)) {
	info, err := os.Lstat(name)
	if err != nil {
		// Gone again before we looked.
		b.logger.Debug("stat failed for created path", slog.String("path", name), slog.String("error", err.Error()))
		b.flushPending(emit)

		return
	}

	isDir := info.IsDir()

	if p := b.pending; p != nil {
		b.pending = nil
		emit(fsevent.Event{Type: fsevent.Moved, SrcPath: p.path, DestPath: name, IsDir: isDir})
	} else {
		emit(fsevent.Event{Type: fsevent.Created, SrcPath: name, IsDir: isDir})
	}

	if isDir && b.underRecursiveRoot(name) {
		b.followNewDirectory(name, emit)
	}
}

// followNewDirectory watches a directory created under a recursive root
// and reports entries that appeared before the watch was in place.
func (b *notifyBackend) followNewDirectory(dir string, emit func(fsevent.Event)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		if d.IsDir() {
			if err := b.watcher.Add(p); err != nil {
				b.logger.Warn("failed to add watch on new directory",
					slog.String("path", p), slog.String("error", err.Error()))
			}

			b.dirs[p] = true
		}

		if p != dir {
			emit(fsevent.Event{Type: fsevent.Created, SrcPath: p, IsDir: d.IsDir()})
		}

		return nil
	})
}

func (b *notifyBackend) flushPending(emit func(fsevent.Event)) {
	if b.pending == nil {
		return
	}

	p := b.pending
	b.pending = nil
	emit(fsevent.Event{Type: fsevent.Deleted, SrcPath: p.path, IsDir: p.isDir})
}

func (b *notifyBackend) forget(p string) {
	prefix := p + string(filepath.Separator)
	for dir := range b.dirs {
		if dir == p || strings.HasPrefix(dir, prefix) {
			delete(b.dirs, dir)
		}
	}
}

func (b *notifyBackend) underRecursiveRoot(p string) bool {
	for _, root := range b.recursiveRoots {
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

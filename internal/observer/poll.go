package observer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"vawter.tech/stopper"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// maxSnapshotWorkers bounds concurrent tree walks per scan.
const maxSnapshotWorkers = 4

type entry struct {
	info fs.FileInfo
}

func (e entry) changed(other entry) bool {
	return e.info.Size() != other.info.Size() ||
		!e.info.ModTime().Equal(other.info.ModTime()) ||
		e.info.Mode() != other.info.Mode()
}

type snapshot map[string]entry

// pollBackend diffs successive snapshots of the watched trees. It works
// everywhere, including filesystems that deliver no notifications.
type pollBackend struct {
	interval time.Duration
	logger   *slog.Logger

	roots []*Watch
	last  snapshot
}

func newPollBackend(interval time.Duration, logger *slog.Logger) *pollBackend {
	return &pollBackend{
		interval: interval,
		logger:   logger.With(slog.String("backend", "polling")),
	}
}

func (b *pollBackend) start(watches []*Watch) error {
	b.roots = watches

	snap, err := b.snapshot(context.Background())
	if err != nil {
		return err
	}

	b.last = snap

	return nil
}

func (b *pollBackend) run(sctx *stopper.Context, emit func(fsevent.Event)) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sctx.Stopping():
			return nil
		case <-ticker.C:
		}

		next, err := b.snapshot(sctx)
		if err != nil {
			// A root vanishing mid-run is reported by the diff, not here.
			b.logger.Warn("snapshot failed", slog.String("error", err.Error()))
			continue
		}

		for _, ev := range diff(b.last, next) {
			emit(ev)
		}

		b.last = next
	}
}

// snapshot walks every root concurrently and merges the results.
func (b *pollBackend) snapshot(ctx context.Context) (snapshot, error) {
	parts := make([]snapshot, len(b.roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSnapshotWorkers)

	for i, w := range b.roots {
		g.Go(func() error {
			s, err := walkRoot(gctx, w.Path, w.Recursive)
			if err != nil {
				return err
			}

			parts[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(snapshot)
	for _, part := range parts {
		for p, e := range part {
			merged[p] = e
		}
	}

	return merged, nil
}

func walkRoot(ctx context.Context, root string, recursive bool) (snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	snap := make(snapshot)

	if !info.IsDir() {
		snap[root] = entry{info: info}
		return snap, nil
	}

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}

		for _, d := range entries {
			if fi, err := d.Info(); err == nil {
				snap[filepath.Join(root, d.Name())] = entry{info: fi}
			}
		}

		return snap, nil
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if walkErr != nil || p == root {
			return nil
		}

		// Entries removed between readdir and stat are simply absent.
		if fi, err := d.Info(); err == nil {
			snap[p] = entry{info: fi}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return snap, nil
}

// diff compares two snapshots. A deletion and a creation that refer to
// the same underlying file are reported as one move.
func diff(prev, next snapshot) []fsevent.Event {
	var created, deleted, modified []string

	for p, e := range next {
		old, ok := prev[p]
		switch {
		case !ok:
			created = append(created, p)
		case e.changed(old):
			modified = append(modified, p)
		}
	}

	for p := range prev {
		if _, ok := next[p]; !ok {
			deleted = append(deleted, p)
		}
	}

	sort.Strings(created)
	sort.Strings(deleted)
	sort.Strings(modified)

	var events []fsevent.Event

	movedTo := make(map[string]bool)
	remaining := deleted[:0]

	for _, src := range deleted {
		dest := ""
		for _, c := range created {
			if !movedTo[c] && os.SameFile(prev[src].info, next[c].info) {
				dest = c
				break
			}
		}

		if dest == "" {
			remaining = append(remaining, src)
			continue
		}

		movedTo[dest] = true
		events = append(events, fsevent.Event{
			Type: fsevent.Moved, SrcPath: src, DestPath: dest, IsDir: next[dest].info.IsDir(),
		})
	}

	for _, p := range remaining {
		events = append(events, fsevent.Event{Type: fsevent.Deleted, SrcPath: p, IsDir: prev[p].info.IsDir()})
	}

	for _, p := range created {
		if !movedTo[p] {
			events = append(events, fsevent.Event{Type: fsevent.Created, SrcPath: p, IsDir: next[p].info.IsDir()})
		}
	}

	for _, p := range modified {
		events = append(events, fsevent.Event{Type: fsevent.Modified, SrcPath: p, IsDir: next[p].info.IsDir()})
	}

	return events
}

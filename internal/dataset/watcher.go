package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of write events for the same file.
const debounceDelay = 200 * time.Millisecond

// Watch registers every CSV already in dir, then watches it and
// registers new CSVs as they appear. Registration is append-only: a
// file whose dataset name is already taken is skipped. Blocks until
// ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	if err := r.RegisterDir(ctx, dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".csv") {
				continue
			}

			path := event.Name
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounceDelay, func() {
				if err := r.registerFile(ctx, path); err != nil {
					r.logger.Warn("failed to register watched CSV", "path", path, "error", err)
				}
			})

		case err := <-watcher.Errors:
			r.logger.Error("dataset watcher error", "error", err)
		}
	}
}

// RegisterDir registers every CSV currently in dir. A missing
// directory is not an error.
func (r *Registry) RegisterDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.registerFile(ctx, path); err != nil {
			r.logger.Warn("failed to register CSV", "path", path, "error", err)
		}
	}
	return nil
}

// registerFile registers one CSV file under its base name.
func (r *Registry) registerFile(ctx context.Context, path string) error {
	name := strings.TrimSuffix(filepath.Base(path), ".csv")
	if _, exists := r.Get(name); exists {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = r.RegisterCSV(ctx, name, f)
	return err
}

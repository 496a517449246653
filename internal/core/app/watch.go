package app

import (
	"context"
	"log/slog"
	"os"
	"treegrep/internal/core/errors"
	"treegrep/internal/core/watcher"
	"treegrep/internal/engine/discovery"
	"treegrep/internal/engine/extract"
	"treegrep/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDigestCacheSize = 4096

// Watch re-searches files below the configured roots whenever they change
// and passes each file with records to emit. A file whose content digest
// matches the last one seen for its path is skipped. Watch blocks until ctx
// ends, which is not an error, or emit fails, whose error is returned.
func (a *App) Watch(ctx context.Context, emit func(*extract.File) error) error {
	digests, err := newDigestCache(a.Config.CacheSize)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "create digest cache")
	}

	watchCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ignorer := discovery.NewIgnorer(a.walkOptions())

	w, err := watcher.NewWatcher(a.Config.Debounce, a.Config.ExcludeDirs, a.Config.ExcludeFiles, func(paths []string) {
		if err := a.handleChanges(watchCtx, paths, digests, emit); err != nil {
			cancel(err)
		}
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "create watcher")
	}
	defer w.Close()

	w.SetFilter(func(path string) bool {
		if ignorer.Ignored(path) {
			return false
		}
		_, ok := a.selector.SelectPath(path)
		return ok
	})
	if err := w.Watch(a.Config.Paths); err != nil {
		return errors.Wrap(err, errors.CodeTraversal, "watch search roots")
	}
	slog.Info("watching for changes", "paths", a.Config.Paths, "debounce", a.Config.Debounce)

	<-watchCtx.Done()
	if ctx.Err() != nil {
		return nil
	}
	return context.Cause(watchCtx)
}

// newDigestCache maps paths to the xxhash digest of their last searched
// content.
func newDigestCache(size int) (*lru.Cache[string, uint64], error) {
	if size <= 0 {
		size = defaultDigestCacheSize
	}
	return lru.New[string, uint64](size)
}

// handleChanges searches each changed path and emits the files with
// records. It stops at the first emit error.
func (a *App) handleChanges(ctx context.Context, paths []string, digests *lru.Cache[string, uint64], emit func(*extract.File) error) error {
	slog.Info("detected changes", "count", len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil
		}
		source, err := os.ReadFile(path)
		if err != nil {
			digests.Remove(path)
			if !os.IsNotExist(err) {
				err = errors.Wrap(err, errors.CodeFileRead, "read file")
				recordFailure(path, errors.AddContext(err, errors.CtxPath, path))
			}
			continue
		}

		digest := xxhash.Sum64(source)
		if prev, ok := digests.Get(path); ok && prev == digest {
			observability.WatcherSkippedTotal.Inc()
			continue
		}
		digests.Add(path, digest)

		ex, ok := a.selector.SelectPath(path)
		if !ok {
			continue
		}
		file, err := ex.ExtractSource(path, source)
		if err != nil {
			recordFailure(path, err)
			continue
		}
		if file == nil {
			continue
		}
		if err := emit(file); err != nil {
			return err
		}
	}
	return nil
}

package discovery

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"treegrep/internal/core/errors"
	"treegrep/internal/data/queue"
	"treegrep/internal/shared/observability"
)

// Stream delivers entries as workers find them. Entries from one directory
// arrive in name order, but entries from different directories interleave
// arbitrarily.
type Stream struct {
	entries *queue.MemoryQueue[Entry]
	done    chan struct{}

	mu       sync.Mutex
	warnings []error
}

// Next blocks until an entry is available. It returns false once discovery
// has finished and every entry has been delivered, or when ctx ends.
func (s *Stream) Next(ctx context.Context) (Entry, bool) {
	if ctx.Err() != nil {
		return Entry{}, false
	}
	entry, err := s.entries.Dequeue(ctx)
	if err != nil {
		return Entry{}, false
	}
	observability.DiscoveryQueueDepth.Set(float64(s.entries.Len()))
	return entry, true
}

// Done is closed when every worker has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Warnings returns the non-fatal traversal problems seen so far: unreadable
// directories and ignore files.
func (s *Stream) Warnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.warnings...)
}

func (s *Stream) warn(err error) {
	if err == nil {
		return
	}
	observability.TraversalWarningsTotal.Inc()
	slog.Warn("skipping unreadable path", "error", err)
	s.mu.Lock()
	s.warnings = append(s.warnings, err)
	s.mu.Unlock()
}

type dirJob struct {
	path  string
	abs   string
	root  string
	depth int
	rules *ignoreRules
}

type walker struct {
	opts    Options
	exclude *excluder
	jobs    *queue.MemoryQueue[dirJob]
	pending sync.WaitGroup
	stream  *Stream
}

// Walk validates the roots and starts discovery in the background. A missing
// root or an invalid exclude pattern is returned before any work starts.
func Walk(ctx context.Context, opts Options) (*Stream, error) {
	if len(opts.Roots) == 0 {
		return nil, errors.New(errors.CodeConfig, "no search roots given")
	}
	infos := make([]os.FileInfo, len(opts.Roots))
	for i, root := range opts.Roots {
		info, err := os.Stat(root)
		if err != nil {
			err = errors.Wrap(err, errors.CodeTraversal, "search root is not accessible")
			return nil, errors.AddContext(err, errors.CtxPath, root)
		}
		infos[i] = info
	}
	exclude, err := newExcluder(opts.ExcludeDirs, opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	w := &walker{
		opts:    opts,
		exclude: exclude,
		jobs:    queue.NewMemoryQueue[dirJob](),
		stream: &Stream{
			entries: queue.NewMemoryQueue[Entry](),
			done:    make(chan struct{}),
		},
	}

	var global []ignorePattern
	if opts.GitIgnore {
		global, err = loadGlobalPatterns()
		w.stream.warn(err)
	}

	for i, root := range opts.Roots {
		info := infos[i]
		if !info.IsDir() {
			w.emit(ctx, Entry{Path: root, Root: root, IsFile: info.Mode().IsRegular()})
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			err = errors.Wrap(err, errors.CodeTraversal, "resolve search root")
			return nil, errors.AddContext(err, errors.CtxPath, root)
		}
		rules, warnings := rootIgnoreRules(abs, opts.GitIgnore, global)
		for _, warning := range warnings {
			w.stream.warn(warning)
		}
		w.emit(ctx, Entry{Path: root, Root: root, IsDir: true})
		w.push(dirJob{path: root, abs: abs, root: root, rules: rules})
	}

	var running sync.WaitGroup
	for i := 0; i < workers; i++ {
		running.Add(1)
		go func() {
			defer running.Done()
			w.work(ctx)
		}()
	}
	go func() {
		w.pending.Wait()
		_ = w.jobs.Close()
	}()
	go func() {
		running.Wait()
		_ = w.stream.entries.Close()
		close(w.stream.done)
	}()

	return w.stream, nil
}

func (w *walker) push(job dirJob) {
	w.pending.Add(1)
	if !w.jobs.Enqueue(job) {
		w.pending.Done()
	}
}

func (w *walker) emit(ctx context.Context, entry Entry) {
	if ctx.Err() != nil {
		return
	}
	if w.stream.entries.Enqueue(entry) {
		observability.FilesDiscoveredTotal.Inc()
	}
}

// work drains the job queue. Once ctx ends, jobs are acknowledged without
// being read so the pending count still reaches zero.
func (w *walker) work(ctx context.Context) {
	for {
		job, err := w.jobs.Dequeue(context.Background())
		if err != nil {
			return
		}
		if ctx.Err() == nil {
			w.readDir(ctx, job)
		}
		w.pending.Done()
	}
}

func (w *walker) readDir(ctx context.Context, job dirJob) {
	entries, err := os.ReadDir(job.abs)
	if err != nil {
		err = errors.Wrap(err, errors.CodeTraversal, "read directory")
		w.stream.warn(errors.AddContext(err, errors.CtxPath, job.path))
		if len(entries) == 0 {
			return
		}
	}

	extra, warnings := job.rules.loadDirPatterns(job.abs)
	for _, warning := range warnings {
		w.stream.warn(warning)
	}
	rules := job.rules.with(extra)

	for _, d := range entries {
		if ctx.Err() != nil {
			return
		}
		if d.Type()&fs.ModeSymlink != 0 {
			continue
		}
		name := d.Name()
		isDir := d.IsDir()
		if skipName(name, isDir, w.opts.Hidden) || w.exclude.excluded(name, isDir) {
			continue
		}
		abs := filepath.Join(job.abs, name)
		if rules.ignored(abs, isDir) {
			continue
		}

		entry := Entry{
			Path:   filepath.Join(job.path, name),
			Root:   job.root,
			Depth:  job.depth + 1,
			IsDir:  isDir,
			IsFile: d.Type().IsRegular(),
		}
		w.emit(ctx, entry)
		if isDir {
			w.push(dirJob{path: entry.Path, abs: abs, root: job.root, depth: entry.Depth, rules: rules})
		}
	}
}
